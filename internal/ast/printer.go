package ast

import (
	"fmt"
	"strings"
)

// Sprint renders a File as an indented tree, for readable test failure
// diffs — the template source is already the only surface syntax, so unlike
// a general-purpose AST printer this never needs to reproduce source text,
// only show structure.
func Sprint(file *File) string {
	var sb strings.Builder
	sb.WriteString("File\n")
	printNodes(&sb, file.Nodes, 1)
	return sb.String()
}

func printNodes(sb *strings.Builder, nodes []Node, indent int) {
	prefix := strings.Repeat("  ", indent)
	for _, n := range nodes {
		switch v := n.(type) {
		case *TextNode:
			fmt.Fprintf(sb, "%sText[%d] %q\n", prefix, v.Index, string(v.Bytes))
		case *ParameterNode:
			fmt.Fprintf(sb, "%sParameter %q\n", prefix, v.Name)
		case *ConditionalNode:
			fmt.Fprintf(sb, "%sConditional %q\n", prefix, v.CondName)
			printNodes(sb, v.Body, indent+1)
		default:
			fmt.Fprintf(sb, "%s<unknown node>\n", prefix)
		}
	}
}
