// Package params implements the parameter collector: walking the IR to
// produce the two sorted, deduplicated parameter lists every downstream
// generator stage keys off (spec §4.1).
package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lhaig/tmplc/internal/ast"
)

// MaxFlatArgs is the Component Model canonical ABI's cap on flat scalar
// arguments (spec §4.1).
const MaxFlatArgs = 16

// Params holds the sorted, deduplicated text and condition parameter names
// referenced by a template, plus the quantities every other stage derives
// from them (spec §4.1, §9 "must_spill").
type Params struct {
	Text []string
	Cond []string
}

// Collect walks an IR tree and produces its Params, or an error if a name is
// used as both a text and a condition parameter (spec §9, open question:
// "treat as a parse-time error").
func Collect(nodes []ast.Node) (*Params, error) {
	textSet := map[string]bool{}
	condSet := map[string]bool{}

	var walk func([]ast.Node)
	walk = func(ns []ast.Node) {
		for _, n := range ns {
			switch v := n.(type) {
			case *ast.ParameterNode:
				textSet[v.Name] = true
			case *ast.ConditionalNode:
				condSet[v.CondName] = true
				walk(v.Body)
			}
		}
	}
	walk(nodes)

	for name := range textSet {
		if condSet[name] {
			return nil, fmt.Errorf("identifier %q is used as both a text parameter ({{%s}}) and a condition parameter ({%% if %s %%})", name, name, name)
		}
	}

	text := make([]string, 0, len(textSet))
	for name := range textSet {
		text = append(text, name)
	}
	sort.Strings(text)

	cond := make([]string, 0, len(condSet))
	for name := range condSet {
		cond = append(cond, name)
	}
	sort.Strings(cond)

	return &Params{Text: text, Cond: cond}, nil
}

// TextIndex returns the binary-search index of a text parameter name. The
// caller must only pass names that Collect actually saw — every emission
// site routes through the collected lists (spec §3 invariants), so a miss
// here is an internal invariant violation (spec §7 tier 4), not user error.
func (p *Params) TextIndex(name string) int {
	i := sort.SearchStrings(p.Text, name)
	if i >= len(p.Text) || p.Text[i] != name {
		panic(fmt.Sprintf("params: %q is not a collected text parameter", name))
	}
	return i
}

// CondIndex is TextIndex's counterpart for condition parameters.
func (p *Params) CondIndex(name string) int {
	i := sort.SearchStrings(p.Cond, name)
	if i >= len(p.Cond) || p.Cond[i] != name {
		panic(fmt.Sprintf("params: %q is not a collected condition parameter", name))
	}
	return i
}

// StackLen is 2*|text| + |cond|, the flat scalar-argument count the record
// would take if never spilled (spec §4.1).
func (p *Params) StackLen() int {
	return 2*len(p.Text) + len(p.Cond)
}

// Spill reports whether the canonical ABI requires passing the record as a
// single in-memory pointer rather than flat arguments (spec §4.1).
func (p *Params) Spill() bool {
	return p.StackLen() > MaxFlatArgs
}

// ToKebabCase converts a snake_case template identifier to the kebab-case
// form used for component-level record field names (spec §4.1): every "_"
// becomes "-". This is the only name normalization performed.
func ToKebabCase(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}
