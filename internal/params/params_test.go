package params

import (
	"testing"

	"github.com/lhaig/tmplc/internal/ast"
)

func TestCollect_SortedAndDeduped(t *testing.T) {
	nodes := []ast.Node{
		&ast.ParameterNode{Name: "title"},
		&ast.ParameterNode{Name: "content"},
		&ast.ParameterNode{Name: "title"},
		&ast.ConditionalNode{CondName: "ok", Body: []ast.Node{
			&ast.ParameterNode{Name: "nested"},
		}},
	}

	p, err := Collect(nodes)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	wantText := []string{"content", "nested", "title"}
	if len(p.Text) != len(wantText) {
		t.Fatalf("Text = %v, want %v", p.Text, wantText)
	}
	for i, w := range wantText {
		if p.Text[i] != w {
			t.Errorf("Text[%d] = %q, want %q", i, p.Text[i], w)
		}
	}
	if len(p.Cond) != 1 || p.Cond[0] != "ok" {
		t.Errorf("Cond = %v, want [ok]", p.Cond)
	}
}

func TestCollect_DuplicateNameAcrossKinds(t *testing.T) {
	nodes := []ast.Node{
		&ast.ParameterNode{Name: "ok"},
		&ast.ConditionalNode{CondName: "ok"},
	}
	if _, err := Collect(nodes); err == nil {
		t.Fatal("expected an error for a name used as both a text and a condition parameter")
	}
}

func TestSpill_ThresholdAtSixteen(t *testing.T) {
	var eightParams []ast.Node
	for i := 0; i < 8; i++ {
		eightParams = append(eightParams, &ast.ParameterNode{Name: string(rune('a' + i))})
	}
	p8, err := Collect(eightParams)
	if err != nil {
		t.Fatal(err)
	}
	if p8.Spill() {
		t.Errorf("8 text params (stack_len=16) should not spill")
	}

	var nineParams []ast.Node
	for i := 0; i < 9; i++ {
		nineParams = append(nineParams, &ast.ParameterNode{Name: string(rune('a' + i))})
	}
	p9, err := Collect(nineParams)
	if err != nil {
		t.Fatal(err)
	}
	if !p9.Spill() {
		t.Errorf("9 text params (stack_len=18) should spill")
	}
}

func TestToKebabCase(t *testing.T) {
	cases := map[string]string{
		"page_title":  "page-title",
		"ok":          "ok",
		"a_b_c":       "a-b-c",
		"no_under_":   "no-under-",
	}
	for in, want := range cases {
		if got := ToKebabCase(in); got != want {
			t.Errorf("ToKebabCase(%q) = %q, want %q", in, got, want)
		}
	}
}
