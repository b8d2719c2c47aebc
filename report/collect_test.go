package report

import (
	"testing"
)

func TestCollect_Dedupes(t *testing.T) {
	v := Violation{Path: "a.py", Line: 3, Column: 1, Rule: RuleRaiseInDomain, Message: "raise"}

	r := Collect([]Violation{v, v, v})
	if len(r.Violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(r.Violations))
	}
}

func TestCollect_KeepsDistinctRulesAtSameLocation(t *testing.T) {
	r := Collect([]Violation{
		{Path: "a.py", Line: 1, Column: 1, Rule: RuleWrongLayerClass},
		{Path: "a.py", Line: 1, Column: 1, Rule: RuleNonModelInDomain},
	})
	if len(r.Violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(r.Violations))
	}
	// Same location sorts by rule for a stable render.
	if r.Violations[0].Rule != RuleNonModelInDomain {
		t.Errorf("first rule = %q, want %q", r.Violations[0].Rule, RuleNonModelInDomain)
	}
}

func TestCollect_SortsByPathLineColumn(t *testing.T) {
	r := Collect([]Violation{
		{Path: "b.py", Line: 1, Column: 1, Rule: RuleRaiseInDomain},
		{Path: "a.py", Line: 9, Column: 1, Rule: RuleRaiseInDomain},
		{Path: "a.py", Line: 2, Column: 5, Rule: RuleRaiseInDomain},
		{Path: "a.py", Line: 2, Column: 1, Rule: RuleRaiseInDomain},
	})

	want := []struct {
		path string
		line int
		col  int
	}{
		{"a.py", 2, 1},
		{"a.py", 2, 5},
		{"a.py", 9, 1},
		{"b.py", 1, 1},
	}

	if len(r.Violations) != len(want) {
		t.Fatalf("got %d violations, want %d", len(r.Violations), len(want))
	}
	for i, w := range want {
		v := r.Violations[i]
		if v.Path != w.path || v.Line != w.line || v.Column != w.col {
			t.Errorf("violation %d = %s:%d:%d, want %s:%d:%d", i, v.Path, v.Line, v.Column, w.path, w.line, w.col)
		}
	}
}

func TestCollect_Empty(t *testing.T) {
	r := Collect(nil)
	if !r.Empty() {
		t.Error("expected empty report")
	}
}

func TestCollect_OrderIndependent(t *testing.T) {
	a := []Violation{
		{Path: "a.py", Line: 1, Column: 1, Rule: RuleRaiseInDomain, Message: "m"},
		{Path: "b.py", Line: 2, Column: 1, Rule: RuleAwaitInDomain, Message: "m"},
	}
	b := []Violation{a[1], a[0]}

	if Render(Collect(a)) != Render(Collect(b)) {
		t.Error("collect should normalize input ordering")
	}
}
