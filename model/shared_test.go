package model

import "testing"

func TestNewSharedIDIsDeterministic(t *testing.T) {
	a := NewSharedID("method_invocation", "a/b/C.java", 10, 20)
	b := NewSharedID("method_invocation", "a/b/C.java", 10, 20)
	if a != b {
		t.Fatalf("same production/file/range produced different SharedIDs: %q vs %q", a, b)
	}
}

func TestNewSharedIDDistinguishesRegions(t *testing.T) {
	base := NewSharedID("method_invocation", "a/b/C.java", 10, 20)
	cases := []SharedID{
		NewSharedID("field_access", "a/b/C.java", 10, 20),
		NewSharedID("method_invocation", "a/b/D.java", 10, 20),
		NewSharedID("method_invocation", "a/b/C.java", 11, 20),
		NewSharedID("method_invocation", "a/b/C.java", 10, 21),
	}
	for _, c := range cases {
		if c == base {
			t.Fatalf("expected a distinct SharedID, got a collision with %q", base)
		}
	}
}

func TestTaintFlowKeyDedupesOnTriple(t *testing.T) {
	a := TaintFlow{SourceSharedID: "s1", SinkSharedID: "k1", Kind: VulnSQLInjection, SourceDfNode: "n1"}
	b := TaintFlow{SourceSharedID: "s1", SinkSharedID: "k1", Kind: VulnSQLInjection, SourceDfNode: "n2"}
	if a.Key() != b.Key() {
		t.Fatalf("flows sharing (source, sink, kind) must share a Key(), even when other fields differ")
	}

	c := TaintFlow{SourceSharedID: "s1", SinkSharedID: "k1", Kind: VulnCommandInjection}
	if a.Key() == c.Key() {
		t.Fatalf("flows with different Kind must not share a Key()")
	}
}
