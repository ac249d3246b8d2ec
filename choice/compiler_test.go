package choice

import (
	"testing"
)

func TestCompileSimpleComparison(t *testing.T) {
	stateRefs := map[string]string{"approved": "approved_state", "rejected": "rejected_state"}
	prog, err := Compile("approval", []string{
		"when $.amount lt 100 then #approved else #rejected",
	}, stateRefs, nil, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	v, err := prog.Evaluate(map[string]any{"amount": 50})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if v != "approved_state" {
		t.Errorf("got %v, want approved_state", v)
	}

	v, err = prog.Evaluate(map[string]any{"amount": 500})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if v != "rejected_state" {
		t.Errorf("got %v, want rejected_state", v)
	}
}

func TestCompileMissingTagIsUnknownTagError(t *testing.T) {
	_, err := Compile("approval", []string{
		"when $.amount lt 100 then #approved else #rejected",
	}, map[string]string{"approved": "approved_state"}, nil, Options{})
	if err == nil {
		t.Fatal("expected an error for an unresolved tag")
	}
	if _, ok := err.(*UnknownTagError); !ok {
		t.Errorf("got %T, want *UnknownTagError", err)
	}
}

func TestCompileRejectsMissingDefault(t *testing.T) {
	_, err := Compile("gate", []string{
		"when $.ok eq true then 'pass'",
	}, nil, nil, Options{})
	if err == nil {
		t.Fatal("expected an error for a statement list with no trailing default")
	}
	if _, ok := err.(*MalformedStatementError); !ok {
		t.Errorf("got %T, want *MalformedStatementError", err)
	}
}

func TestCompileAllowMissingDefaultYieldsAbsent(t *testing.T) {
	prog, err := Compile("gate", []string{
		"when $.ok eq true then 'pass'",
	}, nil, nil, Options{AllowMissingDefault: true})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	v, err := prog.Evaluate(map[string]any{"ok": false})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !IsAbsent(v) {
		t.Errorf("got %v, want Absent", v)
	}
}

func TestNestedWhenFallsThroughOnUnmatchedInnerBranch(t *testing.T) {
	prog, err := Compile("tiered", []string{
		"when $.v gt 10 then when $.v gt 20 then when $.v gt 30 then 'match' else 'no-match'",
		"'default'",
	}, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	cases := []struct {
		v    float64
		want string
	}{
		{9, "default"},
		{15, "default"},
		{25, "no-match"},
		{35, "match"},
	}
	for _, c := range cases {
		got, err := prog.Evaluate(map[string]any{"v": c.v})
		if err != nil {
			t.Fatalf("Evaluate(%v) returned error: %v", c.v, err)
		}
		if got != c.want {
			t.Errorf("Evaluate(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestExistDistinguishesAbsentFromNull(t *testing.T) {
	prog, err := Compile("presence", []string{
		"when exist $.maybe then 'present' else 'missing'",
	}, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	v, err := prog.Evaluate(map[string]any{"maybe": nil})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if v != "present" {
		t.Errorf("explicit null should count as present, got %v", v)
	}

	v, err = prog.Evaluate(map[string]any{"other": 1})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if v != "missing" {
		t.Errorf("absent path should count as missing, got %v", v)
	}
}

func TestWhitespaceNormalizationProducesSameHash(t *testing.T) {
	h1 := ContentHash("x", []string{normalize("when $.a gt 1 then 'a' else 'b'")})
	h2 := ContentHash("x", []string{normalize("when   $.a   gt   1   then   'a'   else   'b'")})
	if h1 != h2 {
		t.Errorf("normalized hashes should match: %x != %x", h1, h2)
	}
}

func TestCacheReuseAcrossCompiles(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}

	statements := []string{"when $.a gt 1 then 'a' else 'b'"}
	p1, err := Compile("reuse", statements, nil, cache, Options{})
	if err != nil {
		t.Fatalf("first Compile returned error: %v", err)
	}
	p2, err := Compile("reuse", []string{"when   $.a   gt   1   then 'a' else   'b'"}, nil, cache, Options{})
	if err != nil {
		t.Fatalf("second Compile returned error: %v", err)
	}
	if p1.ChoiceName != p2.ChoiceName || len(p1.Statements) != len(p2.Statements) {
		t.Errorf("expected the second compile to reuse the cached program")
	}
}

func TestContainsReversesOperandOrder(t *testing.T) {
	prog, err := Compile("membership", []string{
		"when $.tags contains 'vip' then 'vip-path' else 'normal-path'",
	}, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	v, err := prog.Evaluate(map[string]any{"tags": []any{"vip", "new"}})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if v != "vip-path" {
		t.Errorf("got %v, want vip-path", v)
	}
}

func TestParenthesesPreserved(t *testing.T) {
	prog, err := Compile("precedence", []string{
		"when ($.a gt 1 or $.b gt 1) and $.c eq true then 'yes' else 'no'",
	}, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	v, err := prog.Evaluate(map[string]any{"a": 0, "b": 5, "c": true})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if v != "yes" {
		t.Errorf("got %v, want yes", v)
	}

	// Without the grouping this document would read as `a gt 1 or (...)`
	// and yield 'yes'; with it, the false `c` makes the whole condition fail.
	v, err = prog.Evaluate(map[string]any{"a": 5, "b": 0, "c": false})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if v != "no" {
		t.Errorf("got %v, want no", v)
	}
}
