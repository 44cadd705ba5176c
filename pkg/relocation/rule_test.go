// SPDX-License-Identifier: MPL-2.0

package relocation

import "testing"

func TestRulePathForm(t *testing.T) {
	t.Parallel()

	got := New("com.example", "forge.com.example").PathForm()
	want := New("com/example", "forge/com/example")
	if got != want {
		t.Errorf("PathForm() = %v, want %v", got, want)
	}
}

func TestPathToDotted(t *testing.T) {
	t.Parallel()

	if got := PathToDotted("/com/example/"); got != "com.example" {
		t.Errorf("PathToDotted() = %q", got)
	}
}

func TestRulesWithDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := make(Rules, 1, 4)
	base[0] = New("a", "b")

	left := base.With(New("c", "d"))
	right := base.With(New("e", "f"))

	if left[1] == right[1] {
		t.Fatalf("With() results share storage: %v %v", left, right)
	}
	if len(base) != 1 {
		t.Errorf("base mutated: %v", base)
	}
}

func TestConcat(t *testing.T) {
	t.Parallel()

	got := Concat(Rules{New("a", "b")}, nil, Rules{New("c", "d"), New("e", "f")})
	if len(got) != 3 || got[2].From != "e" {
		t.Errorf("Concat() = %v", got)
	}
}

func TestRulesReverse(t *testing.T) {
	t.Parallel()

	rs := Rules{New("a", "b"), New("c", "d")}
	rev := rs.Reverse()
	if rev[0] != New("b", "a") || rev[1] != New("d", "c") {
		t.Errorf("Reverse() = %v", rev)
	}
	if !rs.Contains(New("c", "d")) || rs.Contains(New("d", "c")) {
		t.Error("Contains() mismatch")
	}
	if got := rs.Strings(); got[0] != "a -> b" {
		t.Errorf("Strings() = %v", got)
	}
}
