// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestVariantName_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value VariantName
		valid bool
	}{
		{"forge", VariantForge, true},
		{"custom", "sponge", true},
		{"underscore and digits", "paper_1_20", true},
		{"empty", "", false},
		{"uppercase", "Forge", false},
		{"hyphen", "neo-forge", false},
		{"leading digit", "1forge", false},
		{"dot", "my.loader", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.value.Validate()
			if (err == nil) != tt.valid {
				t.Fatalf("VariantName(%q).Validate() = %v, want valid=%v", tt.value, err, tt.valid)
			}
			if !tt.valid {
				if !errors.Is(err, ErrInvalidVariantName) {
					t.Errorf("error should wrap ErrInvalidVariantName, got: %v", err)
				}
				var nameErr *InvalidVariantNameError
				if !errors.As(err, &nameErr) {
					t.Errorf("error should be *InvalidVariantNameError, got: %T", err)
				}
			}
		})
	}
}

func TestVariantName_IsBuiltin(t *testing.T) {
	t.Parallel()

	for _, v := range BuiltinVariants() {
		if !v.IsBuiltin() {
			t.Errorf("%q.IsBuiltin() = false, want true", v)
		}
	}
	if VariantName("sponge").IsBuiltin() {
		t.Error(`"sponge".IsBuiltin() = true, want false`)
	}
}

func TestBuiltinVariants_Order(t *testing.T) {
	t.Parallel()

	want := []VariantName{"forge", "neoforge", "fabric", "quilt"}
	got := BuiltinVariants()
	if len(got) != len(want) {
		t.Fatalf("BuiltinVariants() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BuiltinVariants()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
