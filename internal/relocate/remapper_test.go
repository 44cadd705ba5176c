// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"testing"

	"github.com/invowk/fusioner/pkg/relocation"
)

func TestRemapperRewriteName(t *testing.T) {
	t.Parallel()

	r := NewRemapper(relocation.Rules{
		relocation.New("com.example.api", "shadow.api"),
		relocation.New("com.example", "forge.com.example"),
	})

	tests := []struct {
		in   string
		want string
	}{
		{"com/example/Mod", "forge/com/example/Mod"},
		{"com.example.Mod", "forge.com.example.Mod"},
		{"com/example", "forge/com/example"},
		{"(Lcom/example/Mod;I)Lcom/example/Other;", "(Lforge/com/example/Mod;I)Lforge/com/example/Other;"},
		{"[Lcom/example/Mod;", "[Lforge/com/example/Mod;"},
		{"Ljava/util/List<Lcom/example/Mod;>;", "Ljava/util/List<Lforge/com/example/Mod;>;"},
		{"Lcom/example/Mod;", "Lforge/com/example/Mod;"},
		{"com/example/Outer$Inner", "forge/com/example/Outer$Inner"},
		{"com/example/api/Service", "shadow/api/Service"},
		{"com/examplemod/Mod", "forge/com/examplemod/Mod"},
		{"com.examplemod.Entry", "forge.com.examplemod.Entry"},
		{"net/com/example/Mod", "net/com/example/Mod"},
		{"forge/com/example/Mod", "forge/com/example/Mod"},
		{"XLcom/example/Mod;", "XLcom/example/Mod;"},
		{"assets/example/icon.png", "assets/example/icon.png"},
		{"see com.example for details", "see forge.com.example for details"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := r.RewriteName(tt.in); got != tt.want {
				t.Errorf("RewriteName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemapperRelocatePath(t *testing.T) {
	t.Parallel()

	r := NewRemapper(relocation.Rules{
		relocation.New("com.example", "fabric.com.example"),
		relocation.New("architectury_inject_mod", "fabric.architectury_inject_mod"),
	})

	tests := []struct {
		in   string
		want string
	}{
		{"com/example/Mod.class", "fabric/com/example/Mod.class"},
		{"com/example/", "fabric/com/example/"},
		{"com/", "com/"},
		{"com/examplemod/Mod.class", "fabric/com/examplemod/Mod.class"},
		{"comx/example/Mod.class", "comx/example/Mod.class"},
		{"architectury_inject_mod/Init.class", "fabric/architectury_inject_mod/Init.class"},
		{"META-INF/MANIFEST.MF", "META-INF/MANIFEST.MF"},
	}

	for _, tt := range tests {
		if got := r.RelocatePath(tt.in); got != tt.want {
			t.Errorf("RelocatePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRemapperRoundTrip(t *testing.T) {
	t.Parallel()

	rules := relocation.Rules{relocation.New("com.example", "quilt.com.example")}
	forward := NewRemapper(rules)
	back := NewRemapper(rules.Reverse())

	for _, name := range []string{"com/example/x/Foo", "(Lcom/example/Foo;)V", "com.example.x.Foo"} {
		if got := back.RewriteName(forward.RewriteName(name)); got != name {
			t.Errorf("round trip of %q = %q", name, got)
		}
	}
}

func TestRemapperRewriteClassToleratesNonClass(t *testing.T) {
	t.Parallel()

	data := []byte("not bytecode")
	out, err := NewRemapper(relocation.Rules{relocation.New("a", "b")}).RewriteClass(data)
	if err != nil || string(out) != string(data) {
		t.Errorf("RewriteClass(non-class) = %q, %v", out, err)
	}
}
