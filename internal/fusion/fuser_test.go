// SPDX-License-Identifier: MPL-2.0

package fusion

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/fusioner/internal/manifest"
	"github.com/invowk/fusioner/internal/relocate"
	"github.com/invowk/fusioner/internal/runenv"
	"github.com/invowk/fusioner/internal/testutil"
	"github.com/invowk/fusioner/pkg/relocation"
	"github.com/invowk/fusioner/pkg/types"
)

const group types.PackageName = "com.example"

func forgeJar(t *testing.T, path string) {
	t.Helper()
	testutil.BuildJar(t, path, map[string][]byte{
		"com/example/Mod.class":             testutil.ClassBytes("com/example/Mod", "com/example/shared/Api"),
		"com/example/shared/Api.class":      testutil.ClassBytes("com/example/shared/Api"),
		"META-INF/MANIFEST.MF":              []byte("Manifest-Version: 1.0\r\nMixinConfigs: example.mixins.json\r\nImplementation-Title: forge\r\n\r\n"),
		"example.mixins.json":               []byte(`{"package": "com.example.mixin"}`),
		"META-INF/services/com.example.Api": []byte("com.example.forge.PlatformImpl\n"),
	})
}

func fabricJar(t *testing.T, path string) {
	t.Helper()
	testutil.BuildJar(t, path, map[string][]byte{
		"com/example/Mod.class":        testutil.ClassBytes("com/example/Mod", "com/example/shared/Api"),
		"com/example/shared/Api.class": testutil.ClassBytes("com/example/shared/Api"),
		"META-INF/MANIFEST.MF":         []byte("Manifest-Version: 1.0\r\nImplementation-Title: fabric\r\nFabric-Loom-Remap: true\r\n\r\n"),
		"fabric.mod.json":              []byte(`{"entrypoints": {"main": ["com.example.FabricMod"]}}`),
	})
}

// twoVariantOptions lays out forge and fabric inputs below dir.
func twoVariantOptions(t *testing.T, dir string) Options {
	t.Helper()
	forge := filepath.Join(dir, "in", "forge.jar")
	fabric := filepath.Join(dir, "in", "fabric.jar")
	forgeJar(t, forge)
	fabricJar(t, fabric)

	return Options{
		Group: group,
		Variants: []VariantSpec{
			{Name: types.VariantForge, Input: forge},
			{Name: types.VariantFabric, Input: fabric},
		},
		Privileged: types.VariantForge,
		Output:     filepath.Join(dir, "out", "MergedJar-1.0.jar"),
		WorkDir:    filepath.Join(dir, "work"),
	}
}

func utf8Of(t *testing.T, data []byte) []string {
	t.Helper()
	consts, err := relocate.Utf8Constants(data)
	if err != nil {
		t.Fatalf("Utf8Constants() error = %v", err)
	}
	return consts
}

func TestRunFusesTwoVariants(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := twoVariantOptions(t, dir)
	env := runenv.Discard()

	res, err := New().Run(context.Background(), env, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := testutil.ReadJar(t, opts.Output)

	// Each variant keeps a namespaced copy of the group.
	for _, v := range []string{"forge", "fabric"} {
		data, ok := out[v+"/com/example/Mod.class"]
		if !ok {
			t.Fatalf("missing %s/com/example/Mod.class", v)
		}
		consts := utf8Of(t, data)
		if !slices.Contains(consts, v+"/com/example/Mod") || !slices.Contains(consts, v+"/com/example/shared/Api") {
			t.Errorf("%s Mod constants = %v", v, consts)
		}
		if _, ok := out[v+"/com/example/shared/Api.class"]; !ok {
			t.Errorf("missing %s/com/example/shared/Api.class", v)
		}
	}
	if _, ok := out["com/example/Mod.class"]; ok {
		t.Error("un-namespaced class survived")
	}

	// Privileged resources are renamed and re-linked.
	if got := string(out["forge-example.mixins.json"]); !strings.Contains(got, `"forge.com.example.mixin"`) {
		t.Errorf("mixin config = %q", got)
	}
	if _, ok := out["example.mixins.json"]; ok {
		t.Error("original mixin config name survived")
	}
	svc, ok := out["META-INF/services/forge.com.example.Api"]
	if !ok {
		t.Fatal("service descriptor was not renamed")
	}
	if got := strings.TrimSpace(string(svc)); got != "forge.com.example.forge.PlatformImpl" {
		t.Errorf("service descriptor = %q", got)
	}
	if got := string(out["fabric.mod.json"]); !strings.Contains(got, `"fabric.com.example.FabricMod"`) {
		t.Errorf("fabric.mod.json = %q", got)
	}

	m, err := manifest.Parse(bytes.NewReader(out[manifest.RelPath]))
	if err != nil {
		t.Fatalf("Parse(manifest) error = %v", err)
	}
	wantManifest := map[string]string{
		"Manifest-Version":     "1.0",
		"Implementation-Title": "fabric",
		"Fabric-Loom-Remap":    "true",
		"MixinConfigs":         "forge-example.mixins.json",
	}
	for key, want := range wantManifest {
		if got, _ := m.Get(key); got != want {
			t.Errorf("manifest %s = %q, want %q", key, got, want)
		}
	}

	info, err := os.Stat(opts.Output)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o777 {
		t.Errorf("output mode = %v, want 0777", info.Mode().Perm())
	}
	if len(res.Digest) != 64 {
		t.Errorf("Digest = %q, want 64 hex chars", res.Digest)
	}
	if len(res.Variants) != 2 || res.Variants[0].Name != types.VariantForge || res.Variants[1].Name != types.VariantFabric {
		t.Errorf("Variants = %+v", res.Variants)
	}
	if !slices.Equal(res.Variants[0].Mixins, []string{"forge-example.mixins.json"}) {
		t.Errorf("forge mixins = %v", res.Variants[0].Mixins)
	}
	if len(res.Variants[1].Mixins) != 0 {
		t.Errorf("fabric mixins = %v, want none", res.Variants[1].Mixins)
	}
	if len(res.PackRules) != 0 {
		t.Errorf("PackRules = %v, want none", res.PackRules)
	}

	if env.Ledger.Count(relocation.ActionRelocate) != 2 {
		t.Errorf("relocate entries = %d, want 2", env.Ledger.Count(relocation.ActionRelocate))
	}
	if env.Ledger.Count(relocation.ActionMove) == 0 {
		t.Error("no move entries recorded")
	}
	if env.Ledger.Count(relocation.ActionPack) != 1 {
		t.Errorf("pack entries = %d, want 1", env.Ledger.Count(relocation.ActionPack))
	}

	if _, err := os.Stat(opts.WorkDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("workspace still present: %v", err)
	}
}

func TestRunCollapsesSharedPackage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := twoVariantOptions(t, dir)
	opts.Duplicates = []types.PackageName{"com.example.shared"}

	res, err := New().Run(context.Background(), runenv.Discard(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := testutil.ReadJar(t, opts.Output)
	if _, ok := out["com/example/shared/Api.class"]; !ok {
		t.Fatal("shared class missing from its shared location")
	}
	for _, v := range []string{"forge", "fabric"} {
		if _, ok := out[v+"/com/example/shared/Api.class"]; ok {
			t.Errorf("%s copy of the shared package survived", v)
		}
		consts := utf8Of(t, out[v+"/com/example/Mod.class"])
		if !slices.Contains(consts, "com/example/shared/Api") {
			t.Errorf("%s Mod does not reference the shared class: %v", v, consts)
		}
	}
	if consts := utf8Of(t, out["com/example/shared/Api.class"]); !slices.Contains(consts, "com/example/shared/Api") {
		t.Errorf("shared class constants = %v", consts)
	}

	want := relocation.Rules{
		relocation.New("forge.com.example.shared", "com.example.shared"),
		relocation.New("fabric.com.example.shared", "com.example.shared"),
	}
	if !slices.Equal(res.PackRules, want) {
		t.Errorf("PackRules = %v, want %v", res.PackRules, want)
	}
}

func TestRunSkipIfExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := twoVariantOptions(t, dir)
	opts.SkipIfExists = true
	testutil.MustWriteFile(t, opts.Output, []byte("already fused"))

	res, err := New().Run(context.Background(), runenv.Discard(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Skipped || res.Output != opts.Output {
		t.Errorf("Run() = %+v, want skipped result for %s", res, opts.Output)
	}
	if got := string(testutil.MustReadFile(t, opts.Output)); got != "already fused" {
		t.Errorf("output was modified: %q", got)
	}
	if _, err := os.Stat(opts.WorkDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("workspace was created: %v", err)
	}
}

func TestRunWithoutInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := Options{
		Group: group,
		Variants: []VariantSpec{
			{Name: types.VariantForge, Input: filepath.Join(dir, "missing-forge.jar")},
			{Name: types.VariantFabric},
		},
		Privileged: types.VariantForge,
		Output:     filepath.Join(dir, "out.jar"),
		WorkDir:    filepath.Join(dir, "work"),
	}

	_, err := New().Run(context.Background(), runenv.Discard(), opts)

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Run() error = %v, want *ConfigurationError", err)
	}
	if !errors.Is(err, ErrNoInputs) {
		t.Errorf("Run() error = %v, want ErrNoInputs", err)
	}
	if _, err := os.Stat(opts.WorkDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("workspace was created: %v", err)
	}
}

func TestRunSkipsMissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := twoVariantOptions(t, dir)
	opts.Variants = append([]VariantSpec{}, opts.Variants...)
	opts.Variants = append(opts.Variants, VariantSpec{Name: types.VariantQuilt, Input: filepath.Join(dir, "in", "quilt.jar")})

	var logs bytes.Buffer
	res, err := New().Run(context.Background(), runenv.New(&logs, false), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Variants) != 2 {
		t.Errorf("active variants = %d, want 2", len(res.Variants))
	}
	if !strings.Contains(logs.String(), "Input archive not found") || !strings.Contains(logs.String(), "quilt") {
		t.Errorf("missing warning in logs:\n%s", logs.String())
	}

	for name := range testutil.ReadJar(t, opts.Output) {
		if strings.HasPrefix(name, "quilt/") {
			t.Errorf("inactive variant contributed %s", name)
		}
	}
}

func TestRunPicksArchiveFromDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := twoVariantOptions(t, dir)
	libs := filepath.Join(dir, "fabric", "build", "libs")
	fabricJar(t, filepath.Join(libs, "example-1.0.jar"))
	testutil.MustWriteFile(t, filepath.Join(libs, "example-1.0-sources.jar"), []byte("not read"))
	opts.Variants[1].Input = libs

	res, err := New().Run(context.Background(), runenv.Discard(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := res.Variants[1].Input; got != filepath.Join(libs, "example-1.0.jar") {
		t.Errorf("fabric input = %s", got)
	}
}

func TestRunRejectsNonArchiveInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := twoVariantOptions(t, dir)
	bogus := filepath.Join(dir, "in", "bogus.jar")
	testutil.MustWriteFile(t, bogus, []byte("plain text"))
	opts.Variants[1].Input = bogus

	_, err := New().Run(context.Background(), runenv.Discard(), opts)
	if !errors.Is(err, ErrNotArchive) {
		t.Fatalf("Run() error = %v, want ErrNotArchive", err)
	}
}

func TestRunSequentialMatchesParallel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	parallel := twoVariantOptions(t, filepath.Join(dir, "parallel"))
	sequential := twoVariantOptions(t, filepath.Join(dir, "sequential"))
	sequential.Sequential = true

	for _, opts := range []Options{parallel, sequential} {
		if _, err := New().Run(context.Background(), runenv.Discard(), opts); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	a := testutil.ReadJar(t, parallel.Output)
	b := testutil.ReadJar(t, sequential.Output)
	if len(a) != len(b) {
		t.Fatalf("entry counts differ: %d vs %d", len(a), len(b))
	}
	for name, data := range a {
		if !bytes.Equal(data, b[name]) {
			t.Errorf("entry %s differs between parallel and sequential runs", name)
		}
	}
}

func TestRunKeepWorkDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := twoVariantOptions(t, dir)
	opts.KeepWorkDir = true

	env := runenv.Discard()
	res, err := New().Run(context.Background(), env, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.WorkDir != opts.WorkDir || env.Root != opts.WorkDir {
		t.Errorf("WorkDir = %q, env root = %q, want %q", res.WorkDir, env.Root, opts.WorkDir)
	}
	if _, err := os.Stat(filepath.Join(opts.WorkDir, "merged-temp")); err != nil {
		t.Errorf("merge directory not kept: %v", err)
	}
}

func TestRunInvalidOptions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := twoVariantOptions(t, dir)

	tests := []struct {
		name   string
		mutate func(*Options)
		target error
	}{
		{
			name:   "invalid group",
			mutate: func(o *Options) { o.Group = "com..example" },
			target: types.ErrInvalidPackageName,
		},
		{
			name:   "duplicate variant",
			mutate: func(o *Options) {
				o.Variants = []VariantSpec{{Name: types.VariantForge}, {Name: types.VariantForge}}
			},
			target: ErrDuplicateVariant,
		},
		{
			name:   "output inside work dir",
			mutate: func(o *Options) { o.Output = filepath.Join(o.WorkDir, "MergedJar-1.0.jar") },
			target: ErrOutputInWorkDir,
		},
		{
			name:   "output is the work dir",
			mutate: func(o *Options) { o.Output = o.WorkDir },
			target: ErrOutputInWorkDir,
		},
		{
			name:   "invalid shared package",
			mutate: func(o *Options) { o.Duplicates = []types.PackageName{"com/example"} },
			target: types.ErrInvalidPackageName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := base
			tt.mutate(&opts)
			_, err := New().Run(context.Background(), runenv.Discard(), opts)

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Run() error = %v, want *ConfigurationError", err)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Run() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	got := OutputPath(filepath.Join("artifacts", "fused"), "MergedJar", "1.0")
	if want := filepath.Join("artifacts", "fused", "MergedJar-1.0.jar"); got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
}

func TestWithin(t *testing.T) {
	t.Parallel()

	work := filepath.Join(t.TempDir(), "work")
	tests := []struct {
		path string
		want bool
	}{
		{work, true},
		{filepath.Join(work, "MergedJar-1.0.jar"), true},
		{filepath.Join(work, "merged-temp", "out.jar"), true},
		{filepath.Join(work+"2", "out.jar"), false},
		{filepath.Join(filepath.Dir(work), "..out", "out.jar"), false},
		{filepath.Join(filepath.Dir(work), "out", "MergedJar-1.0.jar"), false},
	}
	for _, tt := range tests {
		if got := within(tt.path, work); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", tt.path, work, got, tt.want)
		}
	}
}

func TestRunRelinksOverriddenPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fabric := filepath.Join(dir, "in", "fabric.jar")
	testutil.BuildJar(t, fabric, map[string][]byte{
		"org/lib/Impl.class":                testutil.ClassBytes("org/lib/Impl", "com/example/Api"),
		"com/example/Api.class":             testutil.ClassBytes("com/example/Api"),
		"META-INF/services/com.example.Api": []byte("org.lib.Impl\n"),
	})
	opts := Options{
		Group: group,
		Variants: []VariantSpec{{
			Name:        types.VariantFabric,
			Input:       fabric,
			Relocations: relocation.Rules{relocation.New("org.lib", "com.example.shadow.lib")},
		}},
		Privileged: types.VariantForge,
		Output:     filepath.Join(dir, "out", "MergedJar-1.0.jar"),
	}

	if _, err := New().Run(context.Background(), runenv.Discard(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := testutil.ReadJar(t, opts.Output)
	data, ok := out["com/example/shadow/lib/Impl.class"]
	if !ok {
		t.Fatalf("overridden class not relocated, entries = %v", testutil.JarNames(t, opts.Output))
	}
	if consts := utf8Of(t, data); !slices.Contains(consts, "com/example/shadow/lib/Impl") {
		t.Errorf("Impl constants = %v", consts)
	}
	svc := strings.TrimSpace(string(out["META-INF/services/fabric.com.example.Api"]))
	if svc != "com.example.shadow.lib.Impl" {
		t.Errorf("service descriptor = %q, want the overridden class", svc)
	}
}

func TestRunRelocatesSiblingPackageOfGroup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fabric := filepath.Join(dir, "in", "fabric.jar")
	testutil.BuildJar(t, fabric, map[string][]byte{
		"com/examplemod/Entry.class": testutil.ClassBytes("com/examplemod/Entry"),
		"fabric.mod.json":            []byte(`{"entrypoints": {"main": ["com.examplemod.Entry"]}}`),
	})
	opts := Options{
		Group:      group,
		Variants:   []VariantSpec{{Name: types.VariantFabric, Input: fabric}},
		Privileged: types.VariantForge,
		Output:     filepath.Join(dir, "out", "MergedJar-1.0.jar"),
	}

	if _, err := New().Run(context.Background(), runenv.Discard(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := testutil.ReadJar(t, opts.Output)
	data, ok := out["fabric/com/examplemod/Entry.class"]
	if !ok {
		t.Fatalf("sibling package not relocated, entries = %v", testutil.JarNames(t, opts.Output))
	}
	if consts := utf8Of(t, data); !slices.Contains(consts, "fabric/com/examplemod/Entry") {
		t.Errorf("Entry constants = %v", consts)
	}
	// Bytecode and resource text must name the same class.
	if got := string(out["fabric.mod.json"]); !strings.Contains(got, `"fabric.com.examplemod.Entry"`) {
		t.Errorf("fabric.mod.json = %q", got)
	}
}
