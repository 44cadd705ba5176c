// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"slices"
	"testing"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-03-01T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-03-01T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got, want := getVersionString(), "dev (built from source)"; got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{Config: &staticConfig{cfg: validConfig()}}))

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"config", "fuse", "inspect"} {
		if !slices.Contains(names, want) {
			t.Errorf("root command lacks %q, has %v", want, names)
		}
	}
	for _, flag := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("root command lacks persistent flag --%s", flag)
		}
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}
	inner := &ExitError{Code: 1}
	wrapped := &ExitError{Code: 2, Err: inner}
	if wrapped.Error() != inner.Error() || wrapped.Unwrap() != inner {
		t.Errorf("wrapped ExitError = %q / %v", wrapped.Error(), wrapped.Unwrap())
	}
}
