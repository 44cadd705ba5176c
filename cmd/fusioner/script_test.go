// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets the scripts under testdata/script run the CLI in-process as
// the "fusioner" command.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"fusioner": Run,
	}))
}

// TestScripts runs the CLI integration scripts in testdata/script.
func TestScripts(t *testing.T) {
	t.Parallel()
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			// Keep the developer's environment out of the configuration.
			for _, key := range []string{"FUSIONER_PACKAGE_GROUP", "FUSIONER_OUTPUT_DIR", "FUSIONER_WORK_DIR", "FUSIONER_UI_VERBOSE"} {
				env.Setenv(key, "")
			}
			return nil
		},
		ContinueOnError: true,
	})
}
