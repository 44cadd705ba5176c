// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/invowk/fusioner/internal/config"
	"github.com/invowk/fusioner/internal/fusion"
	"github.com/invowk/fusioner/internal/runenv"
)

type (
	// staticConfig hands out copies of one configuration.
	staticConfig struct {
		cfg *config.Config
		err error
	}

	// recordingFusion captures the options of the last run.
	recordingFusion struct {
		opts fusion.Options
		res  *fusion.Result
		err  error
	}
)

func (s *staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := *s.cfg
	return &c, nil
}

func (r *recordingFusion) Run(_ context.Context, _ *runenv.Env, opts fusion.Options) (*fusion.Result, error) {
	r.opts = opts
	if r.err != nil {
		return nil, r.err
	}
	if r.res != nil {
		return r.res, nil
	}
	return &fusion.Result{Output: opts.Output, Skipped: true}, nil
}

// validConfig returns the defaults with a package group set.
func validConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.PackageGroup = "com.example"
	return cfg
}

// execute runs the command tree with args and returns stdout, stderr and
// the error of the run.
func execute(t *testing.T, deps Dependencies, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	deps.Stdout = &out
	deps.Stderr = &errOut
	root := NewRootCommand(NewApp(deps))
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// exitCode returns the code of an *ExitError, or -1.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	return -1
}
