// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/invowk/fusioner/internal/archive"
	"github.com/invowk/fusioner/internal/config"
	"github.com/invowk/fusioner/internal/fusion"
	"github.com/invowk/fusioner/internal/issue"
	"github.com/invowk/fusioner/internal/relocate"
	"github.com/invowk/fusioner/pkg/types"
)

// ServiceError is an error that carries rendering information for the CLI
// layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalogue ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints the styled message, then the issue page.
func renderServiceError(stderr io.Writer, svcErr *ServiceError) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	page := issue.Get(svcErr.IssueID)
	if page == nil {
		var ae *issue.ActionableError
		if errors.As(svcErr.Err, &ae) {
			page = ae.IssuePage()
		}
	}
	if page != nil {
		rendered, renderErr := page.Render("dark")
		if renderErr != nil {
			fmt.Fprintln(stderr, VerboseStyle.Render(fmt.Sprintf("(could not render issue page %d: %v)", svcErr.IssueID, renderErr)))
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their own Format; verbose mode adds the error chain. Without
// suggestions, a non-verbose message points at --verbose.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return err.Error()
	}
	msg := ae.Format(verbose)
	if !verbose && !ae.HasSuggestions() && ae.Cause != nil {
		msg += "\n\n" + VerboseStyle.Render("Run with --verbose to see the full error chain.")
	}
	return msg
}

// styledError renders err the way every command prints a failure.
func styledError(err error, verbose bool) string {
	return fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

// classifyConfigError maps configuration failures to an issue page.
func classifyConfigError(err error) issue.Id {
	var ae *issue.ActionableError
	switch {
	case errors.As(err, &ae) && ae.Issue != 0:
		return ae.Issue
	case errors.Is(err, config.ErrMissingPackageGroup), errors.Is(err, types.ErrInvalidPackageName):
		return issue.InvalidPackageGroupId
	default:
		return issue.ConfigLoadFailedId
	}
}

// describeFusionError wraps a failed run into an ActionableError naming the
// failure class and what the user can do about it.
func describeFusionError(err error, output string) *issue.ActionableError {
	ec := issue.NewErrorContext().WithOperation("fuse jars").WithResource(output)

	var cfgErr *fusion.ConfigurationError
	switch {
	case errors.Is(err, fusion.ErrNoInputs):
		ec.WithIssue(issue.NoInputsId).WithSuggestions(
			"Build the platform projects before fusing",
			"Check the input path of every variant with 'fusioner config show'",
		)
	case errors.Is(err, types.ErrInvalidPackageName):
		ec.WithIssue(issue.InvalidPackageGroupId).
			WithSuggestion("Set package_group to the root package of the mod, e.g. com.example.mymod")
	case errors.Is(err, fusion.ErrOutputInWorkDir):
		ec.WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Point work_dir and the output at separate directories")
	case errors.Is(err, fusion.ErrNotArchive), errors.Is(err, archive.ErrUnsafePath):
		ec.WithIssue(issue.ArchiveUnreadableId).
			WithSuggestion("Point the variant input at the built jar, not at a sources or dev artifact")
	case errors.Is(err, relocate.ErrDuplicateEntry), errors.Is(err, archive.ErrDuplicateEntry):
		ec.WithIssue(issue.EntryCollisionId).
			WithSuggestion("Add a relocation that moves one of the clashing packages")
	case errors.Is(err, fs.ErrPermission):
		ec.WithIssue(issue.PermissionDeniedId).
			WithSuggestion("Check that the output and work directories are writable")
	case errors.As(err, &cfgErr):
		ec.WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Fix the configuration value named above")
	default:
		ec.WithIssue(issue.FusionFailedId).
			WithSuggestion("Re-run with --verbose and --keep-work-dir to inspect the intermediate trees")
	}

	return ec.Wrap(err).Build()
}

// exitCodeFor returns the exit code of a failed run.
func exitCodeFor(err error) types.ExitCode {
	var cfgErr *fusion.ConfigurationError
	if errors.As(err, &cfgErr) {
		return types.ExitConfig
	}
	return types.ExitFailure
}

// failCommand renders err with its issue page and returns the ExitError that
// carries code out of RunE. Cobra's own error printing is silenced.
func failCommand(cmd *cobra.Command, app *App, err error, id issue.Id, code types.ExitCode, verbose bool) error {
	renderServiceError(app.stderr, newServiceError(err, id, styledError(err, verbose)))
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code}
}
