// Command evince-synctex coordinates SyncTeX navigation between the Evince
// PDF viewer and a text editor. Ctrl+click in the PDF opens the editor at
// the matching source line; --forward scrolls the viewer to a source line.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vandalt/evince-synctex/internal/launcher"
	"github.com/vandalt/evince-synctex/internal/session"
	"github.com/vandalt/evince-synctex/internal/template"
)

// Distinct exit codes per failure class, so scripts and editor plugins can
// tell a bad template from a missing viewer.
const (
	exitOK             = 0
	exitFailure        = 1
	exitTemplate       = 2
	exitLaunch         = 3
	exitSessionTimeout = 4
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit code for its failure class.
func exitCode(err error) int {
	var templateErr *template.TemplateError
	var launchErr *launcher.LaunchError
	var timeoutErr *session.SessionTimeoutError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &templateErr):
		return exitTemplate
	case errors.As(err, &launchErr):
		return exitLaunch
	case errors.As(err, &timeoutErr):
		return exitSessionTimeout
	default:
		return exitFailure
	}
}
