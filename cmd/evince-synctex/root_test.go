package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vandalt/evince-synctex/internal/launcher"
	"github.com/vandalt/evince-synctex/internal/session"
	"github.com/vandalt/evince-synctex/internal/template"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "generic", err: errors.New("boom"), want: exitFailure},
		{
			name: "template error",
			err:  &template.TemplateError{Template: "vim %x", Reason: "unknown placeholder"},
			want: exitTemplate,
		},
		{
			name: "launch error",
			err:  &launcher.LaunchError{Argv: []string{"vim"}, Err: errors.New("not found")},
			want: exitLaunch,
		},
		{
			name: "session timeout",
			err:  &session.SessionTimeoutError{URI: "file:///a.pdf"},
			want: exitSessionTimeout,
		},
		{
			name: "wrapped launch error",
			err:  fmt.Errorf("ensuring session: %w", &launcher.LaunchError{Argv: []string{"evince"}, Err: errors.New("nope")}),
			want: exitLaunch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestMaskInterrupt(t *testing.T) {
	if err := maskInterrupt(context.Canceled); err != nil {
		t.Errorf("maskInterrupt(Canceled) = %v, want nil", err)
	}
	// Interrupts surface wrapped when they land mid-operation, e.g. while
	// polling for viewer registration.
	wrapped := fmt.Errorf("registry lookup for file:///a.pdf: %w", context.Canceled)
	if err := maskInterrupt(wrapped); err != nil {
		t.Errorf("maskInterrupt(wrapped Canceled) = %v, want nil", err)
	}
	if err := maskInterrupt(nil); err != nil {
		t.Errorf("maskInterrupt(nil) = %v, want nil", err)
	}
	boom := errors.New("boom")
	if err := maskInterrupt(boom); !errors.Is(err, boom) {
		t.Errorf("maskInterrupt(boom) = %v, want boom", err)
	}
}

func TestForwardRejectsEditorArgument(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))

	rootCmd.SetArgs([]string{"--forward", "10", "paper.pdf", "vim %f +%l"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("forward mode accepted an EDITOR_COMMAND argument")
	}
	if !strings.Contains(err.Error(), "EDITOR_COMMAND") {
		t.Errorf("error %q does not mention the rejected argument", err)
	}
}

func TestTexForPDF(t *testing.T) {
	got := texForPDF("/home/user/paper.pdf")
	if got != "/home/user/paper.tex" {
		t.Errorf("texForPDF = %q, want /home/user/paper.tex", got)
	}

	// Relative paths are resolved so the viewer gets an absolute source.
	rel := texForPDF("paper.pdf")
	if !filepath.IsAbs(rel) {
		t.Errorf("texForPDF(paper.pdf) = %q, want an absolute path", rel)
	}
	if filepath.Base(rel) != "paper.tex" {
		t.Errorf("texForPDF(paper.pdf) = %q, want basename paper.tex", rel)
	}
}
