package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/vandalt/evince-synctex/internal/synctex"
)

func mustParse(t *testing.T, command string, policy ColumnPolicy, columnDefault string) *Template {
	t.Helper()

	tmpl, err := New(command, policy, columnDefault)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", command, err)
	}
	return tmpl
}

func TestExpand(t *testing.T) {
	loc := synctex.Location{File: "/home/user/paper.tex", Line: 42, Column: 7}

	tests := []struct {
		name     string
		command  string
		location synctex.Location
		want     []string
	}{
		{
			name:     "vim file and line",
			command:  "vim %f +%l",
			location: synctex.Location{File: "paper.tex", Line: 42},
			want:     []string{"vim", "paper.tex", "+42"},
		},
		{
			name:     "embedded placeholders",
			command:  "code --goto %f:%l:%c",
			location: loc,
			want:     []string{"code", "--goto", "/home/user/paper.tex:42:7"},
		},
		{
			name:     "quoted argument survives splitting",
			command:  `emacsclient -e "(find-line %l)" %f`,
			location: loc,
			want:     []string{"emacsclient", "-e", "(find-line 42)", "/home/user/paper.tex"},
		},
		{
			name:     "percent escape",
			command:  "editor --fmt=%%l %f",
			location: loc,
			want:     []string{"editor", "--fmt=%l", "/home/user/paper.tex"},
		},
		{
			name:     "repeated placeholder",
			command:  "edit %l %l",
			location: synctex.Location{File: "a.tex", Line: 3},
			want:     []string{"edit", "3", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := mustParse(t, tt.command, ColumnRequired, "")

			got, err := tmpl.Expand(tt.location)
			if err != nil {
				t.Fatalf("Expand failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expand = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("argv[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
			for _, arg := range got {
				if strings.Contains(arg, "%f") || strings.Contains(arg, "%l") || strings.Contains(arg, "%c") {
					t.Errorf("placeholder syntax left in output: %q", arg)
				}
			}
		})
	}
}

func TestNewRejectsBadTemplates(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{name: "empty command", command: ""},
		{name: "blank command", command: "   "},
		{name: "unknown placeholder", command: "vim %x"},
		{name: "dangling percent", command: "vim %"},
		{name: "unbalanced quote", command: `vim "%f`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.command, ColumnRequired, "")
			if err == nil {
				t.Fatalf("New(%q) succeeded, want TemplateError", tt.command)
			}
			var te *TemplateError
			if !errors.As(err, &te) {
				t.Errorf("New(%q) returned %T, want *TemplateError", tt.command, err)
			}
		})
	}
}

func TestExpandColumnPolicy(t *testing.T) {
	noColumn := synctex.Location{File: "paper.tex", Line: 10}

	t.Run("required column missing", func(t *testing.T) {
		tmpl := mustParse(t, "edit %f:%l:%c", ColumnRequired, "")

		_, err := tmpl.Expand(noColumn)
		var te *TemplateError
		if !errors.As(err, &te) {
			t.Fatalf("Expand = %v, want *TemplateError", err)
		}
	})

	t.Run("default substituted", func(t *testing.T) {
		tmpl := mustParse(t, "edit %f:%l:%c", ColumnDefault, "0")

		got, err := tmpl.Expand(noColumn)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		if got[1] != "paper.tex:10:0" {
			t.Errorf("argv[1] = %q, want %q", got[1], "paper.tex:10:0")
		}
	})

	t.Run("supplied column wins over default", func(t *testing.T) {
		tmpl := mustParse(t, "edit %f:%l:%c", ColumnDefault, "0")

		got, err := tmpl.Expand(synctex.Location{File: "paper.tex", Line: 10, Column: 4})
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		if got[1] != "paper.tex:10:4" {
			t.Errorf("argv[1] = %q, want %q", got[1], "paper.tex:10:4")
		}
	})

	t.Run("no column reference never fails", func(t *testing.T) {
		tmpl := mustParse(t, "vim %f +%l", ColumnRequired, "")
		if tmpl.UsesColumn() {
			t.Errorf("UsesColumn() = true for template without %%c")
		}

		if _, err := tmpl.Expand(noColumn); err != nil {
			t.Errorf("Expand failed: %v", err)
		}
	})
}
