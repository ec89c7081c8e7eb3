// Package synctex defines the source location exchanged between the viewer
// transport, the sync bridge, and the command templater.
package synctex

import "fmt"

// Location is a position in a TeX source file, as reported by the viewer's
// SyncTeX mapping. Column 0 means the viewer did not supply a column.
type Location struct {
	// File is the absolute path to the source file.
	File string
	// Line is the 1-based line number.
	Line int
	// Column is the 1-based column number, or 0 if absent.
	Column int
}

// Validate reports whether the location is safe to act on. Locations that
// fail validation must be dropped by the caller, never forwarded to a
// process launch.
func (l Location) Validate() error {
	if l.File == "" {
		return fmt.Errorf("empty source file path")
	}
	if l.Line < 1 {
		return fmt.Errorf("line %d out of range (must be >= 1)", l.Line)
	}
	if l.Column < 0 {
		return fmt.Errorf("column %d out of range (must be >= 0)", l.Column)
	}
	return nil
}

// String renders the location as file:line or file:line:column.
func (l Location) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}
