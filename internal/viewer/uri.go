package viewer

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Characters left unescaped in file URIs, beyond letters and digits. This is
// the set Evince itself leaves intact when it registers documents, so an URI
// built here matches the registry's exact-string lookup.
const uriSafe = "_.-~%/:=&?#+!$,;'@()*[]"

// FileURI converts a path to the file:// URI the viewer registry is keyed
// by. Relative paths are resolved against the working directory.
func FileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", path, err)
	}
	var b strings.Builder
	b.WriteString("file://")
	for i := 0; i < len(abs); i++ {
		c := abs[i]
		if isAlnum(c) || strings.IndexByte(uriSafe, c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String(), nil
}

// PathFromURI converts a file:// URI back to a filesystem path.
func PathFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", fmt.Errorf("not a file URI: %q", uri)
	}
	path, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("malformed file URI %q: %w", uri, err)
	}
	return path, nil
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
