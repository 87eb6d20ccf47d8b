package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// WriteConcatList writes a concat-demuxer list naming paths in order. The
// list is replaced atomically and uses absolute paths, so it can live in any
// directory.
func WriteConcatList(listPath string, paths []string) error {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("absolute path for %s: %w", p, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(abs))
	}
	return renameio.WriteFile(listPath, []byte(b.String()), 0644)
}

// escapeConcatPath quotes single quotes for the concat demuxer.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
