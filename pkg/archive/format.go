// Package archive extracts source archives into a staging directory so
// the extracted tree can be composed.
package archive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/odvcencio/swhid/pkg/object"
)

var (
	// ErrUnsupportedArchive is returned for file names without a known
	// archive extension. It matches object.ErrInvalidInput.
	ErrUnsupportedArchive = fmt.Errorf("%w: unsupported archive format", object.ErrInvalidInput)
	// ErrArchiveFormat is returned for corrupt archives and for entries
	// that would land outside the extraction directory.
	ErrArchiveFormat = errors.New("malformed archive")
)

// Format identifies a container and compression combination.
type Format string

const (
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
	FormatTarLz4 Format = "tar.lz4"
	FormatTarBz2 Format = "tar.bz2"
	FormatZip    Format = "zip"
)

// extensions is checked in order; longer suffixes come first.
var extensions = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tar.zst", FormatTarZst},
	{".tar.lz4", FormatTarLz4},
	{".tar.bz2", FormatTarBz2},
	{".tgz", FormatTarGz},
	{".tzst", FormatTarZst},
	{".tbz2", FormatTarBz2},
	{".tbz", FormatTarBz2},
	{".tar", FormatTar},
	{".zip", FormatZip},
}

// DetectFormat maps a file name to its Format and returns the name with
// the archive extension removed ("pkg-1.0.tar.gz" gives "pkg-1.0").
// Matching is case-insensitive.
func DetectFormat(name string) (Format, string, error) {
	base := filepath.Base(name)
	lower := strings.ToLower(base)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext.suffix) && len(lower) > len(ext.suffix) {
			return ext.format, base[:len(base)-len(ext.suffix)], nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedArchive, base)
}

// IsArchive reports whether name has a supported archive extension.
func IsArchive(name string) bool {
	_, _, err := DetectFormat(name)
	return err == nil
}
