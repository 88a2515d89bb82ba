package archive

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ResolveRoot picks the directory to compose after extracting into dir:
// the only top-level entry when it is a directory, else the directory
// named stem when present, else dir itself.
func ResolveRoot(fs afero.Fs, dir, stem string) (string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if len(infos) == 1 && infos[0].IsDir() {
		return filepath.Join(dir, infos[0].Name()), nil
	}
	if stem != "" {
		for _, info := range infos {
			if info.Name() == stem && info.IsDir() {
				return filepath.Join(dir, stem), nil
			}
		}
	}
	return dir, nil
}
