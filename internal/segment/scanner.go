package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotDirectory = errors.New("base folder must be an existing directory")

// Discover lists the files directly inside baseFolder whose name ends in
// ext. ext may span several dots (".db3.zstd"). Subdirectories are not
// descended into.
func Discover(baseFolder, ext string) ([]string, error) {
	if err := requireDir(baseFolder); err != nil {
		return nil, err
	}
	ext = NormalizeExt(ext)

	entries, err := os.ReadDir(baseFolder)
	if err != nil {
		return nil, fmt.Errorf("read base folder %s: %w", baseFolder, err)
	}

	found := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext == "" || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		found = append(found, filepath.Join(baseFolder, e.Name()))
	}
	return found, nil
}

// NormalizeExt returns ext with exactly one leading dot.
func NormalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	return "." + strings.TrimLeft(ext, ".")
}

func requireDir(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotDirectory, path, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	return nil
}
