package segment

import (
	"path/filepath"

	"bag-reindex/internal/bag"
)

// ResolveRelativePaths joins every relative entry of files onto the bag's
// base path. Bags older than bag.LegacyPathVersion stored paths that
// already include the bag folder name, so for them the parent of
// baseFolder is used instead. A version of 0 means bag.CurrentVersion.
func ResolveRelativePaths(baseFolder string, files []string, version int) ([]string, error) {
	if version == 0 {
		version = bag.CurrentVersion
	}
	base := baseFolder
	if version < bag.LegacyPathVersion {
		base = filepath.Dir(filepath.Clean(baseFolder))
	}
	if err := requireDir(base); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		if filepath.IsAbs(f) {
			out = append(out, f)
			continue
		}
		out = append(out, filepath.Join(base, f))
	}
	return out, nil
}

// StripParent returns the file name component of path.
func StripParent(path string) string {
	return filepath.Base(path)
}
