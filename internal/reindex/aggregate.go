package reindex

import (
	"os"
	"path/filepath"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/segment"
)

// Aggregate replaces the baseline's file list with the discovered segments
// and recomputes BagSize from the files that exist right now. Topics and
// message counts stay as the baseline reported them.
func Aggregate(meta *bag.Metadata, baseFolder string, segments []segment.Segment) {
	meta.RelativeFilePaths = make([]string, 0, len(segments))
	for _, s := range segments {
		meta.RelativeFilePaths = append(meta.RelativeFilePaths, segment.StripParent(s.Path))
	}
	meta.BagSize = BagSize(baseFolder, meta.RelativeFilePaths)
}

// BagSize sums the sizes of the listed files. Files that cannot be
// stat'ed count as zero.
func BagSize(baseFolder string, relativePaths []string) uint64 {
	var total uint64
	for _, p := range relativePaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseFolder, p)
		}
		stat, err := os.Stat(p)
		if err != nil || !stat.Mode().IsRegular() {
			continue
		}
		total += uint64(stat.Size())
	}
	return total
}
