package segment

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

var ErrMalformedFilename = errors.New("malformed segment file name, expected numerical identifier")

type Segment struct {
	Path       string
	SequenceID uint64
}

func (s Segment) Name() string {
	return filepath.Base(s.Path)
}

var (
	patternsMu sync.Mutex
	patterns   = map[string]*regexp.Regexp{}
)

func suffixPattern(ext string) *regexp.Regexp {
	patternsMu.Lock()
	defer patternsMu.Unlock()
	if re, ok := patterns[ext]; ok {
		return re
	}
	re := regexp.MustCompile(`(\d+)` + regexp.QuoteMeta(ext) + `$`)
	patterns[ext] = re
	return re
}

// SequenceID extracts the number immediately preceding ext at the end of
// the file name.
func SequenceID(path, ext string) (uint64, error) {
	ext = NormalizeExt(ext)
	name := filepath.Base(path)
	m := suffixPattern(ext).FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformedFilename, name)
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformedFilename, name, err)
	}
	return id, nil
}

// Less reports whether a sorts before b by numeric sequence id.
func Less(a, b, ext string) (bool, error) {
	ia, err := SequenceID(a, ext)
	if err != nil {
		return false, err
	}
	ib, err := SequenceID(b, ext)
	if err != nil {
		return false, err
	}
	return ia < ib, nil
}

// Sort parses every path and returns the segments in ascending sequence
// order. A single malformed name fails the whole set.
func Sort(paths []string, ext string) ([]Segment, error) {
	segments := make([]Segment, 0, len(paths))
	for _, p := range paths {
		id, err := SequenceID(p, ext)
		if err != nil {
			return nil, err
		}
		segments = append(segments, Segment{Path: p, SequenceID: id})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].SequenceID < segments[j].SequenceID
	})
	return segments, nil
}

func Basenames(segments []Segment) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		out = append(out, s.Name())
	}
	return out
}
