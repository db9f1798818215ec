package reindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/segment"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_MissingSegmentContributesZero(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bag_0.db3"), 100)
	writeFile(t, filepath.Join(dir, "bag_1.db3"), 50)
	writeFile(t, filepath.Join(dir, "bag_2.db3"), 25)

	paths, err := segment.Discover(dir, ".db3")
	require.NoError(t, err)
	segments, err := segment.Sort(paths, ".db3")
	require.NoError(t, err)

	// Deleted after discovery, before aggregation.
	require.NoError(t, os.Remove(filepath.Join(dir, "bag_1.db3")))

	meta := baseline()
	Aggregate(&meta, dir, segments)

	assert.Equal(t, []string{"bag_0.db3", "bag_1.db3", "bag_2.db3"}, meta.RelativeFilePaths)
	assert.Equal(t, uint64(125), meta.BagSize)
	assert.Equal(t, baseline().TopicsWithMessageCount, meta.TopicsWithMessageCount)
	assert.Equal(t, baseline().MessageCount, meta.MessageCount)
}

func TestAggregate_ReplacesStalePaths(t *testing.T) {
	meta := baseline()
	Aggregate(&meta, t.TempDir(), nil)
	assert.Empty(t, meta.RelativeFilePaths)
	assert.Zero(t, meta.BagSize)
}

func TestBagSize_IgnoresDirectoriesAndResolvesAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "x_0.db3"), 7)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d_1.db3"), 0o755))

	got := BagSize(dir, []string{filepath.Join(other, "x_0.db3"), "d_1.db3", "missing_2.db3"})
	assert.Equal(t, uint64(7), got)
}

func TestBootstrap_EmptyListIsNonFatal(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := Bootstrap(context.Background(), &fakeFactory{}, nil, "fake", logger)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSegments)
	assert.False(t, KindOf(err).Fatal())
}

func TestBootstrap_OpensFirstSegment(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := &fakeFactory{meta: bag.Metadata{Version: 4}}
	segments := []segment.Segment{{Path: "/b/bag_3.db3", SequenceID: 3}, {Path: "/b/bag_7.db3", SequenceID: 7}}

	meta, err := Bootstrap(context.Background(), f, segments, "fake", logger)
	require.NoError(t, err)
	assert.Equal(t, 4, meta.Version)
	assert.Equal(t, []string{"/b/bag_3.db3"}, f.opened)
}

func TestErrorKinds(t *testing.T) {
	err := newError(KindBackendOpen, "open segment", "/b/bag_0.db3", os.ErrPermission)
	assert.Equal(t, "open segment /b/bag_0.db3: permission denied", err.Error())
	assert.ErrorIs(t, err, ErrBackendOpen)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, KindUnknown, KindOf(os.ErrPermission))
	assert.Equal(t, "backend open", KindBackendOpen.String())
}
