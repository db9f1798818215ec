package reindex

import (
	"context"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/segment"
	"bag-reindex/internal/storage"

	"github.com/sirupsen/logrus"
)

// Bootstrap reads the baseline metadata embedded in the lowest-numbered
// segment. No other segment is tried if that one cannot be opened.
func Bootstrap(ctx context.Context, factory storage.Factory, segments []segment.Segment, storageID string, logger logrus.FieldLogger) (bag.Metadata, error) {
	if len(segments) == 0 {
		return bag.Metadata{}, newError(KindNoSegments, "bootstrap", "", nil)
	}
	first := segments[0].Path

	st, err := factory.OpenReadOnly(ctx, first, storageID)
	if err != nil {
		return bag.Metadata{}, newError(KindBackendOpen, "open segment", first, err)
	}
	if st == nil {
		return bag.Metadata{}, errorf(KindBackendOpen, "open segment", first, "no storage could be initialized")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.WithError(err).WithField("segment", first).Warn("close segment")
		}
	}()

	meta, err := st.Metadata(ctx)
	if err != nil {
		return bag.Metadata{}, newError(KindBackendOpen, "read segment metadata", first, err)
	}
	if len(meta.TopicsWithMessageCount) == 0 {
		logger.WithField("segment", first).Warn("No topics were listed in metadata.")
	}
	return meta, nil
}
