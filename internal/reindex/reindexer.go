package reindex

import (
	"context"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/metadataio"
	"bag-reindex/internal/segment"
	"bag-reindex/internal/storage"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateBootstrapping
	StateAggregating
	StatePersisted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateBootstrapping:
		return "bootstrapping"
	case StateAggregating:
		return "aggregating"
	case StatePersisted:
		return "persisted"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

type Options struct {
	BaseFolder string
	StorageID  string
	// Extension overrides the segment extension. When empty it is looked up
	// from the storage factory if the factory can report one.
	Extension  string

	// CompressionFormat and CompressionMode replace the baseline's values
	// when set. Segments do not record how the bag was compressed.
	CompressionFormat   string
	CompressionMode     string
	// SerializationFormat fills in topics whose segment left the format
	// empty.
	SerializationFormat string
}

type Result struct {
	State      State
	BaseFolder string
	Segments   []segment.Segment
	Metadata   bag.Metadata
}

// Written reports whether metadata was handed to the persistence layer.
func (r Result) Written() bool {
	return r.State == StatePersisted
}

type extensionLookup interface {
	Extension(storageID string) (string, error)
}

type Reindexer struct {
	storage  storage.Factory
	io       metadataio.IO
	logger   logrus.FieldLogger
	observer func(State)
}

type Option func(*Reindexer)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Reindexer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(State)) Option {
	return func(r *Reindexer) {
		r.observer = fn
	}
}

func New(factory storage.Factory, io metadataio.IO, opts ...Option) *Reindexer {
	r := &Reindexer{
		storage: factory,
		io:      io,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reindexer) enter(res *Result, s State) {
	res.State = s
	if r.observer != nil {
		r.observer(s)
	}
}

// Reindex rebuilds the metadata of one bag folder from its segments and
// writes it. A folder without segments ends in StateAborted with a nil
// error; every other failure is returned as *Error and nothing is written.
func (r *Reindexer) Reindex(ctx context.Context, opts Options) (Result, error) {
	res := Result{State: StateIdle, BaseFolder: opts.BaseFolder}
	logger := r.logger.WithField("bag", opts.BaseFolder)
	logger.Info("Beginning reindex operation.")

	r.enter(&res, StateDiscovering)
	ext, err := r.extension(opts)
	if err != nil {
		return res, err
	}
	paths, err := segment.Discover(opts.BaseFolder, ext)
	if err != nil {
		return res, newError(KindConfiguration, "discover segments in", opts.BaseFolder, err)
	}
	segments, err := segment.Sort(paths, ext)
	if err != nil {
		return res, newError(KindMalformedFilename, "order segments in", opts.BaseFolder, err)
	}
	res.Segments = segments
	logger.WithField("segments", segment.Basenames(segments)).Debug("discovered segments")

	if len(segments) == 0 {
		logger.Error("No database files found for reindexing. Abort")
		r.enter(&res, StateAborted)
		return res, nil
	}
	if err := checkContext(ctx); err != nil {
		return res, err
	}

	r.enter(&res, StateBootstrapping)
	meta, err := Bootstrap(ctx, r.storage, segments, opts.StorageID, logger)
	if err != nil {
		return res, err
	}
	if err := checkContext(ctx); err != nil {
		return res, err
	}

	r.enter(&res, StateAggregating)
	Aggregate(&meta, opts.BaseFolder, segments)
	applyOverrides(&meta, opts)
	res.Metadata = meta
	if err := checkContext(ctx); err != nil {
		return res, err
	}

	if err := r.io.WriteMetadata(opts.BaseFolder, meta); err != nil {
		return res, newError(KindPersist, "write metadata for", opts.BaseFolder, err)
	}
	r.enter(&res, StatePersisted)
	logger.WithFields(logrus.Fields{
		"files":    len(meta.RelativeFilePaths),
		"topics":   len(meta.TopicsWithMessageCount),
		"bag_size": meta.BagSize,
	}).Info("Reindexing operation completed.")
	return res, nil
}

func applyOverrides(meta *bag.Metadata, opts Options) {
	if opts.CompressionFormat != "" {
		meta.CompressionFormat = opts.CompressionFormat
	}
	if opts.CompressionMode != "" {
		meta.CompressionMode = opts.CompressionMode
	}
	if opts.SerializationFormat == "" {
		return
	}
	for i := range meta.TopicsWithMessageCount {
		t := &meta.TopicsWithMessageCount[i].Topic
		if t.SerializationFormat == "" {
			t.SerializationFormat = opts.SerializationFormat
		}
	}
}

func (r *Reindexer) extension(opts Options) (string, error) {
	if opts.Extension != "" {
		return segment.NormalizeExt(opts.Extension), nil
	}
	lookup, ok := r.storage.(extensionLookup)
	if !ok {
		return "", errorf(KindConfiguration, "resolve segment extension", "", "no extension known for storage %q", opts.StorageID)
	}
	ext, err := lookup.Extension(opts.StorageID)
	if err != nil {
		return "", newError(KindConfiguration, "resolve segment extension", "", err)
	}
	return ext, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newError(KindCanceled, "reindex", "", err)
	}
	return nil
}
