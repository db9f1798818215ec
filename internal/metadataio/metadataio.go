package metadataio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bag-reindex/internal/bag"

	"gopkg.in/yaml.v3"
)

var ErrNoMetadata = errors.New("metadata file not found")

// IO persists session metadata next to the bag's segments.
type IO interface {
	WriteMetadata(baseFolder string, meta bag.Metadata) error
	ReadMetadata(baseFolder string) (bag.Metadata, error)
	MetadataFileExists(baseFolder string) bool
}

type YAML struct{}

func NewYAML() YAML {
	return YAML{}
}

func Path(baseFolder string) string {
	return filepath.Join(baseFolder, bag.MetadataFileName)
}

type fileDoc struct {
	Info bagInfo `yaml:"rosbag2_bagfile_information"`
}

type bagInfo struct {
	Version                int             `yaml:"version"`
	StorageIdentifier      string          `yaml:"storage_identifier"`
	RelativeFilePaths      []string        `yaml:"relative_file_paths"`
	Duration               durationDoc     `yaml:"duration"`
	StartingTime           startingTimeDoc `yaml:"starting_time"`
	MessageCount           uint64          `yaml:"message_count"`
	TopicsWithMessageCount []topicInfoDoc  `yaml:"topics_with_message_count"`
	CompressionFormat      string          `yaml:"compression_format"`
	CompressionMode        string          `yaml:"compression_mode"`
	BagSize                uint64          `yaml:"bag_size"`
}

type durationDoc struct {
	Nanoseconds int64 `yaml:"nanoseconds"`
}

type startingTimeDoc struct {
	NanosecondsSinceEpoch int64 `yaml:"nanoseconds_since_epoch"`
}

type topicInfoDoc struct {
	TopicMetadata topicMetadataDoc `yaml:"topic_metadata"`
	MessageCount  uint64           `yaml:"message_count"`
}

type topicMetadataDoc struct {
	Name                string `yaml:"name"`
	Type                string `yaml:"type"`
	SerializationFormat string `yaml:"serialization_format"`
	OfferedQoSProfiles  string `yaml:"offered_qos_profiles"`
}

func Marshal(meta bag.Metadata) ([]byte, error) {
	info := bagInfo{
		Version:           meta.Version,
		StorageIdentifier: meta.StorageIdentifier,
		RelativeFilePaths: meta.RelativeFilePaths,
		Duration:          durationDoc{Nanoseconds: meta.Duration.Nanoseconds()},
		StartingTime:      startingTimeDoc{NanosecondsSinceEpoch: unixNano(meta.StartingTime)},
		MessageCount:      meta.MessageCount,
		CompressionFormat: meta.CompressionFormat,
		CompressionMode:   meta.CompressionMode,
		BagSize:           meta.BagSize,
	}
	if info.RelativeFilePaths == nil {
		info.RelativeFilePaths = []string{}
	}
	info.TopicsWithMessageCount = make([]topicInfoDoc, 0, len(meta.TopicsWithMessageCount))
	for _, t := range meta.TopicsWithMessageCount {
		info.TopicsWithMessageCount = append(info.TopicsWithMessageCount, topicInfoDoc{
			TopicMetadata: topicMetadataDoc{
				Name:                t.Topic.Name,
				Type:                t.Topic.Type,
				SerializationFormat: t.Topic.SerializationFormat,
				OfferedQoSProfiles:  t.Topic.OfferedQoSProfiles,
			},
			MessageCount: t.MessageCount,
		})
	}

	out, err := yaml.Marshal(fileDoc{Info: info})
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return out, nil
}

func Unmarshal(data []byte) (bag.Metadata, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return bag.Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	info := doc.Info
	meta := bag.Metadata{
		Version:           info.Version,
		StorageIdentifier: info.StorageIdentifier,
		RelativeFilePaths: info.RelativeFilePaths,
		Duration:          time.Duration(info.Duration.Nanoseconds),
		StartingTime:      time.Unix(0, info.StartingTime.NanosecondsSinceEpoch),
		MessageCount:      info.MessageCount,
		CompressionFormat: info.CompressionFormat,
		CompressionMode:   info.CompressionMode,
		BagSize:           info.BagSize,
	}
	for _, t := range info.TopicsWithMessageCount {
		meta.TopicsWithMessageCount = append(meta.TopicsWithMessageCount, bag.TopicInformation{
			Topic: bag.TopicMetadata{
				Name:                t.TopicMetadata.Name,
				Type:                t.TopicMetadata.Type,
				SerializationFormat: t.TopicMetadata.SerializationFormat,
				OfferedQoSProfiles:  t.TopicMetadata.OfferedQoSProfiles,
			},
			MessageCount: t.MessageCount,
		})
	}
	return meta, nil
}

func (YAML) WriteMetadata(baseFolder string, meta bag.Metadata) error {
	stat, err := os.Stat(baseFolder)
	if err != nil {
		return fmt.Errorf("stat bag folder: %w", err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("expected a directory to write metadata to, got %s", baseFolder)
	}

	data, err := Marshal(meta)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(baseFolder, ".metadata-*.yaml", Path(baseFolder), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", Path(baseFolder), err)
	}
	return nil
}

func (YAML) ReadMetadata(baseFolder string) (bag.Metadata, error) {
	data, err := os.ReadFile(Path(baseFolder))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return bag.Metadata{}, fmt.Errorf("%w: %s", ErrNoMetadata, Path(baseFolder))
		}
		return bag.Metadata{}, fmt.Errorf("read %s: %w", Path(baseFolder), err)
	}
	return Unmarshal(data)
}

func (YAML) MetadataFileExists(baseFolder string) bool {
	stat, err := os.Stat(Path(baseFolder))
	return err == nil && !stat.IsDir()
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
