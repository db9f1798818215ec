package bag

import "time"

const (
	// CurrentVersion is the metadata format version written by this tool.
	CurrentVersion = 4
	// LegacyPathVersion is the first version whose relative file paths are
	// relative to the bag folder itself rather than to its parent.
	LegacyPathVersion = 4

	MetadataFileName = "metadata.yaml"
)

type TopicMetadata struct {
	Name                string
	Type                string
	SerializationFormat string
	OfferedQoSProfiles  string
}

type TopicInformation struct {
	Topic        TopicMetadata
	MessageCount uint64
}

// Metadata describes a whole recording session. Fields other than
// RelativeFilePaths and BagSize are carried through a reindex untouched.
type Metadata struct {
	Version                int
	StorageIdentifier      string
	RelativeFilePaths      []string
	Duration               time.Duration
	StartingTime           time.Time
	MessageCount           uint64
	TopicsWithMessageCount []TopicInformation
	CompressionFormat      string
	CompressionMode        string
	BagSize                uint64
}

func (m Metadata) TopicNames() []string {
	names := make([]string, 0, len(m.TopicsWithMessageCount))
	for _, t := range m.TopicsWithMessageCount {
		names = append(names, t.Topic.Name)
	}
	return names
}

func (m Metadata) Topic(name string) (TopicInformation, bool) {
	for _, t := range m.TopicsWithMessageCount {
		if t.Topic.Name == name {
			return t, true
		}
	}
	return TopicInformation{}, false
}

func (m Metadata) EndTime() time.Time {
	return m.StartingTime.Add(m.Duration)
}
