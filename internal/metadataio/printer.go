package metadataio

import (
	"fmt"
	"io"

	"bag-reindex/internal/bag"
)

// Printer writes metadata YAML to an io.Writer instead of the bag folder.
// Reads are delegated to the YAML implementation.
type Printer struct {
	Out io.Writer
}

func (p Printer) WriteMetadata(_ string, meta bag.Metadata) error {
	data, err := Marshal(meta)
	if err != nil {
		return err
	}
	if _, err := p.Out.Write(data); err != nil {
		return fmt.Errorf("print metadata: %w", err)
	}
	return nil
}

func (Printer) ReadMetadata(baseFolder string) (bag.Metadata, error) {
	return YAML{}.ReadMetadata(baseFolder)
}

func (Printer) MetadataFileExists(baseFolder string) bool {
	return YAML{}.MetadataFileExists(baseFolder)
}
