package feed

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// snapshotFile is the on-disk layout of a captured public feed:
//
//	[[items]]
//	title = "..."
//	link = "..."
//	pub_date = "..."
type snapshotFile struct {
	Items []Item `toml:"items"`
}

// LoadSnapshot reads a captured feed document used in offline mode.
func LoadSnapshot(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var doc snapshotFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return doc.Items, nil
}

// SaveSnapshot writes items in the format LoadSnapshot reads.
func SaveSnapshot(path string, items []Item) error {
	data, err := toml.Marshal(snapshotFile{Items: items})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
