package declare

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses a Document from r.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("declare: reading declaration: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("declare: parsing YAML declaration: %w", err)
	}
	if doc.Entry == "" {
		return nil, fmt.Errorf("declare: declaration has no entry machine")
	}
	if _, ok := doc.Machines[doc.Entry]; !ok {
		return nil, fmt.Errorf("declare: entry machine %q is not defined", doc.Entry)
	}
	return &doc, nil
}

// LoadFile opens and parses path as a Document.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("declare: opening %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
