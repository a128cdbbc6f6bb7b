package reference

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Link is one downloadable reference page.
type Link struct {
	Filename string `yaml:"filename"`
	URL      string `yaml:"url"`
}

type Catalog struct {
	Links []Link `yaml:"links"`
}

// LoadCatalog reads a YAML catalog from path, or the built-in ADGM catalog
// when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	data := defaultCatalog
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Catalog{}, fmt.Errorf("read catalog: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	for i, l := range c.Links {
		if strings.TrimSpace(l.URL) == "" {
			return Catalog{}, fmt.Errorf("catalog link %d: url is required", i)
		}
		name := filepath.Base(l.Filename)
		if l.Filename == "" || name != l.Filename || name == "." || name == ".." {
			return Catalog{}, fmt.Errorf("catalog link %d: filename %q must be a plain file name", i, l.Filename)
		}
	}
	return c, nil
}
