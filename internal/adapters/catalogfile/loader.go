// Package catalogfile loads the storefront catalog from YAML and keeps it
// current while the file changes on disk.
package catalogfile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"storefront/internal/domain/catalog"
)

//go:embed default.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when the catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Parse decodes YAML catalog data, validates it and builds its indexes.
// Unknown keys are rejected so typos in field names surface as errors.
// POST: on success the returned catalog is indexed and has no validation errors
func Parse(data []byte) (*catalog.Catalog, catalog.Report, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c catalog.Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, catalog.Report{}, fmt.Errorf("decode catalog: %w", err)
	}
	report := c.Validate()
	if !report.OK() {
		return nil, report, fmt.Errorf("%w: %s: %s", ErrInvalidCatalog, report.Summary(), strings.Join(report.Errors, "; "))
	}
	c.Index()
	return &c, report, nil
}

// Load reads the catalog at path, or the embedded default when path is empty.
// Validation warnings are logged.
func Load(path string) (*catalog.Catalog, error) {
	data := defaultCatalog
	source := "embedded"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data, source = b, path
	}

	c, report, err := Parse(data)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		slog.Warn("catalog_warning", "source", source, "warning", w)
	}
	slog.Info("catalog_loaded", "source", source,
		"products", len(c.Products), "categories", len(c.Categories), "services", len(c.Services))
	return c, nil
}

// Default returns the embedded catalog.
func Default() *catalog.Catalog {
	c, _, err := Parse(defaultCatalog)
	if err != nil {
		panic("embedded catalog: " + err.Error())
	}
	return c
}

// Embedded returns a copy of the embedded catalog YAML.
func Embedded() []byte {
	return bytes.Clone(defaultCatalog)
}
