package asset

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the YAML asset catalog.
//
// Example:
//
//	field: NORNE
//	assets:
//	  - name: PROD-01
//	    kind: producer
//	    group: G1
//	  - name: INJ-01
//	    kind: injector
type CatalogFile struct {
	Field  string  `yaml:"field"`
	Assets []Asset `yaml:"assets"`
}

// LoadCatalogFile reads an asset catalog from disk.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: open catalog %q: %w", path, err)
	}
	defer f.Close()

	cf, err := LoadCatalogFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("asset: parse catalog %q: %w", path, err)
	}
	return cf, nil
}

// LoadCatalogFromReader parses and validates catalog YAML. Unknown keys are
// rejected.
func LoadCatalogFromReader(r io.Reader) (*CatalogFile, error) {
	var cf CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("asset: decode catalog yaml: %w", err)
	}

	var errs []error
	seen := make(map[string]int, len(cf.Assets))
	for i, a := range cf.Assets {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("assets[%d]: %w", i, err))
			continue
		}
		n := Normalize(a.Name)
		if prev, dup := seen[n]; dup {
			errs = append(errs, fmt.Errorf("assets[%d]: name %q duplicates assets[%d]", i, a.Name, prev))
		}
		seen[n] = i
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &cf, nil
}

// Store returns a [MemStore] holding the catalog.
func (cf *CatalogFile) Store() *MemStore {
	return NewMemStore(cf.Assets...)
}
