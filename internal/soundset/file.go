package soundset

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/soundset/soundset-go/internal/errors"
)

// CanonicalFileName is the fixed name of the canonical artifact within a
// dataset directory.
const CanonicalFileName = "annotations.json"

const fileIndent = "    "

// SaveFile serializes the dataset under construction to path as the canonical
// JSON artifact. It must be called after all entities have been added.
func (b *Builder) SaveFile(path string) error {
	return writeJSON(path, &b.ds)
}

// WriteFile persists a combined dataset as one canonical file.
func (c *Combined) WriteFile(path string) error {
	return writeJSON(path, c)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", fileIndent)
	if err != nil {
		return errors.Newf("encoding canonical file %s: %w", path, err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("soundset").
			Build()
	}
	data = append(data, '\n')
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Newf("creating directory for %s: %w", path, err).
				Category(errors.CategoryFileIO).
				Context("path", path).
				Component("soundset").
				Build()
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Newf("writing canonical file %s: %w", path, err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("soundset").
			Build()
	}
	return nil
}

// ReadFile loads a canonical dataset file and normalizes legacy field aliases
// (file_name_path, ismultilabel) into their current-generation counterparts.
func ReadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: caller-supplied dataset path
	if err != nil {
		return nil, errors.Newf("reading canonical file %s: %w", path, err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("soundset").
			Build()
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Newf("parsing canonical file %s: %w", path, err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("soundset").
			Build()
	}

	for i := range ds.Sounds {
		s := &ds.Sounds[i]
		if s.FileName == "" && s.FileNamePath != "" {
			s.FileName = s.FileNamePath
			s.FileNamePath = ""
		}
	}
	for i := range ds.Annotations {
		a := &ds.Annotations[i]
		if a.IsChorus == nil && a.IsMultiLabel != nil {
			a.IsChorus = a.IsMultiLabel
			a.IsMultiLabel = nil
		}
	}

	return &ds, nil
}

// ReadCombinedFile loads a combined canonical file, whose info fields are
// list-valued.
func ReadCombinedFile(path string) (*Combined, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: caller-supplied dataset path
	if err != nil {
		return nil, errors.Newf("reading combined file %s: %w", path, err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("soundset").
			Build()
	}

	var c Combined
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Newf("parsing combined file %s: %w", path, err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("soundset").
			Build()
	}
	return &c, nil
}
