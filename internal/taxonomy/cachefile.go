package taxonomy

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/soundset/soundset-go/internal/errors"
)

// cacheFileHeader is the header row of the persistent resolution cache.
var cacheFileHeader = []string{"name", "canonical_name"}

// cacheFile is the append-only persistent name-resolution cache. It is read
// fully at open and appended to as names resolve. Single writer at a time is
// an implicit precondition, not enforced by locking.
type cacheFile struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// openCacheFile opens (or creates) the cache file at path and returns the
// previously resolved entries.
func openCacheFile(path string) (*cacheFile, map[string]string, error) {
	entries := make(map[string]string)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, errors.Newf("creating cache directory for %s: %w", path, err).
					Category(errors.CategoryFileIO).
					Context("path", path).
					Component("taxonomy").
					Build()
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: configured cache path
		if err != nil {
			return nil, nil, errors.Newf("creating cache file %s: %w", path, err).
				Category(errors.CategoryFileIO).
				Context("path", path).
				Component("taxonomy").
				Build()
		}
		w := csv.NewWriter(f)
		if err := w.Write(cacheFileHeader); err != nil {
			_ = f.Close()
			return nil, nil, errors.Newf("writing cache header to %s: %w", path, err).
				Category(errors.CategoryFileIO).
				Context("path", path).
				Component("taxonomy").
				Build()
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return &cacheFile{path: path, f: f, w: w}, entries, nil
	}

	rf, err := os.Open(path) //nolint:gosec // G304: configured cache path
	if err != nil {
		return nil, nil, errors.Newf("opening cache file %s: %w", path, err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("taxonomy").
			Build()
	}
	r := csv.NewReader(rf)
	r.FieldsPerRecord = 2
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = rf.Close()
			return nil, nil, errors.Newf("parsing cache file %s: %w", path, err).
				Category(errors.CategoryFileParsing).
				Context("path", path).
				Component("taxonomy").
				Build()
		}
		if first {
			first = false
			continue
		}
		entries[row[0]] = row[1]
	}
	if err := rf.Close(); err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: configured cache path
	if err != nil {
		return nil, nil, errors.Newf("opening cache file %s for append: %w", path, err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("taxonomy").
			Build()
	}
	return &cacheFile{path: path, f: f, w: csv.NewWriter(f)}, entries, nil
}

// append records one resolution.
func (c *cacheFile) append(name, canonical string) error {
	if err := c.w.Write([]string{name, canonical}); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the underlying file.
func (c *cacheFile) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}
