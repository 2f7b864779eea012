// Package fetch downloads dataset archives and extracts them into the local
// data directory. Repository archives frequently contain further zip files
// (one per recording site); those are expanded in place after the outer
// archive, each into a directory named after the zip file.
package fetch

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/logging"
)

const defaultTimeout = 30 * time.Minute

// extractLimit caps a single extracted file to guard against decompression
// bombs in third-party archives.
const extractLimit = 20 << 30

// Fetcher downloads and extracts dataset archives.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. A zero timeout selects the default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.ForService("fetch"),
	}
}

// DownloadAndExtract downloads the archive at url into a temporary file,
// extracts it under destDir and expands any nested zip files.
func (f *Fetcher) DownloadAndExtract(ctx context.Context, url, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", destDir).
			Component("fetch").
			Build()
	}

	archivePath, err := f.download(ctx, url)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(archivePath); err != nil {
			f.logger.Warn("failed to remove downloaded archive", "path", archivePath, "error", err)
		}
	}()

	if err := extractZip(archivePath, destDir); err != nil {
		return err
	}
	f.logger.Info("archive extracted", "url", url, "dest", destDir)

	return expandNestedZips(destDir, f.logger)
}

// download streams the archive into a temporary file and returns its path.
func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Component("fetch").
			Build()
	}

	f.logger.Info("downloading archive", "url", url)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Component("fetch").
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("archive download failed with status %d", resp.StatusCode).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Context("status_code", resp.StatusCode).
			Component("fetch").
			Build()
	}

	tmp, err := os.CreateTemp("", "soundset-archive-*.zip")
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create_temp_archive").
			Component("fetch").
			Build()
	}

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.New(err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Component("fetch").
			Build()
	}

	f.logger.Info("archive downloaded", "url", url, "bytes", written)
	return tmp.Name(), nil
}

// extractZip unpacks an archive under destDir, rejecting entries that would
// escape it.
func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("path", archivePath).
			Component("fetch").
			Build()
	}
	defer reader.Close() //nolint:errcheck // read-only handle

	for _, entry := range reader.File {
		if err := extractEntry(entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	cleaned := filepath.Clean(entry.Name)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return errors.Newf("archive entry escapes destination: %s", entry.Name).
			Category(errors.CategoryValidation).
			Context("entry", entry.Name).
			Component("fetch").
			Build()
	}
	target := filepath.Join(destDir, cleaned)

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", target).
			Component("fetch").
			Build()
	}

	src, err := entry.Open()
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("entry", entry.Name).
			Component("fetch").
			Build()
	}
	defer src.Close() //nolint:errcheck // read-only handle

	dst, err := os.Create(target) //nolint:gosec // path validated above
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", target).
			Component("fetch").
			Build()
	}

	_, err = io.Copy(dst, io.LimitReader(src, extractLimit))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", target).
			Component("fetch").
			Build()
	}
	return nil
}

// expandNestedZips walks destDir, extracting every zip file into a sibling
// directory named after it and removing the zip afterwards. One pass is
// enough: repository archives nest at most one level.
func expandNestedZips(destDir string, logger *slog.Logger) error {
	var nested []string
	err := filepath.WalkDir(destDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".zip") {
			nested = append(nested, path)
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", destDir).
			Component("fetch").
			Build()
	}

	for _, path := range nested {
		extractPath := strings.TrimSuffix(path, filepath.Ext(path))
		if err := os.MkdirAll(extractPath, 0o755); err != nil {
			return errors.New(err).
				Category(errors.CategoryFileIO).
				Context("path", extractPath).
				Component("fetch").
				Build()
		}
		if err := extractZip(path, extractPath); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return errors.New(err).
				Category(errors.CategoryFileIO).
				Context("path", path).
				Component("fetch").
				Build()
		}
		logger.Info("nested archive expanded", "path", path, "dest", extractPath)
	}
	return nil
}
