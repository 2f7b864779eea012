package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip returns an in-memory zip archive with the given name to content
// entries.
func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestFetcher(tb testing.TB) *Fetcher {
	tb.Helper()
	f := NewFetcher(time.Second)
	httpmock.ActivateNonDefault(f.httpClient)
	tb.Cleanup(httpmock.DeactivateAndReset)
	return f
}

func TestDownloadAndExtract(t *testing.T) {
	inner := buildZip(t, map[string][]byte{
		"Recordings/dawn_001.wav": []byte("audio"),
	})
	outer := buildZip(t, map[string][]byte{
		"README.md":          []byte("dataset readme"),
		"SiteA.zip":          inner,
		"tables/species.csv": []byte("name\nrobin\n"),
	})

	f := newTestFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, "https://zenodo.test/api/records/1/files-archive",
		httpmock.NewBytesResponder(http.StatusOK, outer))

	dest := filepath.Join(t.TempDir(), "WABAD")
	require.NoError(t, f.DownloadAndExtract(context.Background(), "https://zenodo.test/api/records/1/files-archive", dest))

	readme, err := os.ReadFile(filepath.Join(dest, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "dataset readme", string(readme))

	_, err = os.Stat(filepath.Join(dest, "tables", "species.csv"))
	require.NoError(t, err)

	// The nested zip is expanded into a directory named after it and removed.
	audio, err := os.ReadFile(filepath.Join(dest, "SiteA", "Recordings", "dawn_001.wav"))
	require.NoError(t, err)
	assert.Equal(t, "audio", string(audio))
	_, err = os.Stat(filepath.Join(dest, "SiteA.zip"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadFailureStatus(t *testing.T) {
	f := newTestFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, "https://zenodo.test/api/records/1/files-archive",
		httpmock.NewStringResponder(http.StatusForbidden, "denied"))

	err := f.DownloadAndExtract(context.Background(), "https://zenodo.test/api/records/1/files-archive", t.TempDir())
	require.Error(t, err)
}

func TestDownloadNotAZip(t *testing.T) {
	f := newTestFetcher(t)
	httpmock.RegisterResponder(http.MethodGet, "https://zenodo.test/file",
		httpmock.NewStringResponder(http.StatusOK, "plain text, not an archive"))

	err := f.DownloadAndExtract(context.Background(), "https://zenodo.test/file", t.TempDir())
	require.Error(t, err)
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.CreateHeader(&zip.FileHeader{Name: "../escape.txt", Method: zip.Deflate})
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0o644))

	err = extractZip(archivePath, filepath.Join(dir, "out"))
	require.Error(t, err)
}
