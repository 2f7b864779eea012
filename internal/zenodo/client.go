// Package zenodo provides a minimal client for the Zenodo REST API. It
// resolves record landing-page URLs to the metadata used to enrich dataset
// info blocks, and builds archive download URLs for record files.
package zenodo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/logging"
	"github.com/soundset/soundset-go/internal/soundset"
)

const (
	// DefaultBaseURL is the production Zenodo endpoint.
	DefaultBaseURL = "https://zenodo.org"

	defaultTimeout = 30 * time.Second

	// maxResponseSize caps metadata responses. Record metadata is a few KB;
	// anything larger is a misdirected download.
	maxResponseSize = 10 * 1024 * 1024
)

// recordURLPattern matches both the current /records/<id> and the legacy
// /record/<id> landing-page forms.
var recordURLPattern = regexp.MustCompile(`zenodo\.org/records?/(\d+)`)

// Config holds the client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client fetches record metadata from Zenodo. It implements
// soundset.MetadataFetcher.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// recordResponse mirrors the subset of the Zenodo record API we consume.
type recordResponse struct {
	Metadata struct {
		Title           string `json:"title"`
		PublicationDate string `json:"publication_date"`
		Description     string `json:"description"`
		Version         string `json:"version"`
		License         struct {
			ID string `json:"id"`
		} `json:"license"`
		Creators []struct {
			Name string `json:"name"`
		} `json:"creators"`
	} `json:"metadata"`
}

// NewClient creates a Zenodo API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logging.ForService("zenodo"),
	}
}

// ParseRecordID extracts the numeric record id from a landing-page URL.
func ParseRecordID(url string) (string, error) {
	m := recordURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", errors.Newf("not a Zenodo record URL: %s", url).
			Category(errors.CategoryValidation).
			Context("url", url).
			Component("zenodo").
			Build()
	}
	return m[1], nil
}

// ArchiveURL returns the files-archive download URL for a record.
func (c *Client) ArchiveURL(recordID string) string {
	return fmt.Sprintf("%s/api/records/%s/files-archive", c.config.BaseURL, recordID)
}

// FetchRecord resolves a record landing-page URL to its metadata.
func (c *Client) FetchRecord(ctx context.Context, url string) (*soundset.RecordMetadata, error) {
	recordID, err := ParseRecordID(url)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/records/%s", c.config.BaseURL, recordID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Context("operation", "create_record_request").
			Context("record_id", recordID).
			Component("zenodo").
			Build()
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching record metadata", "record_id", recordID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Context("operation", "fetch_record").
			Context("record_id", recordID).
			Component("zenodo").
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Newf("record %s not found", recordID).
			Category(errors.CategoryNotFound).
			Context("record_id", recordID).
			Component("zenodo").
			Build()
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Newf("record fetch failed with status %d", resp.StatusCode).
			Category(errors.CategoryNetwork).
			Context("record_id", recordID).
			Context("status_code", resp.StatusCode).
			Component("zenodo").
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Context("operation", "read_record_response").
			Context("record_id", recordID).
			Component("zenodo").
			Build()
	}

	var record recordResponse
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_record_response").
			Context("record_id", recordID).
			Component("zenodo").
			Build()
	}

	meta := &soundset.RecordMetadata{
		Title:           record.Metadata.Title,
		License:         record.Metadata.License.ID,
		PublicationDate: record.Metadata.PublicationDate,
		Description:     record.Metadata.Description,
		Version:         record.Metadata.Version,
	}
	for _, creator := range record.Metadata.Creators {
		if creator.Name != "" {
			meta.Creators = append(meta.Creators, creator.Name)
		}
	}

	c.logger.Debug("record metadata fetched",
		"record_id", recordID,
		"title", meta.Title,
		"license", meta.License)

	return meta, nil
}
