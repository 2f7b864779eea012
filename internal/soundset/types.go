// Package soundset defines the canonical annotation format for bioacoustic
// datasets and the builder that constructs datasets in that format. A dataset
// holds descriptive info, a batch-assigned category list, recordings (sounds)
// and time/frequency bounded annotations, and serializes to a single
// self-contained JSON artifact.
package soundset

import (
	"context"
	"encoding/json"
)

// Info holds descriptive metadata for one dataset. PublicationDate uses the
// compact YYYYMMDD layout; the dashed YYYY-MM-DD layout of the earliest schema
// generation is accepted on read. Year is a legacy alias kept for reading old
// files and is never written by the current schema generation.
type Info struct {
	License         string   `json:"license,omitempty"`
	Title           string   `json:"title,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Year            int      `json:"year,omitempty"`
	Description     string   `json:"description,omitempty"`
	Contributor     string   `json:"contributor,omitempty"`
	Creators        []string `json:"creators,omitempty"`
	Version         string   `json:"version,omitempty"`
	URL             string   `json:"url,omitempty"`
}

// RecordMetadata is the result of a repository metadata lookup used to enrich
// Info. It is defined here so the builder can accept any fetcher
// implementation without depending on a concrete client.
type RecordMetadata struct {
	Title           string
	License         string
	PublicationDate string
	Description     string
	Creators        []string
	Version         string
}

// MetadataFetcher resolves a repository landing-page URL to record metadata.
// A fetch failure is fatal for the SetInfo call that requested enrichment.
type MetadataFetcher interface {
	FetchRecord(ctx context.Context, url string) (*RecordMetadata, error)
}

// Category is one taxonomic/class label. Ids are assigned in one batch per
// dataset: names sorted lexicographically, ids 0..N-1 in that order. Extra
// carries source columns that are not part of the canonical schema; they are
// passed through serialization untouched.
type Category struct {
	ID            int
	Name          string
	Supercategory string
	Extra         map[string]any
}

// MarshalJSON flattens Extra columns next to the canonical category fields.
func (c Category) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		m[k] = v
	}
	m["id"] = c.ID
	m["name"] = c.Name
	if c.Supercategory != "" {
		m["supercategory"] = c.Supercategory
	}
	return json.Marshal(m)
}

// UnmarshalJSON restores canonical fields and collects unknown columns into Extra.
func (c *Category) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if v, ok := m["id"].(float64); ok {
		c.ID = int(v)
	}
	if v, ok := m["name"].(string); ok {
		c.Name = v
	}
	if v, ok := m["supercategory"].(string); ok {
		c.Supercategory = v
	}
	delete(m, "id")
	delete(m, "name")
	delete(m, "supercategory")
	if len(m) > 0 {
		c.Extra = m
	}
	return nil
}

// CategoryRecord is a raw name-bearing record handed to the builder's batch
// category call, before id assignment.
type CategoryRecord struct {
	Name          string
	Supercategory string
	Extra         map[string]any
}

// Sound is one recording. Latitude, Longitude and DateRecorded are optional;
// nil means not provided and skips the corresponding validation. FileNamePath
// is a legacy alias for FileName accepted on read only.
type Sound struct {
	ID           int      `json:"id"`
	FileName     string   `json:"file_name"`
	FileNamePath string   `json:"file_name_path,omitempty"`
	Duration     float64  `json:"duration"`
	SampleRate   int      `json:"sample_rate"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	DateRecorded *string  `json:"date_recorded"`
}

// Annotation is a labeled time/frequency region within one sound. The category
// id and name are both stored and must stay mutually consistent. FMin and FMax
// are validated as a pair: both present or both absent. IsMultiLabel is a
// legacy alias for IsChorus accepted on read only.
type Annotation struct {
	ID            int      `json:"anno_id"`
	SoundID       int      `json:"sound_id"`
	CategoryID    int      `json:"category_id"`
	Category      string   `json:"category"`
	Supercategory *string  `json:"supercategory"`
	TMin          float64  `json:"t_min"`
	TMax          float64  `json:"t_max"`
	FMin          *float64 `json:"f_min"`
	FMax          *float64 `json:"f_max"`
	IsChorus      *bool    `json:"ischorus"`
	IsMultiLabel  *bool    `json:"ismultilabel,omitempty"`
}

// Dataset is the aggregate produced by one Builder: info, categories, sounds
// and annotations in insertion order.
type Dataset struct {
	Info        Info         `json:"info"`
	Categories  []Category   `json:"categories"`
	Sounds      []Sound      `json:"sounds"`
	Annotations []Annotation `json:"annotations"`
}

// CombinedInfo widens the per-dataset info fields to lists, one slot per
// source dataset in merge order. Title stays a single comma-joined string.
type CombinedInfo struct {
	Title            string     `json:"title"`
	Licenses         []string   `json:"license"`
	PublicationDates []string   `json:"publication_date"`
	Descriptions     []string   `json:"description"`
	Creators         [][]string `json:"creators"`
	Versions         []string   `json:"version"`
	URLs             []string   `json:"url"`
}

// Combined is the dataset produced by merging N canonical datasets with every
// id space renumbered to be globally contiguous and non-colliding.
type Combined struct {
	Info        CombinedInfo `json:"info"`
	Categories  []Category   `json:"categories"`
	Sounds      []Sound      `json:"sounds"`
	Annotations []Annotation `json:"annotations"`
}

// Ptr returns a pointer to v. Convenience for populating optional fields.
func Ptr[T any](v T) *T {
	return &v
}
