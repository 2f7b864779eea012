// Package merge combines normalized annotation datasets into one corpus.
// Sounds, categories and annotations from every source dataset are renumbered
// into contiguous global id spaces, and category labels are unified through a
// pluggable name resolver so that differently-labelled source categories that
// share a canonical name collapse to one combined category.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/logging"
	"github.com/soundset/soundset-go/internal/soundset"
)

// NameResolver maps a raw category label to its canonical name. Degraded
// resolution (returning the raw name unchanged) is allowed; an error aborts
// the merge.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// identityResolver is used when no resolver is supplied. Category identity is
// then by raw name.
type identityResolver struct{}

func (identityResolver) Resolve(_ context.Context, name string) (string, error) {
	return name, nil
}

// Merger accumulates source datasets into a combined corpus.
type Merger struct {
	resolver NameResolver
	logger   *slog.Logger

	combined soundset.Combined

	// canonical category name -> global category id, spanning the whole run
	catByCanonical map[string]int
	// source titles in order; the combined title is one joined string, not
	// a list like the other info fields
	titles []string

	nextSoundID int
	annoOffset  int
	numDatasets int
}

// NewMerger creates a merger for one combine run. Passing a nil resolver
// disables canonical-name unification.
func NewMerger(resolver NameResolver) *Merger {
	if resolver == nil {
		resolver = identityResolver{}
	}
	return &Merger{
		resolver:       resolver,
		logger:         logging.ForService("merge").With("run_id", uuid.New().String()),
		catByCanonical: make(map[string]int),
	}
}

// Combine reads every canonical file in order and merges it, returning the
// combined dataset. This is the whole-run convenience entry point.
func Combine(ctx context.Context, paths []string, resolver NameResolver) (*soundset.Combined, error) {
	m := NewMerger(resolver)
	for _, path := range paths {
		ds, err := soundset.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := m.Add(ctx, ds, path); err != nil {
			return nil, err
		}
	}
	return m.Combined(), nil
}

// Combined returns the merged corpus accumulated so far. The title is the
// comma-joined list of source titles.
func (m *Merger) Combined() *soundset.Combined {
	out := m.combined
	out.Info.Title = m.combinedTitle()
	if out.Categories == nil {
		out.Categories = []soundset.Category{}
	}
	if out.Sounds == nil {
		out.Sounds = []soundset.Sound{}
	}
	if out.Annotations == nil {
		out.Annotations = []soundset.Annotation{}
	}
	return &out
}

func (m *Merger) combinedTitle() string {
	titles := make([]string, 0, m.numDatasets)
	for _, title := range m.titles {
		if title != "" {
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return "Combined Dataset"
	}
	return strings.Join(titles, ", ")
}

// Add merges one source dataset into the combined corpus. The source path is
// carried into diagnostics only.
func (m *Merger) Add(ctx context.Context, ds *soundset.Dataset, sourcePath string) error {
	datasetIndex := m.numDatasets

	m.appendInfo(ds.Info)

	catIDByRawName, err := m.mergeCategories(ctx, ds.Categories)
	if err != nil {
		return err
	}

	soundIDByOldID := m.mergeSounds(ds.Sounds)

	for _, anno := range ds.Annotations {
		newSoundID, ok := soundIDByOldID[anno.SoundID]
		if !ok {
			return errors.Newf("annotation %d references unknown sound %d", anno.ID, anno.SoundID).
				Category(errors.CategoryReferential).
				Context("source_path", sourcePath).
				Context("annotation_id", anno.ID).
				Context("sound_id", anno.SoundID).
				Component("merge").
				Build()
		}
		newCatID, ok := catIDByRawName[anno.Category]
		if !ok {
			return errors.Newf("annotation %d references unknown category %q", anno.ID, anno.Category).
				Category(errors.CategoryReferential).
				Context("source_path", sourcePath).
				Context("annotation_id", anno.ID).
				Context("category", anno.Category).
				Component("merge").
				Build()
		}

		anno.ID += m.annoOffset
		anno.SoundID = newSoundID
		anno.CategoryID = newCatID
		anno.Category = m.combined.Categories[newCatID].Name
		m.combined.Annotations = append(m.combined.Annotations, anno)
	}

	m.annoOffset += len(ds.Annotations)
	m.numDatasets++

	m.logger.Info("dataset merged",
		"source_path", sourcePath,
		"dataset_index", datasetIndex,
		"sounds", len(ds.Sounds),
		"categories", len(ds.Categories),
		"annotations", len(ds.Annotations))

	return nil
}

func (m *Merger) appendInfo(info soundset.Info) {
	c := &m.combined.Info
	m.titles = append(m.titles, info.Title)
	c.Licenses = append(c.Licenses, info.License)
	c.PublicationDates = append(c.PublicationDates, publicationDate(info))
	c.Descriptions = append(c.Descriptions, info.Description)
	c.Versions = append(c.Versions, info.Version)
	c.URLs = append(c.URLs, info.URL)
	c.Creators = append(c.Creators, info.Creators)
}

// publicationDate prefers the full date, falling back to the legacy
// year-only field.
func publicationDate(info soundset.Info) string {
	if info.PublicationDate != "" {
		return info.PublicationDate
	}
	if info.Year != 0 {
		return fmt.Sprintf("%d", info.Year)
	}
	return ""
}

// mergeCategories resolves every source category and returns the raw-name to
// global-id map for this dataset. Identity across datasets is by canonical
// name: a canonical name already seen keeps its existing global id.
func (m *Merger) mergeCategories(ctx context.Context, categories []soundset.Category) (map[string]int, error) {
	catIDByRawName := make(map[string]int, len(categories))
	for _, cat := range categories {
		rawName := cat.Name
		canonical, err := m.resolver.Resolve(ctx, rawName)
		if err != nil {
			return nil, err
		}

		globalID, seen := m.catByCanonical[canonical]
		if !seen {
			globalID = len(m.combined.Categories)
			m.catByCanonical[canonical] = globalID
			cat.ID = globalID
			cat.Name = canonical
			m.combined.Categories = append(m.combined.Categories, cat)
		}
		catIDByRawName[rawName] = globalID
	}
	return catIDByRawName, nil
}

// mergeSounds renumbers this dataset's sounds into the global id space and
// returns the old-id to new-id map.
func (m *Merger) mergeSounds(sounds []soundset.Sound) map[int]int {
	soundIDByOldID := make(map[int]int, len(sounds))
	for _, sound := range sounds {
		newID := m.nextSoundID
		m.nextSoundID++
		soundIDByOldID[sound.ID] = newID
		sound.ID = newID
		m.combined.Sounds = append(m.combined.Sounds, sound)
	}
	return soundIDByOldID
}
