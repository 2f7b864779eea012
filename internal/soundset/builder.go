package soundset

import (
	"context"
	"log/slog"
	"sort"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/logging"
)

// Builder constructs one Dataset incrementally. Entities are validated on add
// and a failed add leaves the dataset untouched. The builder owns the dataset
// until serialization; it keeps an id index for sounds so annotations
// dereference by id regardless of insertion position.
type Builder struct {
	ds         Dataset
	soundIndex map[int]int // sound id -> slice index
	annoIDs    map[int]struct{}
	catIndex   map[string]int // category name -> id
	fetcher    MetadataFetcher
	infoSet    bool
	logger     *slog.Logger
}

// NewBuilder returns an empty Builder. fetcher enables automatic metadata
// enrichment in SetInfo and may be nil to disable it.
func NewBuilder(fetcher MetadataFetcher) *Builder {
	return &Builder{
		soundIndex: make(map[int]int),
		annoIDs:    make(map[int]struct{}),
		catIndex:   make(map[string]int),
		fetcher:    fetcher,
		logger:     logging.ForService("soundset"),
	}
}

// Dataset returns the dataset under construction.
func (b *Builder) Dataset() *Dataset {
	return &b.ds
}

// SetInfo stores the dataset-level metadata. It may be called once per
// dataset. A license is required, either caller-supplied or fetched; date
// fields are validated. When the builder has a metadata fetcher and the info
// carries a repository URL, the record metadata is fetched and merged in,
// with fetched values taking precedence; a fetch failure aborts the call and
// leaves the info unset.
func (b *Builder) SetInfo(ctx context.Context, info Info) error {
	if b.infoSet {
		return errors.Newf("dataset info has already been set").
			Category(errors.CategoryConflict).
			Component("soundset").
			Build()
	}

	if b.fetcher != nil && info.URL != "" {
		rec, err := b.fetcher.FetchRecord(ctx, info.URL)
		if err != nil {
			return errors.Newf("fetching record metadata for %s: %w", info.URL, err).
				Category(errors.CategoryNetwork).
				Context("url", info.URL).
				Component("soundset").
				Build()
		}
		mergeRecordMetadata(&info, rec)
		b.logger.Info("dataset info enriched from repository record",
			"url", info.URL,
			"title", info.Title,
			"license", info.License)
	}

	if info.License == "" {
		return errors.Newf("dataset info requires a license").
			Category(errors.CategoryValidation).
			Component("soundset").
			Build()
	}
	if info.PublicationDate != "" {
		if err := ValidateDate(info.PublicationDate); err != nil {
			return err
		}
	}

	b.ds.Info = info
	b.infoSet = true
	return nil
}

// mergeRecordMetadata overlays fetched repository metadata onto caller
// supplied info. Fetched values win when present.
func mergeRecordMetadata(info *Info, rec *RecordMetadata) {
	if rec == nil {
		return
	}
	if rec.Title != "" {
		info.Title = rec.Title
	}
	if rec.License != "" {
		info.License = rec.License
	}
	if rec.PublicationDate != "" {
		info.PublicationDate = rec.PublicationDate
	}
	if rec.Description != "" {
		info.Description = rec.Description
	}
	if len(rec.Creators) > 0 {
		info.Creators = rec.Creators
	}
	if rec.Version != "" {
		info.Version = rec.Version
	}
}

// AddCategories assigns ids to a batch of category records and replaces the
// dataset's category list. Names are deduplicated, sorted lexicographically
// and given contiguous zero-based ids in that order, so id assignment is
// deterministic for a given label universe. Each call replaces the previous
// list: categories derive from the full label universe of a dataset, they are
// not accumulated.
func (b *Builder) AddCategories(records []CategoryRecord) error {
	byName := make(map[string]CategoryRecord, len(records))
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Name == "" {
			return errors.Newf("category record with empty name").
				Category(errors.CategoryValidation).
				Component("soundset").
				Build()
		}
		if _, seen := byName[rec.Name]; !seen {
			byName[rec.Name] = rec
			names = append(names, rec.Name)
		}
	}
	sort.Strings(names)

	categories := make([]Category, 0, len(names))
	catIndex := make(map[string]int, len(names))
	for i, name := range names {
		rec := byName[name]
		categories = append(categories, Category{
			ID:            i,
			Name:          name,
			Supercategory: rec.Supercategory,
			Extra:         rec.Extra,
		})
		catIndex[name] = i
	}

	b.ds.Categories = categories
	b.catIndex = catIndex
	return nil
}

// CategoryID returns the id assigned to a category name by AddCategories.
func (b *Builder) CategoryID(name string) (int, bool) {
	id, ok := b.catIndex[name]
	return id, ok
}

// AddSound validates and appends one sound. The id is caller-supplied and must
// be unique within the dataset.
func (b *Builder) AddSound(s Sound) error {
	if _, exists := b.soundIndex[s.ID]; exists {
		return errors.Newf("sound id %d already exists", s.ID).
			Category(errors.CategoryConflict).
			Context("sound_id", s.ID).
			Component("soundset").
			Build()
	}
	if err := ValidateSound(s.Duration, s.SampleRate, s.Latitude, s.Longitude); err != nil {
		return err
	}
	if s.DateRecorded != nil && *s.DateRecorded != "" {
		if err := ValidateDate(*s.DateRecorded); err != nil {
			return err
		}
	}

	b.soundIndex[s.ID] = len(b.ds.Sounds)
	b.ds.Sounds = append(b.ds.Sounds, s)
	return nil
}

// Sound returns the sound with the given id.
func (b *Builder) Sound(id int) (*Sound, bool) {
	idx, ok := b.soundIndex[id]
	if !ok {
		return nil, false
	}
	return &b.ds.Sounds[idx], true
}

// AddAnnotation dereferences the annotation's sound and category, validates
// its bounds against the referenced sound and appends it. A sound or category
// reference that does not resolve is a referential error: it signals an
// adapter or build-order bug, not bad field values.
func (b *Builder) AddAnnotation(a Annotation) error {
	if _, exists := b.annoIDs[a.ID]; exists {
		return errors.Newf("annotation id %d already exists", a.ID).
			Category(errors.CategoryConflict).
			Context("anno_id", a.ID).
			Component("soundset").
			Build()
	}

	idx, ok := b.soundIndex[a.SoundID]
	if !ok {
		return errors.Newf("annotation %d references unknown sound id %d", a.ID, a.SoundID).
			Category(errors.CategoryReferential).
			Context("anno_id", a.ID).
			Context("sound_id", a.SoundID).
			Component("soundset").
			Build()
	}
	sound := &b.ds.Sounds[idx]

	if len(b.ds.Categories) > 0 {
		if a.CategoryID < 0 || a.CategoryID >= len(b.ds.Categories) {
			return errors.Newf("annotation %d references unknown category id %d", a.ID, a.CategoryID).
				Category(errors.CategoryReferential).
				Context("anno_id", a.ID).
				Context("category_id", a.CategoryID).
				Component("soundset").
				Build()
		}
		if name := b.ds.Categories[a.CategoryID].Name; name != a.Category {
			return errors.Newf("annotation %d category %q does not match category id %d (%q)",
				a.ID, a.Category, a.CategoryID, name).
				Category(errors.CategoryReferential).
				Context("anno_id", a.ID).
				Context("category_id", a.CategoryID).
				Context("category", a.Category).
				Component("soundset").
				Build()
		}
	}

	if err := ValidateAnnotation(a.TMin, a.TMax, a.FMin, a.FMax, sound.Duration, sound.SampleRate); err != nil {
		return err
	}

	b.annoIDs[a.ID] = struct{}{}
	b.ds.Annotations = append(b.ds.Annotations, a)
	return nil
}
