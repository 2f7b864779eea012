// Package adapter normalizes source-specific annotation formats into the
// canonical dataset schema. Each adapter walks one downloaded dataset layout
// and yields raw category, sound and annotation records; Ingest feeds those
// records through a dataset builder, probing audio headers and resolving the
// record references the sources leave implicit (annotations reference sounds
// by file-name fragment and categories by label).
package adapter

import (
	"context"
	"strings"

	"github.com/soundset/soundset-go/internal/audioinfo"
	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/logging"
	"github.com/soundset/soundset-go/internal/soundset"
)

// SoundRecord is one audio file found by an adapter. Duration and sample rate
// are probed from the file header during ingest.
type SoundRecord struct {
	// RelPath is the file path relative to the dataset root, used as the
	// canonical file name.
	RelPath string
	// AbsPath locates the file on disk for header probing.
	AbsPath      string
	Latitude     *float64
	Longitude    *float64
	DateRecorded *string
}

// AnnotationRecord is one raw annotation event. FileNameHint identifies the
// annotated sound by substring match against registered sound file names, the
// convention the source formats share.
type AnnotationRecord struct {
	FileNameHint string
	Category     string
	TMin         float64
	TMax         float64
	FMin         *float64
	FMax         *float64
}

// Source walks one downloaded dataset layout and yields its raw records.
type Source interface {
	// Name is the dataset identifier, used for logging and output paths.
	Name() string
	// URL is the repository landing page used for metadata enrichment.
	URL() string
	Categories() ([]soundset.CategoryRecord, error)
	Sounds() ([]SoundRecord, error)
	Annotations() ([]AnnotationRecord, error)
}

// IngestStats counts what an ingest run kept and skipped.
type IngestStats struct {
	Sounds              int
	Categories          int
	Annotations         int
	SkippedUnknownSound int
	SkippedUnknownLabel int
}

// Ingest normalizes one source dataset. Records that reference an unknown
// sound or label are skipped with a warning, matching the tolerant behavior
// expected from hand-curated source data; validation failures on records
// that do resolve are fatal.
func Ingest(ctx context.Context, src Source, fetcher soundset.MetadataFetcher) (*soundset.Builder, IngestStats, error) {
	logger := logging.ForService("adapter").With("dataset", src.Name())
	builder := soundset.NewBuilder(fetcher)
	stats := IngestStats{}

	if err := builder.SetInfo(ctx, soundset.Info{URL: src.URL()}); err != nil {
		return nil, stats, err
	}

	categories, err := src.Categories()
	if err != nil {
		return nil, stats, err
	}
	if err := builder.AddCategories(categories); err != nil {
		return nil, stats, err
	}
	stats.Categories = len(builder.Dataset().Categories)

	sounds, err := src.Sounds()
	if err != nil {
		return nil, stats, err
	}
	for i, rec := range sounds {
		info, err := audioinfo.ReadInfo(rec.AbsPath)
		if err != nil {
			return nil, stats, err
		}
		err = builder.AddSound(soundset.Sound{
			ID:           i,
			FileName:     rec.RelPath,
			Duration:     info.Duration(),
			SampleRate:   info.SampleRate,
			Latitude:     rec.Latitude,
			Longitude:    rec.Longitude,
			DateRecorded: rec.DateRecorded,
		})
		if err != nil {
			return nil, stats, err
		}
	}
	stats.Sounds = len(sounds)

	annotations, err := src.Annotations()
	if err != nil {
		return nil, stats, err
	}
	registered := builder.Dataset().Sounds
	for _, rec := range annotations {
		soundID, found := findSoundByFragment(registered, rec.FileNameHint)
		if !found {
			stats.SkippedUnknownSound++
			logger.Warn("annotation references unknown sound, skipping",
				"file_name_hint", rec.FileNameHint,
				"category", rec.Category)
			continue
		}
		categoryID, found := builder.CategoryID(rec.Category)
		if !found {
			stats.SkippedUnknownLabel++
			logger.Warn("annotation references unknown label, skipping",
				"file_name_hint", rec.FileNameHint,
				"category", rec.Category)
			continue
		}

		err := builder.AddAnnotation(soundset.Annotation{
			ID:         stats.Annotations,
			SoundID:    soundID,
			CategoryID: categoryID,
			Category:   rec.Category,
			TMin:       rec.TMin,
			TMax:       rec.TMax,
			FMin:       rec.FMin,
			FMax:       rec.FMax,
		})
		if err != nil {
			return nil, stats, err
		}
		stats.Annotations++
	}

	logger.Info("dataset ingested",
		"sounds", stats.Sounds,
		"categories", stats.Categories,
		"annotations", stats.Annotations,
		"skipped_unknown_sound", stats.SkippedUnknownSound,
		"skipped_unknown_label", stats.SkippedUnknownLabel)

	return builder, stats, nil
}

// findSoundByFragment returns the first registered sound whose file name
// contains the fragment.
func findSoundByFragment(sounds []soundset.Sound, fragment string) (int, bool) {
	if fragment == "" {
		return 0, false
	}
	for _, s := range sounds {
		if strings.Contains(s.FileName, fragment) {
			return s.ID, true
		}
	}
	return 0, false
}

// requireDir wraps a missing-directory error consistently across adapters.
func requireDir(err error, path, component string) error {
	return errors.New(err).
		Category(errors.CategoryFileIO).
		Context("path", path).
		Component(component).
		Build()
}
