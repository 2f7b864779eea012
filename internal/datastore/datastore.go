// Package datastore exports canonical datasets to a relational store for ad
// hoc querying. The schema mirrors the canonical file format, with the
// annotation rows denormalized the same way.
package datastore

import (
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/logging"
	"github.com/soundset/soundset-go/internal/soundset"
)

// Category is one exported category row.
type Category struct {
	ID            int    `gorm:"primaryKey;autoIncrement:false"`
	Name          string `gorm:"index"`
	Supercategory string
}

// Sound is one exported recording row.
type Sound struct {
	ID           int    `gorm:"primaryKey;autoIncrement:false"`
	FileName     string `gorm:"index"`
	Duration     float64
	SampleRate   int
	Latitude     *float64
	Longitude    *float64
	DateRecorded *string
}

// Annotation is one exported annotation row.
type Annotation struct {
	ID         int `gorm:"primaryKey;autoIncrement:false"`
	SoundID    int `gorm:"index"`
	CategoryID int `gorm:"index"`
	Category   string
	TMin       float64
	TMax       float64
	FMin       *float64
	FMax       *float64
	IsChorus   *bool
}

// Store wraps the relational connection.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("path", path).
			Component("datastore").
			Build()
	}

	if err := db.AutoMigrate(&Category{}, &Sound{}, &Annotation{}); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("path", path).
			Component("datastore").
			Build()
	}

	return &Store{db: db, logger: logging.ForService("datastore")}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveCombined writes a merged corpus in one transaction. Existing rows with
// the same ids are replaced, so re-exporting is safe.
func (s *Store) SaveCombined(combined *soundset.Combined) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, cat := range combined.Categories {
			row := Category{ID: cat.ID, Name: cat.Name, Supercategory: cat.Supercategory}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		for _, sound := range combined.Sounds {
			row := Sound{
				ID:           sound.ID,
				FileName:     sound.FileName,
				Duration:     sound.Duration,
				SampleRate:   sound.SampleRate,
				Latitude:     sound.Latitude,
				Longitude:    sound.Longitude,
				DateRecorded: sound.DateRecorded,
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		for _, anno := range combined.Annotations {
			row := Annotation{
				ID:         anno.ID,
				SoundID:    anno.SoundID,
				CategoryID: anno.CategoryID,
				Category:   anno.Category,
				TMin:       anno.TMin,
				TMax:       anno.TMax,
				FMin:       anno.FMin,
				FMax:       anno.FMax,
				IsChorus:   anno.IsChorus,
			}
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "save_combined").
			Component("datastore").
			Build()
	}

	s.logger.Info("combined dataset exported",
		"categories", len(combined.Categories),
		"sounds", len(combined.Sounds),
		"annotations", len(combined.Annotations))

	return nil
}

// CountAnnotations returns the number of annotation rows for one category id.
func (s *Store) CountAnnotations(categoryID int) (int64, error) {
	var count int64
	if err := s.db.Model(&Annotation{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "count_annotations").
			Component("datastore").
			Build()
	}
	return count, nil
}
