package soundset

import (
	"math"
	"time"

	"github.com/soundset/soundset-go/internal/errors"
)

// Date layouts accepted by the canonical schema. The compact layout is the
// current generation; the dashed layout belongs to the earliest generation and
// is still accepted on read.
const (
	DateLayoutCompact = "20060102"
	DateLayoutDashed  = "2006-01-02"
)

// ValidateDate checks that value parses under one of the supported calendar
// layouts and is not in the future.
func ValidateDate(value string) error {
	date, err := time.Parse(DateLayoutCompact, value)
	if err != nil {
		date, err = time.Parse(DateLayoutDashed, value)
	}
	if err != nil {
		return errors.Newf("date %q is not in a supported format, expected %s or %s",
			value, DateLayoutCompact, DateLayoutDashed).
			Category(errors.CategoryValidation).
			Context("date", value).
			Component("soundset").
			Build()
	}
	if date.After(time.Now()) {
		return errors.Newf("date %q is in the future", value).
			Category(errors.CategoryValidation).
			Context("date", value).
			Component("soundset").
			Build()
	}
	return nil
}

// ValidateSound checks the range constraints of a sound entry. Latitude and
// longitude are validated only when provided; nil means not recorded. A
// coordinate value of zero is a legitimate location (the equator and the prime
// meridian exist) and is validated like any other value.
func ValidateSound(duration float64, sampleRate int, latitude, longitude *float64) error {
	if duration <= 0 {
		return errors.Newf("duration must be a positive value, got %g", duration).
			Category(errors.CategoryValidation).
			Context("duration", duration).
			Component("soundset").
			Build()
	}
	if sampleRate <= 0 {
		return errors.Newf("sample rate must be a positive value, got %d", sampleRate).
			Category(errors.CategoryValidation).
			Context("sample_rate", sampleRate).
			Component("soundset").
			Build()
	}
	if latitude != nil && (*latitude < -90 || *latitude > 90) {
		return errors.Newf("latitude must be between -90 and 90 degrees, got %g", *latitude).
			Category(errors.CategoryValidation).
			Context("latitude", *latitude).
			Component("soundset").
			Build()
	}
	if longitude != nil && (*longitude < -180 || *longitude > 180) {
		return errors.Newf("longitude must be between -180 and 180 degrees, got %g", *longitude).
			Category(errors.CategoryValidation).
			Context("longitude", *longitude).
			Component("soundset").
			Build()
	}
	return nil
}

// ValidateAnnotation checks the time and frequency bounds of an annotation
// against the referenced sound. The duration is rounded to one decimal place
// before the bound check because stored durations are derived from sample
// counts; t_max itself is compared unrounded.
// Frequency checks run only when both fMin and fMax are provided; a partial
// pair never triggers a partial check.
func ValidateAnnotation(tMin, tMax float64, fMin, fMax *float64, soundDuration float64, sampleRate int) error {
	if tMin < 0 {
		return errors.Newf("t_min must be a positive value, got %g", tMin).
			Category(errors.CategoryValidation).
			Context("t_min", tMin).
			Component("soundset").
			Build()
	}
	if tMax < 0 {
		return errors.Newf("t_max must be a positive value, got %g", tMax).
			Category(errors.CategoryValidation).
			Context("t_max", tMax).
			Component("soundset").
			Build()
	}
	if tMax < tMin {
		return errors.Newf("t_max %g must not be less than t_min %g", tMax, tMin).
			Category(errors.CategoryValidation).
			Context("t_min", tMin).
			Context("t_max", tMax).
			Component("soundset").
			Build()
	}
	if tMax > round1(soundDuration) {
		return errors.Newf("t_max %g exceeds the sound duration %g", tMax, soundDuration).
			Category(errors.CategoryValidation).
			Context("t_max", tMax).
			Context("duration", soundDuration).
			Component("soundset").
			Build()
	}

	// Frequency bounds are optional as a pair.
	if fMin == nil || fMax == nil {
		return nil
	}
	if *fMin < 0 {
		return errors.Newf("f_min must be a positive value, got %g", *fMin).
			Category(errors.CategoryValidation).
			Context("f_min", *fMin).
			Component("soundset").
			Build()
	}
	if *fMax < 0 {
		return errors.Newf("f_max must be a positive value, got %g", *fMax).
			Category(errors.CategoryValidation).
			Context("f_max", *fMax).
			Component("soundset").
			Build()
	}
	if *fMax < *fMin {
		return errors.Newf("f_max %g must not be less than f_min %g", *fMax, *fMin).
			Category(errors.CategoryValidation).
			Context("f_min", *fMin).
			Context("f_max", *fMax).
			Component("soundset").
			Build()
	}
	nyquist := float64(sampleRate) / 2
	if *fMax > nyquist {
		return errors.Newf("f_max %g exceeds the Nyquist limit %g", *fMax, nyquist).
			Category(errors.CategoryValidation).
			Context("f_max", *fMax).
			Context("sample_rate", sampleRate).
			Component("soundset").
			Build()
	}
	return nil
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
