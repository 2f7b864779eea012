package soundset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundset/soundset-go/internal/errors"
)

func TestValidateDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"compact layout", "20230915", false},
		{"dashed layout", "2023-09-15", false},
		{"future date", time.Now().AddDate(1, 0, 0).Format(DateLayoutCompact), true},
		{"garbage", "15/09/2023", true},
		{"empty", "", true},
		{"month out of range", "20231315", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateDate(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		duration   float64
		sampleRate int
		lat, lon   *float64
		wantErr    bool
	}{
		{"valid with location", 120.5, 48000, Ptr(10.11), Ptr(-84.52), false},
		{"valid without location", 60, 44100, nil, nil, false},
		{"zero coordinates are a real place", 30, 22050, Ptr(0.0), Ptr(0.0), false},
		{"zero duration", 0, 48000, nil, nil, true},
		{"negative duration", -1, 48000, nil, nil, true},
		{"zero sample rate", 10, 0, nil, nil, true},
		{"latitude too large", 10, 48000, Ptr(90.5), nil, true},
		{"latitude too small", 10, 48000, Ptr(-91.0), nil, true},
		{"longitude too large", 10, 48000, nil, Ptr(180.5), true},
		{"longitude too small", 10, 48000, nil, Ptr(-181.0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSound(tt.duration, tt.sampleRate, tt.lat, tt.lon)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAnnotationTimeBounds(t *testing.T) {
	t.Parallel()

	const duration = 120.5
	const sampleRate = 48000

	tests := []struct {
		name       string
		tMin, tMax float64
		wantErr    bool
	}{
		{"valid region", 0.0, 10.0, false},
		{"t_max equals duration", 0.0, duration, false},
		{"t_max just past duration", 0.0, duration + 0.04, true},
		{"t_max exceeds duration", 0.0, duration + 0.2, true},
		{"negative t_min", -0.5, 10.0, true},
		{"negative t_max", 0.0, -1.0, true},
		{"t_max before t_min", 10.0, 5.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAnnotation(tt.tMin, tt.tMax, nil, nil, duration, sampleRate)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAnnotationDurationRounding(t *testing.T) {
	t.Parallel()

	// Stored durations derive from sample counts and may undershoot the
	// nominal recording length; only the duration side is rounded, so t_max
	// may reach the rounded duration but not exceed it.
	const duration = 119.96
	const sampleRate = 48000

	assert.NoError(t, ValidateAnnotation(0.0, 120.0, nil, nil, duration, sampleRate))

	err := ValidateAnnotation(0.0, 120.04, nil, nil, duration, sampleRate)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestValidateAnnotationFrequencyBounds(t *testing.T) {
	t.Parallel()

	const duration = 60.0
	const sampleRate = 48000

	tests := []struct {
		name       string
		fMin, fMax *float64
		wantErr    bool
	}{
		{"valid pair", Ptr(300.0), Ptr(8000.0), false},
		{"f_max at the Nyquist limit", Ptr(0.0), Ptr(24000.0), false},
		{"f_max above the Nyquist limit", Ptr(300.0), Ptr(24000.5), true},
		{"f_max below f_min", Ptr(8000.0), Ptr(300.0), true},
		{"negative f_min", Ptr(-1.0), Ptr(300.0), true},
		// A sequence annotation has no frequency bounds at all and must not
		// trip any frequency check.
		{"both absent skips validation", nil, nil, false},
		// Skip is all-or-nothing: a lone bound is ignored, not half-checked.
		{"only f_min present", Ptr(300.0), nil, false},
		{"only f_max present", nil, Ptr(8000.0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAnnotation(0, 10, tt.fMin, tt.fMax, duration, sampleRate)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
