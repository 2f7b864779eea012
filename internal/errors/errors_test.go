package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	err := Newf("sound %d not found", 42).
		Category(CategoryNotFound).
		Component("soundset").
		Context("sound_id", 42).
		Build()

	assert.Equal(t, "sound 42 not found", err.Error())
	assert.Equal(t, CategoryNotFound, err.Category)
	assert.Equal(t, "soundset", err.Component)
	assert.Equal(t, 42, err.Context["sound_id"])
	assert.False(t, err.Timestamp.IsZero())
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("plain failure").Build()
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.Equal(t, ComponentUnknown, err.Component)
}

func TestUnwrapPreservesWrappedError(t *testing.T) {
	t.Parallel()

	base := NewStd("boom")
	err := Newf("outer: %w", base).Category(CategoryFileIO).Build()

	require.ErrorIs(t, err, base)
	assert.Equal(t, "outer: boom", err.Error())
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	err := Newf("t_max out of range").Category(CategoryValidation).Build()
	// wrapped once more, as callers usually do
	wrapped := fmt.Errorf("adding annotation: %w", err)

	assert.True(t, IsCategory(wrapped, CategoryValidation))
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, IsCategory(NewStd("plain"), CategoryValidation))
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	err := Newf("x").Context("k", "v").Build()
	ctx := err.GetContext()
	ctx["k"] = "mutated"
	assert.Equal(t, "v", err.Context["k"])
}
