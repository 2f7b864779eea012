package merge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/soundset"
)

// fakeResolver maps raw names through a fixed table, passing unknown names
// through unchanged.
type fakeResolver struct {
	table map[string]string
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, name string) (string, error) {
	f.calls++
	if canonical, ok := f.table[name]; ok {
		return canonical, nil
	}
	return name, nil
}

func testSound(id int, fileName string) soundset.Sound {
	return soundset.Sound{
		ID:         id,
		FileName:   fileName,
		Duration:   60,
		SampleRate: 44100,
	}
}

func testDatasetA() *soundset.Dataset {
	return &soundset.Dataset{
		Info: soundset.Info{Title: "Forest A", License: "cc-by-4.0", Version: "1.0"},
		Categories: []soundset.Category{
			{ID: 0, Name: "Turdus migratorius", Supercategory: "bird"},
			{ID: 1, Name: "Zenaida macroura", Supercategory: "bird"},
		},
		Sounds: []soundset.Sound{
			testSound(0, "a0.wav"),
			testSound(1, "a1.wav"),
			testSound(2, "a2.wav"),
		},
		Annotations: []soundset.Annotation{
			{ID: 0, SoundID: 0, CategoryID: 0, Category: "Turdus migratorius", TMin: 1, TMax: 2},
			{ID: 1, SoundID: 2, CategoryID: 1, Category: "Zenaida macroura", TMin: 3, TMax: 4},
		},
	}
}

func testDatasetB() *soundset.Dataset {
	return &soundset.Dataset{
		Info: soundset.Info{Title: "Garden B", License: "cc0-1.0", Version: "2.1"},
		Categories: []soundset.Category{
			{ID: 0, Name: "American Robin", Supercategory: "bird"},
		},
		Sounds: []soundset.Sound{
			testSound(0, "b0.wav"),
			testSound(1, "b1.wav"),
		},
		Annotations: []soundset.Annotation{
			{ID: 0, SoundID: 1, CategoryID: 0, Category: "American Robin", TMin: 0, TMax: 1},
		},
	}
}

func TestMergeRewritesIDs(t *testing.T) {
	m := NewMerger(nil)
	require.NoError(t, m.Add(context.Background(), testDatasetA(), "a.json"))
	require.NoError(t, m.Add(context.Background(), testDatasetB(), "b.json"))

	combined := m.Combined()

	require.Len(t, combined.Sounds, 5)
	for i, sound := range combined.Sounds {
		assert.Equal(t, i, sound.ID)
	}
	assert.Equal(t, "b0.wav", combined.Sounds[3].FileName)

	require.Len(t, combined.Annotations, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{
		combined.Annotations[0].ID,
		combined.Annotations[1].ID,
		combined.Annotations[2].ID,
	})
	// Last annotation came from dataset B sound 1, remapped to global id 4.
	assert.Equal(t, 4, combined.Annotations[2].SoundID)
	assert.Equal(t, 2, combined.Annotations[1].SoundID)
}

func TestMergeCollapsesCategoriesByCanonicalName(t *testing.T) {
	resolver := &fakeResolver{table: map[string]string{
		"American Robin": "Turdus migratorius",
	}}

	m := NewMerger(resolver)
	require.NoError(t, m.Add(context.Background(), testDatasetA(), "a.json"))
	require.NoError(t, m.Add(context.Background(), testDatasetB(), "b.json"))

	combined := m.Combined()

	require.Len(t, combined.Categories, 2, "the robin labels must collapse to one category")
	assert.Equal(t, "Turdus migratorius", combined.Categories[0].Name)
	assert.Equal(t, "Zenaida macroura", combined.Categories[1].Name)

	// Dataset B's annotation keeps the shared category, renamed canonically.
	last := combined.Annotations[2]
	assert.Equal(t, 0, last.CategoryID)
	assert.Equal(t, "Turdus migratorius", last.Category)
}

func TestMergeCombinedInfo(t *testing.T) {
	m := NewMerger(nil)
	require.NoError(t, m.Add(context.Background(), testDatasetA(), "a.json"))
	require.NoError(t, m.Add(context.Background(), testDatasetB(), "b.json"))

	info := m.Combined().Info
	assert.Equal(t, "Forest A, Garden B", info.Title)
	assert.Equal(t, []string{"cc-by-4.0", "cc0-1.0"}, info.Licenses)
	assert.Equal(t, []string{"1.0", "2.1"}, info.Versions)
}

func TestMergeUnknownSoundReference(t *testing.T) {
	ds := testDatasetA()
	ds.Annotations[1].SoundID = 99

	m := NewMerger(nil)
	err := m.Add(context.Background(), ds, "broken.json")
	require.Error(t, err)
	assert.True(t, errors.IsReferential(err))
}

func TestMergeUnknownCategoryReference(t *testing.T) {
	ds := testDatasetA()
	ds.Annotations[0].Category = "Corvus corax"

	m := NewMerger(nil)
	err := m.Add(context.Background(), ds, "broken.json")
	require.Error(t, err)
	assert.True(t, errors.IsReferential(err))
}

func TestCombineSingleInputIsIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annotations.json")

	src := testDatasetA()
	require.NoError(t, (&soundset.Combined{
		Info:        soundset.CombinedInfo{Title: src.Info.Title},
		Categories:  src.Categories,
		Sounds:      src.Sounds,
		Annotations: src.Annotations,
	}).WriteFile(path))

	combined, err := Combine(context.Background(), []string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, src.Categories, combined.Categories)
	assert.Equal(t, src.Sounds, combined.Sounds)
	assert.Equal(t, src.Annotations, combined.Annotations)
}

func TestCombineMissingFile(t *testing.T) {
	_, err := Combine(context.Background(), []string{"/nonexistent/annotations.json"}, nil)
	require.Error(t, err)
}
