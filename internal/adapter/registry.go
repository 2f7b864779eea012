package adapter

import (
	"sort"

	"github.com/soundset/soundset-go/internal/errors"
)

// registryEntry ties a dataset name to its repository record and adapter
// constructor.
type registryEntry struct {
	url  string
	open func(dataPath string) Source
}

// registry lists the datasets with built-in adapters. The data path handed to
// the constructor is the extracted archive root.
var registry = map[string]registryEntry{
	"Colombia_Costa_Rica_Birds": {
		url: "https://zenodo.org/records/7525349",
		open: func(dataPath string) Source {
			return NewCSVTableSource(
				"Colombia_Costa_Rica_Birds",
				dataPath,
				"https://zenodo.org/records/7525349",
				"soundscape_data",
				"annotations.csv",
				"species.csv",
				[]SiteLocation{
					{Fragment: "S01", Latitude: 5.59, Longitude: -75.85},
					{Fragment: "S02", Latitude: 10.11, Longitude: -84.52},
				},
			)
		},
	},
	"Domestic_Canari": {
		url: "https://zenodo.org/records/6521932",
		open: func(dataPath string) Source {
			return NewAudacitySource(
				"Domestic_Canari",
				dataPath,
				"https://zenodo.org/records/6521932",
				"M1-2016-sping_audio/audio",
				"M1-2016-spring_audacity_annotations/audacity-annotations",
			)
		},
	},
	"WABAD": {
		url: "https://zenodo.org/records/14191524",
		open: func(dataPath string) Source {
			return NewRavenSource(
				"WABAD",
				dataPath,
				"https://zenodo.org/records/14191524",
				"Recordings",
				"Raven_Pro_annotations",
			)
		},
	},
}

// Open returns the adapter for a registered dataset name.
func Open(name, dataPath string) (Source, error) {
	entry, ok := registry[name]
	if !ok {
		return nil, errors.Newf("unknown dataset %q, known datasets: %v", name, Names()).
			Category(errors.CategoryNotFound).
			Context("dataset", name).
			Component("adapter").
			Build()
	}
	return entry.open(dataPath), nil
}

// RecordURL returns the repository landing page of a registered dataset.
func RecordURL(name string) (string, error) {
	entry, ok := registry[name]
	if !ok {
		return "", errors.Newf("unknown dataset %q, known datasets: %v", name, Names()).
			Category(errors.CategoryNotFound).
			Context("dataset", name).
			Component("adapter").
			Build()
	}
	return entry.url, nil
}

// Names lists the registered dataset names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
