package adapter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/soundset"
)

// SiteLocation pins recordings whose file names contain Fragment to fixed
// coordinates. Soundscape deployments encode the recorder site in the file
// name rather than in a metadata file.
type SiteLocation struct {
	Fragment  string
	Latitude  float64
	Longitude float64
}

// CSVTableSource reads datasets distributed as an audio directory plus two
// CSV tables: a species list and an annotation table referencing sounds by
// file name.
type CSVTableSource struct {
	name           string
	dataPath       string
	url            string
	audioDir       string
	annotationFile string
	speciesFile    string
	sites          []SiteLocation
}

// NewCSVTableSource creates an adapter for a CSV-table dataset rooted at
// dataPath. Paths are relative to dataPath.
func NewCSVTableSource(name, dataPath, url, audioDir, annotationFile, speciesFile string, sites []SiteLocation) *CSVTableSource {
	return &CSVTableSource{
		name:           name,
		dataPath:       dataPath,
		url:            url,
		audioDir:       audioDir,
		annotationFile: annotationFile,
		speciesFile:    speciesFile,
		sites:          sites,
	}
}

func (s *CSVTableSource) Name() string { return s.name }
func (s *CSVTableSource) URL() string  { return s.url }

func (s *CSVTableSource) Sounds() ([]SoundRecord, error) {
	dir := filepath.Join(s.dataPath, s.audioDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, requireDir(err, dir, "adapter.csvtable")
	}

	var records []SoundRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".flac") {
			continue
		}
		rec := SoundRecord{
			RelPath:      filepath.Join(s.audioDir, entry.Name()),
			AbsPath:      filepath.Join(dir, entry.Name()),
			DateRecorded: dateToken(entry.Name()),
		}
		for _, site := range s.sites {
			if strings.Contains(entry.Name(), site.Fragment) {
				rec.Latitude = soundset.Ptr(site.Latitude)
				rec.Longitude = soundset.Ptr(site.Longitude)
				break
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// dateToken extracts the first 8-digit underscore-delimited token from a
// recording file name, the YYYYMMDD convention soundscape recorders use.
func dateToken(fileName string) *string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	for _, token := range strings.Split(base, "_") {
		if len(token) != 8 {
			continue
		}
		if _, err := strconv.Atoi(token); err == nil {
			return soundset.Ptr(token)
		}
	}
	return nil
}

func (s *CSVTableSource) Categories() ([]soundset.CategoryRecord, error) {
	path := filepath.Join(s.dataPath, s.speciesFile)
	header, rows, err := readCSV(path, "adapter.csvtable")
	if err != nil {
		return nil, err
	}

	// The species table keys its label column "name"; older exports leave
	// it unnamed, in which case the first column is the label.
	nameIdx, ok := header["name"]
	if !ok {
		nameIdx = 0
	}

	headerByIdx := make([]string, len(header))
	for col, idx := range header {
		if idx < len(headerByIdx) {
			headerByIdx[idx] = col
		}
	}

	records := make([]soundset.CategoryRecord, 0, len(rows))
	for _, row := range rows {
		if nameIdx >= len(row) {
			continue
		}
		rec := soundset.CategoryRecord{Name: row[nameIdx]}
		for idx, value := range row {
			if idx == nameIdx || headerByIdx[idx] == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[headerByIdx[idx]] = value
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *CSVTableSource) Annotations() ([]AnnotationRecord, error) {
	path := filepath.Join(s.dataPath, s.annotationFile)
	header, rows, err := readCSV(path, "adapter.csvtable")
	if err != nil {
		return nil, err
	}

	required := []string{"Filename", "Start Time (s)", "End Time (s)", "Low Freq (Hz)", "High Freq (Hz)", "Species eBird Code"}
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, errors.Newf("annotation table missing column %q", col).
				Category(errors.CategoryFileParsing).
				Context("path", path).
				Context("column", col).
				Component("adapter.csvtable").
				Build()
		}
	}

	records := make([]AnnotationRecord, 0, len(rows))
	for _, row := range rows {
		tMin, err := csvFloat(path, row, header, "Start Time (s)")
		if err != nil {
			return nil, err
		}
		tMax, err := csvFloat(path, row, header, "End Time (s)")
		if err != nil {
			return nil, err
		}
		fMin, err := csvFloat(path, row, header, "Low Freq (Hz)")
		if err != nil {
			return nil, err
		}
		fMax, err := csvFloat(path, row, header, "High Freq (Hz)")
		if err != nil {
			return nil, err
		}

		records = append(records, AnnotationRecord{
			FileNameHint: row[header["Filename"]],
			Category:     row[header["Species eBird Code"]],
			TMin:         tMin,
			TMax:         tMax,
			FMin:         soundset.Ptr(fMin),
			FMax:         soundset.Ptr(fMax),
		})
	}
	return records, nil
}

// readCSV loads a whole CSV file, returning the header name to column index
// map and the data rows.
func readCSV(path, component string) (map[string]int, [][]string, error) {
	f, err := os.Open(path) //nolint:gosec // dataset tree walk
	if err != nil {
		return nil, nil, requireDir(err, path, component)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component(component).
			Build()
	}
	if len(all) == 0 {
		return nil, nil, errors.Newf("empty table: %s", path).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component(component).
			Build()
	}

	header := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		header[strings.TrimSpace(name)] = i
	}
	return header, all[1:], nil
}

func csvFloat(path string, row []string, header map[string]int, column string) (float64, error) {
	idx := header[column]
	if idx >= len(row) {
		return 0, errors.Newf("row too short for column %q", column).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Context("column", column).
			Component("adapter.csvtable").
			Build()
	}
	v, err := strconv.ParseFloat(row[idx], 64)
	if err != nil {
		return 0, errors.Newf("malformed %s value %q", column, row[idx]).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Context("column", column).
			Component("adapter.csvtable").
			Build()
	}
	return v, nil
}
