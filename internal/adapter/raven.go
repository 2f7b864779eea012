package adapter

import (
	"encoding/csv"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/soundset"
)

// Raven Pro selection tables are tab-separated with a header row. A table is
// usable when it carries at least these columns; tables without them (e.g.
// waveform-view duplicates) are skipped.
var ravenRequiredColumns = []string{
	"Begin Time (s)",
	"End Time (s)",
	"Low Freq (Hz)",
	"High Freq (Hz)",
	"Species",
}

// RavenSource reads datasets annotated with Raven Pro selection tables. The
// dataset tree is walked recursively: every .wav file below audioDirName
// directories is a sound, every .txt file below annotationDirName directories
// is a candidate selection table named after its sound file.
type RavenSource struct {
	name              string
	dataPath          string
	url               string
	audioDirName      string
	annotationDirName string
}

// NewRavenSource creates an adapter for a Raven Pro annotated dataset rooted
// at dataPath.
func NewRavenSource(name, dataPath, url, audioDirName, annotationDirName string) *RavenSource {
	return &RavenSource{
		name:              name,
		dataPath:          dataPath,
		url:               url,
		audioDirName:      audioDirName,
		annotationDirName: annotationDirName,
	}
}

func (s *RavenSource) Name() string { return s.name }
func (s *RavenSource) URL() string  { return s.url }

// walkMatching returns, in walk order, every file below s.dataPath with the
// given extension whose path passes through a directory named dirName.
func (s *RavenSource) walkMatching(dirName, ext string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.dataPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		rel, err := filepath.Rel(s.dataPath, path)
		if err != nil {
			return err
		}
		for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
			if part == dirName {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, requireDir(err, s.dataPath, "adapter.raven")
	}
	return paths, nil
}

func (s *RavenSource) Sounds() ([]SoundRecord, error) {
	paths, err := s.walkMatching(s.audioDirName, ".wav")
	if err != nil {
		return nil, err
	}

	records := make([]SoundRecord, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(s.dataPath, path)
		if err != nil {
			return nil, err
		}
		records = append(records, SoundRecord{RelPath: rel, AbsPath: path})
	}
	return records, nil
}

func (s *RavenSource) Categories() ([]soundset.CategoryRecord, error) {
	rows, err := s.selectionRows()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var records []soundset.CategoryRecord
	for _, row := range rows {
		species := row.fields["Species"]
		if _, ok := seen[species]; ok {
			continue
		}
		seen[species] = struct{}{}
		records = append(records, soundset.CategoryRecord{Name: species})
	}
	return records, nil
}

func (s *RavenSource) Annotations() ([]AnnotationRecord, error) {
	rows, err := s.selectionRows()
	if err != nil {
		return nil, err
	}

	records := make([]AnnotationRecord, 0, len(rows))
	for _, row := range rows {
		tMin, err := ravenFloat(row, "Begin Time (s)")
		if err != nil {
			return nil, err
		}
		tMax, err := ravenFloat(row, "End Time (s)")
		if err != nil {
			return nil, err
		}
		fMin, err := ravenFloat(row, "Low Freq (Hz)")
		if err != nil {
			return nil, err
		}
		fMax, err := ravenFloat(row, "High Freq (Hz)")
		if err != nil {
			return nil, err
		}

		records = append(records, AnnotationRecord{
			FileNameHint: row.fileNameHint,
			Category:     row.fields["Species"],
			TMin:         tMin,
			TMax:         tMax,
			FMin:         soundset.Ptr(fMin),
			FMax:         soundset.Ptr(fMax),
		})
	}
	return records, nil
}

// ravenRow is one selection table row plus the sound file name derived from
// the table file name.
type ravenRow struct {
	fileNameHint string
	fields       map[string]string
}

func (s *RavenSource) selectionRows() ([]ravenRow, error) {
	paths, err := s.walkMatching(s.annotationDirName, ".txt")
	if err != nil {
		return nil, err
	}

	var rows []ravenRow
	for _, path := range paths {
		tableRows, err := readRavenTable(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, tableRows...)
	}
	return rows, nil
}

// readRavenTable parses one selection table. Tables missing a required column
// are skipped silently, returning no rows.
func readRavenTable(path string) ([]ravenRow, error) {
	f, err := os.Open(path) //nolint:gosec // dataset tree walk
	if err != nil {
		return nil, requireDir(err, path, "adapter.raven")
	}
	defer f.Close() //nolint:errcheck // read-only handle

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("adapter.raven").
			Build()
	}
	if len(all) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		header[strings.TrimSpace(name)] = i
	}
	for _, col := range ravenRequiredColumns {
		if _, ok := header[col]; !ok {
			return nil, nil
		}
	}

	hint := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".wav"

	rows := make([]ravenRow, 0, len(all)-1)
	for _, record := range all[1:] {
		fields := make(map[string]string, len(header))
		for name, idx := range header {
			if idx < len(record) {
				fields[name] = strings.TrimSpace(record[idx])
			}
		}
		rows = append(rows, ravenRow{fileNameHint: hint, fields: fields})
	}
	return rows, nil
}

func ravenFloat(row ravenRow, column string) (float64, error) {
	v, err := strconv.ParseFloat(row.fields[column], 64)
	if err != nil {
		return 0, errors.Newf("malformed %s value %q", column, row.fields[column]).
			Category(errors.CategoryFileParsing).
			Context("column", column).
			Component("adapter.raven").
			Build()
	}
	return v, nil
}
