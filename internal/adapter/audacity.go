package adapter

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/soundset"
)

// AudacitySource reads datasets annotated with Audacity label tracks: one
// headerless tab-separated .txt file per sound file, each line holding start
// time, end time and a free-text label. Frequency-range continuation lines
// (first field starting with a backslash) are ignored.
type AudacitySource struct {
	name          string
	dataPath      string
	url           string
	audioDir      string
	annotationDir string
}

// NewAudacitySource creates an adapter for an Audacity-labelled dataset
// rooted at dataPath. audioDir and annotationDir are relative to dataPath.
func NewAudacitySource(name, dataPath, url, audioDir, annotationDir string) *AudacitySource {
	return &AudacitySource{
		name:          name,
		dataPath:      dataPath,
		url:           url,
		audioDir:      audioDir,
		annotationDir: annotationDir,
	}
}

func (s *AudacitySource) Name() string { return s.name }
func (s *AudacitySource) URL() string  { return s.url }

func (s *AudacitySource) Sounds() ([]SoundRecord, error) {
	dir := filepath.Join(s.dataPath, s.audioDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, requireDir(err, dir, "adapter.audacity")
	}

	var records []SoundRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		records = append(records, SoundRecord{
			RelPath: filepath.Join(s.audioDir, entry.Name()),
			AbsPath: filepath.Join(dir, entry.Name()),
		})
	}
	return records, nil
}

func (s *AudacitySource) Categories() ([]soundset.CategoryRecord, error) {
	labels, err := s.labelFiles()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var records []soundset.CategoryRecord
	for _, path := range labels {
		lines, err := readAudacityLabels(path)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			if _, ok := seen[line.label]; ok {
				continue
			}
			seen[line.label] = struct{}{}
			records = append(records, soundset.CategoryRecord{Name: line.label})
		}
	}
	return records, nil
}

func (s *AudacitySource) Annotations() ([]AnnotationRecord, error) {
	labels, err := s.labelFiles()
	if err != nil {
		return nil, err
	}

	var records []AnnotationRecord
	for _, path := range labels {
		lines, err := readAudacityLabels(path)
		if err != nil {
			return nil, err
		}

		// The label file is named after its sound file; everything up to
		// the first dot identifies the recording.
		hint, _, _ := strings.Cut(filepath.Base(path), ".")
		for _, line := range lines {
			records = append(records, AnnotationRecord{
				FileNameHint: hint,
				Category:     line.label,
				TMin:         line.start,
				TMax:         line.end,
			})
		}
	}
	return records, nil
}

func (s *AudacitySource) labelFiles() ([]string, error) {
	dir := filepath.Join(s.dataPath, s.annotationDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, requireDir(err, dir, "adapter.audacity")
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, errors.Newf("no label files found in %s", dir).
			Category(errors.CategoryFileIO).
			Context("path", dir).
			Component("adapter.audacity").
			Build()
	}
	return paths, nil
}

type audacityLine struct {
	start float64
	end   float64
	label string
}

func readAudacityLabels(path string) ([]audacityLine, error) {
	f, err := os.Open(path) //nolint:gosec // dataset tree walk
	if err != nil {
		return nil, requireDir(err, path, "adapter.audacity")
	}
	defer f.Close() //nolint:errcheck // read-only handle

	var lines []audacityLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, `\`) {
			continue
		}
		fields := strings.Split(raw, "\t")
		if len(fields) < 3 || fields[2] == "" {
			continue
		}
		start, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, malformedLabelErr(path, raw)
		}
		end, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, malformedLabelErr(path, raw)
		}
		lines = append(lines, audacityLine{start: start, end: end, label: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("adapter.audacity").
			Build()
	}
	return lines, nil
}

func malformedLabelErr(path, line string) error {
	return errors.Newf("malformed label line %q", line).
		Category(errors.CategoryFileParsing).
		Context("path", path).
		Component("adapter.audacity").
		Build()
}
