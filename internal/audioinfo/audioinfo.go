// Package audioinfo probes audio file headers for the recording properties
// the canonical schema needs (duration and sample rate) without decoding the
// audio payload.
package audioinfo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/soundset/soundset-go/internal/errors"
)

// Info holds the header properties of one audio file.
type Info struct {
	SampleRate   int
	TotalSamples int
	NumChannels  int
	BitDepth     int
}

// Duration returns the audio length in seconds.
func (i Info) Duration() float64 {
	if i.SampleRate == 0 {
		return 0
	}
	return float64(i.TotalSamples) / float64(i.SampleRate)
}

// ReadInfo probes the file header, dispatching on the file extension.
// Supported formats are WAV and FLAC.
func ReadInfo(path string) (Info, error) {
	file, err := os.Open(path) //nolint:gosec // caller-supplied dataset path
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("audioinfo").
			Build()
	}
	defer file.Close() //nolint:errcheck // read-only handle

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAVInfo(file, path)
	case ".flac":
		return readFLACInfo(file, path)
	default:
		return Info{}, errors.Newf("unsupported audio format: %s", filepath.Ext(path)).
			Category(errors.CategoryValidation).
			Context("path", path).
			Component("audioinfo").
			Build()
	}
}

func readWAVInfo(file *os.File, path string) (Info, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return Info{}, errors.Newf("invalid WAV file format").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("audioinfo").
			Build()
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("audioinfo").
			Build()
	}

	bytesPerSample := int(decoder.BitDepth / 8)
	if bytesPerSample == 0 || decoder.NumChans == 0 {
		return Info{}, errors.Newf("invalid WAV header: bit depth %d, channels %d", decoder.BitDepth, decoder.NumChans).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("audioinfo").
			Build()
	}
	totalSamples := int(fileInfo.Size()) / bytesPerSample / int(decoder.NumChans)

	return Info{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

func readFLACInfo(file *os.File, path string) (Info, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("audioinfo").
			Build()
	}

	return Info{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}, nil
}
