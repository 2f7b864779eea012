package audioinfo

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundset/soundset-go/internal/errors"
)

// writeTestWAV produces a minimal PCM WAV file with the given number of
// 16-bit mono samples.
func writeTestWAV(t *testing.T, path string, sampleRate, numSamples int) int64 {
	t.Helper()

	dataSize := numSamples * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(16)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(1)))  // PCM
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(1)))  // mono
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(sampleRate)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))) // byte rate
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(2)))            // block align
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(16)))           // bit depth
	buf.WriteString("data")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(dataSize)))
	buf.Write(make([]byte, dataSize))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return int64(buf.Len())
}

func TestReadInfoWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	fileSize := writeTestWAV(t, path, 8000, 8000)

	info, err := ReadInfo(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 1, info.NumChannels)
	assert.Equal(t, 16, info.BitDepth)
	// The sample count is estimated from the file size, header included.
	assert.Equal(t, int(fileSize)/2, info.TotalSamples)
	assert.InDelta(t, 1.0, info.Duration(), 0.01)
}

func TestReadInfoInvalidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o644))

	_, err := ReadInfo(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestReadInfoInvalidFLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.flac")
	require.NoError(t, os.WriteFile(path, []byte("fLaCbutnotreally"), 0o644))

	_, err := ReadInfo(path)
	require.Error(t, err)
}

func TestReadInfoUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))

	_, err := ReadInfo(path)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestReadInfoMissingFile(t *testing.T) {
	_, err := ReadInfo(filepath.Join(t.TempDir(), "absent.wav"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestDurationZeroSampleRate(t *testing.T) {
	assert.Zero(t, Info{TotalSamples: 100}.Duration())
}
