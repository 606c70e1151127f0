package stitch

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrostyAceHook/stitch/pkg/section"
	"github.com/FrostyAceHook/stitch/pkg/split"
)

// splitToDir splits input into section files and returns their paths in
// index order.
func splitToDir(t *testing.T, dir string, input []byte, payloadSize int, compress bool) []string {
	t.Helper()

	splitter, err := split.NewSplitter(split.SplitterConfig{
		PayloadSize: payloadSize,
		Compress:    compress,
	})
	require.NoError(t, err)

	var paths []string
	var index uint32
	err = splitter.Run(bytes.NewReader(input), func(payload []byte, last bool) error {
		path := filepath.Join(dir, split.SectionName("part", index))
		header := section.New("original.bin", index, compress, last)
		if err := os.WriteFile(path, append(header.Encode(), payload...), 0o644); err != nil {
			return err
		}
		paths = append(paths, path)
		index++
		return nil
	})
	require.NoError(t, err)
	return paths
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	rand.New(rand.NewSource(99)).Read(buf)
	return buf
}

func TestStitcher_RoundTrip(t *testing.T) {
	testCases := []struct {
		name        string
		size        int
		payloadSize int
		compress    bool
	}{
		{name: "empty identity", size: 0, payloadSize: 4096},
		{name: "empty compressed", size: 0, payloadSize: 4096, compress: true},
		{name: "single section", size: 100, payloadSize: 4096},
		{name: "many sections identity", size: 20000, payloadSize: 4096},
		{name: "many sections compressed", size: 20000, payloadSize: 512, compress: true},
		{name: "tiny payloads", size: 1000, payloadSize: 1, compress: false},
		{name: "exact multiple", size: 8192, payloadSize: 4096},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tmpDir, err := os.MkdirTemp("", "stitcher_test")
			require.NoError(t, err)
			defer os.RemoveAll(tmpDir)

			input := randomBytes(t, tc.size)
			paths := splitToDir(t, tmpDir, input, tc.payloadSize, tc.compress)

			var out bytes.Buffer
			stitcher := NewStitcher(StitcherConfig{Compressed: tc.compress})
			require.NoError(t, stitcher.Run(&out, paths))
			assert.Equal(t, input, out.Bytes())
		})
	}
}

func TestStitcher_SectionVanished(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "stitcher_vanish_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	input := randomBytes(t, 20000)
	paths := splitToDir(t, tmpDir, input, 4096, false)
	require.NoError(t, os.Remove(paths[2]))

	var out bytes.Buffer
	stitcher := NewStitcher(StitcherConfig{Compressed: false})
	err = stitcher.Run(&out, paths)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSectionUnavailable)
}

func TestStitcher_CompressedSectionVanished(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "stitcher_vanish_z_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	input := randomBytes(t, 20000)
	paths := splitToDir(t, tmpDir, input, 512, true)

	t.Run("first section gone fails opening the stream", func(t *testing.T) {
		missing := append([]string{filepath.Join(tmpDir, "nope.brs")}, paths[1:]...)
		err := NewStitcher(StitcherConfig{Compressed: true}).Run(&bytes.Buffer{}, missing)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSectionUnavailable)
	})

	t.Run("later section gone fails mid-stream", func(t *testing.T) {
		require.NoError(t, os.Remove(paths[len(paths)-1]))
		err := NewStitcher(StitcherConfig{Compressed: true}).Run(&bytes.Buffer{}, paths)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSectionUnavailable)
	})
}
