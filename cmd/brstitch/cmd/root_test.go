package cmd

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrostyAceHook/stitch/pkg/catalog"
	"github.com/FrostyAceHook/stitch/pkg/config"
)

// chtmp moves the working directory into a fresh temp dir for the test,
// since split and stitch operate on the current directory by default.
func chtmp(t *testing.T) string {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "brstitch_cmd_test")
	require.NoError(t, err)

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))

	t.Cleanup(func() {
		os.Chdir(prev)
		os.RemoveAll(tmpDir)
	})
	return tmpDir
}

func writeTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	testCfg := config.DefaultConfig()
	testCfg.CatalogDir = filepath.Join(tmpDir, "catalog")
	require.NoError(t, config.SaveConfig(testCfg, cfgPath))
	return cfgPath
}

// run executes one CLI invocation. Flag globals and cobra's changed state
// persist across Execute calls, so they are reset to their defaults first.
func run(t *testing.T, args ...string) error {
	t.Helper()

	flagYes = false
	flagQuiet = false
	flagConfig = ""
	splitSize = ""
	splitNest = false
	splitReplace = false
	splitCompress = true
	stitchKeep = false

	reset := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, sub := range rootCmd.Commands() {
		sub.Flags().VisitAll(reset)
	}

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestSplitStitchRoundTrip(t *testing.T) {
	tmpDir := chtmp(t)
	cfgPath := writeTestConfig(t, tmpDir)

	input := make([]byte, 10000)
	rand.New(rand.NewSource(3)).Read(input)
	require.NoError(t, os.WriteFile("video.mkv", input, 0o644))

	require.NoError(t, run(t, "split", "-y", "-q", "--config", cfgPath, "-x", "1kb", "-r", "video.mkv"))

	// The original is gone and only section files remain.
	assert.NoFileExists(t, "video.mkv")
	entries, err := os.ReadDir(".")
	require.NoError(t, err)
	sections := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".brs") {
			sections++
		}
	}
	assert.Greater(t, sections, 1)

	require.NoError(t, run(t, "stitch", "-y", "-q", "--config", cfgPath))

	out, err := os.ReadFile("video.mkv")
	require.NoError(t, err)
	assert.Equal(t, input, out)

	// Consumed sections were cleaned up.
	entries, err = os.ReadDir(".")
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".brs"), entry.Name())
	}

	// The split was recorded in the catalog.
	cat, err := catalog.Open(filepath.Join(tmpDir, "catalog"))
	require.NoError(t, err)
	defer cat.Close()
	manifests, err := cat.List()
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "video.mkv", manifests[0].Name)
}

func TestSplitNested(t *testing.T) {
	tmpDir := chtmp(t)
	cfgPath := writeTestConfig(t, tmpDir)

	require.NoError(t, os.WriteFile("my notes.txt", []byte("some text"), 0o644))
	require.NoError(t, run(t, "split", "-y", "-q", "--config", cfgPath, "-x", "1kb", "-n", "my notes.txt"))

	nestDir := filepath.Join(tmpDir, "my_notes_sections")
	assert.DirExists(t, nestDir)
	entries, err := os.ReadDir(nestDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "my_notes_0.brs", entries[0].Name())
}

func TestSplitNestDisabledByFlag(t *testing.T) {
	tmpDir := chtmp(t)

	// nest comes from the config, and an explicit --nest=false overrides it.
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	testCfg := config.DefaultConfig()
	testCfg.Nest = true
	require.NoError(t, config.SaveConfig(testCfg, cfgPath))

	require.NoError(t, os.WriteFile("doc.txt", []byte("words"), 0o644))
	require.NoError(t, run(t, "split", "-y", "-q", "--config", cfgPath, "-x", "1kb", "--nest=false", "doc.txt"))

	assert.NoDirExists(t, filepath.Join(tmpDir, "doc_sections"))
	assert.FileExists(t, filepath.Join(tmpDir, "doc_0.brs"))
}

func TestHistoryRespectsQuiet(t *testing.T) {
	tmpDir := chtmp(t)
	cfgPath := writeTestConfig(t, tmpDir)

	require.NoError(t, os.WriteFile("a.bin", []byte("hello"), 0o644))
	require.NoError(t, run(t, "split", "-y", "-q", "--config", cfgPath, "-x", "1kb", "a.bin"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	require.NoError(t, run(t, "history", "-q", "--config", cfgPath))
	assert.Empty(t, out.String())

	require.NoError(t, run(t, "history", "--config", cfgPath))
	assert.Contains(t, out.String(), "a.bin")
}

func TestSplitRejectsBadSize(t *testing.T) {
	tmpDir := chtmp(t)
	cfgPath := writeTestConfig(t, tmpDir)

	require.NoError(t, os.WriteFile("a.txt", []byte("x"), 0o644))
	err := run(t, "split", "-y", "-q", "--config", cfgPath, "-x", "huge", "a.txt")
	require.Error(t, err)
}
