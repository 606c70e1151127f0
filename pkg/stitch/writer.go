package stitch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/FrostyAceHook/stitch/pkg/fsio"
	"github.com/FrostyAceHook/stitch/pkg/registry"
)

// WriterConfig holds configuration for the stitch output layer.
type WriterConfig struct {
	// OutputDir is where stitched files are written. Empty means the current
	// directory.
	OutputDir string
	// KeepSections retains the consumed section files after a successful
	// stitch; by default they are deleted.
	KeepSections bool
	// Logger receives progress output. Nil means discard.
	Logger *logrus.Logger
}

// Writer stitches resolved groups into files on disk.
type Writer struct {
	config WriterConfig
	guard  *fsio.Guard
	logger *logrus.Logger
}

// NewWriter creates a writer.
func NewWriter(config WriterConfig, guard *fsio.Guard) *Writer {
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Writer{config: config, guard: guard, logger: logger}
}

// StitchGroup reproduces the group's original file and returns its path.
// The operation is all-or-nothing: a failed stitch removes the partial
// output before the error is returned. Unless KeepSections is set, the
// consumed sections are deleted after a successful stitch; excess sections
// are left alone.
func (w *Writer) StitchGroup(group *registry.ResolvedGroup) (string, error) {
	target := filepath.Join(w.config.OutputDir, group.Name)

	out, err := w.guard.OpenForWrite(target)
	if err != nil {
		return "", err
	}

	w.logger.WithFields(logrus.Fields{
		"name":     group.Name,
		"sections": group.Count,
	}).Info("stitching file")

	stitcher := NewStitcher(StitcherConfig{Compressed: group.Compressed})
	if err := stitcher.Run(out, group.Paths); err != nil {
		out.Close()
		if rmErr := os.Remove(target); rmErr != nil {
			w.logger.WithError(rmErr).Warn("failed to remove partial output")
		}
		return "", fmt.Errorf("stitch %q: %w", group.Name, err)
	}
	if err := out.Close(); err != nil {
		if rmErr := os.Remove(target); rmErr != nil {
			w.logger.WithError(rmErr).Warn("failed to remove partial output")
		}
		return "", fmt.Errorf("stitch %q: %w", group.Name, err)
	}

	if !w.config.KeepSections {
		if err := fsio.DeletePaths(group.Paths); err != nil {
			return target, fmt.Errorf("remove sections of %q: %w", group.Name, err)
		}
	}
	return target, nil
}
