package split

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/FrostyAceHook/stitch/pkg/fsio"
	"github.com/FrostyAceHook/stitch/pkg/section"
)

// NamingFunc maps a section index to the path its file is written at.
type NamingFunc func(index uint32) string

// WriterConfig holds configuration for the section-writing layer.
type WriterConfig struct {
	// SectionSize is the on-disk size budget per section, header included.
	// Must exceed section.HeaderSize.
	SectionSize int64
	// Compress runs the file through a zlib stream before chunking.
	Compress bool
	// Nest places the sections of each file into their own directory.
	Nest bool
	// DeleteOriginal removes the input file after a fully successful split.
	DeleteOriginal bool
	// Dir is where sections (or the nest directory) are created. Empty means
	// the current directory.
	Dir string
	// ReadBufferSize is passed through to the splitter; 0 means the default.
	ReadBufferSize int
	// Logger receives progress output. Nil means discard.
	Logger *logrus.Logger
}

// Writer splits files into section files on disk.
type Writer struct {
	config WriterConfig
	guard  *fsio.Guard
	logger *logrus.Logger
}

// NewWriter validates the configuration and creates a writer.
func NewWriter(config WriterConfig, guard *fsio.Guard) (*Writer, error) {
	if config.SectionSize <= section.HeaderSize {
		return nil, fmt.Errorf("cannot encode any data without at-least %d byte sections", section.HeaderSize+1)
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Writer{config: config, guard: guard, logger: logger}, nil
}

// Result describes a fully successful split.
type Result struct {
	Name       string   // original filename, as recorded in the headers
	Sections   []string // section paths, in index order
	Count      uint32
	Compressed bool
}

// SplitFile splits the file at path into section files. The operation is
// all-or-nothing: any failure removes every section written so far before
// the error is returned. A nil result with a nil error means the input was
// missing and the caller chose to ignore it.
func (w *Writer) SplitFile(path string) (*Result, error) {
	filename := filepath.Base(path)
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	naming := DefaultNaming(w.config.Dir, stem)

	var nestDir string
	if w.config.Nest {
		nestDir = filepath.Join(w.config.Dir, SectionDirName(stem))
		if err := w.guard.CreateDir(nestDir); err != nil {
			return nil, err
		}
		naming = func(index uint32) string {
			return filepath.Join(nestDir, SectionName(stem, index))
		}
	}

	in, ok, err := w.guard.OpenForRead(path, true)
	if err != nil {
		w.discard(nestDir, nil)
		return nil, err
	}
	if !ok {
		// Missing input, ignored by the caller.
		w.discard(nestDir, nil)
		return nil, nil
	}

	splitter, err := NewSplitter(SplitterConfig{
		PayloadSize:    int(w.config.SectionSize) - section.HeaderSize,
		Compress:       w.config.Compress,
		ReadBufferSize: w.config.ReadBufferSize,
	})
	if err != nil {
		in.Close()
		w.discard(nestDir, nil)
		return nil, err
	}

	w.logger.WithField("path", path).Info("splitting file")

	var written []string
	var index uint32
	emit := func(payload []byte, last bool) error {
		target := naming(index)
		f, err := w.guard.OpenForWrite(target)
		if err != nil {
			return err
		}
		written = append(written, target)
		header := section.New(filename, index, w.config.Compress, last)
		if _, err := f.Write(header.Encode()); err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(payload); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		w.logger.WithFields(logrus.Fields{
			"section": target,
			"bytes":   len(payload),
			"last":    last,
		}).Debug("wrote section")
		index++
		return nil
	}

	runErr := splitter.Run(in, emit)
	// The input must be closed before the original can be removed; some
	// platforms refuse to delete an open file.
	in.Close()
	if runErr != nil {
		w.discard(nestDir, written)
		return nil, fmt.Errorf("split %q: %w", path, runErr)
	}

	if w.config.DeleteOriginal {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove original %q: %w", path, err)
		}
	}

	return &Result{
		Name:       filename,
		Sections:   written,
		Count:      index,
		Compressed: w.config.Compress,
	}, nil
}

// discard removes the partial output of a failed split. With nesting the
// whole section directory goes; otherwise only the sections written so far.
func (w *Writer) discard(nestDir string, written []string) {
	doomed := written
	if nestDir != "" {
		doomed = []string{nestDir}
	}
	if err := fsio.DeletePaths(doomed); err != nil {
		w.logger.WithError(err).Warn("failed to remove partial sections")
	}
}

// SectionName is the filename of one section of the given stem, with spaces
// replaced by underscores.
func SectionName(stem string, index uint32) string {
	return fmt.Sprintf("%s_%d%s", strings.ReplaceAll(stem, " ", "_"), index, section.Ext)
}

// SectionDirName is the directory name that holds a file's sections when
// nesting.
func SectionDirName(stem string) string {
	return strings.ReplaceAll(stem, " ", "_") + "_sections"
}

// DefaultNaming places sections directly in dir.
func DefaultNaming(dir, stem string) NamingFunc {
	return func(index uint32) string {
		return filepath.Join(dir, SectionName(stem, index))
	}
}
