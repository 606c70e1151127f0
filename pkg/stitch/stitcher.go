// Package stitch replays an ordered sequence of section files through the
// inverse transform to reproduce the original file byte-for-byte.
//
// The Stitcher is the core: it strips each section's header, concatenates
// the payloads in index order, and feeds them through a single decompressor
// instance when the group is compressed. Compressed data was produced by one
// continuous compression session re-chunked across sections, so the
// decompressor's state must span section boundaries. The Writer is the I/O
// layer on top: it creates the output file and guarantees a failed stitch
// leaves no partial output behind.
package stitch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"

	"github.com/FrostyAceHook/stitch/pkg/section"
)

// ErrSectionUnavailable reports a section file that went missing or became
// unreadable between validation and stitching.
var ErrSectionUnavailable = errors.New("section unavailable")

// StitcherConfig holds configuration for a stitch run.
type StitcherConfig struct {
	// Compressed selects the inverse transform: identity when off, a zlib
	// stream spanning all sections when on.
	Compressed bool
}

// Stitcher streams section payloads through the inverse transform.
type Stitcher struct {
	config StitcherConfig
}

// NewStitcher creates a stitcher.
func NewStitcher(config StitcherConfig) *Stitcher {
	return &Stitcher{config: config}
}

// Run opens the given section files in order, skips each header, and writes
// the inverse-transformed payload bytes to w. Sections are opened lazily, so
// a file that vanished after validation surfaces as ErrSectionUnavailable
// when its index is reached.
func (s *Stitcher) Run(w io.Writer, paths []string) error {
	src := &sectionReader{paths: paths}
	defer src.Close()

	var r io.Reader = src
	if s.config.Compressed {
		zr, err := zlib.NewReader(src)
		if err != nil {
			return fmt.Errorf("open compressed stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	_, err := io.Copy(w, r)
	return err
}

// sectionReader concatenates the payloads of an ordered list of section
// files, opening each lazily and seeking past its header.
type sectionReader struct {
	paths []string
	next  int
	cur   *os.File
}

func (r *sectionReader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			if r.next >= len(r.paths) {
				return 0, io.EOF
			}
			f, err := r.open(r.paths[r.next])
			if err != nil {
				return 0, err
			}
			r.next++
			r.cur = f
		}
		n, err := r.cur.Read(p)
		if err == io.EOF {
			cerr := r.cur.Close()
			r.cur = nil
			if cerr != nil {
				return n, cerr
			}
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *sectionReader) open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSectionUnavailable, path, err)
	}
	if _, err := f.Seek(section.HeaderSize, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %q: %v", ErrSectionUnavailable, path, err)
	}
	return f, nil
}

func (r *sectionReader) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	return err
}
