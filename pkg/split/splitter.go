// Package split turns a byte stream into an ordered sequence of bounded
// section payloads and writes them out as section files.
//
// The Splitter is the filesystem-free core: it re-chunks an optionally
// compressing transform of the input into fixed-size payloads and hands each
// one to a callback. The Writer is the I/O layer on top: it names section
// files, prefixes each payload with its header, and guarantees that a failed
// split leaves no partial sections behind.
package split

import (
	"fmt"
	"io"
)

// DefaultReadBufferSize is how much input is read per syscall when the
// caller doesn't say otherwise.
const DefaultReadBufferSize = 64 * 1024

// EmitFunc receives one section payload. Every payload except the final one
// is exactly the configured payload size; the final call carries last=true.
// The payload slice is only valid for the duration of the call.
type EmitFunc func(payload []byte, last bool) error

// SplitterConfig holds configuration for a split run.
type SplitterConfig struct {
	// PayloadSize is the exact size of every non-final payload. Must be at
	// least 1.
	PayloadSize int
	// Compress runs the input through a zlib stream before chunking.
	Compress bool
	// ReadBufferSize is the input read granularity. It has no effect on the
	// emitted payload boundaries; 0 means DefaultReadBufferSize.
	ReadBufferSize int
}

// Splitter re-chunks a transformed input stream into fixed-size payloads.
type Splitter struct {
	config SplitterConfig
}

// NewSplitter validates the configuration and creates a splitter.
func NewSplitter(config SplitterConfig) (*Splitter, error) {
	if config.PayloadSize < 1 {
		return nil, fmt.Errorf("payload size must be at least 1 byte, got %d", config.PayloadSize)
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = DefaultReadBufferSize
	}
	return &Splitter{config: config}, nil
}

// Run reads r to EOF, feeds it through the transform, and emits the
// transformed stream as payloads. The concatenation of all payloads, in call
// order, equals the full transform of the input. Exactly one emit carries
// last=true, on the final call; that payload is zero-length only when the
// transformed stream itself is empty.
//
// Run performs no filesystem work itself; any emit error aborts the run and
// is returned as-is so the caller can clean up whatever emit created.
func (s *Splitter) Run(r io.Reader, emit EmitFunc) error {
	tr := newTransform(s.config.Compress)
	size := s.config.PayloadSize

	var pending []byte
	// Emit full payloads while more data would still remain after them, so
	// the final payload is never empty unless the whole stream is.
	drain := func() error {
		for len(pending) > size {
			if err := emit(pending[:size], false); err != nil {
				return err
			}
			pending = pending[size:]
		}
		return nil
	}

	buf := make([]byte, s.config.ReadBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out, terr := tr.feed(buf[:n])
			if terr != nil {
				return terr
			}
			pending = append(pending, out...)
			if err := drain(); err != nil {
				return err
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	tail, err := tr.finish()
	if err != nil {
		return err
	}
	pending = append(pending, tail...)
	if err := drain(); err != nil {
		return err
	}

	return emit(pending, true)
}
