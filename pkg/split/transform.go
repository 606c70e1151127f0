package split

import (
	"bytes"

	"github.com/klauspost/compress/zlib"
)

// transform is a stateful streaming encode: output depends on every byte fed
// so far, not just the current slice. A transform is owned by exactly one
// split run and never reused.
type transform interface {
	// feed consumes input bytes and returns whatever output the transform
	// produced for them. The returned slice is only valid until the next
	// call.
	feed(p []byte) ([]byte, error)
	// finish flushes the transform and returns any remaining output.
	finish() ([]byte, error)
}

func newTransform(compress bool) transform {
	if compress {
		return newZlibTransform()
	}
	return identityTransform{}
}

// identityTransform passes input through unchanged.
type identityTransform struct{}

func (identityTransform) feed(p []byte) ([]byte, error) {
	return p, nil
}

func (identityTransform) finish() ([]byte, error) {
	return nil, nil
}

// zlibTransform runs input through one continuous zlib compression session.
type zlibTransform struct {
	buf bytes.Buffer
	w   *zlib.Writer
}

func newZlibTransform() *zlibTransform {
	t := &zlibTransform{}
	t.w = zlib.NewWriter(&t.buf)
	return t
}

func (t *zlibTransform) feed(p []byte) ([]byte, error) {
	if _, err := t.w.Write(p); err != nil {
		return nil, err
	}
	return t.take(), nil
}

func (t *zlibTransform) finish() ([]byte, error) {
	if err := t.w.Close(); err != nil {
		return nil, err
	}
	return t.take(), nil
}

func (t *zlibTransform) take() []byte {
	out := append([]byte(nil), t.buf.Bytes()...)
	t.buf.Reset()
	return out
}
