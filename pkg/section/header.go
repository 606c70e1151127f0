package section

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// HeaderSize is the fixed size of a section header in bytes.
	HeaderSize = 128

	// NameSize is the byte budget for the original filename within the
	// header.
	NameSize = HeaderSize - 8

	// Ext is the filename extension of section files.
	Ext = ".brs"
)

// Magic identifies the section file format.
var Magic = [3]byte{'B', 'R', 'S'}

// Flags is the header flag bitfield.
type Flags uint8

const (
	// FlagLast marks the section believed to be the final one of its group.
	FlagLast Flags = 1 << 0

	// FlagCompressed marks a payload that is part of a compressed stream.
	FlagCompressed Flags = 1 << 1

	flagMask = FlagLast | FlagCompressed
)

// ErrMalformedHeader reports bytes that do not decode as a section header.
var ErrMalformedHeader = errors.New("malformed section header")

// Header describes one section file. It is created once at split time and
// read-only thereafter.
type Header struct {
	Name  string // original filename, including extension
	Index uint32 // 0-based position within the group
	Flags Flags
}

// New builds a header for the section at the given index.
func New(name string, index uint32, compressed, last bool) Header {
	var flags Flags
	if compressed {
		flags |= FlagCompressed
	}
	if last {
		flags |= FlagLast
	}
	return Header{Name: name, Index: index, Flags: flags}
}

// Last reports whether this section claims to be the final one.
func (h Header) Last() bool {
	return h.Flags&FlagLast != 0
}

// Compressed reports whether the section payload is compressed.
func (h Header) Compressed() bool {
	return h.Flags&FlagCompressed != 0
}

// Encode serializes the header into its fixed 128-byte layout. Names longer
// than the name budget are silently truncated at a rune boundary.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:3], Magic[:])
	buf[3] = byte(h.Flags & flagMask)
	binary.LittleEndian.PutUint32(buf[4:8], h.Index)
	copy(buf[8:], TruncateName(h.Name))
	return buf
}

// Decode deserializes a 128-byte header, stripping the name's zero padding.
func Decode(buf []byte) (Header, error) {
	var h Header
	if len(buf) != HeaderSize {
		return h, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedHeader, len(buf), HeaderSize)
	}
	if !bytes.Equal(buf[0:3], Magic[:]) {
		return h, fmt.Errorf("%w: bad magic %q", ErrMalformedHeader, buf[0:3])
	}
	flags := Flags(buf[3])
	if flags&^flagMask != 0 {
		return h, fmt.Errorf("%w: undefined flag bits 0x%02x", ErrMalformedHeader, byte(flags&^flagMask))
	}
	name := bytes.TrimRight(buf[8:], "\x00")
	if !utf8.Valid(name) {
		return h, fmt.Errorf("%w: name is not valid UTF-8", ErrMalformedHeader)
	}
	h.Name = string(name)
	h.Index = binary.LittleEndian.Uint32(buf[4:8])
	h.Flags = flags
	return h, nil
}

// TruncateName clips a filename to the header's name budget. The clip lands
// on a rune boundary so the encoded bytes stay valid UTF-8.
func TruncateName(name string) string {
	if len(name) <= NameSize {
		return name
	}
	cut := NameSize
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
