// Package section defines the on-disk section file format and its header
// codec.
//
// A section file is one fragment of a split original file: a fixed 128-byte
// header immediately followed by a slice of the (possibly compressed) byte
// stream of the original. Section files carry the ".brs" extension.
//
// # Header Format
//
// The header is serialized in a fixed binary layout:
//
//	[Magic(3)][Flags(1)][Index(4)][Name(120)]
//
// Fields:
//   - Magic: the 3-byte constant "BRS" identifying the format
//   - Flags: bitfield; bit0 marks the final section of a group, bit1 marks
//     a compressed payload stream, all other bits must be zero
//   - Index: 32-bit unsigned, little-endian, 0-based position of this
//     section within its group
//   - Name: the original filename (including extension) as UTF-8, padded
//     with zero bytes, truncated at a rune boundary to fit 120 bytes
//
// The group's total section count is never stored; it is inferred at stitch
// time from whichever section carries the last flag.
//
// # Error Handling
//
// Decode rejects buffers of the wrong length, a mismatched magic, undefined
// flag bits, and names that are not valid UTF-8. All decode failures wrap
// ErrMalformedHeader so callers can treat them uniformly as
// "not a section file".
package section
