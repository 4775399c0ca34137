package protocol

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/go-faster/errors"
)

// Writer appends little-endian encoded values to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer whose buffer starts with the given capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) PutUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

// PutString writes a u32 byte length followed by the UTF-8 bytes.
func (w *Writer) PutString(s string) {
	w.PutUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Reader decodes little-endian values from a byte slice. The first failure is
// sticky: later reads return zero values and Err reports the original cause.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader returns a Reader over data. The data is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = errors.Wrapf(ErrInvalidData, "insufficient data for %s: need %d bytes, have %d", what, n, r.Remaining())
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) Uint32(what string) uint32 {
	b := r.take(4, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64(what string) uint64 {
	b := r.take(8, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Int32(what string) int32 {
	return int32(r.Uint32(what))
}

// String reads a u32 length-prefixed UTF-8 string.
func (r *Reader) String(what string) string {
	n := r.Uint32(what + " length")
	if r.err != nil {
		return ""
	}
	if n > math.MaxInt32 {
		r.err = errors.Wrapf(ErrInvalidData, "%s length %d out of range", what, n)
		return ""
	}
	b := r.take(int(n), what)
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.err = errors.Wrapf(ErrInvalidData, "%s is not valid UTF-8", what)
		return ""
	}
	return string(b)
}

// Finish reports an error if the reader failed or left bytes unread.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.Remaining() != 0 {
		return errors.Wrapf(ErrInvalidData, "%d trailing bytes after packet", r.Remaining())
	}
	return nil
}
