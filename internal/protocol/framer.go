package protocol

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/go-faster/errors"
)

// Framer reads and writes length-prefixed frames on a byte stream. Frames
// read from the stream are decoded as P with the codec given at
// construction. A Framer keeps no partial-frame state that survives an
// error: after any error the stream must be discarded.
type Framer[P any] struct {
	r      *bufio.Reader
	w      io.Writer
	decode func([]byte) (P, error)
	max    int

	length int
	buf    []byte
}

// NewFramer returns a framer reading from r and writing to w. maxFrameLength
// values <= 0 select DefaultMaxFrameLength.
func NewFramer[K Kind, P any](r io.Reader, w io.Writer, codec Codec[K, P], maxFrameLength int) *Framer[P] {
	if maxFrameLength <= 0 {
		maxFrameLength = DefaultMaxFrameLength
	}
	var br *bufio.Reader
	if r != nil {
		br = bufio.NewReader(r)
	}
	return &Framer[P]{
		r:      br,
		w:      w,
		decode: codec.Decode,
		max:    maxFrameLength,
		length: -1,
	}
}

// Ready blocks until the next length prefix arrives and returns the body length.
func (f *Framer[P]) Ready() (int, error) {
	var prefix [headerSize]byte
	if _, err := io.ReadFull(f.r, prefix[:]); err != nil {
		return 0, err
	}
	length := int(binary.LittleEndian.Uint32(prefix[:]))
	if length > f.max {
		return 0, errors.Wrapf(ErrFrameTooLarge, "frame length %d exceeds maximum %d bytes", length, f.max)
	}

	if cap(f.buf) < length {
		f.buf = make([]byte, length, f.max)
	}
	f.buf = f.buf[:length]
	f.length = length
	return length, nil
}

// Next reads the body announced by Ready and decodes it.
func (f *Framer[P]) Next() (P, error) {
	var zero P
	if f.length < 0 {
		return zero, errors.New("framer: Next called before Ready")
	}
	f.length = -1

	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return zero, err
	}

	packet, err := f.decode(f.buf)
	if err != nil {
		return zero, errors.Wrap(err, "decode frame")
	}
	return packet, nil
}

// ReadPacket is Ready followed by Next.
func (f *Framer[P]) ReadPacket() (P, error) {
	if _, err := f.Ready(); err != nil {
		var zero P
		return zero, err
	}
	return f.Next()
}

// Send writes an encoded frame verbatim.
func (f *Framer[P]) Send(packet EncodedPacket) error {
	_, err := f.w.Write(packet.Bytes())
	return err
}
