// Package binio provides sequential little-endian reads over a seekable
// byte stream, tracking the absolute offset for diagnostics.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated is returned when the stream ends in the middle of a record.
var ErrTruncated = errors.New("truncated input")

// Reader reads primitive values from an io.ReadSeeker.
type Reader struct {
	r   io.ReadSeeker
	off int64
	buf [4]byte
}

func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

// Offset returns the absolute offset of the next byte to be read.
func (r *Reader) Offset() int64 {
	return r.off
}

func (r *Reader) fill(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w at 0x%X", ErrTruncated, r.off)
		}
		return fmt.Errorf("read at 0x%X: %w", r.off, err)
	}
	return nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.fill(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

func (r *Reader) U16() (uint16, error) {
	if err := r.fill(r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.buf[:2]), nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.fill(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d at 0x%X", n, r.off)
	}
	p := make([]byte, n)
	if err := r.fill(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Name reads a string prefixed by a one-byte length.
func (r *Reader) Name() (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	p, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Skip moves the read position n bytes forward.
func (r *Reader) Skip(n int64) error {
	off, err := r.r.Seek(n, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("skip %d at 0x%X: %w", n, r.off, err)
	}
	r.off = off
	return nil
}

// SeekTo moves the read position to the absolute offset off.
func (r *Reader) SeekTo(off int64) error {
	pos, err := r.r.Seek(off, io.SeekStart)
	if err != nil {
		return fmt.Errorf("seek to 0x%X: %w", off, err)
	}
	r.off = pos
	return nil
}

// AtEOF reports whether no bytes remain. The read position is unchanged.
func (r *Reader) AtEOF() (bool, error) {
	cur := r.off
	end, err := r.r.Seek(0, io.SeekEnd)
	if err != nil {
		return false, fmt.Errorf("seek end: %w", err)
	}
	if _, err := r.r.Seek(cur, io.SeekStart); err != nil {
		return false, fmt.Errorf("seek to 0x%X: %w", cur, err)
	}
	return cur >= end, nil
}
