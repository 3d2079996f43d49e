// Package lib extracts the member objects of Psy-Q library archives.
//
// Two directory layouts exist. The first stores a fixed header in front of
// every member. The second keeps all headers in a directory located by the
// file header.
package lib

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"objdis/internal/binio"
	"objdis/internal/psyq"
)

// Member is one object extracted from an archive.
type Member struct {
	Name string
	Data []byte
}

// Reader returns a seekable view of the member bytes.
func (m Member) Reader() *bytes.Reader {
	return bytes.NewReader(m.Data)
}

// Walk reads the archive magic and calls fn for each member in directory
// order. The first error from fn stops the walk and is returned unchanged.
func Walk(rs io.ReadSeeker, fn func(Member) error) error {
	r := binio.NewReader(rs)
	magic, err := r.U32()
	if err != nil {
		return err
	}
	switch magic {
	case psyq.LibraryMagicA:
		return walkHeaders(r, fn)
	case psyq.LibraryMagicB:
		return walkDirectory(r, fn)
	}
	return &psyq.FormatError{Err: psyq.ErrBadMagic, Detail: fmt.Sprintf("not a library (0x%08X)", magic)}
}

// walkHeaders handles archives where each member follows its own header:
// an 8-byte space padded name, a date, the header size and the total size.
func walkHeaders(r *binio.Reader, fn func(Member) error) error {
	base := int64(4)
	for {
		eof, err := r.AtEOF()
		if err != nil {
			return err
		}
		if eof {
			return nil
		}

		raw, err := r.Bytes(8)
		if err != nil {
			return err
		}
		if _, err := r.U32(); err != nil { // date
			return err
		}
		hdr, err := r.U32()
		if err != nil {
			return err
		}
		total, err := r.U32()
		if err != nil {
			return err
		}
		if total < hdr {
			return &psyq.FormatError{Err: psyq.ErrTruncated, Offset: base,
				Detail: fmt.Sprintf("member size %d is smaller than its header %d", total, hdr)}
		}

		if err := r.SeekTo(base + int64(hdr)); err != nil {
			return err
		}
		data, err := r.Bytes(int(total - hdr))
		if err != nil {
			return err
		}

		m := Member{Name: strings.TrimSpace(string(raw)) + ".OBJ", Data: data}
		slog.Debug("Extracted library member", "name", m.Name, "offset", base, "size", len(data))
		if err := fn(m); err != nil {
			return err
		}

		base += int64(total)
		if err := r.SeekTo(base); err != nil {
			return err
		}
	}
}

// walkDirectory handles archives with a central directory. Each entry holds
// the member offset, size and date, its name and a chain of auxiliary name
// records that are skipped.
func walkDirectory(r *binio.Reader, fn func(Member) error) error {
	dirOff, err := r.U32()
	if err != nil {
		return err
	}
	dirLen, err := r.U32()
	if err != nil {
		return err
	}
	if err := r.SeekTo(int64(dirOff)); err != nil {
		return err
	}

	end := int64(dirOff) + int64(dirLen)
	for r.Offset() < end {
		off, err := r.U32()
		if err != nil {
			return err
		}
		size, err := r.U32()
		if err != nil {
			return err
		}
		if _, err := r.U32(); err != nil { // date
			return err
		}
		name, err := directoryName(r)
		if err != nil {
			return err
		}
		more, err := r.U8()
		if err != nil {
			return err
		}

		next := r.Offset()
		if err := r.SeekTo(int64(off)); err != nil {
			return err
		}
		data, err := r.Bytes(int(size))
		if err != nil {
			return err
		}

		m := Member{Name: name, Data: data}
		slog.Debug("Extracted library member", "name", m.Name, "offset", off, "size", size)
		if err := fn(m); err != nil {
			return err
		}

		if err := r.SeekTo(next); err != nil {
			return err
		}
		for more != 0 {
			if err := r.Skip(2); err != nil {
				return err
			}
			if _, err := directoryName(r); err != nil {
				return err
			}
			if more, err = r.U8(); err != nil {
				return err
			}
		}
	}
	return nil
}

// directoryName reads a name whose length byte excludes its terminator.
func directoryName(r *binio.Reader) (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	raw, err := r.Bytes(int(n) + 1)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}
