// Package dump drives the listing pipeline for object and library files:
// parse, resolve patch targets, label branch targets, then emit.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"objdis/internal/binio"
	"objdis/internal/lib"
	"objdis/internal/listing"
	"objdis/internal/psyq"
)

// Kind is the type of an input file, recognised by its magic number.
type Kind int

const (
	KindUnknown Kind = iota
	KindObject
	KindLibrary
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindLibrary:
		return "library"
	}
	return "unknown"
}

// Sniff reads the magic number of r and rewinds it.
func Sniff(r io.ReadSeeker) (Kind, error) {
	magic, err := binio.NewReader(r).U32()
	if err != nil {
		return KindUnknown, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return KindUnknown, fmt.Errorf("%w: rewind: %w", psyq.ErrIO, err)
	}
	switch magic {
	case psyq.ObjectMagic:
		return KindObject, nil
	case psyq.LibraryMagicA, psyq.LibraryMagicB:
		return KindLibrary, nil
	}
	return KindUnknown, nil
}

// Load parses one object and runs the normalization passes over it: patch
// targets become symbols and branch targets in .text get labels.
func Load(r io.ReadSeeker) (*psyq.Registry, error) {
	reg, err := psyq.Parse(r)
	if err != nil {
		return nil, err
	}
	psyq.FixPatches(reg)
	for _, s := range reg.Sections() {
		if s.Name == ".text" {
			psyq.ResolveBranches(reg, s)
		}
	}
	return reg, nil
}

// Object writes the listing of one object. The banner is written before
// parsing starts, so a failed parse leaves it in w.
func Object(w io.Writer, name string, r io.ReadSeeker) error {
	return object(listing.NewEmitter(w), name, r)
}

func object(e *listing.Emitter, name string, r io.ReadSeeker) error {
	if err := e.Banner(name); err != nil {
		return err
	}
	reg, err := Load(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return e.Object(reg)
}

// Library writes the listing of every member of an archive, each followed by
// a blank-line separator. The first failing member ends the run.
func Library(w io.Writer, r io.ReadSeeker) error {
	e := listing.NewEmitter(w)
	return lib.Walk(r, func(m lib.Member) error {
		if err := object(e, m.Name, m.Reader()); err != nil {
			return err
		}
		return e.Separator()
	})
}

// File opens path and writes its listing to w, choosing between object and
// library by magic number.
func File(w io.Writer, path string) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	kind, err := Sniff(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Dumping file", "path", path, "kind", kind)

	bw := bufio.NewWriter(w)
	switch kind {
	case KindObject:
		err = Object(bw, filepath.Base(path), f)
	case KindLibrary:
		err = Library(bw, f)
		if err != nil {
			err = fmt.Errorf("%s: %w", path, err)
		}
	default:
		err = &psyq.FormatError{Err: psyq.ErrBadMagic, Detail: path + " is neither an object nor a library"}
	}
	if ferr := bw.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("%w: write listing: %w", psyq.ErrIO, ferr)
	}
	return err
}

// Each calls fn with every object in the file at path: the object itself, or
// each library member in directory order.
func Each(path string, fn func(name string, reg *psyq.Registry) error) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	kind, err := Sniff(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	switch kind {
	case KindObject:
		reg, err := Load(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return fn(filepath.Base(path), reg)
	case KindLibrary:
		return lib.Walk(f, func(m lib.Member) error {
			reg, err := Load(m.Reader())
			if err != nil {
				return fmt.Errorf("%s: %w", m.Name, err)
			}
			return fn(m.Name, reg)
		})
	}
	return &psyq.FormatError{Err: psyq.ErrBadMagic, Detail: path + " is neither an object nor a library"}
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", psyq.ErrIO, err)
	}
	return f, nil
}
