package listing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Signature is the byte pattern of one object, read back from a listing.
type Signature struct {
	Name   string  `json:"name" jsonschema:"description=Object name from the listing banner"`
	Sig    string  `json:"sig" jsonschema:"description=Concatenated hex tokens; ?? marks relocated bytes"`
	Labels []Label `json:"labels"`
}

// Label is a symbol position in a signature, counted in bytes.
type Label struct {
	Name   string `json:"name"`
	Offset int    `json:"offset" jsonschema:"minimum=0"`
}

var (
	bannerRe = regexp.MustCompile(`(?i)^==(\w+\.OBJ)==$`)
	labelRe  = regexp.MustCompile(`^(\w+):$`)
	bytesRe  = regexp.MustCompile(`^((?:[0-9A-F?]{2} )+)$`)
)

// maxLine bounds a single listing line; a whole section is one line.
const maxLine = 64 << 20

// ParseSignatures reads a listing and collects one signature per object
// banner. Only banners naming a .OBJ file start an object. Any other
// unrecognised line closes the current object.
func ParseSignatures(r io.Reader) ([]Signature, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		out []Signature
		cur *Signature
		sig strings.Builder
	)
	closeCur := func() {
		if cur != nil {
			cur.Sig = sig.String()
			out = append(out, *cur)
			cur = nil
		}
		sig.Reset()
	}

	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if m := bannerRe.FindStringSubmatch(line); m != nil {
			closeCur()
			cur = &Signature{Name: m[1], Labels: []Label{}}
			continue
		}
		if cur == nil {
			continue
		}
		switch {
		case labelRe.MatchString(line):
			cur.Labels = append(cur.Labels, Label{
				Name:   strings.TrimSuffix(line, ":"),
				Offset: sig.Len() / 3,
			})
		case bytesRe.MatchString(line):
			sig.WriteString(line)
		default:
			closeCur()
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	closeCur()
	if out == nil {
		out = []Signature{}
	}
	return out, nil
}

// WriteSignatures writes sigs as indented JSON.
func WriteSignatures(w io.Writer, sigs []Signature) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(sigs); err != nil {
		return fmt.Errorf("encode signatures: %w", err)
	}
	return nil
}
