// Package report renders computed identifiers as text, JSON, YAML or
// CBOR.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/swhid/pkg/dirtree"
	"github.com/odvcencio/swhid/pkg/object"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts the names above, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", object.ErrInvalidInput, s)
}

// Entry is one reported object. Hashes, Length and Status are only set
// for contents; Kind only when explaining a parsed identifier.
type Entry struct {
	SWHID  object.SWHID      `json:"swhid" yaml:"swhid" cbor:"swhid"`
	Kind   string            `json:"type,omitempty" yaml:"type,omitempty" cbor:"type,omitempty"`
	Path   string            `json:"path,omitempty" yaml:"path,omitempty" cbor:"path,omitempty"`
	Length int64             `json:"length,omitempty" yaml:"length,omitempty" cbor:"length,omitempty"`
	Status string            `json:"status,omitempty" yaml:"status,omitempty" cbor:"status,omitempty"`
	Hashes map[string]string `json:"hashes,omitempty" yaml:"hashes,omitempty" cbor:"hashes,omitempty"`
}

// ContentEntry describes a content with its checksums.
func ContentEntry(label string, c *object.Content) Entry {
	return Entry{
		SWHID:  c.SWHID(),
		Path:   label,
		Length: c.Length(),
		Status: string(c.Status()),
		Hashes: c.Hashes().HexMap(),
	}
}

// TreeEntries reports the root of t under label. With recursive set,
// every object follows in post-order with its path joined to label, so
// the root comes last.
func TreeEntries(t *dirtree.Tree, label string, recursive bool) []Entry {
	if !recursive {
		return []Entry{{SWHID: t.RootSWHID(), Path: label}}
	}
	objs := t.Objects()
	out := make([]Entry, 0, len(objs))
	for _, o := range objs {
		p := label
		if o.Path != "" {
			p = path.Join(label, o.Path)
		}
		if o.Content != nil {
			out = append(out, ContentEntry(p, o.Content))
			continue
		}
		out = append(out, Entry{SWHID: o.SWHID, Path: p})
	}
	return out
}

// Explain describes a parsed identifier.
func Explain(s object.SWHID) Entry {
	return Entry{SWHID: s, Kind: s.Type.Name()}
}

var cborMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.TextMarshaler = cbor.TextMarshalerTextString
	var err error
	cborMode, err = opts.EncMode()
	if err != nil {
		panic("report: CBOR encoder initialization failed: " + err.Error())
	}
}

// Write renders entries to w. Text output is one line per entry: the
// SWHID followed by the kind and the path when set, tab separated.
func Write(w io.Writer, format Format, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	switch format {
	case FormatText, "":
		for _, e := range entries {
			line := e.SWHID.String()
			if e.Kind != "" {
				line += "\t" + e.Kind
			}
			if e.Path != "" {
				line += "\t" + e.Path
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		return cborMode.NewEncoder(w).Encode(entries)
	}
	return fmt.Errorf("%w: unknown output format %q", object.ErrInvalidInput, format)
}
