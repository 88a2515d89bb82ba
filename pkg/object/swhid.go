package object

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Namespace is the fixed first field of every SWHID.
	Namespace = "swh"
	// SchemeVersion is the only supported scheme version.
	SchemeVersion = 1
)

// SWHID is a core Software Heritage identifier, "swh:1:<tag>:<hex>".
// The zero value is not a valid identifier. SWHIDs are comparable.
type SWHID struct {
	Type ObjectType
	ID   ID
}

// NewSWHID builds the identifier of an object of type t with id.
func NewSWHID(t ObjectType, id ID) SWHID {
	return SWHID{Type: t, ID: id}
}

// Namespace returns "swh".
func (s SWHID) Namespace() string { return Namespace }

// Version returns the scheme version, always 1.
func (s SWHID) Version() int { return SchemeVersion }

// String formats s as swh:1:<tag>:<40 lowercase hex>.
func (s SWHID) String() string {
	var b strings.Builder
	b.Grow(len(Namespace) + 3 + 3 + 1 + 2*IDSize)
	b.WriteString(Namespace)
	b.WriteString(":")
	b.WriteString(strconv.Itoa(SchemeVersion))
	b.WriteString(":")
	b.WriteString(s.Type.Tag())
	b.WriteString(":")
	b.WriteString(s.ID.String())
	return b.String()
}

// ParseSWHID parses the textual form of a core SWHID.
func ParseSWHID(text string) (SWHID, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 4 {
		return SWHID{}, fmt.Errorf("%w: SWHID must have 4 colon-separated fields, got %d in %q", ErrInvalidFormat, len(parts), text)
	}
	if parts[0] != Namespace {
		return SWHID{}, fmt.Errorf("%w: %q", ErrInvalidNamespace, parts[0])
	}
	if parts[1] != strconv.Itoa(SchemeVersion) {
		return SWHID{}, fmt.Errorf("%w: %q", ErrInvalidVersion, parts[1])
	}
	t, err := ParseObjectTag(parts[2])
	if err != nil {
		return SWHID{}, err
	}
	id, err := ParseID(parts[3])
	if err != nil {
		return SWHID{}, err
	}
	return SWHID{Type: t, ID: id}, nil
}

// MustParseSWHID is ParseSWHID for constants; it panics on error.
func MustParseSWHID(text string) SWHID {
	s, err := ParseSWHID(text)
	if err != nil {
		panic(err)
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (s SWHID) MarshalText() ([]byte, error) {
	if !s.Type.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidObjectType, s.Type)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SWHID) UnmarshalText(text []byte) error {
	parsed, err := ParseSWHID(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
