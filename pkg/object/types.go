package object

import (
	"encoding/hex"
	"fmt"
)

// IDSize is the length in bytes of every object identifier.
const IDSize = 20

// ID is a raw 20-byte SHA-1 object identifier.
type ID [IDSize]byte

// String returns the lowercase hex form of the identifier.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether every byte of id is zero.
func (id ID) IsZero() bool {
	return id == ID{}
}

// ParseID decodes a 40-character lowercase hex string.
func ParseID(s string) (ID, error) {
	var id ID
	if len(s) != 2*IDSize {
		return id, fmt.Errorf("%w: hex id has %d characters, want %d", ErrInvalidHashLength, len(s), 2*IDSize)
	}
	if !isLowerHex(s) {
		return id, fmt.Errorf("%w: %q is not lowercase hex", ErrInvalidHashLength, s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidHashLength, err)
	}
	return id, nil
}

// IDFromBytes copies a 20-byte slice into an ID.
func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != IDSize {
		return id, fmt.Errorf("%w: id has %d bytes, want %d", ErrInvalidHashLength, len(b), IDSize)
	}
	copy(id[:], b)
	return id, nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// GitObjectType is the type tag written in an object envelope header.
type GitObjectType string

const (
	GitBlob     GitObjectType = "blob"
	GitTree     GitObjectType = "tree"
	GitCommit   GitObjectType = "commit"
	GitTag      GitObjectType = "tag"
	GitSnapshot GitObjectType = "snapshot"
	// GitRefs is the name a release uses for a snapshot target. It never
	// appears in an envelope header.
	GitRefs GitObjectType = "refs"
)

// ObjectType is the closed set of object kinds that carry a SWHID.
type ObjectType uint8

const (
	TypeContent ObjectType = iota + 1
	TypeDirectory
	TypeRevision
	TypeRelease
	TypeSnapshot
)

// Tag returns the three-letter SWHID tag of t.
func (t ObjectType) Tag() string {
	switch t {
	case TypeContent:
		return "cnt"
	case TypeDirectory:
		return "dir"
	case TypeRevision:
		return "rev"
	case TypeRelease:
		return "rel"
	case TypeSnapshot:
		return "snp"
	default:
		return ""
	}
}

// Name returns the long lowercase name of t, e.g. "revision". It is the
// kind name used in snapshot manifests.
func (t ObjectType) Name() string {
	switch t {
	case TypeContent:
		return "content"
	case TypeDirectory:
		return "directory"
	case TypeRevision:
		return "revision"
	case TypeRelease:
		return "release"
	case TypeSnapshot:
		return "snapshot"
	default:
		return ""
	}
}

// GitType maps t to the git type used when a release names its target.
func (t ObjectType) GitType() GitObjectType {
	switch t {
	case TypeContent:
		return GitBlob
	case TypeDirectory:
		return GitTree
	case TypeRevision:
		return GitCommit
	case TypeRelease:
		return GitTag
	case TypeSnapshot:
		return GitRefs
	default:
		return ""
	}
}

// Valid reports whether t is one of the five known kinds.
func (t ObjectType) Valid() bool {
	return t >= TypeContent && t <= TypeSnapshot
}

func (t ObjectType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ObjectType(%d)", uint8(t))
	}
	return t.Name()
}

// ParseObjectTag maps a three-letter SWHID tag back to its ObjectType.
func ParseObjectTag(tag string) (ObjectType, error) {
	switch tag {
	case "cnt":
		return TypeContent, nil
	case "dir":
		return TypeDirectory, nil
	case "rev":
		return TypeRevision, nil
	case "rel":
		return TypeRelease, nil
	case "snp":
		return TypeSnapshot, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidObjectType, tag)
	}
}

// ParseObjectName maps a long kind name ("content", "revision", ...) to
// its ObjectType.
func ParseObjectName(name string) (ObjectType, error) {
	for t := TypeContent; t <= TypeSnapshot; t++ {
		if t.Name() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown object kind %q", ErrInvalidObjectType, name)
}

// Tree entry permissions in canonical git octal form.
const (
	ModeFile       uint32 = 0o100644
	ModeExecutable uint32 = 0o100755
	ModeSymlink    uint32 = 0o120000
	ModeDirectory  uint32 = 0o040000
)
