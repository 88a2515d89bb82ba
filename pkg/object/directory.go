package object

import (
	"bytes"
	"fmt"
	"sort"
)

// EntryType is the kind of object a directory entry points to.
type EntryType uint8

const (
	EntryFile EntryType = iota + 1
	EntryDirectory
	EntrySymlink
)

func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryDirectory:
		return "dir"
	case EntrySymlink:
		return "symlink"
	default:
		return fmt.Sprintf("EntryType(%d)", uint8(t))
	}
}

// TargetType returns the object type an entry of kind t references.
func (t EntryType) TargetType() ObjectType {
	if t == EntryDirectory {
		return TypeDirectory
	}
	return TypeContent
}

// PermsFromMode classifies raw st_mode bits: symlink first, then
// directory, then any execute bit, else a regular file.
func PermsFromMode(mode uint32) uint32 {
	switch mode & 0o170000 {
	case 0o120000:
		return ModeSymlink
	case 0o040000:
		return ModeDirectory
	}
	if mode&0o111 != 0 {
		return ModeExecutable
	}
	return ModeFile
}

// DirectoryEntry is one child of a directory.
type DirectoryEntry struct {
	Name   []byte
	Type   EntryType
	Perms  uint32
	Target ID
}

func (e DirectoryEntry) validate() error {
	if len(e.Name) == 0 {
		return fmt.Errorf("%w: directory entry has an empty name", ErrInvalidInput)
	}
	if bytes.IndexByte(e.Name, 0) >= 0 || bytes.IndexByte(e.Name, '/') >= 0 {
		return fmt.Errorf("%w: directory entry name %q contains NUL or '/'", ErrInvalidInput, e.Name)
	}
	switch e.Perms {
	case ModeFile, ModeExecutable, ModeSymlink, ModeDirectory:
	default:
		return fmt.Errorf("%w: entry %q has unknown permissions %o", ErrInvalidInput, e.Name, e.Perms)
	}
	if (e.Type == EntryDirectory) != (e.Perms == ModeDirectory) {
		return fmt.Errorf("%w: entry %q type %v does not match permissions %o", ErrInvalidInput, e.Name, e.Type, e.Perms)
	}
	return nil
}

// sortKey is the name with '/' appended for directories, so "foo/" sorts
// after "foo.c" the way git trees do.
func (e DirectoryEntry) sortKey() []byte {
	if e.Type != EntryDirectory {
		return e.Name
	}
	key := make([]byte, len(e.Name)+1)
	copy(key, e.Name)
	key[len(e.Name)] = '/'
	return key
}

// SWHID returns the identifier of the entry's target.
func (e DirectoryEntry) SWHID() SWHID {
	return NewSWHID(e.Type.TargetType(), e.Target)
}

// Directory is an ordered set of entries with a lazily computed id.
// Add invalidates the cached id. A Directory is not safe for concurrent
// mutation.
type Directory struct {
	entries []DirectoryEntry
	id      ID
	valid   bool
}

// NewDirectory validates and sorts entries. Duplicate names are rejected.
func NewDirectory(entries []DirectoryEntry) (*Directory, error) {
	d := &Directory{entries: make([]DirectoryEntry, 0, len(entries))}
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return nil, err
		}
		d.entries = append(d.entries, e)
	}
	d.sortEntries()
	for i := 1; i < len(d.entries); i++ {
		if bytes.Equal(d.entries[i-1].Name, d.entries[i].Name) {
			return nil, fmt.Errorf("%w: duplicate directory entry %q", ErrInvalidInput, d.entries[i].Name)
		}
	}
	return d, nil
}

func (d *Directory) sortEntries() {
	sort.SliceStable(d.entries, func(i, j int) bool {
		return bytes.Compare(d.entries[i].sortKey(), d.entries[j].sortKey()) < 0
	})
}

// Add inserts an entry, keeping the order, and invalidates the id.
func (d *Directory) Add(e DirectoryEntry) error {
	if err := e.validate(); err != nil {
		return err
	}
	for _, existing := range d.entries {
		if bytes.Equal(existing.Name, e.Name) {
			return fmt.Errorf("%w: duplicate directory entry %q", ErrInvalidInput, e.Name)
		}
	}
	d.entries = append(d.entries, e)
	d.sortEntries()
	d.valid = false
	return nil
}

// Entries returns the entries in canonical order. Callers must not
// modify the returned slice.
func (d *Directory) Entries() []DirectoryEntry {
	return d.entries
}

// Len returns the number of entries.
func (d *Directory) Len() int { return len(d.entries) }

// Manifest returns the canonical tree bytes.
func (d *Directory) Manifest() []byte {
	return MarshalDirectory(d)
}

// ID computes the tree hash on first use and caches it until the next
// Add.
func (d *Directory) ID() ID {
	if !d.valid {
		d.id = HashObject(GitTree, d.Manifest())
		d.valid = true
	}
	return d.id
}

// SWHID returns swh:1:dir:<id>.
func (d *Directory) SWHID() SWHID {
	return NewSWHID(TypeDirectory, d.ID())
}
