package object

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

// Store is a loose object store with git's layout and encoding:
// objects/ab/cdef0123..., each file the zlib-compressed envelope. Contents,
// directories, revisions and releases written here are readable by git.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// objectPath returns the filesystem path for a given id.
func (s *Store) objectPath(id ID) string {
	h := id.String()
	return filepath.Join(s.root, "objects", h[:2], h[2:])
}

// Has reports whether the store contains an object with the given id.
func (s *Store) Has(id ID) bool {
	_, err := os.Stat(s.objectPath(id))
	return err == nil
}

// Write stores data under its envelope hash and returns that id. Writes
// are atomic: data is written to a temp file and then renamed into place.
func (s *Store) Write(objType GitObjectType, data []byte) (ID, error) {
	id := HashObject(objType, data)
	if err := s.write(id, objType, data); err != nil {
		return ID{}, err
	}
	return id, nil
}

func (s *Store) write(id ID, objType GitObjectType, data []byte) error {
	// Fast path: already exists.
	if s.Has(id) {
		return nil
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(Envelope(objType, data)); err != nil {
		return fmt.Errorf("object write %s: compress: %w", id, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("object write %s: compress: %w", id, err)
	}

	dest := s.objectPath(id)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("object write mkdir: %w", err)
	}

	// Atomic write via temp + rename.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object write close: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object write rename: %w", err)
	}
	return nil
}

// Read retrieves an object by id, returning its type and manifest. The
// content is re-hashed and must match id.
func (s *Store) Read(id ID) (GitObjectType, []byte, error) {
	f, err := os.Open(s.objectPath(id))
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w", id, err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w", id, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: decompress: %w", id, err)
	}

	// Parse envelope: "type len\0content"
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("object read %s: %w: no NUL in header", id, ErrInvalidFormat)
	}
	header := raw[:nulIdx]
	content := raw[nulIdx+1:]

	sp := bytes.IndexByte(header, ' ')
	if sp < 0 {
		return "", nil, fmt.Errorf("object read %s: %w: header %q", id, ErrInvalidFormat, header)
	}
	objType := GitObjectType(header[:sp])
	length, err := strconv.Atoi(string(header[sp+1:]))
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: invalid length %q: %w", id, header[sp+1:], err)
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("object read %s: length mismatch (header=%d, actual=%d)", id, length, len(content))
	}
	if got := HashObject(objType, content); got != id {
		return "", nil, fmt.Errorf("object read %s: %w: content hashes to %s", id, ErrInvalidFormat, got)
	}
	return objType, content, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteContent stores a visible content. Absent contents have no bytes
// to store and are skipped.
func (s *Store) WriteContent(c *Content) error {
	if c.Status() != StatusVisible {
		return nil
	}
	return s.write(c.ID(), GitBlob, c.Data())
}

// WriteDirectory stores a directory tree object.
func (s *Store) WriteDirectory(d *Directory) error {
	return s.write(d.ID(), GitTree, d.Manifest())
}

// ReadDirectory reads and parses a directory.
func (s *Store) ReadDirectory(id ID) (*Directory, error) {
	objType, data, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	if objType != GitTree {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", id, objType, GitTree)
	}
	return UnmarshalDirectory(data)
}

// WriteRevision stores a revision as a commit object.
func (s *Store) WriteRevision(r *Revision) error {
	return s.write(r.ID(), GitCommit, r.Manifest())
}

// WriteRelease stores a release as a tag object.
func (s *Store) WriteRelease(r *Release) error {
	return s.write(r.ID(), GitTag, r.Manifest())
}

// WriteSnapshot stores a snapshot. git cannot read this type.
func (s *Store) WriteSnapshot(snp *Snapshot) error {
	return s.write(snp.ID(), GitSnapshot, snp.Manifest())
}
