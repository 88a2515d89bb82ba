package object

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWriteRead(t *testing.T) {
	s := NewStore(t.TempDir())

	id, err := s.Write(GitBlob, []byte("hello world\n"))
	require.NoError(t, err)
	assert.Equal(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad", id.String())
	assert.True(t, s.Has(id))

	objType, data, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, GitBlob, objType)
	assert.Equal(t, "hello world\n", string(data))

	// Second write is a no-op.
	again, err := s.Write(GitBlob, []byte("hello world\n"))
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestStoreUsesGitLayout(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	id, err := s.Write(GitBlob, []byte("test"))
	require.NoError(t, err)

	path := filepath.Join(root, "objects", "30", "d74d258442c7c65512eafab474568dd706c430")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := zlib.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob 4\x00test"), raw)
	assert.Equal(t, HashContent([]byte("test")), id)
}

func TestStoreReadDetectsCorruption(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	id := HashContent([]byte("original"))

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(Envelope(GitBlob, []byte("tampered")))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := s.objectPath(id)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, _, err = s.Read(id)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestStoreReadMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	_, _, err := s.Read(idOf(1))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, s.Has(idOf(1)))
}

func TestStoreTypedObjects(t *testing.T) {
	s := NewStore(t.TempDir())

	c, err := NewContent([]byte("package main\n"))
	require.NoError(t, err)
	require.NoError(t, s.WriteContent(c))
	assert.True(t, s.Has(c.ID()))

	d, err := NewDirectory([]DirectoryEntry{fileEntry("main.go", c.ID())})
	require.NoError(t, err)
	require.NoError(t, s.WriteDirectory(d))

	back, err := s.ReadDirectory(d.ID())
	require.NoError(t, err)
	assert.Equal(t, d.Manifest(), back.Manifest())

	_, err = s.ReadDirectory(c.ID())
	assert.Error(t, err, "reading a blob as a directory must fail")

	rev, err := NewRevision(Revision{Directory: d.ID(), Message: []byte("init\n")})
	require.NoError(t, err)
	require.NoError(t, s.WriteRevision(rev))
	objType, data, err := s.Read(rev.ID())
	require.NoError(t, err)
	assert.Equal(t, GitCommit, objType)
	assert.Equal(t, rev.Manifest(), data)

	target := rev.ID()
	rel, err := NewRelease(Release{Name: []byte("v1"), Target: &target, TargetType: TypeRevision})
	require.NoError(t, err)
	require.NoError(t, s.WriteRelease(rel))
	assert.True(t, s.Has(rel.ID()))

	snp, err := NewSnapshot(map[string]*SnapshotBranch{"main": NewBranch(TypeRevision, rev.ID())})
	require.NoError(t, err)
	require.NoError(t, s.WriteSnapshot(snp))
	objType, _, err = s.Read(snp.ID())
	require.NoError(t, err)
	assert.Equal(t, GitSnapshot, objType)
}

func TestStoreSkipsAbsentContent(t *testing.T) {
	s := NewStore(t.TempDir())
	data := bytes.Repeat([]byte("a"), 100)
	c, err := ContentFromReader(bytes.NewReader(data), 100, 10)
	require.NoError(t, err)
	require.NoError(t, s.WriteContent(c))
	assert.False(t, s.Has(c.ID()))
}
