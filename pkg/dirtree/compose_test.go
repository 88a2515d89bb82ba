package dirtree

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/swhid/pkg/object"
)

// Identifiers below were produced by git write-tree / git mktree over the
// same files.
const (
	singleFileTree = "095a057d4a651ec412d06b59e32e9b02871592d5"
	sampleTree     = "b34206db72ab8ace9e93019446691de281bd7d3e"
	sampleSrcTree  = "bdb8e01556a72ddb0ffed14eee63920bc0f6ed8e"
	sampleSubTree  = "b1140f98f130cab0c87eaf311a3ea27f5fdc160f"
	withLinkTree   = "7d766a2aa144ec7d5f3e1d04df4fcf8dacf8a5b2"
	followedTree   = "5e8b00c4c595de184535048f6ee08cc647193315"
	emptyDirTree   = "8f1fba79c10d406fa906050a6efc2e95c11683d0"
	sortQuirkTree  = "51d7e3c110a55e2aedbbc57ebd9b9df3712e7abc"
	emptyTree      = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
)

func writeFile(t *testing.T, fs afero.Fs, name, data string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, afero.WriteFile(fs, name, []byte(data), perm))
}

// sampleFs lays out the fixture tree under /root.
func sampleFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/root/test.txt", "test", 0o644)
	writeFile(t, fs, "/root/run.sh", "#!/bin/sh\necho hi\n", 0o755)
	writeFile(t, fs, "/root/src/main.go", "package main\n", 0o644)
	writeFile(t, fs, "/root/src/sub/x.txt", "x", 0o644)
	return fs
}

func TestComposeSingleFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/root/test.txt", "test", 0o644)

	tree, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)
	assert.Equal(t, singleFileTree, tree.Root.String())
	assert.Equal(t, "swh:1:dir:"+singleFileTree, tree.RootSWHID().String())
	assert.Equal(t, "swh:1:cnt:30d74d258442c7c65512eafab474568dd706c430", tree.Contents["test.txt"].SWHID().String())
}

func TestComposeMatchesGit(t *testing.T) {
	tree, err := NewComposer(sampleFs(t), Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	assert.Equal(t, sampleTree, tree.Root.String())
	assert.Equal(t, sampleSrcTree, tree.Directories["src"].ID().String())
	assert.Equal(t, sampleSubTree, tree.Directories["src/sub"].ID().String())
	assert.Len(t, tree.Contents, 4)
	assert.Len(t, tree.Directories, 3)

	run := tree.Directories[""].Entries()[0]
	assert.Equal(t, "run.sh", string(run.Name))
	assert.Equal(t, object.ModeExecutable, run.Perms)
}

func TestComposeSkipsHiddenAndExcluded(t *testing.T) {
	fs := sampleFs(t)
	writeFile(t, fs, "/root/.git/HEAD", "ref: refs/heads/main\n", 0o644)
	writeFile(t, fs, "/root/.env", "SECRET=1", 0o644)
	writeFile(t, fs, "/root/build/out.o", "\x7fELF", 0o644)
	writeFile(t, fs, "/root/src/node_modules_cache/a.js", "1", 0o644)

	tree, err := NewComposer(fs, Options{Exclude: []string{"build", "node_modules"}}).Compose(context.Background(), "/root")
	require.NoError(t, err)
	assert.Equal(t, sampleTree, tree.Root.String())

	_, ok := tree.Lookup(".git/HEAD")
	assert.False(t, ok)
}

func TestComposeEmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/root/test.txt", "test", 0o644)
	require.NoError(t, fs.MkdirAll("/root/empty", 0o755))

	tree, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)
	assert.Equal(t, emptyDirTree, tree.Root.String())
	assert.Equal(t, emptyTree, tree.Directories["empty"].ID().String())
}

func TestComposeDirectorySortQuirk(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/root/foo.c", "test", 0o644)
	writeFile(t, fs, "/root/foo0", "test", 0o644)
	require.NoError(t, fs.MkdirAll("/root/foo", 0o755))

	tree, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)
	assert.Equal(t, sortQuirkTree, tree.Root.String())
}

func TestComposeEmptyRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/root", 0o755))
	tree, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)
	assert.Equal(t, emptyTree, tree.Root.String())
}

func TestComposeDeterministic(t *testing.T) {
	fs := sampleFs(t)
	c := NewComposer(fs, Options{})
	first, err := c.Compose(context.Background(), "/root")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := c.Compose(context.Background(), "/root")
		require.NoError(t, err)
		assert.Equal(t, first.Root, again.Root)
	}
}

func TestComposeChangePropagatesToRoot(t *testing.T) {
	fs := sampleFs(t)
	before, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	writeFile(t, fs, "/root/src/sub/x.txt", "y", 0o644)
	after, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	assert.NotEqual(t, before.Root, after.Root)
	assert.NotEqual(t, before.Directories["src"].ID(), after.Directories["src"].ID())
	assert.Equal(t, before.Contents["test.txt"].ID(), after.Contents["test.txt"].ID())
}

func TestComposeMaxContentLength(t *testing.T) {
	fs := sampleFs(t)
	tree, err := NewComposer(fs, Options{MaxContentLength: 5}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	assert.Equal(t, sampleTree, tree.Root.String(), "absent contents keep their identifiers")
	assert.Equal(t, object.StatusAbsent, tree.Contents["run.sh"].Status())
	assert.Equal(t, object.StatusVisible, tree.Contents["test.txt"].Status())
}

func TestComposeExtraAlgorithms(t *testing.T) {
	tree, err := NewComposer(sampleFs(t), Options{Algorithms: []string{object.AlgoBlake3}}).Compose(context.Background(), "/root")
	require.NoError(t, err)
	assert.Len(t, tree.Contents["test.txt"].Hashes()[object.AlgoBlake3], 32)
}

func TestComposeRootErrors(t *testing.T) {
	fs := sampleFs(t)
	_, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root/test.txt")
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = NewComposer(fs, Options{}).Compose(context.Background(), "/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestComposeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewComposer(sampleFs(t), Options{}).Compose(ctx, "/root")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTreeObjectsPostOrder(t *testing.T) {
	tree, err := NewComposer(sampleFs(t), Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	var paths []string
	for _, o := range tree.Objects() {
		paths = append(paths, o.Path)
	}
	assert.Equal(t, []string{
		"run.sh",
		"src/main.go",
		"src/sub/x.txt",
		"src/sub",
		"src",
		"test.txt",
		"",
	}, paths)

	last := tree.Objects()[len(paths)-1]
	assert.Equal(t, tree.RootSWHID(), last.SWHID)
	assert.NotNil(t, last.Directory)
}

func TestTreeLookupAndFiles(t *testing.T) {
	tree, err := NewComposer(sampleFs(t), Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	s, ok := tree.Lookup("/src/sub/")
	require.True(t, ok)
	assert.Equal(t, "swh:1:dir:"+sampleSubTree, s.String())

	s, ok = tree.Lookup("")
	require.True(t, ok)
	assert.Equal(t, tree.RootSWHID(), s)

	files := tree.Files()
	require.Len(t, files, 4)
	assert.Equal(t, "run.sh", files[0].Path)
	assert.Equal(t, object.ModeExecutable, files[0].Perms)
	assert.Equal(t, "test.txt", files[3].Path)
}

func TestTreeSave(t *testing.T) {
	tree, err := NewComposer(sampleFs(t), Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	store := object.NewStore(t.TempDir())
	require.NoError(t, tree.Save(store))
	for _, o := range tree.Objects() {
		assert.True(t, store.Has(o.SWHID.ID), o.Path)
	}
	root, err := store.ReadDirectory(tree.Root)
	require.NoError(t, err)
	assert.Equal(t, 3, root.Len())
}

func TestTreeWritePack(t *testing.T) {
	fs := sampleFs(t)
	writeFile(t, fs, "/root/src/copy.txt", "test", 0o644)
	tree, err := NewComposer(fs, Options{}).Compose(context.Background(), "/root")
	require.NoError(t, err)

	var buf bytes.Buffer
	sum, err := tree.WritePack(&buf)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes()[buf.Len()-object.IDSize:], sum[:])

	entries, err := object.ReadPack(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, entries, len(tree.Objects())-1, "duplicate content packed once")
	assert.Equal(t, tree.Root, entries[len(entries)-1].ID())
}

// ---------------------------------------------------------------------------
// Host filesystem: symlinks
// ---------------------------------------------------------------------------

func osFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fs := afero.NewOsFs()
	writeFile(t, fs, filepath.Join(dir, "test.txt"), "test", 0o644)
	writeFile(t, fs, filepath.Join(dir, "run.sh"), "#!/bin/sh\necho hi\n", 0o755)
	writeFile(t, fs, filepath.Join(dir, "src", "main.go"), "package main\n", 0o644)
	writeFile(t, fs, filepath.Join(dir, "src", "sub", "x.txt"), "x", 0o644)
	// Permissions may have been masked by the umask.
	require.NoError(t, os.Chmod(filepath.Join(dir, "run.sh"), 0o755))
	require.NoError(t, os.Symlink("test.txt", filepath.Join(dir, "link")))
	return dir
}

func TestComposeSymlinkNotFollowed(t *testing.T) {
	dir := osFixture(t)
	tree, err := Compose(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, withLinkTree, tree.Root.String())

	link := tree.Contents["link"]
	require.NotNil(t, link)
	assert.Equal(t, []byte("test.txt"), link.Data())
}

func TestComposeSymlinkFollowed(t *testing.T) {
	dir := osFixture(t)
	tree, err := Compose(context.Background(), dir, Options{FollowSymlinks: true})
	require.NoError(t, err)
	assert.Equal(t, followedTree, tree.Root.String())
}

func TestComposeSymlinkLoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.Symlink("..", filepath.Join(dir, "a", "up")))

	_, err := Compose(context.Background(), dir, Options{FollowSymlinks: true})
	assert.ErrorIs(t, err, ErrSymlinkLoop)

	// Without following, the link is just a content.
	tree, err := Compose(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []byte(".."), tree.Contents["a/up"].Data())
}

func TestComposeSymlinkUnsupportedFs(t *testing.T) {
	src := NewSource(afero.NewMemMapFs(), false)
	_, err := src.Readlink("/x")
	assert.ErrorIs(t, err, ErrNoSymlinks)
}
