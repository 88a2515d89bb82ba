package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitobject "github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/swhid/pkg/dirtree"
	"github.com/odvcencio/swhid/pkg/object"
)

// The commit and tag below are byte-identical to what git itself writes
// for the same inputs; their ids were checked with git cat-file.
const (
	commitID = "0620d4adfd0bbf53a2ae948b1616ba26ac22934b"
	tagID    = "4979b04176a13dcb501beb369c219ea0bbbc0154"
)

func signature(name, email string, unix int64, offsetMinutes int) *gitobject.Signature {
	return &gitobject.Signature{
		Name:  name,
		Email: email,
		When:  time.Unix(unix, 0).In(time.FixedZone("", offsetMinutes*60)),
	}
}

type fixture struct {
	dir    string
	repo   *git.Repository
	commit plumbing.Hash
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("test"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("test.txt")
	require.NoError(t, err)
	commit, err := wt.Commit("Initial commit\n", &git.CommitOptions{
		Author:    signature("John Doe", "john@example.com", 1234567890, 120),
		Committer: signature("Jane Smith", "jane@example.com", 1234567891, -90),
	})
	require.NoError(t, err)

	_, err = repo.CreateTag("v1.0.0", commit, &git.CreateTagOptions{
		Tagger:  signature("Jane Smith", "jane@example.com", 1234567900, 0),
		Message: "Release v1.0.0",
	})
	require.NoError(t, err)
	_, err = repo.CreateTag("light", commit, nil)
	require.NoError(t, err)

	return &fixture{dir: dir, repo: repo, commit: commit}
}

func TestRevisionMatchesCommitHash(t *testing.T) {
	f := newFixture(t)
	r, err := Open(f.dir, nil)
	require.NoError(t, err)

	rev, err := r.Revision("")
	require.NoError(t, err)
	assert.Equal(t, f.commit.String(), rev.ID().String())
	assert.Equal(t, commitID, rev.ID().String())
	assert.Equal(t, "swh:1:rev:"+commitID, rev.SWHID().String())

	c, err := f.repo.CommitObject(f.commit)
	require.NoError(t, err)
	assert.Equal(t, c.TreeHash.String(), rev.Directory.String())
}

func TestRevisionDirectoryMatchesComposer(t *testing.T) {
	f := newFixture(t)
	r := New(f.repo, nil)
	rev, err := r.Revision("master")
	require.NoError(t, err)

	tree, err := dirtree.Compose(context.Background(), f.dir, dirtree.Options{})
	require.NoError(t, err)
	assert.Equal(t, rev.DirectorySWHID(), tree.RootSWHID(), ".git is hidden and skipped")
}

func TestComposerMatchesGoGitTree(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	files := map[string]string{
		"README.md":        "# readme\n",
		"foo.c":            "int main;\n",
		"foo/bar.txt":      "bar\n",
		"foo0":             "zero\n",
		"cmd/tool/main.go": "package main\n",
		"cmd/tool/util.go": "package main\n\nfunc util() {}\n",
		"scripts/build.sh": "#!/bin/sh\nmake\n",
		"docs/a/b/c/d.txt": "deep\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	require.NoError(t, os.Chmod(filepath.Join(dir, "scripts", "build.sh"), 0o755))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	h, err := wt.Commit("tree\n", &git.CommitOptions{Author: signature("A", "a@x", 1, 0)})
	require.NoError(t, err)
	c, err := repo.CommitObject(h)
	require.NoError(t, err)

	tree, err := dirtree.Compose(context.Background(), dir, dirtree.Options{})
	require.NoError(t, err)
	assert.Equal(t, c.TreeHash.String(), tree.Root.String())
}

func TestReleaseMatchesTagHash(t *testing.T) {
	f := newFixture(t)
	r := New(f.repo, nil)

	rel, err := r.Release("v1.0.0")
	require.NoError(t, err)
	ref, err := f.repo.Tag("v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, ref.Hash().String(), rel.ID().String())
	assert.Equal(t, tagID, rel.ID().String())

	target, ok := rel.TargetSWHID()
	require.True(t, ok)
	assert.Equal(t, "swh:1:rev:"+f.commit.String(), target.String())

	_, err = r.Release("light")
	assert.ErrorIs(t, err, ErrNotAnnotated)
	_, err = r.Release("missing")
	assert.Error(t, err)
}

func TestRefsAndSnapshot(t *testing.T) {
	f := newFixture(t)
	ghost := plumbing.NewHash("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.NoError(t, f.repo.Storer.SetReference(plumbing.NewHashReference("refs/heads/ghost", ghost)))

	r := New(f.repo, nil)
	refs, err := r.Refs(context.Background())
	require.NoError(t, err)

	byName := make(map[string]Ref)
	for _, ref := range refs {
		byName[string(ref.Name)] = ref
	}
	require.Contains(t, byName, "HEAD")
	assert.Equal(t, "refs/heads/master", string(byName["HEAD"].Symbolic))
	assert.Equal(t, object.TypeRevision, byName["refs/heads/master"].Kind)
	assert.Equal(t, object.TypeRelease, byName["refs/tags/v1.0.0"].Kind)
	assert.Equal(t, object.TypeRevision, byName["refs/tags/light"].Kind)
	assert.True(t, byName["refs/heads/ghost"].Dangling)

	snp, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(refs), snp.Len())

	want, err := object.NewSnapshot(map[string]*object.SnapshotBranch{
		"HEAD":              object.NewAlias([]byte("refs/heads/master")),
		"refs/heads/master": object.NewBranch(object.TypeRevision, object.ID(f.commit)),
		"refs/heads/ghost":  nil,
		"refs/tags/light":   object.NewBranch(object.TypeRevision, object.ID(f.commit)),
		"refs/tags/v1.0.0":  object.NewBranch(object.TypeRelease, object.MustParseSWHID("swh:1:rel:"+tagID).ID),
	})
	require.NoError(t, err)
	assert.Equal(t, want.ID(), snp.ID())
}

func TestRefsCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(f.repo, nil).Refs(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenMissingRepository(t *testing.T) {
	_, err := Open(t.TempDir(), nil)
	assert.ErrorIs(t, err, git.ErrRepositoryNotExists)
}
