package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"

	"github.com/odvcencio/swhid/pkg/logger"
	"github.com/odvcencio/swhid/pkg/object"
)

// ErrNotAnnotated is returned when a release is requested for a
// lightweight tag.
var ErrNotAnnotated = errors.New("tag is not annotated")

// Repository is a git repository opened through go-git.
type Repository struct {
	repo *git.Repository
	log  logrus.FieldLogger
}

// Open opens the repository at path, which may be a working tree or a
// bare repository. Parent directories are searched for a .git.
func Open(path string, log logrus.FieldLogger) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return New(repo, log), nil
}

// New wraps an already opened go-git repository.
func New(repo *git.Repository, log logrus.FieldLogger) *Repository {
	return &Repository{repo: repo, log: logger.OrDiscard(log)}
}

// Refs lists every reference, HEAD included, sorted by name.
func (r *Repository) Refs(ctx context.Context) ([]Ref, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := Ref{Name: []byte(ref.Name().String())}
		if ref.Type() == plumbing.SymbolicReference {
			out.Symbolic = []byte(ref.Target().String())
			refs = append(refs, out)
			return nil
		}

		kind, err := r.kindOf(ref.Hash())
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			r.log.WithField("ref", ref.Name().String()).Warn("reference target missing, recording as dangling")
			out.Dangling = true
			refs = append(refs, out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reference %s: %w", ref.Name(), err)
		}
		out.Target = object.ID(ref.Hash())
		out.Kind = kind
		refs = append(refs, out)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool { return string(refs[i].Name) < string(refs[j].Name) })
	return refs, nil
}

func (r *Repository) kindOf(h plumbing.Hash) (object.ObjectType, error) {
	obj, err := r.repo.Storer.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return 0, err
	}
	switch obj.Type() {
	case plumbing.CommitObject:
		return object.TypeRevision, nil
	case plumbing.TagObject:
		return object.TypeRelease, nil
	case plumbing.TreeObject:
		return object.TypeDirectory, nil
	case plumbing.BlobObject:
		return object.TypeContent, nil
	default:
		return 0, fmt.Errorf("%w: git object %s has type %s", object.ErrInvalidObjectType, h, obj.Type())
	}
}

// Snapshot builds the snapshot of every reference.
func (r *Repository) Snapshot(ctx context.Context) (*object.Snapshot, error) {
	return Snapshot(ctx, r)
}

// raw returns the body of the object h, which must have type t.
func (r *Repository) raw(t plumbing.ObjectType, h plumbing.Hash) ([]byte, error) {
	obj, err := r.repo.Storer.EncodedObject(t, h)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", t, h, err)
	}
	rd, err := obj.Reader()
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", t, h, err)
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", t, h, err)
	}
	return data, nil
}

// Revision decodes the commit rev resolves to ("HEAD" when empty). The
// revision id equals the commit id.
func (r *Repository) Revision(rev string) (*object.Revision, error) {
	if rev == "" {
		rev = "HEAD"
	}
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	return r.RevisionByID(object.ID(*h))
}

// RevisionByID decodes the commit with the given id.
func (r *Repository) RevisionByID(id object.ID) (*object.Revision, error) {
	data, err := r.raw(plumbing.CommitObject, plumbing.Hash(id))
	if err != nil {
		return nil, err
	}
	return RevisionFromCommit(data)
}

// Release decodes the annotated tag called name. The release id equals
// the tag object id.
func (r *Repository) Release(name string) (*object.Release, error) {
	ref, err := r.repo.Tag(name)
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", name, err)
	}
	kind, err := r.kindOf(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", name, err)
	}
	if kind != object.TypeRelease {
		return nil, fmt.Errorf("tag %s: %w", name, ErrNotAnnotated)
	}
	data, err := r.raw(plumbing.TagObject, ref.Hash())
	if err != nil {
		return nil, err
	}
	return ReleaseFromTag(data)
}

// RevisionFromCommit decodes a raw git commit body.
func RevisionFromCommit(data []byte) (*object.Revision, error) {
	return object.UnmarshalRevision(data)
}

// ReleaseFromTag decodes a raw git tag body.
func ReleaseFromTag(data []byte) (*object.Release, error) {
	return object.UnmarshalRelease(data)
}
