// Package gitsource reads references and objects from git repositories
// and turns them into snapshots, revisions and releases.
package gitsource

import (
	"context"
	"fmt"

	"github.com/odvcencio/swhid/pkg/object"
)

// Ref is one reference as a VCS reports it. Exactly one of the following
// holds: Symbolic is set (an alias to another reference), Dangling is
// true (the target could not be resolved), or Target and Kind name an
// object.
type Ref struct {
	Name     []byte
	Target   object.ID
	Kind     object.ObjectType
	Symbolic []byte
	Dangling bool
}

// RefSource yields the references of a repository.
type RefSource interface {
	Refs(ctx context.Context) ([]Ref, error)
}

// StaticRefs is a fixed reference list.
type StaticRefs []Ref

// Refs returns a copy of the list.
func (s StaticRefs) Refs(context.Context) ([]Ref, error) {
	return append([]Ref(nil), s...), nil
}

// BuildSnapshot maps refs to branches: symbolic references become
// aliases carrying the raw target name, dangling ones become nil
// branches, and resolved ones point at their object.
func BuildSnapshot(refs []Ref) (*object.Snapshot, error) {
	branches := make(map[string]*object.SnapshotBranch, len(refs))
	for _, ref := range refs {
		name := string(ref.Name)
		if _, dup := branches[name]; dup {
			return nil, fmt.Errorf("build snapshot: %w: duplicate reference %q", object.ErrInvalidInput, name)
		}
		switch {
		case ref.Symbolic != nil:
			branches[name] = object.NewAlias(ref.Symbolic)
		case ref.Dangling:
			branches[name] = nil
		default:
			if !ref.Kind.Valid() || ref.Kind == object.TypeSnapshot {
				return nil, fmt.Errorf("build snapshot: %w: reference %q has target kind %v", object.ErrInvalidInput, name, ref.Kind)
			}
			branches[name] = object.NewBranch(ref.Kind, ref.Target)
		}
	}
	snp, err := object.NewSnapshot(branches)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	return snp, nil
}

// Snapshot reads every reference of src and builds its snapshot.
func Snapshot(ctx context.Context, src RefSource) (*object.Snapshot, error) {
	refs, err := src.Refs(ctx)
	if err != nil {
		return nil, err
	}
	return BuildSnapshot(refs)
}
