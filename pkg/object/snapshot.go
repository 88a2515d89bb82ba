package object

import (
	"fmt"
	"sort"
)

// BranchKind is the target kind of a snapshot branch: one of the five
// object types, or an alias to another branch.
type BranchKind uint8

const (
	BranchContent   BranchKind = BranchKind(TypeContent)
	BranchDirectory BranchKind = BranchKind(TypeDirectory)
	BranchRevision  BranchKind = BranchKind(TypeRevision)
	BranchRelease   BranchKind = BranchKind(TypeRelease)
	BranchSnapshot  BranchKind = BranchKind(TypeSnapshot)
	BranchAlias     BranchKind = BranchSnapshot + 1
)

// ObjectType returns the object type a concrete branch points to; ok is
// false for aliases.
func (k BranchKind) ObjectType() (ObjectType, bool) {
	t := ObjectType(k)
	return t, t.Valid()
}

func (k BranchKind) String() string {
	if k == BranchAlias {
		return "alias"
	}
	if t, ok := k.ObjectType(); ok {
		return t.Name()
	}
	return fmt.Sprintf("BranchKind(%d)", uint8(k))
}

// ParseBranchKind accepts "content" … "snapshot" and "alias".
func ParseBranchKind(s string) (BranchKind, error) {
	if s == "alias" {
		return BranchAlias, nil
	}
	t, err := ParseObjectName(s)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown branch kind %q", ErrInvalidInput, s)
	}
	return BranchKind(t), nil
}

// SnapshotBranch is the target of a named reference. For aliases Target
// holds the name of the aliased branch; otherwise a 20-byte id.
type SnapshotBranch struct {
	Target []byte
	Kind   BranchKind
}

// NewBranch builds a branch to a concrete object.
func NewBranch(kind ObjectType, target ID) *SnapshotBranch {
	return &SnapshotBranch{Target: append([]byte(nil), target[:]...), Kind: BranchKind(kind)}
}

// NewAlias builds an alias branch naming another branch.
func NewAlias(targetName []byte) *SnapshotBranch {
	return &SnapshotBranch{Target: append([]byte(nil), targetName...), Kind: BranchAlias}
}

func (b *SnapshotBranch) validate(name string) error {
	if b.Kind == BranchAlias {
		return nil
	}
	if _, ok := b.Kind.ObjectType(); !ok {
		return fmt.Errorf("%w: branch %q has invalid kind %v", ErrInvalidInput, name, b.Kind)
	}
	if len(b.Target) != IDSize {
		return fmt.Errorf("%w: branch %q target is %d bytes, want %d", ErrInvalidInput, name, len(b.Target), IDSize)
	}
	return nil
}

// SWHID returns the identifier of the branch target. ok is false for
// aliases, which point at names rather than objects.
func (b *SnapshotBranch) SWHID() (SWHID, bool) {
	t, ok := b.Kind.ObjectType()
	if !ok || len(b.Target) != IDSize {
		return SWHID{}, false
	}
	var id ID
	copy(id[:], b.Target)
	return NewSWHID(t, id), true
}

// Snapshot maps branch names to branches; a nil branch is dangling. The
// id is recomputed after every change. The zero value is an empty
// snapshot.
type Snapshot struct {
	branches    map[string]*SnapshotBranch
	rawManifest []byte
	id          ID
	hashed      bool
}

// NewSnapshot validates and copies branches, keyed by raw name bytes.
func NewSnapshot(branches map[string]*SnapshotBranch) (*Snapshot, error) {
	s := &Snapshot{branches: make(map[string]*SnapshotBranch, len(branches))}
	for name, b := range branches {
		if b != nil {
			if err := b.validate(name); err != nil {
				return nil, err
			}
			b = &SnapshotBranch{Target: append([]byte(nil), b.Target...), Kind: b.Kind}
		}
		s.branches[name] = b
	}
	s.rehash()
	return s, nil
}

func (s *Snapshot) rehash() {
	s.rawManifest = nil
	s.id = HashObject(GitSnapshot, MarshalSnapshot(s))
	s.hashed = true
}

// AddBranch inserts or replaces a branch. A nil branch records a
// dangling name.
func (s *Snapshot) AddBranch(name []byte, b *SnapshotBranch) error {
	if b != nil {
		if err := b.validate(string(name)); err != nil {
			return err
		}
		b = &SnapshotBranch{Target: append([]byte(nil), b.Target...), Kind: b.Kind}
	}
	if s.branches == nil {
		s.branches = make(map[string]*SnapshotBranch)
	}
	s.branches[string(name)] = b
	s.rehash()
	return nil
}

// RemoveBranch deletes a branch; removing an unknown name is a no-op
// that still leaves the id valid.
func (s *Snapshot) RemoveBranch(name []byte) {
	if _, ok := s.branches[string(name)]; !ok {
		return
	}
	delete(s.branches, string(name))
	s.rehash()
}

// Branch returns the branch under name. ok reports presence; a dangling
// branch is present with a nil value.
func (s *Snapshot) Branch(name []byte) (*SnapshotBranch, bool) {
	b, ok := s.branches[string(name)]
	return b, ok
}

// Names returns the branch names in manifest order.
func (s *Snapshot) Names() [][]byte {
	keys := make([]string, 0, len(s.branches))
	for k := range s.branches {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out
}

// Len returns the number of branches, dangling ones included.
func (s *Snapshot) Len() int { return len(s.branches) }

// WithRawManifest overrides the id with the hash of manifest until the
// next change to the branch set.
func (s *Snapshot) WithRawManifest(manifest []byte) {
	s.rawManifest = append([]byte(nil), manifest...)
	s.id = HashObject(GitSnapshot, s.rawManifest)
	s.hashed = true
}

// Manifest returns the bytes the id is computed from.
func (s *Snapshot) Manifest() []byte {
	if s.rawManifest != nil {
		return append([]byte(nil), s.rawManifest...)
	}
	return MarshalSnapshot(s)
}

// ID returns the snapshot id.
func (s *Snapshot) ID() ID {
	if !s.hashed {
		s.rehash()
	}
	return s.id
}

// SWHID returns swh:1:snp:<id>.
func (s *Snapshot) SWHID() SWHID { return NewSWHID(TypeSnapshot, s.ID()) }
