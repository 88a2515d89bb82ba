package object

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// VerifySummary reports the outcome of Store.Verify.
type VerifySummary struct {
	Objects int
	// Corrupt lists objects that failed to decode or whose content no
	// longer hashes to their name.
	Corrupt []ID
}

// List returns the ids of every object in the store, sorted.
func (s *Store) List() ([]ID, error) {
	objectsDir := filepath.Join(s.root, "objects")
	fanout, err := os.ReadDir(objectsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list objects: %w", err)
	}

	var ids []ID
	for _, dir := range fanout {
		prefix := dir.Name()
		if !dir.IsDir() || !isHexComponent(prefix, 2) {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(objectsDir, prefix))
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, e := range entries {
			if e.IsDir() || !isHexComponent(e.Name(), 2*IDSize-2) {
				continue
			}
			id, err := ParseID(prefix + e.Name())
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func isHexComponent(s string, n int) bool {
	if len(s) != n {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil && isLowerHex(s)
}

// Verify re-reads every object. Corrupt objects are collected rather than
// returned as errors; only failures to list the store are.
func (s *Store) Verify() (*VerifySummary, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	summary := &VerifySummary{}
	for _, id := range ids {
		summary.Objects++
		if _, _, err := s.Read(id); err != nil {
			summary.Corrupt = append(summary.Corrupt, id)
		}
	}
	return summary, nil
}

// Reachable returns every object reachable from roots, roots included,
// in the order first reached. Directories lead to their entries,
// revisions to their directory and parents, releases to their target.
// Snapshots are leaves. A missing object is an error wrapping
// os.ErrNotExist.
func (s *Store) Reachable(roots ...ID) ([]ID, error) {
	seen := make(map[ID]bool)
	var out []ID
	stack := make([]ID, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)

		objType, data, err := s.Read(id)
		if err != nil {
			return nil, fmt.Errorf("reachable: %w", err)
		}
		refs, err := referencedIDs(objType, data)
		if err != nil {
			return nil, fmt.Errorf("reachable %s (%s): %w", id, objType, err)
		}
		for i := len(refs) - 1; i >= 0; i-- {
			if !seen[refs[i]] {
				stack = append(stack, refs[i])
			}
		}
	}
	return out, nil
}

func referencedIDs(objType GitObjectType, data []byte) ([]ID, error) {
	switch objType {
	case GitBlob, GitSnapshot:
		return nil, nil
	case GitTree:
		d, err := UnmarshalDirectory(data)
		if err != nil {
			return nil, err
		}
		refs := make([]ID, 0, d.Len())
		for _, e := range d.Entries() {
			refs = append(refs, e.Target)
		}
		return refs, nil
	case GitCommit:
		r, err := UnmarshalRevision(data)
		if err != nil {
			return nil, err
		}
		return append([]ID{r.Directory}, r.Parents...), nil
	case GitTag:
		r, err := UnmarshalRelease(data)
		if err != nil {
			return nil, err
		}
		if r.Target == nil {
			return nil, nil
		}
		return []ID{*r.Target}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidObjectType, objType)
}

// WritePack writes the objects reachable from roots as a git pack and
// returns its checksum. Snapshots have no git type and are left out.
func (s *Store) WritePack(w io.Writer, roots ...ID) (ID, error) {
	ids, err := s.Reachable(roots...)
	if err != nil {
		return ID{}, err
	}
	type entry struct {
		typ  GitObjectType
		data []byte
	}
	var entries []entry
	for _, id := range ids {
		objType, data, err := s.Read(id)
		if err != nil {
			return ID{}, err
		}
		if objType == GitSnapshot {
			continue
		}
		entries = append(entries, entry{objType, data})
	}

	pw, err := NewPackWriter(w, uint32(len(entries)))
	if err != nil {
		return ID{}, err
	}
	for _, e := range entries {
		if err := pw.WriteObject(e.typ, e.data); err != nil {
			return ID{}, err
		}
	}
	return pw.Finish()
}
