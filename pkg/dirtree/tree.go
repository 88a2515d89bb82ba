package dirtree

import (
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/odvcencio/swhid/pkg/object"
)

// Tree is the result of a composition: every content and directory of
// the walked subtree, keyed by slash-separated path relative to the root.
// The root directory is keyed by "".
type Tree struct {
	Root        object.ID
	Contents    map[string]*object.Content
	Directories map[string]*object.Directory
}

func newTree() *Tree {
	return &Tree{
		Contents:    make(map[string]*object.Content),
		Directories: make(map[string]*object.Directory),
	}
}

func (t *Tree) addDirectory(rel string, d *object.Directory) {
	t.Directories[rel] = d
}

// RootSWHID returns the identifier of the root directory.
func (t *Tree) RootSWHID() object.SWHID {
	return object.NewSWHID(object.TypeDirectory, t.Root)
}

// Object is one node of a Tree.
type Object struct {
	Path  string
	SWHID object.SWHID
	// Exactly one of Content and Directory is set.
	Content   *object.Content
	Directory *object.Directory
}

// Objects lists every node in post-order: the children of a directory,
// in canonical entry order, precede the directory itself. The root is
// last.
func (t *Tree) Objects() []Object {
	out := make([]Object, 0, len(t.Contents)+len(t.Directories))
	t.appendObjects(&out, "")
	return out
}

func (t *Tree) appendObjects(out *[]Object, rel string) {
	d, ok := t.Directories[rel]
	if !ok {
		return
	}
	for _, e := range d.Entries() {
		childRel := path.Join(rel, string(e.Name))
		if e.Type == object.EntryDirectory {
			t.appendObjects(out, childRel)
			continue
		}
		if c, ok := t.Contents[childRel]; ok {
			*out = append(*out, Object{Path: childRel, SWHID: c.SWHID(), Content: c})
		}
	}
	*out = append(*out, Object{Path: rel, SWHID: d.SWHID(), Directory: d})
}

// Lookup returns the identifier of the node at rel.
func (t *Tree) Lookup(rel string) (object.SWHID, bool) {
	rel = cleanRel(rel)
	if d, ok := t.Directories[rel]; ok {
		return d.SWHID(), true
	}
	if c, ok := t.Contents[rel]; ok {
		return c.SWHID(), true
	}
	return object.SWHID{}, false
}

func cleanRel(rel string) string {
	rel = path.Clean("/" + rel)
	if rel == "/" {
		return ""
	}
	return rel[1:]
}

// FileEntry is a single file or symlink of a flattened tree.
type FileEntry struct {
	Path  string
	Perms uint32
	ID    object.ID
}

// Files flattens the tree into its non-directory entries, sorted by
// path.
func (t *Tree) Files() []FileEntry {
	var result []FileEntry
	for rel, d := range t.Directories {
		for _, e := range d.Entries() {
			if e.Type == object.EntryDirectory {
				continue
			}
			result = append(result, FileEntry{
				Path:  path.Join(rel, string(e.Name)),
				Perms: e.Perms,
				ID:    e.Target,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}

// Save writes every object of the tree to store. Absent contents are
// skipped.
func (t *Tree) Save(store *object.Store) error {
	for _, o := range t.Objects() {
		var err error
		if o.Content != nil {
			err = store.WriteContent(o.Content)
		} else {
			err = store.WriteDirectory(o.Directory)
		}
		if err != nil {
			return fmt.Errorf("save %q: %w", o.Path, err)
		}
	}
	return nil
}

// WritePack writes every distinct object of the tree, in post-order, as
// a git pack to w and returns the pack checksum. Absent contents are
// skipped.
func (t *Tree) WritePack(w io.Writer) (object.ID, error) {
	type packed struct {
		typ  object.GitObjectType
		data []byte
	}
	seen := make(map[object.ID]bool)
	var objs []packed
	for _, o := range t.Objects() {
		id := o.SWHID.ID
		if seen[id] {
			continue
		}
		switch {
		case o.Content != nil && o.Content.Status() == object.StatusVisible:
			objs = append(objs, packed{object.GitBlob, o.Content.Data()})
		case o.Directory != nil:
			objs = append(objs, packed{object.GitTree, o.Directory.Manifest()})
		default:
			continue
		}
		seen[id] = true
	}

	pw, err := object.NewPackWriter(w, uint32(len(objs)))
	if err != nil {
		return object.ID{}, err
	}
	for _, o := range objs {
		if err := pw.WriteObject(o.typ, o.data); err != nil {
			return object.ID{}, err
		}
	}
	return pw.Finish()
}
