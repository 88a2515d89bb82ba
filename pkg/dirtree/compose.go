// Package dirtree computes content and directory identifiers for a
// filesystem tree.
//
// Composition runs in two passes over the tree. The collect pass walks
// depth-first, hashing every file (or, for unfollowed symlinks, the raw
// link target) into a Content. The compose pass then walks post-order:
// every subdirectory is hashed before its parent, whose entry for it is
// read from a per-path memo filled earlier in the same pass.
package dirtree

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/odvcencio/swhid/pkg/logger"
	"github.com/odvcencio/swhid/pkg/object"
)

var (
	// ErrNotDirectory is returned when the composition root is not a
	// directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrSymlinkLoop is returned when following symlinks revisits a
	// directory that is already being walked.
	ErrSymlinkLoop = errors.New("symlink loop")
)

// Options control a composition.
type Options struct {
	// Exclude holds substring patterns matched against entry names.
	Exclude []string
	// Ignore drops entries by path, gitignore style. Nil keeps all.
	Ignore         *IgnoreRules
	FollowSymlinks bool
	// MaxContentLength turns larger files into absent contents. Zero
	// means no ceiling.
	MaxContentLength int64
	// Algorithms are computed for every content in addition to the
	// default checksums.
	Algorithms []string
	Logger     logrus.FieldLogger
}

// Composer builds Trees from a filesystem. It is not safe for concurrent
// use; each Compose call owns its own memo.
type Composer struct {
	src     *Source
	exclude *Excluder
	opts    Options
	log     logrus.FieldLogger
}

// NewComposer returns a Composer reading from fs.
func NewComposer(fs afero.Fs, opts Options) *Composer {
	return &Composer{
		src:     NewSource(fs, opts.FollowSymlinks),
		exclude: NewExcluder(opts.Exclude),
		opts:    opts,
		log:     logger.OrDiscard(opts.Logger),
	}
}

// Compose hashes the directory at dir on the host filesystem.
func Compose(ctx context.Context, dir string, opts Options) (*Tree, error) {
	return NewComposer(afero.NewOsFs(), opts).Compose(ctx, dir)
}

// child is one kept entry of a directory listing.
type child struct {
	name  string
	typ   object.EntryType
	perms uint32
}

// walk holds the state of one Compose call.
type walk struct {
	listings map[string][]child
	tree     *Tree
}

// Compose hashes the tree rooted at root. The root itself is always
// resolved, even when it is a symlink and symlinks are not followed.
func (c *Composer) Compose(ctx context.Context, root string) (*Tree, error) {
	info, err := c.src.Fs().Stat(root)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("compose %s: %w", root, ErrNotDirectory)
	}
	rootEntry := newEntry(root, info)

	w := &walk{
		listings: make(map[string][]child),
		tree:     newTree(),
	}
	if err := c.collect(ctx, w, rootEntry, "", nil); err != nil {
		return nil, err
	}
	id, err := c.compose(ctx, w, "")
	if err != nil {
		return nil, err
	}
	w.tree.Root = id
	c.log.WithFields(logrus.Fields{
		"root":        root,
		"swhid":       w.tree.RootSWHID().String(),
		"contents":    len(w.tree.Contents),
		"directories": len(w.tree.Directories),
	}).Debug("composed directory tree")
	return w.tree, nil
}

// collect is the first pass. rel is the slash-separated path of dir
// relative to the root; ancestors are the directories being walked.
func (c *Composer) collect(ctx context.Context, w *walk, dir Entry, rel string, ancestors []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, a := range ancestors {
		if sameFile(a, dir) {
			return fmt.Errorf("collect %s: %w", dir.Path, ErrSymlinkLoop)
		}
	}
	ancestors = append(ancestors, dir)

	entries, err := c.src.ReadDir(dir.Path)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	listing := make([]child, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.exclude.Excluded([]byte(e.Name)) {
			c.log.WithField("path", path.Join(rel, e.Name)).Debug("excluded")
			continue
		}
		childRel := path.Join(rel, e.Name)
		if c.opts.Ignore.Ignored(childRel, e.IsDir()) {
			c.log.WithField("path", childRel).Debug("ignored")
			continue
		}

		switch {
		case e.IsDir():
			if err := c.collect(ctx, w, e, childRel, ancestors); err != nil {
				return err
			}
			listing = append(listing, child{name: e.Name, typ: object.EntryDirectory, perms: object.ModeDirectory})

		case e.IsSymlink():
			target, err := c.src.Readlink(e.Path)
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			content, err := object.NewContent([]byte(target), c.opts.Algorithms...)
			if err != nil {
				return fmt.Errorf("collect %s: %w", e.Path, err)
			}
			w.tree.Contents[childRel] = content
			listing = append(listing, child{name: e.Name, typ: object.EntrySymlink, perms: object.ModeSymlink})

		case e.IsRegular():
			content, err := c.readContent(e)
			if err != nil {
				return err
			}
			w.tree.Contents[childRel] = content
			listing = append(listing, child{name: e.Name, typ: object.EntryFile, perms: object.PermsFromMode(e.Mode)})

		default:
			c.log.WithFields(logrus.Fields{"path": childRel, "mode": fmt.Sprintf("%o", e.Mode)}).Warn("skipping special file")
			continue
		}
		c.log.WithField("path", childRel).Debug("collected")
	}
	w.listings[rel] = listing
	return nil
}

func (c *Composer) readContent(e Entry) (*object.Content, error) {
	f, err := c.src.Open(e.Path)
	if err != nil {
		return nil, fmt.Errorf("collect: open %s: %w", e.Path, err)
	}
	defer f.Close()

	content, err := object.ContentFromReader(f, e.Size, c.opts.MaxContentLength, c.opts.Algorithms...)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", e.Path, err)
	}
	if content.Status() == object.StatusAbsent {
		c.log.WithFields(logrus.Fields{"path": e.Path, "length": e.Size}).Info("content over length ceiling, marked absent")
	}
	return content, nil
}

// compose is the second pass: it hashes the directory at rel after all
// of its subdirectories, memoizing each directory id by path.
func (c *Composer) compose(ctx context.Context, w *walk, rel string) (object.ID, error) {
	if err := ctx.Err(); err != nil {
		return object.ID{}, err
	}
	if d, ok := w.tree.Directories[rel]; ok {
		return d.ID(), nil
	}

	listing := w.listings[rel]
	entries := make([]object.DirectoryEntry, 0, len(listing))
	for _, ch := range listing {
		childRel := path.Join(rel, ch.name)
		var target object.ID
		if ch.typ == object.EntryDirectory {
			id, err := c.compose(ctx, w, childRel)
			if err != nil {
				return object.ID{}, err
			}
			target = id
		} else {
			content, ok := w.tree.Contents[childRel]
			if !ok {
				return object.ID{}, fmt.Errorf("compose %s: no content collected", childRel)
			}
			target = content.ID()
		}
		entries = append(entries, object.DirectoryEntry{
			Name:   []byte(ch.name),
			Type:   ch.typ,
			Perms:  ch.perms,
			Target: target,
		})
	}

	d, err := object.NewDirectory(entries)
	if err != nil {
		return object.ID{}, fmt.Errorf("compose %q: %w", rel, err)
	}
	w.tree.addDirectory(rel, d)
	return d.ID(), nil
}
