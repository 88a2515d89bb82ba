package dirtree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrNoSymlinks is returned when a symlink must be read from a filesystem
// that cannot resolve links.
var ErrNoSymlinks = errors.New("filesystem does not support symlinks")

// Entry is one item of a directory listing as the composer consumes it.
type Entry struct {
	Name string
	// Path is the filesystem path, usable with the Source that listed it.
	Path string
	// Mode holds st_mode style bits: file type in 0o170000, permission
	// bits below.
	Mode uint32
	Size int64

	info os.FileInfo
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Mode&0o170000 == 0o040000 }

// IsSymlink reports whether the entry is an unresolved symlink.
func (e Entry) IsSymlink() bool { return e.Mode&0o170000 == 0o120000 }

// IsRegular reports whether the entry is a regular file.
func (e Entry) IsRegular() bool { return e.Mode&0o170000 == 0o100000 }

// unixMode converts an os.FileMode to st_mode bits.
func unixMode(fm os.FileMode) uint32 {
	m := uint32(fm.Perm())
	switch {
	case fm&os.ModeSymlink != 0:
		m |= 0o120000
	case fm.IsDir():
		m |= 0o040000
	case fm.IsRegular():
		m |= 0o100000
	}
	return m
}

// Source lists directories and reads entries from an afero filesystem.
// With followSymlinks set, symlinks are reported as their targets.
type Source struct {
	fs     afero.Fs
	follow bool
}

// NewSource wraps fs.
func NewSource(fs afero.Fs, followSymlinks bool) *Source {
	return &Source{fs: fs, follow: followSymlinks}
}

// NewOsSource returns a Source over the host filesystem.
func NewOsSource(followSymlinks bool) *Source {
	return NewSource(afero.NewOsFs(), followSymlinks)
}

// FollowSymlinks reports the symlink policy.
func (s *Source) FollowSymlinks() bool { return s.follow }

// Fs returns the underlying filesystem.
func (s *Source) Fs() afero.Fs { return s.fs }

// Stat describes the entry at path. Symlinks are resolved only when the
// source follows them.
func (s *Source) Stat(path string) (Entry, error) {
	info, err := s.lstat(path)
	if err != nil {
		return Entry{}, err
	}
	if s.follow && info.Mode()&os.ModeSymlink != 0 {
		if info, err = s.fs.Stat(path); err != nil {
			return Entry{}, fmt.Errorf("follow symlink %s: %w", path, err)
		}
	}
	return newEntry(path, info), nil
}

func (s *Source) lstat(path string) (os.FileInfo, error) {
	if l, ok := s.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return s.fs.Stat(path)
}

func newEntry(path string, info os.FileInfo) Entry {
	return Entry{
		Name: info.Name(),
		Path: path,
		Mode: unixMode(info.Mode()),
		Size: info.Size(),
		info: info,
	}
}

// ReadDir lists dir sorted by name.
func (s *Source) ReadDir(dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		path := filepath.Join(dir, info.Name())
		if info.Mode()&os.ModeSymlink != 0 && s.follow {
			resolved, err := s.fs.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("follow symlink %s: %w", path, err)
			}
			e := newEntry(path, resolved)
			e.Name = info.Name()
			entries = append(entries, e)
			continue
		}
		entries = append(entries, newEntry(path, info))
	}
	return entries, nil
}

// Open opens a regular file for reading.
func (s *Source) Open(path string) (afero.File, error) {
	return s.fs.Open(path)
}

// Readlink returns the raw target of the symlink at path.
func (s *Source) Readlink(path string) (string, error) {
	r, ok := s.fs.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("readlink %s: %w", path, ErrNoSymlinks)
	}
	target, err := r.ReadlinkIfPossible(path)
	if err != nil {
		return "", fmt.Errorf("readlink %s: %w", path, err)
	}
	return target, nil
}

// sameFile reports whether two entries are the same directory on disk.
// Filesystems without inode identity never match.
func sameFile(a, b Entry) bool {
	if a.info == nil || b.info == nil {
		return false
	}
	return os.SameFile(a.info, b.info)
}
