package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/odvcencio/swhid/pkg/logger"
)

// Result describes a finished extraction.
type Result struct {
	Format Format
	// Dir is the directory the archive was extracted into.
	Dir string
	// Root is the directory to compose: a single top-level directory,
	// the directory named after the archive stem, or Dir itself.
	Root    string
	Entries int
}

// Extractor unpacks archives read from, and written to, one afero
// filesystem.
type Extractor struct {
	fs  afero.Fs
	log logrus.FieldLogger
}

// NewExtractor returns an Extractor over fs. A nil log discards.
func NewExtractor(fs afero.Fs, log logrus.FieldLogger) *Extractor {
	return &Extractor{fs: fs, log: logger.OrDiscard(log)}
}

// ExtractTemp extracts the host file archivePath into a fresh temporary
// directory. The returned cleanup removes it.
func ExtractTemp(ctx context.Context, archivePath string, log logrus.FieldLogger) (*Result, func(), error) {
	if _, _, err := DetectFormat(archivePath); err != nil {
		return nil, func() {}, err
	}
	dir, err := os.MkdirTemp("", "swhid-archive-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("extract: staging dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	res, err := NewExtractor(afero.NewOsFs(), log).Extract(ctx, archivePath, dir)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return res, cleanup, nil
}

// Extract unpacks archivePath into dest, which is created if needed, and
// resolves the root to compose.
func (x *Extractor) Extract(ctx context.Context, archivePath, dest string) (*Result, error) {
	format, stem, err := DetectFormat(archivePath)
	if err != nil {
		return nil, err
	}
	f, err := x.fs.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	defer f.Close()

	if err := x.fs.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	w := &writer{fs: x.fs, dest: dest, log: x.log, checked: make(map[string]bool), regular: make(map[string]bool)}
	if format == FormatZip {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		err = w.extractZip(ctx, f, info.Size())
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", archivePath, err)
		}
	} else {
		r, err := decompressor(format, f)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", archivePath, err)
		}
		err = w.extractTar(ctx, r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", archivePath, err)
		}
	}

	root, err := ResolveRoot(x.fs, dest, stem)
	if err != nil {
		return nil, err
	}
	x.log.WithFields(logrus.Fields{
		"archive": archivePath,
		"format":  string(format),
		"entries": w.entries,
		"root":    root,
	}).Debug("extracted archive")
	return &Result{Format: format, Dir: dest, Root: root, Entries: w.entries}, nil
}

// writer materializes archive entries under dest.
type writer struct {
	fs      afero.Fs
	dest    string
	log     logrus.FieldLogger
	entries int
	// checked caches parent directories verified not to be symlinks.
	checked map[string]bool
	// regular holds the regular files extracted so far; only they may
	// be hard link targets.
	regular map[string]bool
}

// target maps an archive entry name to a path under dest. Absolute names
// and names escaping dest are rejected.
func (w *writer) target(name string) (string, string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", "", fmt.Errorf("%w: absolute entry name %q", ErrArchiveFormat, name)
	}
	rel := path.Clean(name)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", "", fmt.Errorf("%w: entry %q escapes the extraction directory", ErrArchiveFormat, name)
	}
	if rel == "." {
		return "", "", nil
	}
	if err := w.checkParents(rel); err != nil {
		return "", "", err
	}
	return filepath.Join(w.dest, filepath.FromSlash(rel)), rel, nil
}

// checkParents refuses to write through a previously extracted symlink.
func (w *writer) checkParents(rel string) error {
	dir := path.Dir(rel)
	for dir != "." && dir != "/" {
		if w.checked[dir] {
			return nil
		}
		p := filepath.Join(w.dest, filepath.FromSlash(dir))
		if l, ok := w.fs.(afero.Lstater); ok {
			info, _, err := l.LstatIfPossible(p)
			if err == nil && info.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("%w: entry %q is inside symlink %q", ErrArchiveFormat, rel, dir)
			}
			if err == nil {
				w.checked[dir] = true
			}
		}
		dir = path.Dir(dir)
	}
	return nil
}

func (w *writer) mkdir(p string, perm os.FileMode) error {
	return w.fs.MkdirAll(p, perm.Perm()|0o700)
}

func (w *writer) writeFile(p string, r io.Reader, perm os.FileMode) error {
	if l, ok := w.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(p)
		if err == nil && info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: refusing to write through symlink %q", ErrArchiveFormat, p)
		}
	}
	if err := w.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	perm = perm.Perm() | 0o600
	out, err := w.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile is subject to the umask; the exec bits matter for hashing.
	return w.fs.Chmod(p, perm)
}

func (w *writer) symlink(linkTarget, p string) error {
	linker, ok := w.fs.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: linkTarget, New: p, Err: afero.ErrNoSymlink}
	}
	if err := w.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return linker.SymlinkIfPossible(linkTarget, p)
}

func (w *writer) extractTar(ctx context.Context, r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrArchiveFormat, err)
		}
		p, rel, err := w.target(hdr.Name)
		if err != nil {
			return err
		}
		if p == "" {
			continue
		}
		mode := hdr.FileInfo().Mode()

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = w.mkdir(p, mode)
		case tar.TypeReg:
			err = w.writeFile(p, tr, mode)
			w.regular[rel] = err == nil
		case tar.TypeSymlink:
			err = w.symlink(hdr.Linkname, p)
		case tar.TypeLink:
			err = w.hardlink(hdr.Linkname, p, mode)
			w.regular[rel] = err == nil
		default:
			w.log.WithFields(logrus.Fields{"entry": rel, "type": string(hdr.Typeflag)}).Debug("skipping archive entry")
			continue
		}
		if err != nil {
			return fmt.Errorf("entry %q: %w", rel, err)
		}
		w.entries++
	}
}

// hardlink copies the already extracted regular file linkName to p.
func (w *writer) hardlink(linkName, p string, mode os.FileMode) error {
	src, srcRel, err := w.target(linkName)
	if err != nil {
		return err
	}
	if src == "" {
		return fmt.Errorf("%w: hard link to the archive root", ErrArchiveFormat)
	}
	if !w.regular[srcRel] {
		return fmt.Errorf("%w: hard link target %q is not a regular file of the archive", ErrArchiveFormat, linkName)
	}
	in, err := w.fs.Open(src)
	if err != nil {
		return fmt.Errorf("%w: hard link target %q: %v", ErrArchiveFormat, linkName, err)
	}
	defer in.Close()
	return w.writeFile(p, in, mode)
}

func (w *writer) extractZip(ctx context.Context, r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveFormat, err)
	}
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, rel, err := w.target(f.Name)
		if err != nil {
			return err
		}
		if p == "" {
			continue
		}
		if err := w.extractZipEntry(f, p); err != nil {
			return fmt.Errorf("entry %q: %w", rel, err)
		}
		w.entries++
	}
	return nil
}

func (w *writer) extractZipEntry(f *zip.File, p string) error {
	mode := f.Mode()
	if mode.IsDir() || strings.HasSuffix(f.Name, "/") {
		return w.mkdir(p, mode)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveFormat, err)
	}
	defer rc.Close()

	if mode&os.ModeSymlink != 0 {
		target, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrArchiveFormat, err)
		}
		return w.symlink(string(target), p)
	}
	return w.writeFile(p, rc, mode)
}
