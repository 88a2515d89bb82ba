package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/odvcencio/swhid/pkg/archive"
	"github.com/odvcencio/swhid/pkg/dirtree"
	"github.com/odvcencio/swhid/pkg/object"
	"github.com/odvcencio/swhid/pkg/report"
)

// attachIdentify makes root itself compute identifiers of its arguments.
func attachIdentify(root *cobra.Command, a *app) {
	var (
		asArchive bool
		verify    string
	)

	root.Args = cobra.ArbitraryArgs
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		var want object.SWHID
		if verify != "" {
			if len(args) != 1 {
				return fmt.Errorf("--verify takes exactly one path")
			}
			var err error
			if want, err = object.ParseSWHID(verify); err != nil {
				return err
			}
		}

		var entries []report.Entry
		for _, arg := range args {
			got, err := a.identify(cmd, arg, asArchive)
			if err != nil {
				return err
			}
			entries = append(entries, got...)
		}
		lone := len(args) == 1 && !a.cfg.Output.Recursive
		if err := a.write(cmd, entries, lone); err != nil {
			return err
		}

		if verify != "" {
			// The identified object is the last entry: the root in
			// recursive mode, the only entry otherwise.
			got := entries[len(entries)-1].SWHID
			if got != want {
				return fmt.Errorf("identifier mismatch: computed %s, expected %s", got, want)
			}
			a.log.WithField("swhid", got.String()).Info("identifier verified")
		}
		return nil
	}

	f := root.Flags()
	f.StringSlice("exclude", nil, "skip entries whose name contains this pattern (repeatable)")
	f.String("ignore-file", "", "skip paths matching the gitignore-style rules in this file")
	f.Bool("follow-symlinks", false, "hash the targets of symbolic links instead of the links")
	f.Int64("max-content-length", 0, "mark files larger than this many bytes as absent (0: no limit)")
	f.StringSlice("hash", nil, "extra content checksum to compute, e.g. blake3 (repeatable)")
	f.BoolP("recursive", "r", false, "print every object of a directory, not only the root")
	f.BoolVar(&asArchive, "archive", false, "treat the path as an archive and identify its extracted root")
	f.String("pack", "", "write the objects of a composed directory to this git pack file")
	f.StringVar(&verify, "verify", "", "fail unless the computed identifier equals this SWHID")
}

func (a *app) identify(cmd *cobra.Command, arg string, asArchive bool) ([]report.Entry, error) {
	ctx := cmd.Context()
	log := a.log.WithField("path", arg)

	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		c, err := object.ContentFromReader(bytes.NewReader(data), int64(len(data)), a.cfg.Walk.MaxContentLength, a.cfg.Hashes.Algorithms...)
		if err != nil {
			return nil, err
		}
		return a.contentEntries(arg, c)
	}

	if asArchive {
		res, cleanup, err := archive.ExtractTemp(ctx, arg, log)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		log.WithField("format", res.Format).WithField("entries", res.Entries).Debug("archive extracted")
		return a.treeEntries(cmd, res.Root, arg)
	}

	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return a.treeEntries(cmd, arg, arg)
	}
	c, err := object.ContentFromFile(arg, a.cfg.Walk.MaxContentLength, a.cfg.Hashes.Algorithms...)
	if err != nil {
		return nil, err
	}
	return a.contentEntries(arg, c)
}

func (a *app) contentEntries(label string, c *object.Content) ([]report.Entry, error) {
	if store := a.cfg.OpenStore(); store != nil {
		if err := store.WriteContent(c); err != nil {
			return nil, err
		}
	}
	return []report.Entry{report.ContentEntry(label, c)}, nil
}

func (a *app) treeEntries(cmd *cobra.Command, dir, label string) ([]report.Entry, error) {
	opts, err := a.cfg.ComposeOptions(afero.NewOsFs(), a.log)
	if err != nil {
		return nil, err
	}
	tree, err := dirtree.Compose(cmd.Context(), dir, opts)
	if err != nil {
		return nil, err
	}
	if store := a.cfg.OpenStore(); store != nil {
		if err := tree.Save(store); err != nil {
			return nil, err
		}
		a.log.WithField("store", store.Root()).Debug("objects stored")
	}
	if a.cfg.Store.Pack != "" {
		if err := writePack(tree, a.cfg.Store.Pack); err != nil {
			return nil, err
		}
	}
	return report.TreeEntries(tree, label, a.cfg.Output.Recursive), nil
}

func writePack(tree *dirtree.Tree, name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create pack: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := tree.WritePack(f); err != nil {
		return fmt.Errorf("write pack %s: %w", name, err)
	}
	return nil
}
