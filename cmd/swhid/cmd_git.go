package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/swhid/pkg/gitsource"
	"github.com/odvcencio/swhid/pkg/report"
)

func newSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <git-repo>",
		Short: "Identify the snapshot of every reference in a git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := gitsource.Open(args[0], a.log)
			if err != nil {
				return err
			}
			snp, err := r.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if store := a.cfg.OpenStore(); store != nil {
				if err := store.WriteSnapshot(snp); err != nil {
					return err
				}
			}
			a.log.WithField("branches", snp.Len()).Debug("snapshot built")
			return a.write(cmd, []report.Entry{{SWHID: snp.SWHID(), Path: args[0]}}, true)
		},
	}
}

func newRevisionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revision <git-repo> [rev]",
		Short: "Identify a commit (HEAD by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := gitsource.Open(args[0], a.log)
			if err != nil {
				return err
			}
			spec := "HEAD"
			if len(args) == 2 {
				spec = args[1]
			}
			rev, err := r.Revision(spec)
			if err != nil {
				return err
			}
			if store := a.cfg.OpenStore(); store != nil {
				if err := store.WriteRevision(rev); err != nil {
					return err
				}
			}
			return a.write(cmd, []report.Entry{{SWHID: rev.SWHID(), Path: spec}}, true)
		},
	}
}

func newReleaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "release <git-repo> <tag>",
		Short: "Identify an annotated tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := gitsource.Open(args[0], a.log)
			if err != nil {
				return err
			}
			rel, err := r.Release(args[1])
			if err != nil {
				return err
			}
			if store := a.cfg.OpenStore(); store != nil {
				if err := store.WriteRelease(rel); err != nil {
					return err
				}
			}
			return a.write(cmd, []report.Entry{{SWHID: rel.SWHID(), Path: args[1]}}, true)
		},
	}
}
