package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/swhid/pkg/object"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the object store given by --store",
	}
	cmd.AddCommand(newStoreVerifyCmd(a))
	cmd.AddCommand(newStorePackCmd(a))
	return cmd
}

func (a *app) store() (*object.Store, error) {
	s := a.cfg.OpenStore()
	if s == nil {
		return nil, fmt.Errorf("no object store configured: pass --store or set store.path")
	}
	return s, nil
}

func newStoreVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash every stored object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store()
			if err != nil {
				return err
			}
			summary, err := s.Verify()
			if err != nil {
				return err
			}
			for _, id := range summary.Corrupt {
				fmt.Fprintf(cmd.OutOrStdout(), "corrupt %s\n", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d objects, %d corrupt\n", summary.Objects, len(summary.Corrupt))
			if len(summary.Corrupt) > 0 {
				return fmt.Errorf("store %s has %d corrupt objects", s.Root(), len(summary.Corrupt))
			}
			return nil
		},
	}
}

func newStorePackCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pack <swhid>...",
		Short: "Write the stored objects reachable from the given identifiers as a git pack",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.store()
			if err != nil {
				return err
			}
			roots := make([]object.ID, 0, len(args))
			for _, arg := range args {
				id, err := object.ParseSWHID(arg)
				if err != nil {
					return err
				}
				roots = append(roots, id.ID)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create pack: %w", err)
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			sum, err := s.WritePack(f, roots...)
			if err != nil {
				return err
			}
			a.log.WithField("pack", output).WithField("checksum", sum.String()).Info("pack written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.pack", "pack file to write")
	return cmd
}
