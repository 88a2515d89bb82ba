package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/swhid/pkg/object"
	"github.com/odvcencio/swhid/pkg/report"
)

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <swhid>...",
		Short: "Validate identifiers and print their object type",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]report.Entry, 0, len(args))
			for _, arg := range args {
				s, err := object.ParseSWHID(arg)
				if err != nil {
					return err
				}
				entries = append(entries, report.Explain(s))
			}
			return report.Write(cmd.OutOrStdout(), a.format, entries)
		},
	}
}
