package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/swhid/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var asTOML bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (YAML unless --toml)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := "yaml"
			if asTOML {
				format = "toml"
			}
			out, err := config.Marshal(a.cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	show.Flags().BoolVar(&asTOML, "toml", false, "render as TOML")

	cmd.AddCommand(show)
	return cmd
}
