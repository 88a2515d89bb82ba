package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odvcencio/swhid/pkg/config"
	"github.com/odvcencio/swhid/pkg/logger"
	"github.com/odvcencio/swhid/pkg/report"
)

// app is the state every command shares once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logrus.Logger
	format     report.Format
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Logging.LoggerOptions())
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.format = cfg, log, format
	return nil
}

// write renders entries in the configured format. When lone is set, text
// output is the bare identifier, without kind or path columns.
func (a *app) write(cmd *cobra.Command, entries []report.Entry, lone bool) error {
	if lone && a.format == report.FormatText {
		bare := make([]report.Entry, len(entries))
		for i, e := range entries {
			bare[i] = report.Entry{SWHID: e.SWHID}
		}
		entries = bare
	}
	return report.Write(cmd.OutOrStdout(), a.format, entries)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "swhid [path|-]...",
		Short: "Compute persistent identifiers of software artifacts",
		Long: "Compute SWHIDs of files, directories, archives and git objects.\n" +
			"With no argument the current directory is identified; \"-\" reads a content from stdin.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/swhid/config.yaml)")
	pf.String("format", config.DefaultOutputFormat, "output format: text, json, yaml or cbor")
	pf.String("store", "", "write computed objects to this git-layout object directory")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	pf.String("log-format", config.DefaultLogFormat, "log format: text or json")

	attachIdentify(root, a)

	root.AddCommand(newVersionCmd())
	root.AddCommand(newParseCmd(a))
	root.AddCommand(newSnapshotCmd(a))
	root.AddCommand(newRevisionCmd(a))
	root.AddCommand(newReleaseCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newStoreCmd(a))
	return root
}
