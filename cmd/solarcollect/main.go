package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/skybright/solarcollect/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/solarcollect.sock"
	configPath     = "/etc/solarcollect.json"
)

var (
	gBasic    = "Basic:"
	gAdvanced = "Advanced:"
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "solarcollect",
		Short:         "Off-grid solar telemetry collector",
		Long:          "solarcollect samples an off-grid solar power system, tracks battery state of charge, and ships aggregated metrics to a collection endpoint.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&logLevel, "log-level", "l", logLevel, "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "Path to the daemon unix socket")
	pf.StringVar(&configPath, "config", configPath, "Path to the config file")

	cmd.AddGroup(
		&cobra.Group{ID: gBasic, Title: gBasic},
		&cobra.Group{ID: gAdvanced, Title: gAdvanced},
	)

	cmd.AddCommand(
		NewDaemonCommand(),
		NewStatusCommand(),
		NewSetCapacityCommand(),
		NewVersionCommand(),
	)

	return cmd
}

func main() {
	if err := NewCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
