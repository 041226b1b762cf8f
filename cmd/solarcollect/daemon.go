package main

import (
	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skybright/solarcollect/pkg/daemon"
	"github.com/skybright/solarcollect/pkg/sensor"
	"github.com/skybright/solarcollect/pkg/version"
)

var (
	// simulate replaces the hardware sensor source with a synthetic solar
	// day, so the daemon can run without a controller attached.
	simulate = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Hidden:  true,
		Short:   "Run the solarcollect daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			// API credentials may come from a .env file next to the binary.
			if err := godotenv.Load(); err != nil {
				logrus.Debugf("no .env file loaded: %v", err)
			}

			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("solarcollect daemon starting")

			var src sensor.Source
			if simulate {
				logrus.Warn("running with a simulated sensor source")
				src = sensor.NewSimulated()
			} else {
				// Controller and ADC drivers are deployment specific and
				// injected here; this build ships only the simulator.
				return pkgerrors.New("no sensor driver built in; run with --simulate or wire your controller driver into the daemon command")
			}

			return daemon.Run(configPath, unixSocketPath, src)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&simulate, "simulate", false, "Use a simulated sensor source instead of real hardware.")

	return cmd
}
