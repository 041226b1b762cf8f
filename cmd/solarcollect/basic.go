package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skybright/solarcollect/pkg/client"
	"github.com/skybright/solarcollect/pkg/version"
)

func apiClient() *client.Client {
	return client.NewClient(unixSocketPath)
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of the collector",
		Long:    "Get battery state of charge, day/night state, and upload queue status from the running daemon.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := apiClient()

			status, err := c.GetStatus()
			if err != nil {
				return handleClientError(err)
			}

			state, err := c.GetBatteryState()
			if err != nil {
				return handleClientError(err)
			}

			cmd.Println(bold("Battery:"))
			cmd.Printf("  State of charge: %s\n", bold(fmt.Sprintf("%.2f%%", status.PercentCharged)))
			cmd.Printf("  Remaining capacity: %.2f / %.2f Ah\n", status.RemainingCapacityAh, status.CapacityAh)
			cmd.Printf("  Correction factors: charge %.3f, discharge %.3f\n",
				state.ChargingCorrectionFactor, state.DischargingCorrectionFactor)

			cmd.Println()
			cmd.Println(bold("Collector:"))
			cmd.Printf("  Day/night state: %s\n", dayNightText(status.Daytime))
			cmd.Printf("  Queued uploads: %d\n", status.QueuedUploads)
			cmd.Printf("  Daemon version: %s\n", status.Version)

			return nil
		},
	}
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		GroupID: gBasic,
		Short:   "Show client and daemon versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("Client version: %s (%s)\n", version.Version, version.GitCommit)

			ret, err := apiClient().GetVersion()
			if err != nil {
				logrus.Debugf("failed to get daemon version: %v", err)
				cmd.Println("Daemon version: unavailable (is the daemon running?)")
				return nil
			}
			cmd.Printf("Daemon version: %s\n", ret)
			return nil
		},
	}
}

func NewSetCapacityCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set-capacity <amp-hours>",
		GroupID: gBasic,
		Short:   "Overwrite the battery's remaining capacity",
		Long:    "Overwrite the persisted remaining capacity, e.g. after replacing or manually charging the bank. The value is clamped to [0, capacity].",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ah, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid amp-hours value: %v", err)
			}

			ret, err := apiClient().SetRemainingCapacity(ah)
			if err != nil {
				return handleClientError(err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			logrus.Infof("successfully set remaining capacity to %.2f Ah", ah)
			return nil
		},
	}
}
