package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/skybright/solarcollect/pkg/client"
)

var (
	bold = color.New(color.Bold).SprintFunc()
)

func dayNightText(daytime bool) string {
	if daytime {
		return color.New(color.FgYellow).Sprint("day")
	}
	return color.New(color.FgBlue).Sprint("night")
}

func handleClientError(err error) error {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: solarcollect daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Have you installed it?")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or set allowNonRootAccess in the config to grant permissions to your user")
	}
	return err
}
