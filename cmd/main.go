// pedalkeys - Pedal to Play
// Turns smart trainer cadence and Zwift Play controllers into keyboard input
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type rootOptions struct {
	configPath string
	debug      bool
}

func main() {
	opts := &rootOptions{}
	run := &runOptions{}

	cmd := &cobra.Command{
		Use:   "pedalkeys",
		Short: "Pedal a smart trainer to drive keyboard games",
		Long: `pedalkeys reads cadence from a smart trainer (or a dedicated cadence
sensor) and button presses from Zwift Play controllers over Bluetooth LE,
and holds keyboard keys accordingly:

  above boost rpm   forward + boost
  above upper rpm   forward
  lower..upper rpm  coast (nothing)
  below lower rpm   brake

Run without a subcommand to start riding.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, opts, run)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: per-OS location)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "verbose logging")
	bindRunFlags(cmd, run)

	cmd.AddCommand(
		newRunCommand(opts),
		newScanCommand(opts),
		newKeysCommand(),
		newConfigCommand(opts),
		newWatchCommand(),
		newAutostartCommand(opts),
	)

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
