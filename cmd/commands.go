package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"pedalkeys/internal/autostart"
	"pedalkeys/internal/config"
	"pedalkeys/internal/controller"
	"pedalkeys/internal/device"
	"pedalkeys/internal/input"
	"pedalkeys/internal/network"
	"pedalkeys/internal/overlay"
	"pedalkeys/internal/protocol"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newScanCommand(root *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List nearby Bluetooth LE devices",
		Long: `scan listens for advertisements and prints every device seen, so the
trainer, cadence sensor and controller addresses can be copied into the
config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := config.DefaultConfig().Controllers.NameFilter
			if cfgMgr, err := loadConfig(root.configPath); err == nil {
				filter = cfgMgr.Get().Controllers.NameFilter
			}

			transport, err := device.NewBLE()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			fmt.Printf("Scanning for %s...\n", timeout)
			ads, err := transport.Scan(ctx, timeout)
			if err != nil {
				return err
			}
			sort.Slice(ads, func(i, j int) bool { return ads[i].RSSI > ads[j].RSSI })

			fmt.Println("Devices:")
			fmt.Println("--------")
			for _, ad := range ads {
				name := ad.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Printf("%-20s %4d dBm  %s", ad.Address, ad.RSSI, name)
				if filter != "" && strings.Contains(ad.Name, filter) {
					fmt.Print("  <- controller")
				}
				fmt.Println()
			}
			if len(ads) == 0 {
				fmt.Println("No devices found. Is the trainer awake?")
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "how long to listen")
	return cmd
}

func newKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List key and controller button names usable in the config",
		Run: func(cmd *cobra.Command, args []string) {
			names := make([]string, 0, len(input.KnownKeys()))
			for _, k := range input.KnownKeys() {
				names = append(names, string(k))
			}
			fmt.Println("Keys:")
			fmt.Println("  " + strings.Join(names, " "))

			fmt.Println("Buttons:")
			var buttons []string
			for _, b := range controller.AllButtons {
				buttons = append(buttons, string(b))
			}
			fmt.Println("  " + strings.Join(buttons, " "))
		},
	}
}

func newConfigCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, err := config.NewManager(root.configPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfgMgr.Path()); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgMgr.Path())
			}
			if err := cfgMgr.Save(); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\nSet trainer.address (see `pedalkeys scan`) before riding.\n", cfgMgr.Path())
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(cfgMgr.Get(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			if err := cfgMgr.Get().Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "\nWarning: %v\n", err)
			}
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, err := config.NewManager(root.configPath)
			if err != nil {
				return err
			}
			fmt.Println(cfgMgr.Path())
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, pathCmd)
	return cmd
}

func newWatchCommand() *cobra.Command {
	var (
		addr string
		udp  bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the status of a running pedalkeys",
		Long: `watch connects to the /ws status feed of a running pedalkeys and prints
each change. With --udp it listens for overlay datagrams instead, which is
what the overlay window receives.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			console := overlay.NewConsole(os.Stdout)
			if udp {
				if !cmd.Flags().Changed("addr") {
					addr = net.JoinHostPort("127.0.0.1", fmt.Sprint(protocol.DefaultOverlayPort))
				}
				return watchUDP(ctx, addr)
			}

			if err := network.CheckHealth(ctx, addr); err != nil {
				log.Warnf("WS Client: %s not answering yet: %v", addr, err)
			}
			client := network.NewStatusClient(addr)
			client.OnHello = func(v string) {
				log.Infof("WS Client: Connected to pedalkeys %s", v)
			}
			client.OnStatus = func(p protocol.StatusPayload) {
				_ = console.Publish(statusFromPayload(p))
			}
			return client.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:49556", "address of the pedalkeys web server, or the UDP listen address with --udp")
	cmd.Flags().BoolVar(&udp, "udp", false, "listen for overlay datagrams")
	return cmd
}

func watchUDP(ctx context.Context, addr string) error {
	r, err := network.ListenOverlay(addr)
	if err != nil {
		return err
	}
	defer r.Close()

	var last protocol.OverlayPacket
	r.OnPacket = func(p protocol.OverlayPacket) {
		if p == last {
			return
		}
		last = p
		fmt.Printf("Cadence: %5.1f rpm (%s)\n", p.Cadence, p.Source)
	}
	return r.Run(ctx)
}

func statusFromPayload(p protocol.StatusPayload) overlay.Status {
	return overlay.Status{
		Cadence:    p.Cadence,
		Source:     p.Source,
		Band:       p.Band,
		PowerWatts: p.PowerWatts,
		Keys:       p.Keys,
		Paused:     p.Paused,
		Health:     p.Devices,
		At:         time.UnixMilli(p.Timestamp),
	}
}

func newAutostartCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Start pedalkeys at login",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Launch `pedalkeys run` at login",
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := autostart.DefaultEntry(root.configPath)
				if err != nil {
					return err
				}
				if err := autostart.Enable(e); err != nil {
					return err
				}
				fmt.Println("Autostart enabled:", e.CommandLine())
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop launching at login",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := autostart.Disable(); err != nil {
					return err
				}
				fmt.Println("Autostart disabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether autostart is enabled",
			Run: func(cmd *cobra.Command, args []string) {
				if autostart.IsEnabled() {
					fmt.Println("enabled")
				} else {
					fmt.Println("disabled")
				}
			},
		},
	)
	return cmd
}
