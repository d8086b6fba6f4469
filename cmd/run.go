package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"pedalkeys/internal/api"
	"pedalkeys/internal/cadence"
	"pedalkeys/internal/config"
	"pedalkeys/internal/decision"
	"pedalkeys/internal/device"
	"pedalkeys/internal/errs"
	"pedalkeys/internal/hotkey"
	"pedalkeys/internal/input"
	"pedalkeys/internal/network"
	"pedalkeys/internal/osutils"
	"pedalkeys/internal/overlay"
	"pedalkeys/internal/pipeline"
	"pedalkeys/internal/tray"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// eventBuffer is the capacity of the device event channel
const eventBuffer = 64

type runOptions struct {
	dryRun        bool
	console       bool
	noTray        bool
	noControllers bool
	trainer       string
	profile       string
	external      string
	webPort       int
}

func bindRunFlags(cmd *cobra.Command, o *runOptions) {
	f := cmd.Flags()
	f.BoolVar(&o.dryRun, "dry-run", false, "log key events instead of sending them")
	f.BoolVar(&o.console, "console", false, "print a status line whenever it changes")
	f.BoolVar(&o.noTray, "no-tray", false, "do not show the system tray icon")
	f.BoolVar(&o.noControllers, "no-controllers", false, "do not look for Zwift Play controllers")
	f.StringVar(&o.trainer, "trainer", "", "trainer BLE address (overrides config)")
	f.StringVar(&o.profile, "profile", "", `trainer profile, "ftms" or "cps" (overrides config)`)
	f.StringVar(&o.external, "external", "", "external cadence sensor address, enables it (overrides config)")
	f.IntVar(&o.webPort, "web-port", 0, "browser overlay port, 0 disables (overrides config)")
}

func newRunCommand(root *rootOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the devices and start sending keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, root, o)
		},
	}
	bindRunFlags(cmd, o)
	return cmd
}

// apply copies flags the user set over the loaded configuration
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("trainer") {
		cfg.Trainer.Address = o.trainer
	}
	if f.Changed("profile") {
		cfg.Trainer.Profile = o.profile
	}
	if f.Changed("external") {
		cfg.External.Enabled = o.external != ""
		cfg.External.Address = o.external
	}
	if f.Changed("web-port") {
		cfg.Overlay.WebPort = o.webPort
	}
	if o.noControllers {
		cfg.Controllers.Enabled = false
	}
	if o.noTray {
		cfg.Overlay.Tray = false
	}
}

func loadConfig(path string) (*config.Manager, error) {
	cfgMgr, err := config.NewManager(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	if err := cfgMgr.Load(); err != nil {
		return nil, err
	}
	return cfgMgr, nil
}

func runService(cmd *cobra.Command, root *rootOptions, o *runOptions) error {
	cfgMgr, err := loadConfig(root.configPath)
	if err != nil {
		return err
	}
	cfg := cfgMgr.Get()
	o.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w (config file: %s)", err, cfgMgr.Path())
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := decision.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	var injector input.Injector
	if o.dryRun {
		injector = input.NewLogInjector()
		o.console = true
		log.Info("Input: Dry run, keys are logged only")
	} else {
		injector, err = input.NewInjector()
		if err != nil {
			return err
		}
		if runtime.GOOS == "windows" && !osutils.IsElevated() {
			log.Warn("Input: Not elevated, games running as administrator will not receive keys")
		}
	}
	defer injector.Close()

	transport, err := device.NewBLE()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backoffCfg := device.BackoffConfig{
		Initial:    config.Seconds(cfg.Reconnect.InitialSeconds),
		Max:        config.Seconds(cfg.Reconnect.MaxSeconds),
		RetryLimit: cfg.Reconnect.RetryLimit,
		Jitter:     device.DefaultBackoff().Jitter,
	}

	events := make(chan device.Event, eventBuffer)
	var wg sync.WaitGroup
	spawn := func(fn func(context.Context, chan<- device.Event)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx, events)
		}()
	}

	spawn(device.NewSupervisor(transport, device.TrainerStream(cfg.Trainer.Address, cfg.Trainer.Profile, cfg.Trainer.ZeroCadenceWatts), backoffCfg).Run)
	if cfg.External.Enabled {
		spawn(device.NewSupervisor(transport, device.ExternalCadenceStream(cfg.External.Address), backoffCfg).Run)
	}
	if cfg.Controllers.Enabled {
		finder := device.NewFinder(transport, device.FinderConfig{
			NameFilter:  cfg.Controllers.NameFilter,
			Addresses:   cfg.Controllers.Addresses,
			Max:         cfg.Controllers.Max,
			ScanTimeout: config.Seconds(cfg.Controllers.ScanSeconds),
			Rescan:      config.Seconds(cfg.Controllers.RescanSeconds),
		}, backoffCfg)
		spawn(finder.Run)
	}

	board := overlay.NewBoard()
	p := pipeline.New(pipeline.Options{
		Engine:   engine,
		Resolver: cadence.NewResolver(cfg.External.Enabled, cfg.StaleAfter()),
		Emitter:  input.NewEmitter(injector),
		Board:    board,
	})

	var sinks []overlay.Sink
	if o.console {
		sinks = append(sinks, overlay.NewConsole(os.Stdout))
	}
	if cfg.Overlay.UDPEnabled {
		sender := network.NewOverlaySender(cfg.Overlay.UDPHost, cfg.Overlay.UDPPort)
		if err := sender.Start(); err != nil {
			log.Warnf("UDP Sender: Disabled: %v", err)
		} else {
			defer sender.Stop()
			sinks = append(sinks, sender)
		}
	}
	if cfg.Overlay.WebPort > 0 {
		srv := api.NewServer(board, version)
		sinks = append(sinks, srv)
		if runtime.GOOS == "windows" {
			go func() {
				if err := osutils.EnsureFirewallRule(cfg.Overlay.WebPort); err != nil {
					log.Warnf("Firewall: %v", err)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx, cfg.Overlay.WebPort); err != nil {
				log.Errorf("API: Server stopped: %v", err)
			}
		}()
	}

	var t *tray.Tray
	if cfg.Overlay.Tray {
		t = tray.New("pedalkeys", cancel)
		t.AddMenuItem("Pause / Resume", p.TogglePause)
		sinks = append(sinks, t)
	}

	if cfg.Hotkey.Pause != "" {
		hk := hotkey.NewManager()
		defer hk.Stop()
		if _, err := hk.Register(cfg.Hotkey.Pause, p.TogglePause); err != nil {
			log.Warnf("Hotkey: %v", err)
		} else if err := hk.Start(); err != nil {
			if errors.Is(err, errs.ErrUnsupportedPlatform) {
				log.Debugf("Hotkey: %v", err)
			} else {
				log.Warnf("Hotkey: Pause hotkey unavailable: %v", err)
			}
		} else {
			log.Infof("Hotkey: %s toggles pause", cfg.Hotkey.Pause)
		}
	}

	reporter := overlay.NewReporter(board, cfg.RefreshInterval(), sinks...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()

	pipeErr := make(chan error, 1)
	go func() {
		pipeErr <- p.Run(ctx, events)
		cancel()
	}()

	th := engine.Thresholds()
	log.WithFields(log.Fields{
		"trainer":     cfg.Trainer.Address,
		"profile":     cfg.Trainer.Profile,
		"external":    cfg.External.Enabled,
		"controllers": cfg.Controllers.Enabled,
		"rpm":         fmt.Sprintf("brake<%g coast<=%g forward<=%g boost", th.Lower, th.Upper, th.Boost),
	}).Info("pedalkeys running. Press Ctrl+C to stop.")

	if t != nil {
		go func() {
			<-ctx.Done()
			t.Stop()
		}()
		t.Run()
		cancel()
	}

	err = <-pipeErr
	log.Info("Shutting down...")
	wg.Wait()
	return err
}
