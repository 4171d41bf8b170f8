package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lightbox/automation"
	"lightbox/config"
	"lightbox/device"
	"lightbox/engine"
	"lightbox/frame"
	"lightbox/logging"
	"lightbox/params"
	"lightbox/playlist"
)

func main() {
	cfile := flag.String("config", config.DefaultFile, "path to the config file")
	devType := flag.String("device", "", "override the configured device type")
	term := flag.Bool("term", false, "force the terminal preview device")
	flag.Parse()

	cfg, err := config.ReadConfig(*cfile)
	if err != nil {
		slog.Error("reading config", "error", err)
		os.Exit(2)
	}

	if *term {
		cfg.Device.Type = "TERM"
	} else if *devType != "" {
		cfg.Device.Type = *devType
	}

	// With the terminal preview owning the screen, log lines are held
	// in memory and flushed on exit.
	usesTerm := cfg.Device.Type == "TERM"
	if err := logging.Init(usesTerm, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File); err != nil {
		slog.Error("initialising logging", "error", err)
		os.Exit(2)
	}
	defer logging.Close()

	if err := run(cfg, *cfile, usesTerm); err != nil {
		slog.Error("startup failed", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, cfile string, usesTerm bool) error {
	store := params.NewStore()
	if err := store.Apply(cfg.Parameters.ToSet()); err != nil {
		return err
	}

	devices := device.NewManager()
	dev, err := devices.Switch(cfg.Device.Type, device.Config(cfg.Device.Config))
	if err != nil {
		return err
	}
	defer devices.Close()

	w, h := dev.Size()
	library := frame.NewLibrary(cfg.MediaDir, automation.Resolver(w, h))

	var queue *playlist.Playlist
	if cfg.PlaylistFile != "" {
		queue, err = playlist.Load(cfg.PlaylistFile)
		if err != nil {
			return err
		}
	}

	var dimmer *engine.NightDimmer
	if cfg.NightDimmer.Enabled {
		dimmer = engine.NewNightDimmer(cfg.NightDimmer.Latitude, cfg.NightDimmer.Longitude, cfg.NightDimmer.Cap)
	}

	eng, err := engine.New(engine.Config{
		Store:   store,
		Devices: devices,
		Sources: library,
		Queue:   queue,
		Dimmer:  dimmer,
	})
	if err != nil {
		return err
	}
	eng.Start()
	defer eng.Shutdown()

	// Config edits apply without restart where that is safe: live
	// parameters always, the output device only when the type changed.
	applyConfig := func(next *config.Config) {
		if err := store.Apply(next.Parameters.ToSet()); err != nil {
			slog.Error("applying reloaded parameters", "error", err)
		}
		if next.Device.Type != cfg.Device.Type {
			if err := eng.SwitchDevice(next.Device.Type, device.Config(next.Device.Config)); err != nil {
				slog.Error("switching device from reloaded config", "error", err)
			}
		}
		cfg = next
	}
	stopWatch, err := config.Watch(cfile, applyConfig)
	if err != nil {
		return err
	}
	defer stopWatch()

	if queue != nil && queue.Len() > 0 {
		if err := eng.PlayQueue(); err != nil {
			slog.Error("starting playlist", "error", err)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	var termDone <-chan struct{}
	if t, ok := dev.(*device.Term); ok && usesTerm {
		termDone = t.Done()
	}

	for {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				next, err := config.ReadConfig(cfile)
				if err != nil {
					slog.Error("config reload on SIGHUP skipped", "error", err)
					continue
				}
				slog.Info("reloading config on SIGHUP")
				applyConfig(next)
				continue
			}
			slog.Info("shutting down", "signal", sig.String())
		case <-termDone:
			slog.Info("shutting down, preview closed")
		}
		break
	}

	if usesTerm {
		logging.Release(os.Stderr)
	}
	return nil
}
