package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hotkeyd/internal/config"
	"hotkeyd/internal/engine"
	"hotkeyd/internal/gesture"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/logging"
	"hotkeyd/internal/mainloop"
	"hotkeyd/internal/primarykey"
	"hotkeyd/internal/registrar"
	"hotkeyd/internal/store"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file (default: platform config dir)")
	bindingFlag := fs.String("binding", "", "Binding to watch, overrides config and store")
	logLevel := fs.String("log-level", "", "Log level override (debug, info, warn, error)")
	fs.Parse(args)

	var runErr error
	onMainThread(func() {
		runErr = runDaemon(*configPath, *bindingFlag, *logLevel)
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			os.Exit(1)
		}
		os.Exit(0)
	})
	return runErr
}

func runDaemon(configPath, bindingFlag, logLevel string) error {
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	loader := config.NewLoader(configPath)
	defer loader.Close()

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg, logLevel)
	if err != nil {
		return err
	}
	defer logger.Close()
	logging.SetDefault(logger)

	for _, w := range config.ValidateConfig(cfg).Warnings() {
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	crashes := logging.NewCrashHandler("", Version, 0)
	defer crashes.Recover("main")

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open binding store: %w", err)
	}
	defer db.Close()

	binding, origin, err := resolveBinding(bindingFlag, cfg, db)
	if err != nil {
		return err
	}
	if origin != "store" {
		if err := db.SaveBinding(binding, origin); err != nil {
			logger.Warn("binding not saved", "error", err)
		}
	}
	crashes.SetBinding(binding.String())

	loop := mainloop.New()
	loop.OnPanic(func(v any, stack []byte) {
		if path, err := crashes.Report("mainloop", v, stack); err == nil {
			logger.Error("crash report written", "path", path)
		}
	})

	eng := engine.New(loop,
		engine.WithLogger(logger.WithComponent("engine").Logger),
		engine.WithTiming(cfg.Hotkey.Timing()),
		engine.WithFacility(registrar.SelectFacility(
			logger.WithComponent("registrar").Logger, cfg.Hotkey.PreferPortal)),
	)

	gestures := logger.WithComponent("gesture")
	for _, kind := range gesture.AllKinds() {
		eng.Register(kind, func(ev gesture.Event) {
			gestures.Info("gesture", "kind", ev.Kind.String(), "at", ev.Timestamp, "source", ev.Source)
		})
	}
	eng.WatchState(func(s engine.State) {
		logger.Info("state",
			"binding", bindingLabel(s),
			"monitoring", s.Monitoring,
			"key_down", s.KeyDown,
			"inert", s.Inert)
	})

	if !primarykey.Trusted() {
		logger.Warn("accessibility permission not granted, fn key edges will come from the fallback monitor only")
	}

	loader.OnChange(func(old, updated *config.Config) {
		if updated.Hotkey.Timing() != old.Hotkey.Timing() {
			eng.UpdateTiming(updated.Hotkey.Timing())
		}
		if updated.Hotkey.Binding == old.Hotkey.Binding {
			return
		}
		next, ok, err := updated.Hotkey.ParsedBinding()
		if err != nil || !ok {
			return
		}
		crashes.SetBinding(next.String())
		eng.Start(next)
		if err := db.SaveBinding(next, "config"); err != nil {
			logger.Warn("binding not saved", "error", err)
		}
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("config hot reload disabled", "path", loader.Path(), "error", err)
	}
	go func() {
		for err := range loader.Errors() {
			logger.Warn("config reload rejected", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan error, 1)
	go func() {
		defer crashes.Recover("mainloop")
		loopDone <- loop.Run(context.Background())
	}()

	logger.Info("hotkeyd started",
		"version", Version,
		"binding", binding.String(),
		"binding_origin", origin,
		"config", loader.Path(),
		"store", cfg.Store.Path)
	eng.Start(binding)

	<-ctx.Done()
	logger.Info("shutting down")

	eng.Stop()
	loop.Flush()
	loop.Close()
	<-loopDone
	return nil
}

func newLogger(cfg *config.Config, levelOverride string) (*logging.Logger, error) {
	lc, err := cfg.Logging.ToLogging()
	if err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}
	if levelOverride != "" {
		level, err := logging.ParseLevel(levelOverride)
		if err != nil {
			return nil, err
		}
		lc.Level = level
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

type bindingStore interface {
	LoadBinding() (keybind.Binding, bool, error)
}

// resolveBinding picks the binding from the flag, the config file, the store
// and finally the fn key, in that order. origin names where it came from.
func resolveBinding(flagSpec string, cfg *config.Config, db bindingStore) (b keybind.Binding, origin string, err error) {
	if flagSpec != "" {
		b, err = keybind.ParseBinding(flagSpec)
		if err != nil {
			return keybind.Binding{}, "", fmt.Errorf("-binding: %w", err)
		}
		return b, "flag", nil
	}
	if b, ok, err := cfg.Hotkey.ParsedBinding(); err != nil {
		return keybind.Binding{}, "", fmt.Errorf("config binding: %w", err)
	} else if ok {
		return b, "config", nil
	}
	if db != nil {
		b, ok, err := db.LoadBinding()
		if err != nil {
			return keybind.Binding{}, "", err
		}
		if ok {
			return b, "store", nil
		}
	}
	return keybind.Dedicated(), "default", nil
}

func bindingLabel(s engine.State) string {
	if !s.HasBinding {
		return "none"
	}
	return s.Binding.String()
}
