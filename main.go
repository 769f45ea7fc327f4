package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rook-computer/confetti/internal/app"
	"github.com/rook-computer/confetti/internal/buttons"
	"github.com/rook-computer/confetti/internal/config"
	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/render/frames"
	"github.com/rook-computer/confetti/internal/render/terminal"
	"github.com/rook-computer/confetti/internal/state"
	"github.com/rook-computer/confetti/internal/web"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file; watched for changes")
	debug := flag.Bool("debug", false, "enable debug logging and the status footer")
	logFile := flag.String("log-file", "", "write logs to this file instead of stderr")
	stdioLog := flag.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+config.EnvStdioLog)
	preset := flag.String("preset", "", "effect preset (classic, wave)")
	duration := flag.Duration("duration", 0, "run length, overriding the preset default")
	fps := flag.Int("fps", 0, "frames per second")
	listen := flag.String("listen", "", "HTTP listen address")
	auto := flag.Bool("auto", false, "activate the effect once at startup")
	surface := flag.String("surface", "fb", "output: fb, term or png")
	framesDir := flag.String("frames-dir", "frames", "output directory for -surface=png")
	width := flag.Int("width", 1280, "frame width for -surface=png")
	height := flag.Int("height", 720, "frame height for -surface=png")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	overrides := func(cfg *config.Config) {
		if set["preset"] {
			cfg.Preset = *preset
		}
		if set["duration"] {
			cfg.DurationMs = int(duration.Milliseconds())
		}
		if set["fps"] {
			cfg.FPS = *fps
		}
		if set["listen"] {
			cfg.Listen = *listen
		}
		if set["auto"] {
			cfg.Auto = *auto
		}
		if set["stdio-log"] {
			cfg.StdioLog = *stdioLog
		}
		if *debug {
			cfg.LogLevel = string(config.LevelDebug)
		}
	}
	loadConfig := func() (config.Config, error) {
		cfg, err := config.Load(*configPath, config.Default(":80"))
		if err != nil {
			return config.Config{}, err
		}
		overrides(&cfg)
		return cfg, cfg.Validate()
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	if cfg.StdioLog != "" {
		if err := redirectStdIO(cfg.StdioLog); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	// The terminal surface owns the tty, so logs go to a file there.
	logPath := *logFile
	if logPath == "" && *surface == "term" {
		logPath = "confetti.log"
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger, err := app.NewZapLogger(level, logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.NewStore()
	server := web.NewHTTPServer(cfg.Listen)
	server.DevMode = cfg.Dev
	server.Logger = logger

	var (
		renderer render.Renderer
		btns     buttons.Buttons
	)
	consoleGraphics := false
	exitWhenDone := false
	switch *surface {
	case "fb":
		renderer = render.NewFBRenderer()
		btns = buttons.NewKeyboard(logger)
		consoleGraphics = true
	case "term":
		tr := terminal.NewRenderer()
		if cfg.FPS > 0 {
			tr.FPS = cfg.FPS
		}
		renderer = tr
		btns = tr.Buttons()
	case "png":
		fr := frames.NewRenderer(*framesDir, *width, *height)
		if cfg.FPS > 0 {
			fr.FPS = cfg.FPS
		}
		renderer = fr
		btns = buttons.NewNoopButtons()
		exitWhenDone = cfg.Auto
	default:
		fmt.Fprintf(os.Stderr, "unknown surface %q\n", *surface)
		os.Exit(2)
	}

	a := app.New(store, renderer, server, btns, cfg)
	a.Logger = logger
	a.Debug = *debug
	a.ConfigPath = *configPath
	a.LoadConfig = loadConfig
	a.ConsoleGraphics = consoleGraphics
	a.ExitWhenDone = exitWhenDone
	server.Handlers = web.APIV1Handlers{
		TriggerFunc: a.HandleTrigger,
		BurstFunc:   a.HandleBurst,
		StatusFunc:  a.Status,
	}

	logger.Infof("main", "starting on %s (surface=%s preset=%s)", cfg.Listen, *surface, cfg.Preset)
	start := time.Now()
	err = a.Start(ctx)
	logger.Infof("main", "stopped after %s", time.Since(start).Round(time.Millisecond))
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("main", "app error: %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}
