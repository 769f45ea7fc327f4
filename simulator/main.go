package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/rook-computer/confetti/internal/app"
	"github.com/rook-computer/confetti/internal/config"
	"github.com/rook-computer/confetti/internal/render/window"
	"github.com/rook-computer/confetti/internal/state"
	"github.com/rook-computer/confetti/internal/system"
	"github.com/rook-computer/confetti/internal/web"
)

func main() {
	listenAddr := flag.String("listen", ":8080", "http listen address; also configurable via "+config.EnvListenAddr)
	devMode := flag.Bool("dev", false, "enable dev mode; also configurable via "+config.EnvDevMode)
	configPath := flag.String("config", "", "YAML config file; watched for changes")
	preset := flag.String("preset", "", "effect preset (classic, wave)")
	auto := flag.Bool("auto", false, "activate the effect once at startup")
	debug := flag.Bool("debug", false, "debug logging and status footer")
	width := flag.Int("width", 960, "window width")
	height := flag.Int("height", 540, "window height")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	loadConfig := func() (config.Config, error) {
		cfg, err := config.Load(*configPath, config.Default(*listenAddr))
		if err != nil {
			return config.Config{}, err
		}
		// Explicit flags win over the file and the environment.
		if set["listen"] {
			cfg.Listen = *listenAddr
		}
		if set["dev"] {
			cfg.Dev = *devMode
		}
		if set["preset"] {
			cfg.Preset = *preset
		}
		if set["auto"] {
			cfg.Auto = *auto
		}
		return cfg, cfg.Validate()
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}

	level := config.LevelInfo
	if *debug {
		level = config.LevelDebug
	}
	logger, err := app.NewZapLogger(level, "")
	if err != nil {
		fmt.Println("logger error:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(processCtx)
	defer cancel()

	win := window.NewRenderer(*width, *height)
	win.Title = "confetti simulator"
	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	control := &SimControl{Keys: win.Buttons(), Resize: ebiten.SetWindowSize}
	server := web.NewHTTPServer(cfg.Listen)
	server.DevMode = cfg.Dev
	server.Logger = logger
	server.Routes = control.register

	a := app.New(state.NewStore(), win, server, win.Buttons(), cfg)
	a.Logger = logger
	a.Debug = *debug
	a.ConfigPath = *configPath
	a.LoadConfig = loadConfig
	server.Handlers = web.APIV1Handlers{
		TriggerFunc: a.HandleTrigger,
		BurstFunc:   a.HandleBurst,
		StatusFunc:  a.Status,
	}

	fmt.Println("confetti simulator listening on", cfg.Listen)
	fmt.Println("API:", system.APIURL(cfg.Listen, "127.0.0.1"))

	// Ebiten needs the main goroutine; the app runs beside it.
	done := make(chan error, 1)
	go func() {
		err := a.Start(ctx)
		_ = win.Stop()
		done <- err
	}()

	if err := ebiten.RunGame(win.Game()); err != nil {
		logger.Errorf("sim", "window error: %v", err)
	}
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("sim", "app error: %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}
