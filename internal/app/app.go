package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/confetti/internal/app/screens"
	"github.com/rook-computer/confetti/internal/buttons"
	"github.com/rook-computer/confetti/internal/confetti"
	"github.com/rook-computer/confetti/internal/config"
	"github.com/rook-computer/confetti/internal/render"
	"github.com/rook-computer/confetti/internal/state"
	"github.com/rook-computer/confetti/internal/system"
	"github.com/rook-computer/confetti/internal/web"
)

type App struct {
	Store   *state.Store
	Render  render.Renderer
	Web     web.Server
	Buttons buttons.Buttons
	Logger  Logger
	Debug   bool

	Config config.Config
	// ConfigPath is watched for changes when set.
	ConfigPath string
	// LoadConfig re-reads the configuration on change. It defaults to
	// loading ConfigPath over config.Default.
	LoadConfig func() (config.Config, error)

	// ConsoleGraphics puts the Linux console in graphics mode while running.
	ConsoleGraphics bool
	// ExitWhenDone stops the app once the first activation has ended.
	ExitWhenDone bool

	// Clock and Rand replace the effect's defaults when set.
	Clock confetti.Clock
	Rand  *rand.Rand

	mu            sync.Mutex
	effect        *confetti.Controller
	currentScreen render.Screen

	exitOnce atomic.Bool
	exitCh   chan error
}

func New(store *state.Store, renderer render.Renderer, webServer web.Server, buttonDriver buttons.Buttons, cfg config.Config) *App {
	return &App{Store: store, Render: renderer, Web: webServer, Buttons: buttonDriver, Config: cfg, Logger: NoopLogger{}, exitCh: make(chan error, 1)}
}

// Exit requests the app to stop running.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

// Start runs the host until ctx is done or Exit is called.
func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	if app.Logger == nil {
		app.Logger = NoopLogger{}
	}
	app.exitOnce.Store(false)
	app.Store.SetCaption(app.Config.Caption)

	// Initialize renderer and draw first screen
	if app.Render == nil {
		app.Render = render.NewFBRenderer()
	}
	if fb, ok := app.Render.(*render.FBRenderer); ok {
		fb.Logger = app.Logger
		fb.Debug = app.Debug
		fb.FPS = app.Config.FPS
	}
	if err := app.Render.Start(ctx); err != nil {
		app.Logger.Errorf("app", "renderer start error: %v", err)
		app.Store.SetError(err)
		return fmt.Errorf("start renderer: %w", err)
	}
	defer app.Render.Stop()

	if app.ConsoleGraphics {
		// Switch console to KD_GRAPHICS to suppress hardware cursor
		_ = system.SetGraphicsModeWithLog(app.Logger)
		_ = system.HideCursorWithLog(app.Logger)
		defer func() { _ = system.ShowCursorWithLog(app.Logger); _ = system.RestoreTextModeWithLog(app.Logger) }()
	}

	preset, err := app.Config.Effect()
	if err != nil {
		app.Store.SetError(err)
		return fmt.Errorf("resolve effect: %w", err)
	}
	effect := confetti.New(app.Render.Overlay(), preset)
	effect.Logger = app.Logger
	if app.Clock != nil {
		effect.Clock = app.Clock
	}
	if app.Rand != nil {
		effect.Rand = app.Rand
	}
	app.Render.SetResizeHandler(effect.Resize)
	effect.Resize(app.Render.Viewport())
	app.setEffect(effect)
	defer func() {
		app.setEffect(nil)
		effect.Close()
	}()

	if err := app.setScreen(ctx, &screens.MainScreen{ShowStatus: app.Debug}); err != nil {
		return err
	}

	app.publishNetwork()
	if app.Web != nil {
		if err := app.Web.Start(ctx); err != nil {
			app.Logger.Errorf("web", "start error: %v", err)
		} else {
			defer app.Web.Stop()
		}
	}

	var wg sync.WaitGroup
	loopCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	if app.Buttons != nil {
		if err := app.Buttons.Start(loopCtx); err != nil {
			app.Logger.Errorf("input", "buttons start error: %v", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				app.handleButtons(loopCtx)
			}()
			defer app.Buttons.Stop()
		}
	}

	if app.ConfigPath != "" {
		watcher, err := config.NewWatcher(app.ConfigPath)
		if err != nil {
			app.Logger.Errorf("config", "watch %s failed: %v", app.ConfigPath, err)
		} else {
			defer watcher.Close()
			wg.Add(1)
			go func() {
				defer wg.Done()
				app.watchConfig(loopCtx, watcher)
			}()
		}
	}

	app.Store.SetPhase(state.READY)
	app.publish(effect)
	if app.Config.Auto {
		_ = app.trigger(true, 0, false, "auto")
	}

	// Force immediate first redraw so the backdrop shows without waiting for the loop.
	app.Render.RedrawWithState(app.Store.Snapshot())

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Render.RunLoop(loopCtx, app.Store, app.Frame)
	}()

	// Wait for completion, then exit.
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	return err
}

func (app *App) setScreen(ctx context.Context, screen render.Screen) error {
	app.mu.Lock()
	prev := app.currentScreen
	app.currentScreen = screen
	app.mu.Unlock()
	if prev != nil {
		_ = prev.Stop()
	}
	app.Render.SetScreen(screen)
	return screen.Start(ctx)
}

func (app *App) setEffect(effect *confetti.Controller) {
	app.mu.Lock()
	app.effect = effect
	app.mu.Unlock()
}

// Effect returns the running controller, or nil outside of Start.
func (app *App) Effect() *confetti.Controller {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.effect
}

// Frame advances the effect one display frame and publishes its status.
func (app *App) Frame(now time.Time) {
	effect := app.Effect()
	if effect == nil {
		return
	}
	effect.Frame(now)
	app.publish(effect)
}

// HandleTrigger is used by the web API to set the active flag and,
// optionally, the duration.
func (app *App) HandleTrigger(ctx context.Context, active bool, d time.Duration, hasDuration bool) error {
	return app.trigger(active, d, hasDuration, "api")
}

// HandleBurst is used by the web API to restart the effect.
func (app *App) HandleBurst(ctx context.Context) error {
	effect := app.Effect()
	if effect == nil {
		return web.ErrBusy
	}
	effect.Restart()
	app.recordTrigger(effect, "burst")
	return nil
}

// Status is used by the web API.
func (app *App) Status() state.State {
	return app.Store.Snapshot()
}

func (app *App) trigger(active bool, d time.Duration, hasDuration bool, source string) error {
	effect := app.Effect()
	if effect == nil {
		return web.ErrBusy
	}
	if hasDuration {
		effect.Trigger(active, d)
	} else {
		effect.SetActive(active)
	}
	app.recordTrigger(effect, source)
	return nil
}

func (app *App) recordTrigger(effect *confetti.Controller, source string) {
	st := effect.Status()
	app.Store.UpdateTrigger(state.TriggerInfo{
		Active:   st.Active,
		Duration: st.Duration,
		Preset:   st.Preset,
		Source:   source,
		At:       time.Now(),
	})
	app.Logger.Infof("app", "trigger from %s: active=%v duration=%s", source, st.Active, st.Duration)
	app.publish(effect)
}

func (app *App) publish(effect *confetti.Controller) {
	st := effect.Status()
	w, h := st.Viewport.DeviceSize()
	app.Store.UpdateEffect(state.EffectInfo{
		Phase:      st.Phase.String(),
		Active:     st.Active,
		Activation: st.Activation,
		Particles:  st.Particles,
		Alpha:      st.Alpha,
		Width:      w,
		Height:     h,
	})
	if app.ExitWhenDone && st.Activation > 0 && (st.Phase == confetti.Done || st.Phase == confetti.Cancelled) {
		app.Exit(nil)
	}
}

func (app *App) publishNetwork() {
	ip, err := system.LocalIPv4()
	if err != nil {
		app.Logger.Errorf("app", "local address: %v", err)
	}
	url := system.APIURL(app.Config.Listen, ip)
	app.Store.UpdateNetwork(state.NetworkInfo{Listen: app.Config.Listen, URL: url})
}

func (app *App) handleButtons(ctx context.Context) {
	events := app.Buttons.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			app.handleButton(ev)
		}
	}
}

func (app *App) handleButton(ev buttons.Event) {
	effect := app.Effect()
	if effect == nil {
		return
	}
	switch ev {
	case buttons.Toggle:
		// A finished run still reads as active; start a new one in that case.
		switch effect.Status().Phase {
		case confetti.Running, confetti.Fading:
			effect.SetActive(false)
		default:
			effect.Restart()
		}
		app.recordTrigger(effect, "button")
	case buttons.Burst:
		effect.Restart()
		app.recordTrigger(effect, "button")
	case buttons.Exit:
		app.Logger.Infof("input", "exit pressed")
		app.Exit(nil)
	}
}

func (app *App) watchConfig(ctx context.Context, watcher *config.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			app.Logger.Errorf("config", "watch error: %v", err)
		case path, ok := <-watcher.Events:
			if !ok {
				return
			}
			if err := app.reloadConfig(); err != nil {
				app.Logger.Errorf("config", "reload %s failed, keeping previous config: %v", path, err)
				continue
			}
			app.Logger.Infof("config", "reloaded %s", path)
		}
	}
}

// reloadConfig applies a changed configuration. The preset takes effect on
// the next activation; a running activation keeps its duration.
func (app *App) reloadConfig() error {
	load := app.LoadConfig
	if load == nil {
		// Start from the defaults so keys removed from the file revert.
		base := config.Default(app.Config.Listen)
		path := app.ConfigPath
		load = func() (config.Config, error) { return config.Load(path, base) }
	}
	cfg, err := load()
	if err != nil {
		return err
	}
	preset, err := cfg.Effect()
	if err != nil {
		return err
	}

	if effect := app.Effect(); effect != nil {
		effect.SetPreset(preset)
		switch effect.Status().Phase {
		case confetti.Running, confetti.Fading:
		default:
			effect.SetDuration(preset.Duration)
		}
	}
	app.Store.SetCaption(cfg.Caption)
	return nil
}
