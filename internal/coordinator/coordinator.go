// Package coordinator owns the overlay surfaces and runs the main loop that
// routes input, dispatches events and renders.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/phinze/halo/internal/config"
	"github.com/phinze/halo/internal/cursor"
	"github.com/phinze/halo/internal/dialog"
	"github.com/phinze/halo/internal/dispatch"
	"github.com/phinze/halo/internal/event"
	"github.com/phinze/halo/internal/hotkey"
	"github.com/phinze/halo/internal/model"
	"github.com/phinze/halo/internal/mouse"
	"github.com/phinze/halo/internal/platform"
	"github.com/phinze/halo/internal/prefs"
	"github.com/phinze/halo/internal/render"
	"github.com/phinze/halo/internal/session"
)

// Indicator is the tray item as seen by the coordinator.
type Indicator interface {
	Update(lang model.Language, stroke model.Color)
	Stop()
}

// Options configures a Coordinator.
type Options struct {
	Backend platform.Backend
	Config  config.Config
	Store   prefs.Store

	// Prompter shows the modals; nil uses native dialogs.
	Prompter dialog.Prompter
	// StartTray installs the tray item; nil runs without one.
	StartTray func(pub event.Publisher, lang model.Language, stroke model.Color) Indicator
	// WatchSession enables wake and unlock observers.
	WatchSession bool

	Version string
	Debug   bool
}

type entry struct {
	surface platform.Surface
	visible bool
}

// Coordinator runs the overlay.
type Coordinator struct {
	opts     Options
	backend  platform.Backend
	cfg      config.Config
	store    prefs.Store
	prompter dialog.Prompter

	bus        *event.Bus
	pub        event.Publisher
	dispatcher *dispatch.Dispatcher
	hotkeys    *hotkey.Manager
	tracker    *cursor.Tracker
	renderer   *render.Renderer
	modals     map[event.AppEvent]dialog.Modal

	// Main-loop state.
	state    model.OverlayState
	loaded   bool
	mode     model.ModeCell
	visible  bool
	surfaces map[uint32]*entry
	order    []uint32

	indicator Indicator
	watcher   *prefs.Watcher
	sessionW  *session.Watcher

	ticker         *time.Ticker
	redraw         chan struct{}
	platformEvents <-chan platform.Event
	sessionEvents  <-chan platform.Event
	prefsChanges   <-chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Coordinator. Nothing is touched until Start.
func New(opts Options) *Coordinator {
	prompter := opts.Prompter
	if prompter == nil {
		prompter = dialog.Native{}
	}
	store := opts.Store
	if store == nil {
		store = prefs.NewMemoryStore()
	}

	bus := event.NewBus()
	c := &Coordinator{
		opts:     opts,
		backend:  opts.Backend,
		cfg:      opts.Config,
		store:    store,
		prompter: prompter,
		bus:      bus,
		pub:      bus.Publisher(),
		tracker:  cursor.NewTracker(opts.Backend),
		renderer: render.New(),
		visible:  true,
		surfaces: make(map[uint32]*entry),
		redraw:   make(chan struct{}, 1),
	}
	c.dispatcher = dispatch.New(bus, c)
	c.dispatcher.Debug = opts.Debug
	c.hotkeys = hotkey.NewManager(opts.Backend, c.pub, opts.Config.Bindings)
	c.modals = map[event.AppEvent]dialog.Modal{
		event.OpenSettings: &dialog.Settings{Prompter: prompter, Pub: c.pub},
		event.ShowHelp:     &dialog.Help{Prompter: prompter, Pub: c.pub, Bindings: opts.Config.Bindings},
		event.RequestQuit:  &dialog.Quit{Prompter: prompter, Pub: c.pub},
	}
	return c
}

// Start boots the overlay and runs the main loop until ctx is cancelled,
// Stop is called or the user confirms quitting. It must be called from
// the goroutine locked to the main OS thread.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.boot(ctx); err != nil {
		c.shutdown()
		return err
	}
	c.loop(nil)
	c.shutdown()
	return nil
}

// Stop ends the main loop.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Coordinator) boot(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	buttons := true
	if err := c.backend.RequestInputAccess(); err != nil {
		if errors.Is(err, platform.ErrPermissionNotGranted) {
			log.Printf("Input monitoring not granted; button letters disabled")
		} else {
			log.Printf("Input access request failed: %v", err)
		}
		buttons = false
	}

	if err := c.provision(); err != nil {
		return err
	}

	c.state = prefs.Load(c.store)
	c.loaded = true
	c.platformEvents = c.backend.Events()

	c.backend.SetKeySink(c.hotkeys.HandleKey)
	if err := c.hotkeys.Install(); err != nil {
		log.Printf("Hotkey registration failed: %v", err)
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		hotkey.KeepAlive(c.ctx, c.cfg.KeepAlive, c.pub)
	}()

	if buttons {
		obs := mouse.NewObserver(c.backend, &c.mode, c.requestRedraw)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			obs.Run(c.ctx, c.cfg.MousePoll)
		}()
	}

	if c.opts.WatchSession {
		w, err := session.Watch(c.ctx)
		if err != nil {
			log.Printf("Session events unavailable: %v", err)
		} else {
			c.sessionW = w
			c.sessionEvents = w.Events()
		}
	}

	if fs, ok := c.store.(*prefs.FileStore); ok {
		w, err := prefs.Watch(c.ctx, fs)
		if err != nil {
			log.Printf("Preferences watch failed: %v", err)
		} else {
			c.watcher = w
			c.prefsChanges = w.Changes()
		}
	}

	if c.opts.StartTray != nil {
		c.indicator = c.opts.StartTray(c.pub, c.state.Language, c.state.Stroke)
	}

	c.ticker = time.NewTicker(c.cfg.FrameInterval())
	log.Printf("Overlay running on %d display(s)", len(c.surfaces))
	return nil
}

func (c *Coordinator) shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.ticker != nil {
		c.ticker.Stop()
	}

	c.hotkeys.Uninstall()
	c.backend.SetKeySink(nil)

	if c.sessionW != nil {
		c.sessionW.Close()
	}
	if c.watcher != nil {
		c.watcher.Close()
	}
	if c.indicator != nil {
		c.indicator.Stop()
	}
	c.wg.Wait()

	if c.loaded {
		c.persist()
	}

	for _, id := range c.order {
		if err := c.surfaces[id].surface.Close(); err != nil {
			log.Printf("Closing surface %d failed: %v", id, err)
		}
		c.renderer.Forget(id)
	}
	c.surfaces = make(map[uint32]*entry)
	c.order = nil

	c.bus.Close()
}

// loop services the main thread until the context ends or, when done is
// non-nil, until done delivers. Modals run it nested so rendering and
// input keep flowing while they are open.
func (c *Coordinator) loop(done <-chan error) error {
	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case err := <-done:
			return err
		case <-c.ticker.C:
			c.tick()
		case <-c.redraw:
			c.render()
		case ev, ok := <-c.platformEvents:
			if !ok {
				c.platformEvents = nil
				continue
			}
			c.handlePlatform(ev)
		case ev := <-c.sessionEvents:
			c.handlePlatform(ev)
		case <-c.prefsChanges:
			c.reloadPrefs()
		}
	}
}

// tick is one frame: OS messages, queued events, then drawing.
func (c *Coordinator) tick() {
	c.backend.Pump()
	c.dispatcher.Dispatch()
	c.render()
}

func (c *Coordinator) render() {
	pos, ok := c.tracker.Sample()
	c.renderer.Frame(c.snapshot(), pos, ok, c.targets())
}

func (c *Coordinator) snapshot() model.OverlayState {
	st := c.state
	st.DisplayMode = c.mode.Load()
	return st
}

func (c *Coordinator) targets() []render.Target {
	out := make([]render.Target, 0, len(c.order))
	for _, id := range c.order {
		e := c.surfaces[id]
		out = append(out, render.Target{Surface: e.surface, Visible: e.visible})
	}
	return out
}

func (c *Coordinator) requestRedraw() {
	select {
	case c.redraw <- struct{}{}:
	default:
	}
}

func (c *Coordinator) handlePlatform(ev platform.Event) {
	if c.opts.Debug {
		log.Printf("Platform event %v", ev.Kind)
	}
	switch ev.Kind {
	case platform.Wake, platform.SessionActive:
		c.pub.Publish(event.ReinstallHotkeys)
	case platform.WorkspaceChanged:
		for _, id := range c.order {
			s := c.surfaces[id].surface
			if err := s.JoinAllWorkspaces(); err != nil {
				log.Printf("Rejoining workspaces on display %d failed: %v", id, err)
			}
			if err := s.RaiseTopmost(); err != nil {
				log.Printf("Raise on display %d failed: %v", id, err)
			}
		}
		c.pub.Publish(event.ReinstallHotkeys)
	case platform.DisplaysChanged:
		if err := c.provision(); err != nil {
			log.Printf("Display change: %v", err)
		}
		c.renderer.Invalidate()
	}
}

// provision matches the surface table to the current displays. Displays
// keep their surface while their geometry is unchanged; vanished ones are
// released. It fails only when no display has a surface.
func (c *Coordinator) provision() error {
	displays, err := c.backend.Displays()
	if err != nil {
		return fmt.Errorf("enumerate displays: %w", err)
	}

	seen := make(map[uint32]bool, len(displays))
	for _, d := range displays {
		seen[d.ID] = true
		if e, ok := c.surfaces[d.ID]; ok {
			if e.surface.Bounds() == d.Bounds && e.surface.Scale() == d.Scale {
				continue
			}
			c.release(d.ID)
		}

		s, err := c.backend.CreateSurface(d)
		if err != nil {
			log.Printf("Surface for display %d (%s) failed: %v", d.ID, d.Name, err)
			continue
		}
		c.surfaces[d.ID] = &entry{surface: s, visible: c.visible}
	}

	for id := range c.surfaces {
		if !seen[id] {
			c.release(id)
		}
	}

	c.order = c.order[:0]
	for id := range c.surfaces {
		c.order = append(c.order, id)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })

	if len(c.surfaces) == 0 {
		return fmt.Errorf("%w: no display has a surface", platform.ErrSurfaceCreation)
	}
	return nil
}

func (c *Coordinator) release(id uint32) {
	if err := c.surfaces[id].surface.Close(); err != nil {
		log.Printf("Closing surface %d failed: %v", id, err)
	}
	delete(c.surfaces, id)
	c.renderer.Forget(id)
}

func (c *Coordinator) reloadPrefs() {
	fs, ok := c.store.(*prefs.FileStore)
	if !ok {
		return
	}
	if err := fs.Reload(); err != nil {
		log.Printf("Preferences reload failed: %v", err)
		return
	}
	prefs.Apply(&c.state, prefs.Load(fs))
	c.updateIndicator()
	log.Printf("Preferences reloaded from %s", fs.Path())
}

func (c *Coordinator) persist() {
	prefs.Save(c.store, c.state)
	if err := c.store.Flush(); err != nil {
		log.Printf("Saving preferences failed: %v", err)
	}
}

func (c *Coordinator) updateIndicator() {
	if c.indicator != nil {
		c.indicator.Update(c.state.Language, c.state.Stroke)
	}
}
