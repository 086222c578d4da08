package coordinator

import (
	"errors"
	"log"

	"github.com/phinze/halo/internal/dialog"
	"github.com/phinze/halo/internal/event"
	"github.com/phinze/halo/internal/prefs"
)

// ToggleOverlay flips visibility on every surface.
func (c *Coordinator) ToggleOverlay() {
	c.visible = !c.visible
	for _, e := range c.surfaces {
		e.visible = c.visible
	}
	c.renderer.Invalidate()
}

// RunModal hides the overlay, runs the modal for kind against a copy of
// the state while the main loop keeps ticking, then applies and persists
// the result.
func (c *Coordinator) RunModal(kind event.AppEvent) {
	m, ok := c.modals[kind]
	if !ok {
		log.Printf("No modal for %v", kind)
		return
	}

	enabled := c.state.OverlayEnabled
	c.state.OverlayEnabled = false

	work := c.state
	done := make(chan error, 1)
	go func() {
		done <- m.Run(c.ctx, &work)
	}()
	err := c.loop(done)

	c.state.OverlayEnabled = enabled
	switch {
	case errors.Is(err, dialog.ErrQuit):
		log.Println("Quit confirmed")
		c.cancel()
		return
	case c.ctx.Err() != nil:
		return
	case err != nil:
		log.Printf("%v modal failed: %v", kind, err)
	}

	if kind == event.OpenSettings {
		prefs.Apply(&c.state, work)
		c.updateIndicator()
	}
	c.persist()
}

// ShowAbout opens the about panel without blocking the loop.
func (c *Coordinator) ShowAbout() {
	lang := c.state.Language
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := dialog.About(c.ctx, c.prompter, lang, c.opts.Version); err != nil {
			log.Printf("About panel failed: %v", err)
		}
	}()
}

// ReinstallHotkeys re-registers every chord.
func (c *Coordinator) ReinstallHotkeys() {
	if err := c.hotkeys.Reinstall(); err != nil {
		log.Printf("Hotkey registration failed: %v", err)
	}
}
