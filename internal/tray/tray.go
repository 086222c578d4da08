// Package tray shows the menubar / notification-area item.
package tray

import (
	"log"
	"sync"

	"fyne.io/systray"

	"github.com/phinze/halo/internal/event"
	"github.com/phinze/halo/internal/i18n"
	"github.com/phinze/halo/internal/model"
	"github.com/phinze/halo/internal/render"
)

// Menu lists the items in display order with the event each publishes.
var Menu = []struct {
	Key   string
	Event event.AppEvent
}{
	{i18n.Settings, event.OpenSettings},
	{i18n.Help, event.ShowHelp},
	{i18n.About, event.ShowAbout},
	{i18n.Quit, event.RequestQuit},
}

// Tray is a running tray item.
type Tray struct {
	pub  event.Publisher
	done chan struct{}
	end  func()

	mu     sync.Mutex
	ready  bool
	items  []*systray.MenuItem
	lang   model.Language
	stroke model.Color
}

// Start installs the tray item. The platform run loop is driven by the
// caller, so Start returns immediately.
func Start(pub event.Publisher, lang model.Language, stroke model.Color) *Tray {
	t := &Tray{
		pub:    pub,
		done:   make(chan struct{}),
		lang:   lang,
		stroke: stroke,
	}
	start, end := systray.RunWithExternalLoop(t.onReady, func() {})
	t.end = end
	start()
	return t
}

func (t *Tray) onReady() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range Menu {
		mi := systray.AddMenuItem(i18n.T(t.lang, m.Key), "")
		t.items = append(t.items, mi)
		go t.forward(mi, m.Event)
	}
	t.ready = true
	t.apply()
}

func (t *Tray) forward(mi *systray.MenuItem, e event.AppEvent) {
	for {
		select {
		case <-t.done:
			return
		case <-mi.ClickedCh:
			t.pub.Publish(e)
		}
	}
}

// Update re-localizes the menu and re-tints the icon.
func (t *Tray) Update(lang model.Language, stroke model.Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if lang == t.lang && stroke == t.stroke {
		return
	}
	t.lang, t.stroke = lang, stroke
	if t.ready {
		t.apply()
	}
}

// apply pushes the current language and color; t.mu must be held.
func (t *Tray) apply() {
	icon, err := render.TrayIcon(t.stroke, render.TrayIconSize)
	if err != nil {
		log.Printf("Tray icon render failed: %v", err)
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTooltip(i18n.T(t.lang, i18n.TrayTooltip))
	for i, mi := range t.items {
		mi.SetTitle(i18n.T(t.lang, Menu[i].Key))
	}
}

// Stop removes the tray item.
func (t *Tray) Stop() {
	close(t.done)
	t.end()
}
