package tray

import (
	"testing"

	"github.com/phinze/halo/internal/event"
	"github.com/phinze/halo/internal/i18n"
	"github.com/phinze/halo/internal/model"
)

func TestMenuOrder(t *testing.T) {
	want := []string{"Settings", "Help", "About", "Quit"}
	if len(Menu) != len(want) {
		t.Fatalf("menu has %d items, want %d", len(Menu), len(want))
	}
	for i, m := range Menu {
		if got := i18n.T(model.LangEN, m.Key); got != want[i] {
			t.Errorf("item %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestMenuEvents(t *testing.T) {
	want := map[string]event.AppEvent{
		i18n.Settings: event.OpenSettings,
		i18n.Help:     event.ShowHelp,
		i18n.About:    event.ShowAbout,
		i18n.Quit:     event.RequestQuit,
	}
	for _, m := range Menu {
		if m.Event != want[m.Key] {
			t.Errorf("%s publishes %v, want %v", m.Key, m.Event, want[m.Key])
		}
	}
}

func TestMenuLocalized(t *testing.T) {
	want := []string{"Configuración", "Ayuda", "Acerca de", "Salir"}
	for i, m := range Menu {
		if got := i18n.T(model.LangES, m.Key); got != want[i] {
			t.Errorf("item %d = %q, want %q", i, got, want[i])
		}
	}
}
