package dialog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/phinze/halo/internal/event"
	"github.com/phinze/halo/internal/hotkey"
	"github.com/phinze/halo/internal/i18n"
	"github.com/phinze/halo/internal/model"
)

// Modal is a blocking dialog. Run may edit st and publishes its closing
// follow-up event before returning. The quit modal instead returns ErrQuit
// when the user confirms.
type Modal interface {
	Run(ctx context.Context, st *model.OverlayState) error
}

// Settings edits radius, border, color, fill transparency and language.
type Settings struct {
	Prompter Prompter
	Pub      event.Publisher
}

type field struct {
	label string
	value func(model.OverlayState) string
	edit  func(ctx context.Context, st *model.OverlayState) error
}

func (m *Settings) Run(ctx context.Context, st *model.OverlayState) error {
	defer m.Pub.Publish(event.SettingsClosed)

	for {
		fields := m.fields(*st)
		items := make([]string, len(fields))
		for i, f := range fields {
			items[i] = f.label + ": " + f.value(*st)
		}

		choice, err := m.Prompter.Choose(ctx, i18n.T(st.Language, i18n.Settings), i18n.T(st.Language, i18n.SettingsPrompt), items)
		if errors.Is(err, ErrCanceled) {
			break
		}
		if err != nil {
			return err
		}

		for i, item := range items {
			if item != choice {
				continue
			}
			err := fields[i].edit(ctx, st)
			if err != nil && !errors.Is(err, ErrCanceled) {
				return err
			}
			break
		}
	}

	st.Validate()
	return nil
}

func (m *Settings) fields(st model.OverlayState) []field {
	lang := st.Language
	return []field{
		{
			label: i18n.T(lang, i18n.Radius),
			value: func(s model.OverlayState) string { return formatNumber(s.Radius) },
			edit: func(ctx context.Context, s *model.OverlayState) error {
				return m.editNumber(ctx, s, i18n.Radius, &s.Radius, model.MinRadius, model.MaxRadius)
			},
		},
		{
			label: i18n.T(lang, i18n.Border),
			value: func(s model.OverlayState) string { return formatNumber(s.BorderWidth) },
			edit: func(ctx context.Context, s *model.OverlayState) error {
				return m.editNumber(ctx, s, i18n.Border, &s.BorderWidth, model.MinBorderWidth, model.MaxBorderWidth)
			},
		},
		{
			label: i18n.T(lang, i18n.Hex),
			value: func(s model.OverlayState) string { return model.FormatHex(s.Stroke) },
			edit:  m.editHex,
		},
		{
			label: i18n.T(lang, i18n.Transparency),
			value: func(s model.OverlayState) string { return formatNumber(s.FillTransparencyPct) },
			edit: func(ctx context.Context, s *model.OverlayState) error {
				return m.editNumber(ctx, s, i18n.Transparency, &s.FillTransparencyPct, model.MinTransparency, model.MaxTransparency)
			},
		},
		{
			label: i18n.T(lang, i18n.Language),
			value: func(s model.OverlayState) string { return languageName(s.Language, s.Language) },
			edit:  m.editLanguage,
		},
	}
}

// editNumber prompts until the user enters a number in [lo, hi] or cancels.
func (m *Settings) editNumber(ctx context.Context, st *model.OverlayState, key string, v *float64, lo, hi float64) error {
	title := i18n.T(st.Language, key)
	text := formatNumber(*v)
	for {
		s, err := m.Prompter.Ask(ctx, title, title, text)
		if err != nil {
			return err
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
		if err == nil && n >= lo && n <= hi {
			*v = n
			return nil
		}
		if err := m.Prompter.Inform(ctx, title, i18n.T(st.Language, i18n.InvalidNumber, lo, hi), i18n.T(st.Language, i18n.Close)); err != nil && !errors.Is(err, ErrCanceled) {
			return err
		}
		text = s
	}
}

func (m *Settings) editHex(ctx context.Context, st *model.OverlayState) error {
	title := i18n.T(st.Language, i18n.Hex)
	text := model.FormatHex(st.Stroke)
	for {
		s, err := m.Prompter.Ask(ctx, title, title, text)
		if err != nil {
			return err
		}
		c, err := model.ParseHex(s)
		if err == nil {
			st.Stroke = c
			return nil
		}
		if err := m.Prompter.Inform(ctx, title, i18n.T(st.Language, i18n.InvalidHex), i18n.T(st.Language, i18n.Close)); err != nil && !errors.Is(err, ErrCanceled) {
			return err
		}
		text = s
	}
}

func (m *Settings) editLanguage(ctx context.Context, st *model.OverlayState) error {
	langs := []model.Language{model.LangEN, model.LangES}
	items := make([]string, len(langs))
	for i, l := range langs {
		items[i] = languageName(st.Language, l)
	}
	title := i18n.T(st.Language, i18n.Language)
	s, err := m.Prompter.Choose(ctx, title, title, items)
	if err != nil {
		return err
	}
	for i, item := range items {
		if item == s {
			st.Language = langs[i]
		}
	}
	return nil
}

// Help lists the active chords.
type Help struct {
	Prompter Prompter
	Pub      event.Publisher
	Bindings []hotkey.Binding
}

func (m *Help) Run(ctx context.Context, st *model.OverlayState) error {
	defer m.Pub.Publish(event.HelpClosed)

	err := m.Prompter.Inform(ctx, i18n.T(st.Language, i18n.Help), HelpText(st.Language, m.Bindings), i18n.T(st.Language, i18n.Close))
	if err != nil && !errors.Is(err, ErrCanceled) {
		return err
	}
	return nil
}

// HelpText renders the chord list in lang.
func HelpText(lang model.Language, bindings []hotkey.Binding) string {
	var b strings.Builder
	b.WriteString(i18n.T(lang, i18n.Shortcuts))
	for _, bd := range bindings {
		fmt.Fprintf(&b, "\n%s: %s", actionName(lang, bd.Action), bd.Chord)
	}
	return b.String()
}

// Quit asks for confirmation before exiting.
type Quit struct {
	Prompter Prompter
	Pub      event.Publisher
}

func (m *Quit) Run(ctx context.Context, st *model.OverlayState) error {
	lang := st.Language
	ok, err := m.Prompter.Confirm(ctx, i18n.T(lang, i18n.QuitTitle), i18n.T(lang, i18n.QuitBody), i18n.T(lang, i18n.Quit), i18n.T(lang, i18n.Cancel))
	if err != nil {
		log.Printf("Quit confirmation failed: %v", err)
	}
	if ok {
		return ErrQuit
	}
	m.Pub.Publish(event.QuitCancelled)
	return err
}

// About shows the about panel. It does not block the caller's loop
// beyond the dialog itself and publishes nothing.
func About(ctx context.Context, p Prompter, lang model.Language, version string) error {
	err := p.Inform(ctx, i18n.T(lang, i18n.About), i18n.T(lang, i18n.AboutBody, version), i18n.T(lang, i18n.Close))
	if errors.Is(err, ErrCanceled) {
		return nil
	}
	return err
}

func actionName(lang model.Language, e event.AppEvent) string {
	switch e {
	case event.ToggleOverlay:
		return i18n.T(lang, i18n.ToggleOverlay)
	case event.OpenSettings:
		return i18n.T(lang, i18n.OpenSettings)
	case event.ShowHelp:
		return i18n.T(lang, i18n.ShowHelp)
	case event.RequestQuit:
		return i18n.T(lang, i18n.QuitApp)
	default:
		return e.String()
	}
}

// languageName names l in the UI language ui.
func languageName(ui, l model.Language) string {
	if l == model.LangES {
		return i18n.T(ui, i18n.Spanish)
	}
	return i18n.T(ui, i18n.English)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
