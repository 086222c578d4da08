// Package dialog implements the settings, help and quit modals and the
// about panel on top of native dialogs.
package dialog

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncruces/zenity"
)

var (
	// ErrCanceled is returned by a Prompter when the user dismisses a
	// dialog.
	ErrCanceled = errors.New("dialog canceled")

	// ErrQuit is returned by the quit modal when the user confirms.
	ErrQuit = errors.New("quit requested")
)

// Prompter shows blocking native dialogs.
type Prompter interface {
	// Choose lets the user pick one of items.
	Choose(ctx context.Context, title, text string, items []string) (string, error)
	// Ask prompts for a line of text, prefilled with initial.
	Ask(ctx context.Context, title, text, initial string) (string, error)
	// Confirm asks a yes/no question and reports whether ok was chosen.
	Confirm(ctx context.Context, title, text, ok, cancel string) (bool, error)
	// Inform shows a message with a single button.
	Inform(ctx context.Context, title, text, ok string) error
}

// Native is a Prompter backed by the platform's dialog tools.
type Native struct{}

func (Native) Choose(ctx context.Context, title, text string, items []string) (string, error) {
	s, err := zenity.List(text, items, zenity.Title(title), zenity.Context(ctx))
	return s, translate(err)
}

func (Native) Ask(ctx context.Context, title, text, initial string) (string, error) {
	s, err := zenity.Entry(text, zenity.Title(title), zenity.EntryText(initial), zenity.Context(ctx))
	return s, translate(err)
}

func (Native) Confirm(ctx context.Context, title, text, ok, cancel string) (bool, error) {
	err := zenity.Question(text,
		zenity.Title(title),
		zenity.OKLabel(ok),
		zenity.CancelLabel(cancel),
		zenity.Context(ctx),
	)
	switch err = translate(err); {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrCanceled):
		return false, nil
	default:
		return false, err
	}
}

func (Native) Inform(ctx context.Context, title, text, ok string) error {
	return translate(zenity.Info(text, zenity.Title(title), zenity.OKLabel(ok), zenity.Context(ctx)))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zenity.ErrCanceled):
		return ErrCanceled
	default:
		return fmt.Errorf("native dialog: %w", err)
	}
}
