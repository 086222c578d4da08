package main

import (
	"encoding/json"
	"fmt"
	"image"
	"io"

	"github.com/spf13/cobra"

	"github.com/phinze/halo/internal/platform"
)

var monitorsJSON bool

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List the displays the overlay covers",
	Long:  `List every display with its id, position, size and scale as the overlay sees them.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := platform.Open()
		if err != nil {
			return fmt.Errorf("failed to open display: %w", err)
		}
		defer backend.Close()

		displays, err := backend.Displays()
		if err != nil {
			return fmt.Errorf("failed to list displays: %w", err)
		}
		cursor, cerr := backend.CursorPosition()

		return printMonitors(cmd.OutOrStdout(), describe(displays, cursor, cerr == nil), monitorsJSON)
	},
}

func init() {
	monitorsCmd.Flags().BoolVar(&monitorsJSON, "json", false, "Output displays as JSON")
}

type monitorInfo struct {
	ID     uint32  `json:"id"`
	Name   string  `json:"name"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"`
	Cursor bool    `json:"cursor"`
}

func describe(displays []platform.Display, cursor image.Point, haveCursor bool) []monitorInfo {
	out := make([]monitorInfo, 0, len(displays))
	for _, d := range displays {
		out = append(out, monitorInfo{
			ID:     d.ID,
			Name:   d.Name,
			X:      d.Bounds.Min.X,
			Y:      d.Bounds.Min.Y,
			Width:  d.Bounds.Dx(),
			Height: d.Bounds.Dy(),
			Scale:  d.Scale,
			Cursor: haveCursor && cursor.In(d.Bounds),
		})
	}
	return out
}

func printMonitors(w io.Writer, monitors []monitorInfo, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(monitors, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	for _, m := range monitors {
		cursorMark := ""
		if m.Cursor {
			cursorMark = " (cursor)"
		}
		fmt.Fprintf(w, "%d %s: %dx%d at (%d,%d) scale %.2f%s\n",
			m.ID, m.Name, m.Width, m.Height, m.X, m.Y, m.Scale, cursorMark)
	}
	return nil
}
