package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/phinze/halo/internal/model"
)

//go:embed icon.svg
var iconSVG string

// TrayIconSize is the edge length of the tray icon in pixels.
const TrayIconSize = 64

// TrayIcon renders the tray icon tinted with c and encodes it as PNG.
func TrayIcon(c model.Color, size int) ([]byte, error) {
	img, err := renderSVGIcon(iconSVG, size, c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode tray icon: %w", err)
	}
	return buf.Bytes(), nil
}

// renderSVGIcon renders an SVG string at size with currentColor replaced
// by the opaque form of c.
func renderSVGIcon(svgContent string, size int, c model.Color) (*image.RGBA, error) {
	hex := model.FormatHex(c.WithAlpha(1))[:7]
	svgContent = strings.ReplaceAll(svgContent, "currentColor", hex)

	icon, err := oksvg.ReadIconStream(strings.NewReader(svgContent))
	if err != nil {
		return nil, fmt.Errorf("parse icon: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	icon.SetTarget(0, 0, float64(size), float64(size))

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	return img, nil
}
