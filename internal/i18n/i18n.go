// Package i18n provides the localized user-facing strings.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/phinze/halo/internal/model"
)

// Message keys. The key is also the English text.
const (
	Settings       = "Settings"
	Help           = "Help"
	About          = "About"
	Quit           = "Quit"
	Cancel         = "Cancel"
	Close          = "Close"
	Language       = "Language"
	English        = "English"
	Spanish        = "Spanish"
	Radius         = "Radius (px)"
	Border         = "Border (px)"
	Hex            = "Color (hex)"
	Transparency   = "Fill Transparency (%%)"
	Shortcuts      = "Keyboard Shortcuts"
	ToggleOverlay  = "Toggle overlay"
	OpenSettings   = "Open settings"
	ShowHelp       = "Show help"
	QuitApp        = "Quit app"
	QuitTitle      = "Quit the app?"
	QuitBody       = "The app will close"
	InvalidNumber  = "Enter a number between %v and %v"
	InvalidHex     = "Enter a color as #RRGGBB or #RRGGBBAA"
	SettingsPrompt = "Choose a setting to change"
	AboutBody      = "Draws a highlight around the cursor for recordings and presentations.\nVersion %s"
	TrayTooltip    = "Cursor highlight"
)

var spanish = map[string]string{
	Settings:       "Configuración",
	Help:           "Ayuda",
	About:          "Acerca de",
	Quit:           "Salir",
	Cancel:         "Cancelar",
	Close:          "Cerrar",
	Language:       "Idioma",
	English:        "Inglés",
	Spanish:        "Español",
	Radius:         "Radio (px)",
	Border:         "Grosor (px)",
	Hex:            "Color (hex)",
	Transparency:   "Transparencia (%%)",
	Shortcuts:      "Atajos de teclado",
	ToggleOverlay:  "Mostrar/ocultar resaltado",
	OpenSettings:   "Abrir configuración",
	ShowHelp:       "Mostrar ayuda",
	QuitApp:        "Salir de la app",
	QuitTitle:      "¿Salir de la aplicación?",
	QuitBody:       "Se cerrará la app",
	InvalidNumber:  "Introduce un número entre %v y %v",
	InvalidHex:     "Introduce un color como #RRGGBB o #RRGGBBAA",
	SettingsPrompt: "Elige un ajuste para cambiar",
	AboutBody:      "Dibuja un resaltado alrededor del cursor para grabaciones y presentaciones.\nVersión %s",
	TrayTooltip:    "Resaltado del cursor",
}

var printers = map[model.Language]*message.Printer{}

func init() {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range spanish {
		if err := b.SetString(language.Spanish, key, text); err != nil {
			panic(err)
		}
	}
	printers[model.LangEN] = message.NewPrinter(language.English, message.Catalog(b))
	printers[model.LangES] = message.NewPrinter(language.Spanish, message.Catalog(b))
}

// T returns the message for key in lang, formatted with args.
func T(lang model.Language, key string, args ...any) string {
	p, ok := printers[lang]
	if !ok {
		p = printers[model.LangEN]
	}
	return p.Sprintf(key, args...)
}
