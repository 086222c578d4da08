package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier is a platform-neutral modifier bitmask.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

var modifierByName = map[string]Modifier{
	"CTRL":    ModCtrl,
	"CONTROL": ModCtrl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
	"OPTION":  ModAlt,
	"SUPER":   ModSuper,
	"WIN":     ModSuper,
	"META":    ModSuper,
	"CMD":     ModSuper,
	"COMMAND": ModSuper,
}

var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModShift, "Shift"},
	{ModAlt, "Alt"},
	{ModSuper, "Super"},
}

// Named keys and their canonical spelling.
var keyByName = map[string]string{
	"SPACE":     "Space",
	"TAB":       "Tab",
	"ENTER":     "Enter",
	"RETURN":    "Enter",
	"ESC":       "Escape",
	"ESCAPE":    "Escape",
	"DELETE":    "Delete",
	"BACKSPACE": "Backspace",
	"HOME":      "Home",
	"END":       "End",
	"LEFT":      "Left",
	"RIGHT":     "Right",
	"UP":        "Up",
	"DOWN":      "Down",
	"COMMA":     ",",
	"PERIOD":    ".",
	"SLASH":     "/",
	"SEMICOLON": ";",
	"MINUS":     "-",
	"EQUAL":     "=",
	"GRAVE":     "`",
	"BACKQUOTE": "`",
}

const punctuation = ",./;-=`"

// Chord is a modifier mask plus a key. Key is canonical: an upper-case
// letter, a digit, a punctuation character, "F1".."F24", or a named key
// such as "Space".
type Chord struct {
	Mods Modifier
	Key  string
}

// String returns the chord in canonical "Ctrl+Shift+X" form.
func (c Chord) String() string {
	var parts []string
	for _, m := range modifierOrder {
		if c.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, c.Key), "+")
}

// ParseChord parses strings like "Ctrl+Shift+X" or "Cmd+,". At least one
// modifier is required.
func ParseChord(text string) (Chord, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Chord{}, fmt.Errorf("hotkey chord is empty")
	}

	parts := strings.Split(raw, "+")
	if len(parts) < 2 {
		return Chord{}, fmt.Errorf("hotkey must include modifiers and key: %s", raw)
	}

	var mods Modifier
	for _, token := range parts[:len(parts)-1] {
		mod, ok := modifierByName[strings.ToUpper(strings.TrimSpace(token))]
		if !ok {
			return Chord{}, fmt.Errorf("unknown modifier %q in hotkey %q", token, raw)
		}
		mods |= mod
	}

	key, err := parseKey(parts[len(parts)-1])
	if err != nil {
		return Chord{}, fmt.Errorf("%w in hotkey %q", err, raw)
	}

	return Chord{Mods: mods, Key: key}, nil
}

// MustParseChord is ParseChord for static tables.
func MustParseChord(text string) Chord {
	c, err := ParseChord(text)
	if err != nil {
		panic(err)
	}
	return c
}

func parseKey(raw string) (string, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return "", fmt.Errorf("missing key")
	}

	if name, ok := keyByName[token]; ok {
		return name, nil
	}

	if len(token) == 1 {
		ch := token[0]
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			return token, nil
		case strings.IndexByte(punctuation, ch) >= 0:
			return token, nil
		}
	}

	if strings.HasPrefix(token, "F") {
		if n, err := strconv.Atoi(token[1:]); err == nil && n >= 1 && n <= 24 {
			return token, nil
		}
	}

	return "", fmt.Errorf("unknown key %q", raw)
}
