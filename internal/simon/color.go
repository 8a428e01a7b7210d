// Package simon implements the light-based memory game: a growing color
// sequence played back through the lights, with submissions checked
// against the authoritative sequence.
package simon

import (
	"fmt"
	"strings"

	"github.com/hwalther/lightson/internal/lights"
)

// Color is one game pad color. The game palette is a fixed enumeration,
// validated at the API boundary.
type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Blue   Color = "blue"
	Yellow Color = "yellow"
)

// DefaultPalette is the classic four-pad palette
var DefaultPalette = []Color{Red, Green, Blue, Yellow}

var colorRGB = map[Color]lights.Color{
	Red:    {R: 255},
	Green:  {G: 255},
	Blue:   {B: 255},
	Yellow: {R: 255, G: 255},
}

// ParseColor validates a submitted color token
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(s))
	if _, ok := colorRGB[c]; !ok {
		return "", fmt.Errorf("unknown game color %q", s)
	}
	return c, nil
}

// RGB returns the light color for a game pad
func (c Color) RGB() lights.Color {
	return colorRGB[c]
}
