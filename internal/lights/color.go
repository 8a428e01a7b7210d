package lights

import (
	"fmt"
	"math"
	"strings"
)

// Color is an 8-bit RGB triple
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// named maps the color names accepted by the /set-color payload
var named = map[string]Color{
	"red":     {255, 0, 0},
	"green":   {0, 255, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
	"pink":    {255, 192, 203},
	"cyan":    {0, 255, 255},
	"magenta": {255, 0, 255},
	"white":   {255, 255, 255},
	"warm":    {255, 214, 170},
	"black":   {0, 0, 0},
}

// Parse accepts "#RGB", "#RRGGBB" or a lowercase color name
func Parse(s string) (Color, error) {
	if strings.HasPrefix(s, "#") {
		return ParseHex(s)
	}
	if c, ok := named[strings.ToLower(s)]; ok {
		return c, nil
	}
	return Color{}, fmt.Errorf("unknown color %q", s)
}

// ParseHex parses "#RGB" or "#RRGGBB"
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(h, "%02x%02x%02x", &r, &g, &b); err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return Color{R: r, G: g, B: b}, nil
}

// Hex renders the color as "#rrggbb"
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// XY converts the color to a CIE 1931 xy chromaticity pair using the
// gamma-corrected sRGB to XYZ matrix published in the Hue color math
// documentation. A zero-luminance input yields (0, 0).
func (c Color) XY() (float64, float64) {
	r := gamma(float64(c.R) / 255.0)
	g := gamma(float64(c.G) / 255.0)
	b := gamma(float64(c.B) / 255.0)

	x := r*0.4124 + g*0.3576 + b*0.1805
	y := r*0.2126 + g*0.7152 + b*0.0722
	z := r*0.0193 + g*0.1192 + b*0.9505

	total := x + y + z
	if total == 0 {
		return 0, 0
	}
	return x / total, y / total
}

// gamma linearizes one sRGB channel
func gamma(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}
