package render

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Colour codes used in messages and bars, &0 to &f
var codeColors = map[byte]tcell.Color{
	'0': tcell.NewRGBColor(0, 0, 0),
	'1': tcell.NewRGBColor(0, 0, 170),
	'2': tcell.NewRGBColor(0, 170, 0),
	'3': tcell.NewRGBColor(0, 170, 170),
	'4': tcell.NewRGBColor(170, 0, 0),
	'5': tcell.NewRGBColor(170, 0, 170),
	'6': tcell.NewRGBColor(255, 170, 0),
	'7': tcell.NewRGBColor(170, 170, 170),
	'8': tcell.NewRGBColor(85, 85, 85),
	'9': tcell.NewRGBColor(85, 85, 255),
	'a': tcell.NewRGBColor(85, 255, 85),
	'b': tcell.NewRGBColor(85, 255, 255),
	'c': tcell.NewRGBColor(255, 85, 85),
	'd': tcell.NewRGBColor(255, 85, 255),
	'e': tcell.NewRGBColor(255, 255, 85),
	'f': tcell.NewRGBColor(255, 255, 255),
}

var (
	RgbBackground = tcell.NewRGBColor(26, 27, 38)    // Tokyo Night background
	RgbText       = tcell.NewRGBColor(200, 200, 200) // Default text
)

// Segment is a run of text in one colour
type Segment struct {
	Text  string
	Color tcell.Color
	// Bold is set by &l, cleared by &r
	Bold bool
}

// Segments splits &-coded text into coloured runs; base is the colour before any code
func Segments(text string, base tcell.Color) []Segment {
	var out []Segment
	cur := Segment{Color: base}
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			cur.Text = b.String()
			out = append(out, cur)
			b.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		if text[i] == '&' && i+1 < len(text) {
			code := text[i+1] | 0x20
			if c, ok := codeColors[code]; ok {
				flush()
				cur = Segment{Color: c}
				i++
				continue
			}
			switch code {
			case 'l':
				flush()
				cur.Bold = true
				i++
				continue
			case 'r':
				flush()
				cur = Segment{Color: base}
				i++
				continue
			case 'k', 'm', 'n', 'o':
				i++
				continue
			}
		}
		b.WriteByte(text[i])
	}
	flush()
	return out
}

// DrawText writes &-coded text at x,y clipped to width and returns the columns used
func DrawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) int {
	fg, _, _ := style.Decompose()
	col := 0
	for _, seg := range Segments(text, fg) {
		st := style.Foreground(seg.Color).Bold(seg.Bold)
		for _, r := range seg.Text {
			if col >= width {
				return col
			}
			s.SetContent(x+col, y, r, nil, st)
			col++
		}
	}
	return col
}
