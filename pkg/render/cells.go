package render

import (
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Virtual pixel size of one terminal cell. Cells are roughly twice as tall
// as they are wide.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// Cell is one terminal character with its colors.
type Cell struct {
	Rune  rune
	FG    color.RGBA
	BG    color.RGBA
	HasBG bool
	Faint bool
}

// CellCanvas rasterizes onto a grid of terminal cells. Drawing happens in
// virtual pixels of CellWidth x CellHeight per cell.
type CellCanvas struct {
	penStack

	cols, rows int
	cells      []Cell
	background color.RGBA
}

// NewCellCanvas creates a cols x rows grid.
func NewCellCanvas(cols, rows int) *CellCanvas {
	c := &CellCanvas{penStack: penStack{pen: newPen()}}
	c.Resize(cols, rows)
	return c
}

// Resize changes the grid size and clears it.
func (c *CellCanvas) Resize(cols, rows int) {
	c.cols = max(cols, 1)
	c.rows = max(rows, 1)
	c.cells = make([]Cell, c.cols*c.rows)
	c.Clear()
}

// SetBackground sets the color used by Clear and Render for empty cells.
func (c *CellCanvas) SetBackground(bg color.RGBA) { c.background = bg }

// Grid returns the grid dimensions in cells.
func (c *CellCanvas) Grid() (cols, rows int) { return c.cols, c.rows }

func (c *CellCanvas) Size() (float64, float64) {
	return float64(c.cols) * CellWidth, float64(c.rows) * CellHeight
}

func (c *CellCanvas) Clear() {
	for i := range c.cells {
		c.cells[i] = Cell{Rune: ' '}
	}
}

// At returns the cell at col, row. Out-of-range positions return a blank cell.
func (c *CellCanvas) At(col, row int) Cell {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return Cell{Rune: ' '}
	}
	return c.cells[row*c.cols+col]
}

func (c *CellCanvas) cellOf(x, y float64) (int, int, bool) {
	dx, dy := c.device(x, y)
	if math.IsNaN(dx) || math.IsNaN(dy) || math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return 0, 0, false
	}
	col := int(math.Floor(dx / CellWidth))
	row := int(math.Floor(dy / CellHeight))
	return col, row, col >= 0 && row >= 0 && col < c.cols && row < c.rows
}

func (c *CellCanvas) set(col, row int, r rune, fg color.RGBA) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	cell := &c.cells[row*c.cols+col]
	cell.Rune = r
	cell.FG = fg
	cell.Faint = c.alpha < 0.75
}

// lineRune picks a box-drawing character for a segment direction in cell space.
func lineRune(dx, dy float64) rune {
	// Compare against the visual aspect: one row is two columns tall.
	ax, ay := math.Abs(dx), math.Abs(dy)*2
	switch {
	case ay < ax*0.4:
		return '─'
	case ax < ay*0.4:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

// StrokeLine steps through the cells the segment crosses. Dashed strokes skip
// the cells that fall in an "off" run.
func (c *CellCanvas) StrokeLine(x1, y1, x2, y2 float64) {
	ax, ay := c.device(x1, y1)
	bx, by := c.device(x2, y2)
	length := math.Hypot(bx-ax, by-ay)
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return
	}
	r := lineRune(bx-ax, (by-ay)/2)
	steps := int(math.Ceil(length / (CellWidth / 2)))
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px, py := ax+(bx-ax)*t, ay+(by-ay)*t
		if c.dash != nil && !dashOn(c.dash, t*length/c.k) {
			continue
		}
		col := int(math.Floor(px / CellWidth))
		row := int(math.Floor(py / CellHeight))
		if cur := c.At(col, row); cur.Rune != ' ' && cur.Rune != r && !isLineRune(cur.Rune) {
			continue
		}
		c.set(col, row, r, c.stroke)
	}
}

func isLineRune(r rune) bool {
	return r == '─' || r == '│' || r == '╱' || r == '╲'
}

// FillCircle marks the cells covered by the disc, or the center cell when the
// disc is smaller than a cell.
func (c *CellCanvas) FillCircle(x, y, r float64) {
	col, row, ok := c.cellOf(x, y)
	if ok {
		c.set(col, row, '●', c.fill)
	}
	rd := r * c.k
	if rd < CellWidth {
		return
	}
	cx, cy := c.device(x, y)
	c0, c1 := int((cx-rd)/CellWidth), int((cx+rd)/CellWidth)
	r0, r1 := int((cy-rd)/CellHeight), int((cy+rd)/CellHeight)
	for rr := r0; rr <= r1; rr++ {
		for cc := c0; cc <= c1; cc++ {
			mx := (float64(cc) + 0.5) * CellWidth
			my := (float64(rr) + 0.5) * CellHeight
			if math.Hypot(mx-cx, my-cy) <= rd {
				c.set(cc, rr, '█', c.fill)
			}
		}
	}
}

// StrokeCircle tints the background of the node's center cell.
func (c *CellCanvas) StrokeCircle(x, y, r float64) {
	col, row, ok := c.cellOf(x, y)
	if !ok {
		return
	}
	cell := &c.cells[row*c.cols+col]
	if c.alpha < 0.75 {
		return
	}
	cell.BG = c.stroke
	cell.HasBG = true
}

// FillText writes text centered on x in the row containing y. Text smaller
// than half a cell at the current scale is dropped, except single glyphs,
// which replace the center cell.
func (c *CellCanvas) FillText(text string, x, y, size float64) {
	col, row, ok := c.cellOf(x, y)
	if !ok || text == "" {
		return
	}
	runes := []rune(text)
	if len(runes) == 1 {
		c.set(col, row, runes[0], c.fill)
		return
	}
	if size*c.k < CellHeight/2 {
		return
	}
	start := col - len(runes)/2
	for i, r := range runes {
		c.set(start+i, row, r, c.fill)
	}
}

// Render returns the grid as ANSI-styled lines joined by newlines.
func (c *CellCanvas) Render() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		var runStyle Cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(c.style(runStyle).Render(run.String()))
			run.Reset()
		}
		for col := 0; col < c.cols; col++ {
			cell := c.cells[row*c.cols+col]
			if run.Len() > 0 && !sameStyle(cell, runStyle) {
				flush()
			}
			runStyle = cell
			run.WriteRune(cell.Rune)
		}
		flush()
	}
	return b.String()
}

// String returns the grid without styling.
func (c *CellCanvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			b.WriteRune(c.cells[row*c.cols+col].Rune)
		}
	}
	return b.String()
}

func sameStyle(a, b Cell) bool {
	return a.FG == b.FG && a.HasBG == b.HasBG && a.BG == b.BG && a.Faint == b.Faint
}

func (c *CellCanvas) style(cell Cell) lipgloss.Style {
	s := lipgloss.NewStyle()
	if cell.Rune != ' ' {
		s = s.Foreground(lipgloss.Color(HexString(cell.FG)))
	}
	switch {
	case cell.HasBG:
		s = s.Background(lipgloss.Color(HexString(cell.BG)))
	case c.background != (color.RGBA{}):
		s = s.Background(lipgloss.Color(HexString(c.background)))
	}
	if cell.Faint {
		s = s.Faint(true)
	}
	return s
}
