package render

import "image/color"

// Op kinds recorded by Recorder.
const (
	OpClear        = "clear"
	OpSave         = "save"
	OpRestore      = "restore"
	OpTranslate    = "translate"
	OpScale        = "scale"
	OpStrokeLine   = "strokeLine"
	OpFillCircle   = "fillCircle"
	OpStrokeCircle = "strokeCircle"
	OpFillText     = "fillText"
)

// Op is one recorded drawing call with the style in effect when it was made.
type Op struct {
	Kind      string
	Args      []float64
	Text      string
	Stroke    color.RGBA
	Fill      color.RGBA
	LineWidth float64
	Dash      []float64
	Alpha     float64
}

// Recorder is a Canvas that records calls instead of drawing.
type Recorder struct {
	Width, Height float64
	Ops           []Op

	stroke, fill color.RGBA
	lineWidth    float64
	dash         []float64
	alpha        float64
}

// NewRecorder creates a Recorder reporting the given size.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{Width: width, Height: height, lineWidth: 1, alpha: 1}
}

func (r *Recorder) record(kind string, text string, args ...float64) {
	r.Ops = append(r.Ops, Op{
		Kind:      kind,
		Args:      args,
		Text:      text,
		Stroke:    r.stroke,
		Fill:      r.fill,
		LineWidth: r.lineWidth,
		Dash:      r.dash,
		Alpha:     r.alpha,
	})
}

func (r *Recorder) Size() (float64, float64) { return r.Width, r.Height }

// Clear drops previously recorded ops and records the clear.
func (r *Recorder) Clear() {
	r.Ops = r.Ops[:0]
	r.record(OpClear, "")
}

func (r *Recorder) Save()                  { r.record(OpSave, "") }
func (r *Recorder) Restore()               { r.record(OpRestore, "") }
func (r *Recorder) Translate(x, y float64) { r.record(OpTranslate, "", x, y) }
func (r *Recorder) Scale(k float64)        { r.record(OpScale, "", k) }

func (r *Recorder) SetStrokeColor(c color.RGBA)   { r.stroke = c }
func (r *Recorder) SetFillColor(c color.RGBA)     { r.fill = c }
func (r *Recorder) SetLineWidth(w float64)        { r.lineWidth = w }
func (r *Recorder) SetLineDash(pattern []float64) { r.dash = pattern }
func (r *Recorder) SetAlpha(a float64)            { r.alpha = a }

func (r *Recorder) StrokeLine(x1, y1, x2, y2 float64) {
	r.record(OpStrokeLine, "", x1, y1, x2, y2)
}

func (r *Recorder) FillCircle(x, y, radius float64)   { r.record(OpFillCircle, "", x, y, radius) }
func (r *Recorder) StrokeCircle(x, y, radius float64) { r.record(OpStrokeCircle, "", x, y, radius) }

func (r *Recorder) FillText(text string, x, y, size float64) {
	r.record(OpFillText, text, x, y, size)
}

// OfKind returns the recorded ops of kind, in order.
func (r *Recorder) OfKind(kind string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Index returns the position of the first op of kind, or -1.
func (r *Recorder) Index(kind string) int {
	for i, op := range r.Ops {
		if op.Kind == kind {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the last op of kind, or -1.
func (r *Recorder) LastIndex(kind string) int {
	for i := len(r.Ops) - 1; i >= 0; i-- {
		if r.Ops[i].Kind == kind {
			return i
		}
	}
	return -1
}
