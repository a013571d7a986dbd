package noise

// Field is a width x height grid of values in [0,1], stored row-major.
type Field struct {
	Width  int
	Height int
	Values []float64 // len = Width*Height
}

func newField(width, height int) *Field {
	return &Field{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
	}
}

func (f *Field) index(x, y int) int {
	return x + y*f.Width
}

func (f *Field) At(x, y int) float64 {
	return f.Values[f.index(x, y)]
}

func (f *Field) set(x, y int, v float64) {
	f.Values[f.index(x, y)] = v
}

func (f *Field) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

// MinMax reports the smallest and largest value in the field.
func (f *Field) MinMax() (lo, hi float64) {
	if len(f.Values) == 0 {
		return 0, 0
	}
	lo, hi = f.Values[0], f.Values[0]
	for _, v := range f.Values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
