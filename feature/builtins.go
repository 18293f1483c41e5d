package feature

import "math"

// Func computes one named feature over a frame, returning an
// index.Variant-shaped result via the generic Value type so this package
// doesn't need to import index (avoiding an import cycle with index's
// Access-backed consumers).
type Func func(fr Frame) (Value, error)

// ValueKind mirrors index.VariantKind's shape so Extractor's result map can
// be converted to index.Variant by the caller without this package
// depending on index.
type ValueKind uint8

const (
	KindReal ValueKind = iota
	KindInt
	KindIntList
)

type Value struct {
	Kind    ValueKind
	Real    float64
	Int     int64
	IntList []int64
}

func realValue(v float64) Value    { return Value{Kind: KindReal, Real: v} }
func intValue(v int64) Value       { return Value{Kind: KindInt, Int: v} }
func intListValue(v []int64) Value { return Value{Kind: KindIntList, IntList: v} }

func builtinAverage(fr Frame) (Value, error) {
	if !fr.valid() {
		return Value{}, errInvalidFrame
	}
	var sum int64
	n := fr.Width * fr.Height
	for y := 0; y < fr.Height; y++ {
		for x := 0; x < fr.Width; x++ {
			sum += int64(fr.pixel(x, y))
		}
	}
	return realValue(float64(sum) / float64(n)), nil
}

func builtinMax(fr Frame) (Value, error) {
	if !fr.valid() {
		return Value{}, errInvalidFrame
	}
	max := fr.pixel(0, 0)
	for y := 0; y < fr.Height; y++ {
		for x := 0; x < fr.Width; x++ {
			if v := fr.pixel(x, y); v > max {
				max = v
			}
		}
	}
	return intValue(int64(max)), nil
}

func builtinMin(fr Frame) (Value, error) {
	if !fr.valid() {
		return Value{}, errInvalidFrame
	}
	min := fr.pixel(0, 0)
	for y := 0; y < fr.Height; y++ {
		for x := 0; x < fr.Width; x++ {
			if v := fr.pixel(x, y); v < min {
				min = v
			}
		}
	}
	return intValue(int64(min)), nil
}

const histogramBins = 16

func builtinHistogram(fr Frame) (Value, error) {
	if !fr.valid() {
		return Value{}, errInvalidFrame
	}
	maxPossible := (1 << (8 * fr.Format.bytesPerPixel())) - 1
	binWidth := (maxPossible + 1) / histogramBins
	if binWidth == 0 {
		binWidth = 1
	}

	bins := make([]int64, histogramBins)
	for y := 0; y < fr.Height; y++ {
		for x := 0; x < fr.Width; x++ {
			bin := fr.pixel(x, y) / binWidth
			if bin >= histogramBins {
				bin = histogramBins - 1
			}
			bins[bin]++
		}
	}
	return intListValue(bins), nil
}

const edgeThreshold = 30

func builtinEdgeCount(fr Frame) (Value, error) {
	if !fr.valid() {
		return Value{}, errInvalidFrame
	}
	var count int64
	for y := 0; y < fr.Height; y++ {
		for x := 0; x < fr.Width; x++ {
			v := fr.pixel(x, y)
			if x+1 < fr.Width && absInt(v-fr.pixel(x+1, y)) > edgeThreshold {
				count++
			}
			if y+1 < fr.Height && absInt(v-fr.pixel(x, y+1)) > edgeThreshold {
				count++
			}
		}
	}
	return intValue(count), nil
}

const blockSize = 8

func builtinNoiseLevel(fr Frame) (Value, error) {
	if !fr.valid() {
		return Value{}, errInvalidFrame
	}

	var total float64
	var blocks int
	for by := 0; by < fr.Height; by += blockSize {
		for bx := 0; bx < fr.Width; bx += blockSize {
			total += blockStdDev(fr, bx, by)
			blocks++
		}
	}
	if blocks == 0 {
		return realValue(0), nil
	}
	return realValue(total / float64(blocks)), nil
}

func blockStdDev(fr Frame, bx, by int) float64 {
	maxX := bx + blockSize
	if maxX > fr.Width {
		maxX = fr.Width
	}
	maxY := by + blockSize
	if maxY > fr.Height {
		maxY = fr.Height
	}

	var sum, sumSq float64
	n := 0
	for y := by; y < maxY; y++ {
		for x := bx; x < maxX; x++ {
			v := float64(fr.pixel(x, y))
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
