package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatFrame(w, h int, value byte) Frame {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = value
	}
	return Frame{Width: w, Height: h, Format: RAW8, Data: data}
}

func TestExtract_AverageMaxMin(t *testing.T) {
	fr := flatFrame(4, 4, 100)
	e := New()
	result := e.Extract(fr)

	require.Contains(t, result, "average")
	require.Contains(t, result, "max")
	require.Contains(t, result, "min")
	assert.InDelta(t, 100.0, result["average"].Real, 0.001)
	assert.EqualValues(t, 100, result["max"].Int)
	assert.EqualValues(t, 100, result["min"].Int)
}

func TestExtract_AlwaysIncludesExtractionTime(t *testing.T) {
	fr := flatFrame(2, 2, 10)
	e := New()
	result := e.Extract(fr)
	require.Contains(t, result, extractionTimeKey)
}

func TestExtract_HistogramHasSixteenBins(t *testing.T) {
	fr := flatFrame(8, 8, 255)
	e := New()
	result := e.Extract(fr)
	require.Contains(t, result, "histogram")
	assert.Len(t, result["histogram"].IntList, histogramBins)
}

func TestExtract_UnrecognisedFormatYieldsPartialResult(t *testing.T) {
	fr := Frame{Width: 4, Height: 4, Format: Format(0xFF), Data: make([]byte, 16)}
	e := New()
	result := e.Extract(fr)
	assert.NotContains(t, result, "average")
	assert.Contains(t, result, extractionTimeKey)
}

func TestExtract_DisabledFeatureOmitted(t *testing.T) {
	fr := flatFrame(4, 4, 50)
	e := New()
	e.Enable("noise_level", false)
	result := e.Extract(fr)
	assert.NotContains(t, result, "noise_level")
	assert.Contains(t, result, "average")
}

func TestExtract_PanickingFeatureDoesNotAffectOthers(t *testing.T) {
	fr := flatFrame(4, 4, 50)
	e := New()
	e.Register("boom", func(Frame) (Value, error) {
		panic("synthetic failure")
	})
	result := e.Extract(fr)
	assert.NotContains(t, result, "boom")
	assert.Contains(t, result, "average")
}

func TestExtract_EdgeCountDetectsStepChange(t *testing.T) {
	data := make([]byte, 4*4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x >= 2 {
				data[y*4+x] = 200
			}
		}
	}
	fr := Frame{Width: 4, Height: 4, Format: RAW8, Data: data}
	e := New()
	result := e.Extract(fr)
	require.Contains(t, result, "edge_count")
	assert.Greater(t, result["edge_count"].Int, int64(0))
}
