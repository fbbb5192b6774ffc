package window

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/twin/pkg/model"
)

func d(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestAlign(t *testing.T) {
	series := []model.PriceSeries{
		{InstrumentID: "A", Points: []model.PricePoint{
			{Date: d(2), Close: 10},
			{Date: d(3), Close: 11},
			{Date: d(3).Add(9 * time.Hour), Close: 12}, // same trading day, later stamp wins
		}},
		{InstrumentID: "B", Points: []model.PricePoint{
			{Date: d(1), Close: 20},
			{Date: d(3), Close: 21},
		}},
	}

	m := Align(series)
	require.Equal(t, 3, m.Len())
	assert.Equal(t, []time.Time{d(1), d(2), d(3)}, m.Dates)
	assert.Equal(t, []string{"A", "B"}, m.IDs())

	a := m.Closes("A")
	assert.True(t, math.IsNaN(a[0]))
	assert.Equal(t, []float64{10, 12}, a[1:])

	b := m.Closes("B")
	assert.Equal(t, 20.0, b[0])
	assert.True(t, math.IsNaN(b[1]))
	assert.Equal(t, 21.0, b[2])

	assert.True(t, m.Has("A"))
	assert.False(t, m.Has("Z"))
	assert.Nil(t, m.Closes("Z"))
}

func TestMatrix_Tail(t *testing.T) {
	m := Align([]model.PriceSeries{
		{InstrumentID: "A", Points: []model.PricePoint{{Date: d(1), Close: 1}, {Date: d(2), Close: 2}, {Date: d(3), Close: 3}}},
		{InstrumentID: "B", Points: []model.PricePoint{{Date: d(1), Close: 5}}},
	})

	tail := m.Tail(2)
	assert.Equal(t, []time.Time{d(2), d(3)}, tail.Dates)
	assert.Equal(t, []float64{2, 3}, tail.Closes("A"))
	assert.False(t, tail.Has("B"))

	assert.Equal(t, 3, m.Tail(10).Len())
	assert.Equal(t, 3, m.Tail(0).Len())
}

func TestPairwise(t *testing.T) {
	nan := math.NaN()
	x, y := Pairwise([]float64{1, nan, 3, 4}, []float64{5, 6, nan, 8})
	assert.Equal(t, []float64{1, 4}, x)
	assert.Equal(t, []float64{5, 8}, y)

	x, y = Pairwise([]float64{nan}, []float64{1})
	assert.Empty(t, x)
	assert.Empty(t, y)
}
