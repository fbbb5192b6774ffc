package trend

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/tunogya/twin/pkg/model"
)

func series(id string, offset int, closes ...float64) model.PriceSeries {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := model.PriceSeries{InstrumentID: id}
	for i, c := range closes {
		s.Points = append(s.Points, model.PricePoint{Date: start.AddDate(0, 0, offset+i), Close: c})
	}
	return s
}

func TestCompute(t *testing.T) {
	c := NewComputer(DefaultConfig(), zerolog.Nop())

	prices := []model.PriceSeries{
		series("T", 0, 1, 2, 3, 2, 4),
		series("UP", 0, 10, 20, 30, 20, 40),
		series("DOWN", 0, -1, -2, -3, -2, -4),
		series("FLAT", 0, 5, 5, 5, 5, 5),
		series("SHORT", 4, 7),
		series("LATE", 5, 1, 2, 3),
	}
	universe := []string{"T", "UP", "DOWN", "FLAT", "SHORT", "LATE", "NOHIST"}

	corr := c.Compute("T", prices, universe)
	assert.Len(t, corr, len(universe))
	assert.InDelta(t, 1.0, corr["T"], 1e-12)
	assert.InDelta(t, 1.0, corr["UP"], 1e-12)
	assert.InDelta(t, -1.0, corr["DOWN"], 1e-12)
	assert.Equal(t, 0.0, corr["FLAT"])   // undefined coefficient
	assert.Equal(t, 0.0, corr["SHORT"])  // one overlapping bar
	assert.Equal(t, 0.0, corr["LATE"])   // no overlap
	assert.Equal(t, 0.0, corr["NOHIST"]) // no series
}

func TestCompute_TargetWithoutHistory(t *testing.T) {
	c := NewComputer(DefaultConfig(), zerolog.Nop())

	corr := c.Compute("T", []model.PriceSeries{series("A", 0, 1, 2, 3)}, []string{"T", "A"})
	assert.Equal(t, map[string]float64{"T": 0, "A": 0}, corr)
}

func TestCompute_Window(t *testing.T) {
	c := NewComputer(Config{Window: 3}, zerolog.Nop())

	// the first two bars move against the target, the last three move with it
	prices := []model.PriceSeries{
		series("T", 0, 1, 2, 3, 4, 5),
		series("A", 0, 9, 1, 3, 4, 5),
	}

	corr := c.Compute("T", prices, []string{"T", "A"})
	assert.InDelta(t, 1.0, corr["A"], 1e-12)
}

func TestNewComputer_Defaults(t *testing.T) {
	c := NewComputer(Config{MinOverlap: 1}, zerolog.Nop())
	assert.Equal(t, DefaultConfig(), c.Config())

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, asOf.AddDate(0, 0, -120), c.Since(asOf))
}
