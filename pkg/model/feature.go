package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Horizon selects which high/low band feeds the range position feature
type Horizon string

const (
	Horizon1Y Horizon = "1y"
	Horizon2Y Horizon = "2y"
)

// ParseHorizon parses "1y" or "2y". An empty string means Horizon1Y.
func ParseHorizon(s string) (Horizon, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1y":
		return Horizon1Y, nil
	case "2y":
		return Horizon2Y, nil
	default:
		return "", fmt.Errorf("unknown horizon %q (want 1y or 2y)", s)
	}
}

// Valid reports whether h is a known horizon
func (h Horizon) Valid() bool {
	return h == Horizon1Y || h == Horizon2Y
}

// Feature is one engineered column of the similarity vector
type Feature struct {
	Column    string // engineered column name
	WeightKey string // key in WeightProfile
}

// Weight keys
const (
	WeightPE            = "pe"
	WeightYield         = "yield"
	WeightPB            = "pb"
	WeightEPS           = "eps"
	WeightGross         = "gross"
	WeightOperating     = "operating"
	WeightNet           = "net"
	WeightRevenue       = "revenue"
	WeightStreak        = "streak"
	WeightBias20        = "bias20"
	WeightBias60        = "bias60"
	WeightBeta          = "beta"
	WeightChange        = "change"
	WeightPosition      = "position"
	WeightCapital       = "capital"
	WeightVol5          = "vol5"
	WeightVol20         = "vol20"
	WeightConsolidation = "consolidation"
	WeightTrend         = "trend"
)

// Column indices into FeatureVector
const (
	ColPE = iota
	ColYield
	ColPB
	ColEPS
	ColGrossMargin
	ColOperatingMargin
	ColNetMargin
	ColRevenueGrowth
	ColRevenueStreak
	ColBias20
	ColBias60
	ColBeta
	ColChangePct
	ColPosition
	ColCapitalLog
	ColVolMA5Log
	ColVolMA20Log
	ColConsolidationLog
	ColTrendCorr

	NumFeatures
)

// Features is the fixed column order shared by every instrument in a run
var Features = [NumFeatures]Feature{
	ColPE:               {Column: "pe_ratio", WeightKey: WeightPE},
	ColYield:            {Column: "yield_rate", WeightKey: WeightYield},
	ColPB:               {Column: "pb_ratio", WeightKey: WeightPB},
	ColEPS:              {Column: "eps", WeightKey: WeightEPS},
	ColGrossMargin:      {Column: "gross_margin", WeightKey: WeightGross},
	ColOperatingMargin:  {Column: "operating_margin", WeightKey: WeightOperating},
	ColNetMargin:        {Column: "net_margin", WeightKey: WeightNet},
	ColRevenueGrowth:    {Column: "revenue_growth", WeightKey: WeightRevenue},
	ColRevenueStreak:    {Column: "revenue_streak", WeightKey: WeightStreak},
	ColBias20:           {Column: "bias_20", WeightKey: WeightBias20},
	ColBias60:           {Column: "bias_60", WeightKey: WeightBias60},
	ColBeta:             {Column: "beta", WeightKey: WeightBeta},
	ColChangePct:        {Column: "change_pct", WeightKey: WeightChange},
	ColPosition:         {Column: "position", WeightKey: WeightPosition},
	ColCapitalLog:       {Column: "capital_log", WeightKey: WeightCapital},
	ColVolMA5Log:        {Column: "vol_ma5_log", WeightKey: WeightVol5},
	ColVolMA20Log:       {Column: "vol_ma20_log", WeightKey: WeightVol20},
	ColConsolidationLog: {Column: "consolidation_log", WeightKey: WeightConsolidation},
	ColTrendCorr:        {Column: "trend_corr", WeightKey: WeightTrend},
}

// FeatureVector is one instrument's engineered values in Features order
type FeatureVector []float64

// NewFeatureVector allocates a vector of NumFeatures missing values
func NewFeatureVector() FeatureVector {
	v := make(FeatureVector, NumFeatures)
	for i := range v {
		v[i] = Missing()
	}
	return v
}

// Copy creates a deep copy of the vector
func (v FeatureVector) Copy() FeatureVector {
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// Weight bounds and default
const (
	MinWeight     = 0
	MaxWeight     = 5
	DefaultWeight = 3
)

// ErrInvalidWeight is returned for unknown factor names or out-of-range weights
var ErrInvalidWeight = errors.New("invalid weight")

// WeightProfile maps weight keys to an importance in [0,5]. 0 excludes the factor.
type WeightProfile map[string]int

// WeightKeys returns every known weight key in column order
func WeightKeys() []string {
	keys := make([]string, NumFeatures)
	for i, f := range Features {
		keys[i] = f.WeightKey
	}
	return keys
}

// Validate rejects unknown keys and values outside [MinWeight, MaxWeight]
func (w WeightProfile) Validate() error {
	known := make(map[string]bool, NumFeatures)
	for _, f := range Features {
		known[f.WeightKey] = true
	}

	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !known[k] {
			return fmt.Errorf("%w: unknown factor %q", ErrInvalidWeight, k)
		}
		if v := w[k]; v < MinWeight || v > MaxWeight {
			return fmt.Errorf("%w: %s=%d outside [%d,%d]", ErrInvalidWeight, k, v, MinWeight, MaxWeight)
		}
	}
	return nil
}

// Vector expands the profile into column order, filling omitted keys with def
func (w WeightProfile) Vector(def int) []float64 {
	out := make([]float64, NumFeatures)
	for i, f := range Features {
		v, ok := w[f.WeightKey]
		if !ok {
			v = def
		}
		out[i] = float64(v)
	}
	return out
}

// Merge returns a copy of w with the keys of override applied on top
func (w WeightProfile) Merge(override WeightProfile) WeightProfile {
	out := make(WeightProfile, len(w)+len(override))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// UniformWeights returns a profile assigning v to every factor
func UniformWeights(v int) WeightProfile {
	w := make(WeightProfile, NumFeatures)
	for _, f := range Features {
		w[f.WeightKey] = v
	}
	return w
}

// SimilarityResult is one ranked instrument with its display attributes
type SimilarityResult struct {
	Snapshot    Snapshot `json:"snapshot"`
	Rank        int     `json:"rank"`
	Similarity  float64 `json:"similarity"` // [0,100]
	Distance    float64 `json:"distance"`
	TrendCorr   float64 `json:"trend_corr"`
	Position    float64 `json:"-"` // range position for the requested horizon, NaN if undefined
	VolumeSpike float64 `json:"vol_spike"`
	IsTarget    bool    `json:"is_target"`
}

// MarshalJSON encodes an undefined Position as null
func (r SimilarityResult) MarshalJSON() ([]byte, error) {
	type plain SimilarityResult
	return json.Marshal(struct {
		plain
		Position *float64 `json:"position"`
	}{
		plain:    plain(r),
		Position: nullable(r.Position),
	})
}
