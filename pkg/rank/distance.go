// Package rank scores instruments by weighted Euclidean distance to a target.
package rank

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/tunogya/twin/pkg/feature"
)

// Scored is the distance and similarity of one matrix row
type Scored struct {
	Index      int     // row in the feature matrix
	ID         string  // instrument id
	Distance   float64 // weighted Euclidean distance to the target
	Similarity float64 // (1 - distance/max_distance) * 100
	IsTarget   bool
}

// Score weights every row, measures its distance to the target row and maps
// distances onto [0,100]. weights must be in feature column order.
func Score(m *feature.Matrix, weights []float64, targetIdx int) []Scored {
	weighted := make([][]float64, m.Len())
	for i, row := range m.Rows {
		w := make([]float64, len(row))
		floats.MulTo(w, row, weights)
		weighted[i] = w
	}

	target := weighted[targetIdx]
	distances := make([]float64, len(weighted))
	for i, w := range weighted {
		distances[i] = floats.Distance(w, target, 2)
	}

	maxDist := floats.Max(distances)
	if maxDist == 0 {
		maxDist = 1
	}

	scored := make([]Scored, len(distances))
	for i, d := range distances {
		scored[i] = Scored{
			Index:      i,
			ID:         m.IDs[i],
			Distance:   d,
			Similarity: bound((1 - d/maxDist) * 100),
			IsTarget:   i == targetIdx,
		}
	}
	// The target is at distance zero by construction; pin it against float noise
	scored[targetIdx].Distance = 0
	scored[targetIdx].Similarity = 100

	return scored
}

// Sort orders results by similarity, descending. Ties keep their input order,
// except that the target goes first among equal scores.
func Sort(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].IsTarget && !scored[j].IsTarget
	})
}

// TopN returns the first n results; n <= 0 keeps everything
func TopN(scored []Scored, n int) []Scored {
	if n <= 0 || len(scored) <= n {
		return scored
	}
	return scored[:n]
}

// FilterByMinScore keeps results whose similarity is at least minScore.
// The target is always kept.
func FilterByMinScore(scored []Scored, minScore float64) []Scored {
	if minScore <= 0 {
		return scored
	}
	var filtered []Scored
	for _, s := range scored {
		if s.IsTarget || s.Similarity >= minScore {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func bound(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
