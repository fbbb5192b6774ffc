package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/similarity"
)

func TestParseWeights(t *testing.T) {
	w, err := parseWeights("pe=5, trend=0,pb = 2")
	require.NoError(t, err)
	assert.Equal(t, model.WeightProfile{"pe": 5, "trend": 0, "pb": 2}, w)

	w, err = parseWeights("")
	require.NoError(t, err)
	assert.Empty(t, w)

	for _, bad := range []string{"pe", "pe=high", "pe=6", "alpha=1"} {
		_, err := parseWeights(bad)
		assert.Error(t, err, bad)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(fmt.Errorf("%w: x", similarity.ErrInvalidRequest)))
	assert.Equal(t, 3, exitCode(fmt.Errorf("%w: x", similarity.ErrTargetNotFound)))
	assert.Equal(t, 3, exitCode(model.ErrPresetNotFound))
	assert.Equal(t, 4, exitCode(similarity.ErrInsufficientUniverse))
	assert.Equal(t, 1, exitCode(fmt.Errorf("disk")))
}
