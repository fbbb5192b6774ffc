package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/twin/pkg/data"
	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/similarity"
)

type fakeFinder struct {
	last    similarity.Request
	results []model.SimilarityResult
	err     error
}

func (f *fakeFinder) FindSimilar(_ context.Context, req similarity.Request) ([]model.SimilarityResult, error) {
	f.last = req
	return f.results, f.err
}

type memPresets struct {
	mu      sync.Mutex
	presets map[string]model.Preset
}

func newMemPresets(presets ...model.Preset) *memPresets {
	m := &memPresets{presets: make(map[string]model.Preset)}
	for _, p := range presets {
		m.presets[p.Name] = p
	}
	return m
}

func (m *memPresets) Save(_ context.Context, p *model.Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets[p.Name] = *p
	return nil
}

func (m *memPresets) Get(_ context.Context, name string) (*model.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrPresetNotFound, name)
	}
	return &p, nil
}

func (m *memPresets) List(_ context.Context) ([]model.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Preset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memPresets) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[name]; !ok {
		return fmt.Errorf("%w: %s", model.ErrPresetNotFound, name)
	}
	delete(m.presets, name)
	return nil
}

func newTestServer(finder Finder, presets PresetStore) http.Handler {
	return New(Config{
		Addr:    ":0",
		Finder:  finder,
		Presets: presets,
		Log:     zerolog.Nop(),
	}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(&fakeFinder{}, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestSimilar_PassesRequest(t *testing.T) {
	finder := &fakeFinder{}
	h := newTestServer(finder, nil)

	rec := do(t, h, http.MethodPost, "/api/similar", `{
		"target_id": "2330",
		"weights": {"pe": 5, "trend": 0},
		"horizon": "2y",
		"industry_only": true,
		"limit": 5,
		"min_similarity": 40,
		"as_of": "2024-06-28"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "2330", finder.last.TargetID)
	assert.Equal(t, model.WeightProfile{"pe": 5, "trend": 0}, finder.last.Weights)
	assert.Equal(t, model.Horizon2Y, finder.last.Horizon)
	assert.True(t, finder.last.IndustryOnly)
	assert.Equal(t, 5, finder.last.Limit)
	assert.Equal(t, 40.0, finder.last.MinSimilarity)
	assert.Equal(t, time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), finder.last.AsOf)

	body := decode(t, rec)
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, "2330", meta["target_id"])
	assert.EqualValues(t, 0, meta["count"])
}

func TestSimilar_DefaultHorizonEchoed(t *testing.T) {
	finder := &fakeFinder{}
	rec := do(t, newTestServer(finder, nil), http.MethodPost, "/api/similar", `{"target_id":"2330"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, model.Horizon1Y, finder.last.Horizon)
	meta := decode(t, rec)["metadata"].(map[string]any)
	assert.Equal(t, "1y", meta["horizon"])
}

func TestSimilar_PresetLayering(t *testing.T) {
	finder := &fakeFinder{}
	presets := newMemPresets(model.Preset{
		Name: "value",
		Settings: model.PresetSettings{
			Weights:      model.WeightProfile{"pe": 5, "pb": 4, "trend": 1},
			Horizon:      model.Horizon2Y,
			IndustryOnly: true,
		},
	})
	h := newTestServer(finder, presets)

	rec := do(t, h, http.MethodPost, "/api/similar",
		`{"target_id":"2330","preset":"value","weights":{"trend":3},"industry_only":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, model.WeightProfile{"pe": 5, "pb": 4, "trend": 3}, finder.last.Weights)
	assert.Equal(t, model.Horizon2Y, finder.last.Horizon)
	assert.False(t, finder.last.IndustryOnly)

	rec = do(t, h, http.MethodPost, "/api/similar", `{"target_id":"2330","preset":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, newTestServer(finder, nil), http.MethodPost, "/api/similar", `{"target_id":"2330","preset":"value"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestSimilar_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest},
		{name: "bad horizon", body: `{"target_id":"A","horizon":"5y"}`, status: http.StatusBadRequest},
		{name: "bad as_of", body: `{"target_id":"A","as_of":"June"}`, status: http.StatusBadRequest},
		{name: "not found", body: `{"target_id":"A"}`, err: fmt.Errorf("%w: A", similarity.ErrTargetNotFound), status: http.StatusNotFound},
		{name: "insufficient", body: `{"target_id":"A"}`, err: similarity.ErrInsufficientUniverse, status: http.StatusUnprocessableEntity},
		{name: "invalid weight", body: `{"target_id":"A"}`, err: fmt.Errorf("%w: %w", similarity.ErrInvalidRequest, model.ErrInvalidWeight), status: http.StatusBadRequest},
		{name: "timeout", body: `{"target_id":"A"}`, err: context.DeadlineExceeded, status: http.StatusGatewayTimeout},
		{name: "storage", body: `{"target_id":"A"}`, err: fmt.Errorf("failed to fetch snapshots: disk gone"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(&fakeFinder{err: tt.err}, nil), http.MethodPost, "/api/similar", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestSimilar_EndToEnd(t *testing.T) {
	mk := func(id string, pe float64) model.Snapshot {
		s := model.NewSnapshot(model.Instrument{ID: id, Name: id, Industry: "Semis"})
		s.PE = pe
		s.YearHigh = 20
		s.YearLow = 10
		s.Close = 15
		return s
	}
	provider := data.NewMemoryProvider([]model.Snapshot{mk("A", 10), mk("B", 12), mk("C", 30)}, nil)
	engine := similarity.NewEngine(provider, similarity.DefaultConfig(), zerolog.Nop())

	weights := model.UniformWeights(0)
	weights[model.WeightPE] = 5
	payload, err := json.Marshal(map[string]any{"target_id": "A", "weights": weights})
	require.NoError(t, err)

	rec := do(t, newTestServer(engine, nil), http.MethodPost, "/api/similar", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data []struct {
			Rank       int      `json:"rank"`
			Similarity float64  `json:"similarity"`
			IsTarget   bool     `json:"is_target"`
			Position   *float64 `json:"position"`
			Snapshot   struct {
				ID string `json:"stock_id"`
			} `json:"snapshot"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)

	assert.Equal(t, "A", body.Data[0].Snapshot.ID)
	assert.True(t, body.Data[0].IsTarget)
	assert.Equal(t, 100.0, body.Data[0].Similarity)
	assert.Equal(t, "B", body.Data[1].Snapshot.ID)
	assert.Equal(t, "C", body.Data[2].Snapshot.ID)
	require.NotNil(t, body.Data[0].Position)
	assert.InDelta(t, 0.5, *body.Data[0].Position, 1e-9)
}

func TestPresets_CRUD(t *testing.T) {
	h := newTestServer(&fakeFinder{}, newMemPresets())

	rec := do(t, h, http.MethodPut, "/api/presets/growth", `{"weights":{"revenue":5},"horizon":"1y"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/presets/growth", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "growth", got["name"])

	rec = do(t, h, http.MethodGet, "/api/presets/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)

	rec = do(t, h, http.MethodPut, "/api/presets/bad", `{"weights":{"pe":9}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/presets/bad", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/presets/growth", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/presets/growth", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/presets/growth", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresets_Unavailable(t *testing.T) {
	h := newTestServer(&fakeFinder{}, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/presets/"},
		{http.MethodGet, "/api/presets/x"},
		{http.MethodPut, "/api/presets/x"},
		{http.MethodDelete, "/api/presets/x"},
	} {
		rec := do(t, h, tc.method, tc.path, `{}`)
		assert.Equal(t, http.StatusNotImplemented, rec.Code, tc.method+" "+tc.path)
	}
}
