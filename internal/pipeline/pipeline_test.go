package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/observability"
	"github.com/couchcryptid/shelter-routing-service/internal/pipeline"
	"github.com/couchcryptid/shelter-routing-service/internal/routing"
	"github.com/couchcryptid/shelter-routing-service/internal/shelter"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	failures int
	calls    int
	loaded   []domain.OutputEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() (int, []domain.OutputEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, append([]domain.OutputEvent(nil), m.loaded...)
}

type stubResolver struct {
	source domain.RouteSource
}

func (s stubResolver) Resolve(_ context.Context, from domain.Coordinates, to domain.Shelter, mode domain.TransportMode) routing.Outcome {
	route := domain.FallbackRoute(from, to, mode)
	return routing.Outcome{Route: route, Source: s.source}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRouteRequest(t, "req-1", "shelter-1", "car")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	_, loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, raw.Value, loaded[0].Value)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	_, loaded := ldr.snapshot()
	assert.Empty(t, loaded)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int32
	raw := makeRouteRequest(t, "req-2", "shelter-1", "car")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad request")}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	calls, _ := ldr.snapshot()
	assert.Zero(t, calls)
	assert.Equal(t, int32(1), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int32
	batch := make([]domain.RawEvent, 0, 3)
	for _, id := range []string{"req-a", "req-b", "req-c"} {
		raw := makeRouteRequest(t, id, "shelter-2", "walk")
		raw.Commit = func(_ context.Context) error {
			commits.Add(1)
			return nil
		}
		batch = append(batch, raw)
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{batch}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	_, loaded := ldr.snapshot()
	assert.Len(t, loaded, 3)
	assert.Equal(t, int32(3), commits.Load())
}

func TestPipeline_Run_RetriesFailedLoad(t *testing.T) {
	var commits atomic.Int32
	raw := makeRouteRequest(t, "req-3", "shelter-1", "car")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{failures: 1}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	calls, loaded := ldr.snapshot()
	assert.Equal(t, 2, calls)
	assert.Len(t, loaded, 1)
	assert.Equal(t, int32(1), commits.Load())
}

func TestPipeline_Run_LoadNeverSucceedsDoesNotCommit(t *testing.T) {
	var commits atomic.Int32
	raw := makeRouteRequest(t, "req-4", "shelter-1", "car")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{failures: 1000}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, commits.Load())
	require.Error(t, p.CheckReadiness(context.Background()))
}

// rejectingTransformer rejects the requests whose key is listed.
type rejectingTransformer struct {
	reject map[string]bool
}

func (m rejectingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.reject[string(raw.Key)] {
		return domain.OutputEvent{}, errors.New("unknown shelter")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

// offsetRecorder collects committed offsets in commit order.
type offsetRecorder struct {
	mu      sync.Mutex
	offsets []int64
}

func (r *offsetRecorder) track(raw domain.RawEvent) domain.RawEvent {
	raw.Commit = func(_ context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.offsets = append(r.offsets, raw.Offset)
		return nil
	}
	return raw
}

func (r *offsetRecorder) committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.offsets...)
}

func mixedBatch(t *testing.T, rec *offsetRecorder) []domain.RawEvent {
	t.Helper()
	keys := []string{"good-0", "bad-1", "good-2", "bad-3"}
	batch := make([]domain.RawEvent, 0, len(keys))
	for i, key := range keys {
		raw := makeRouteRequest(t, key, "shelter-1", "car")
		raw.Topic = "route-requests"
		raw.Offset = int64(i)
		batch = append(batch, rec.track(raw))
	}
	return batch
}

var rejectBad = rejectingTransformer{reject: map[string]bool{"bad-1": true, "bad-3": true}}

func TestPipeline_Run_RejectedCommittedAfterLoadInOffsetOrder(t *testing.T) {
	rec := &offsetRecorder{}
	ext := &mockExtractor{batches: [][]domain.RawEvent{mixedBatch(t, rec)}}
	ldr := &mockLoader{failures: 1}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, rejectBad, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	_, loaded := ldr.snapshot()
	assert.Len(t, loaded, 2)
	assert.Equal(t, []int64{0, 1, 2, 3}, rec.committed())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_RejectedNotCommittedWhileLoadPending(t *testing.T) {
	rec := &offsetRecorder{}
	ext := &mockExtractor{batches: [][]domain.RawEvent{mixedBatch(t, rec)}}
	ldr := &mockLoader{failures: 1000}
	p := pipeline.New(ext, rejectBad, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, rec.committed(), "no offset may pass an unpublished request")
}

// --- transformer tests ---

func TestRouteTransformer_Transform(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.December, 1, 8, 30, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	tfm := pipeline.NewTransformer(shelter.NewCatalogue(), stubResolver{source: domain.SourceFallback}, discardLogger())
	raw := makeRouteRequest(t, "req-5", "shelter-3", "motorcycle")

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, []byte("req-5"), out.Key)
	assert.Equal(t, "motorcycle", out.Headers["transport_mode"])
	assert.Equal(t, "fallback", out.Headers["route_source"])
	assert.Equal(t, "2025-12-01T08:30:00Z", out.Headers["computed_at"])

	var event domain.RouteEvent
	require.NoError(t, json.Unmarshal(out.Value, &event))

	type summary struct {
		RequestID string
		ShelterID string
		Mode      domain.TransportMode
		Steps     int
		Points    int
	}
	want := summary{RequestID: "req-5", ShelterID: "shelter-3", Mode: domain.ModeMotorcycle, Steps: 2, Points: 13}
	got := summary{
		RequestID: event.RequestID,
		ShelterID: event.Route.Shelter.ID,
		Mode:      event.Route.TransportMode,
		Steps:     len(event.Route.Steps),
		Points:    len(event.Route.Path),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("route event mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteTransformer_Transform_Errors(t *testing.T) {
	tfm := pipeline.NewTransformer(shelter.NewCatalogue(), stubResolver{source: domain.SourceRoadNetwork}, discardLogger())

	tests := []struct {
		name string
		raw  domain.RawEvent
		is   error
	}{
		{name: "invalid json", raw: domain.RawEvent{Value: []byte("not json")}},
		{name: "unknown shelter", raw: makeRouteRequest(t, "req-6", "shelter-99", "car"), is: domain.ErrShelterNotFound},
		{name: "invalid mode", raw: makeRouteRequest(t, "req-7", "shelter-1", "helicopter"), is: domain.ErrInvalidTransportMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tfm.Transform(context.Background(), tt.raw)
			require.Error(t, err)
			if tt.is != nil {
				require.ErrorIs(t, err, tt.is)
			}
		})
	}
}

// --- helpers ---

func makeRouteRequest(t *testing.T, id, shelterID, mode string) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"request_id": id,
		"from":       map[string]float64{"lat": 3.1542, "lng": 101.7148},
		"shelter_id": shelterID,
		"mode":       mode,
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(id),
		Value: data,
	}
}
