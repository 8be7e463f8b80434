package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowrank/flowrank/internal/snapshot"
	"github.com/flowrank/flowrank/pkg/source"
)

// fakeSource emits a fixed score-per-region table and records every region it
// was asked to fetch.
type fakeSource struct {
	name     source.SourceType
	regional bool
	scores   map[string][]float64

	mu      sync.Mutex
	fetched []string
	block   chan struct{}
}

func (f *fakeSource) Name() source.SourceType { return f.name }
func (f *fakeSource) Regional() bool          { return f.regional }

func (f *fakeSource) Fetch(ctx context.Context, region string) source.Result {
	f.mu.Lock()
	f.fetched = append(f.fetched, region)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}

	var res source.Result
	for _, score := range f.scores[region] {
		res.Records = append(res.Records, source.Record{
			Workflow:    "wf",
			Source:      f.name,
			Region:      region,
			Metrics:     source.Metrics{EngagementScore: score},
			CollectedAt: time.Now().UTC(),
		})
	}
	return res
}

func (f *fakeSource) fetchedRegions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func TestRunMergesAndRanksAcrossSourcesAndRegions(t *testing.T) {
	video := &fakeSource{
		name:     source.SourceYouTube,
		regional: true,
		scores:   map[string][]float64{"US": {10, 90}, "IN": {5}},
	}
	forum := &fakeSource{
		name:   source.SourceForum,
		scores: map[string][]float64{"US": {50, 1}},
	}
	trends := &fakeSource{
		name:     source.SourceTrends,
		regional: true,
		scores:   map[string][]float64{"IN": {20}},
	}

	store := snapshot.NewStore()
	coll := New([]source.Source{video, forum, trends}, []string{"US", "IN"}, store)

	snap, err := coll.TryRun(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Records, 6)

	var scores []float64
	for _, rec := range snap.Records {
		scores = append(scores, rec.Metrics.EngagementScore)
	}
	require.Equal(t, []float64{90, 50, 20, 10, 5, 1}, scores)

	// The published snapshot is the returned one.
	require.Equal(t, snap, store.Get())
	require.True(t, store.Get().Refreshed())
}

func TestRunFetchesNonRegionalSourcesOnce(t *testing.T) {
	forum := &fakeSource{name: source.SourceForum, scores: map[string][]float64{"US": {1}}}
	video := &fakeSource{name: source.SourceYouTube, regional: true}

	store := snapshot.NewStore()
	coll := New([]source.Source{video, forum}, []string{"US", "IN"}, store)

	_, err := coll.TryRun(context.Background())
	require.NoError(t, err)

	// Forum runs once, tagged with the primary region; video runs per region.
	require.Equal(t, []string{"US"}, forum.fetchedRegions())
	require.Equal(t, []string{"US", "IN"}, video.fetchedRegions())

	snap := store.Get()
	require.Len(t, snap.Records, 1)
	require.Equal(t, "US", snap.Records[0].Region)
}

func TestRunPublishesEmptySnapshot(t *testing.T) {
	empty := &fakeSource{name: source.SourceYouTube, regional: true}

	store := snapshot.NewStore()
	coll := New([]source.Source{empty}, []string{"US"}, store)

	snap, err := coll.TryRun(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Records)
	require.True(t, store.Get().Refreshed())
}

func TestTryRunRejectsOverlappingCycles(t *testing.T) {
	block := make(chan struct{})
	slow := &fakeSource{name: source.SourceYouTube, regional: true, block: block}

	store := snapshot.NewStore()
	coll := New([]source.Source{slow}, []string{"US"}, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := coll.TryRun(context.Background())
		require.NoError(t, err)
	}()

	// Wait until the first cycle is inside Fetch.
	require.Eventually(t, coll.Running, time.Second, time.Millisecond)

	_, err := coll.TryRun(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRunning)

	close(block)
	<-done

	require.False(t, coll.Running())

	// With the first cycle finished a new one is allowed again.
	_, err = coll.TryRun(context.Background())
	require.NoError(t, err)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	src := &fakeSource{name: source.SourceYouTube, regional: true, scores: map[string][]float64{"US": {1}}}

	store := snapshot.NewStore()
	coll := New([]source.Source{src}, []string{"US"}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := coll.TryRun(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// Nothing was fetched or published.
	require.Empty(t, src.fetchedRegions())
	require.False(t, store.Get().Refreshed())
}
