package feed

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/memstore"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLatest_DefaultBaseline(t *testing.T) {
	f := New(nil, Config{Seed: 7}, nil)

	s, err := f.Latest(context.Background(), "unknown_co")
	require.NoError(t, err)

	assert.Equal(t, "unknown_co", s.CompanyID)
	assert.InDelta(t, DefaultRevenue, s.MonthlyRevenue, DefaultRevenue*0.05+1e-9)
	assert.InDelta(t, DefaultExpenses, s.MonthlyExpenses, DefaultExpenses*0.02+1e-9)
	assert.InDelta(t, DefaultCash, s.CashBalance, DefaultCash*0.05+1e-9)
	assert.InDelta(t, s.CashBalance/s.MonthlyExpenses, s.RunwayMonths, 1e-9)
	assert.Contains(t, sentiments, s.Market.Sentiment)
	assert.NotEmpty(t, s.Recommendations)
	assert.LessOrEqual(t, len(s.Recommendations), maxRecommendations)
}

func TestLatest_UsesStoredContext(t *testing.T) {
	store := memstore.NewContextStore()
	require.NoError(t, store.Upsert(context.Background(), entities.FinancialContext{
		CompanyID:       "acme",
		CurrentCash:     1_000_000,
		MonthlyRevenue:  500_000,
		MonthlyExpenses: 300_000,
	}))
	f := New(store, Config{Seed: 1}, nil)

	s, err := f.Latest(context.Background(), "acme")
	require.NoError(t, err)
	assert.InDelta(t, 500_000, s.MonthlyRevenue, 25_000+1e-9)
	assert.InDelta(t, 300_000, s.MonthlyExpenses, 6_000+1e-9)

	_, err = f.Latest(context.Background(), "")
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestLatest_ExtremeContextStaysEncodable(t *testing.T) {
	store := memstore.NewContextStore()
	require.NoError(t, store.Upsert(context.Background(), entities.FinancialContext{
		CompanyID:       "whale",
		CurrentCash:     math.MaxFloat64,
		MonthlyRevenue:  math.MaxFloat64,
		MonthlyExpenses: 1e-300,
	}))
	f := New(store, Config{Seed: 3}, nil)

	for range 20 {
		s, err := f.Latest(context.Background(), "whale")
		require.NoError(t, err)
		_, err = json.Marshal(s)
		require.NoError(t, err)
		assert.False(t, math.IsInf(s.CashBalance, 0))
		assert.False(t, math.IsInf(s.RunwayMonths, 0))
	}
}

func TestLatest_SeedIsReproducible(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := New(nil, Config{Seed: 42}, nil).snapshot(context.Background(), "co", now)
	b := New(nil, Config{Seed: 42}, nil).snapshot(context.Background(), "co", now)
	assert.Equal(t, a, b)
}

func TestAssessHealth(t *testing.T) {
	cases := []struct {
		runway float64
		status string
		score  float64
	}{
		{24, "excellent", 100},
		{18, "good", 100},
		{9, "concerning", 50},
		{3, "critical", 100.0 / 6},
		{0, "critical", 0},
	}
	for _, tc := range cases {
		h := assessHealth(tc.runway)
		assert.Equal(t, tc.status, h.Status, "runway %v", tc.runway)
		assert.InDelta(t, tc.score, h.Score, 1e-9, "runway %v", tc.runway)
	}
}

func TestAlerts(t *testing.T) {
	critical := alerts(Snapshot{RunwayMonths: 4.25, GrowthRate: -12})
	require.Len(t, critical, 2)
	assert.Equal(t, "critical", critical[0].Level)
	assert.Equal(t, "Critical: Only 4.2 months of runway remaining", critical[0].Message)
	assert.Equal(t, "Revenue declining by 12.0%", critical[1].Message)

	warning := alerts(Snapshot{RunwayMonths: 8})
	require.Len(t, warning, 1)
	assert.Equal(t, "warning", warning[0].Level)

	assert.Empty(t, alerts(Snapshot{RunwayMonths: 20, GrowthRate: 3}))
}

func TestRecommendations(t *testing.T) {
	bearish := recommendations(Snapshot{RunwayMonths: 5, GrowthRate: -1, Market: Market{Sentiment: "bearish"}})
	assert.Len(t, bearish, maxRecommendations)
	assert.Contains(t, bearish[0], "aggressive cost reduction")
	assert.Equal(t, "Focus on revenue recovery strategies", bearish[1])

	bullish := recommendations(Snapshot{RunwayMonths: 30, GrowthRate: 2, Market: Market{Sentiment: "bullish"}})
	assert.Contains(t, bullish[0], "strategic investments")
	assert.Len(t, bullish, 4)
}

func TestRun_PublishesToSubscribers(t *testing.T) {
	f := New(nil, Config{Interval: 10 * time.Millisecond, Seed: 3}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	ch, unsubscribe, err := f.Subscribe("acme")
	require.NoError(t, err)
	other, _, err := f.Subscribe("globex")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Subscribers())

	select {
	case s := <-ch:
		assert.Equal(t, "acme", s.CompanyID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, f.Subscribers())

	cancel()
	require.NoError(t, <-done)

	// Run closes remaining subscriptions on exit.
	for range other {
	}
	_, _, err = f.Subscribe("acme")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublish_KeepsNewestForSlowSubscriber(t *testing.T) {
	f := New(nil, Config{Seed: 9}, nil)
	ch, cancel, err := f.Subscribe("acme")
	require.NoError(t, err)
	defer cancel()

	f.publish(Snapshot{CompanyID: "acme", CashBalance: 1})
	f.publish(Snapshot{CompanyID: "acme", CashBalance: 2})

	s := <-ch
	assert.Equal(t, 2.0, s.CashBalance)
}
