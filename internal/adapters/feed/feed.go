// Package feed produces periodic live snapshots of a company's finances
// and pushes them to subscribers.
package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

// Baseline figures used for companies with no stored context.
const (
	DefaultRevenue  = 50_000.0
	DefaultExpenses = 35_000.0
	DefaultCash     = 200_000.0
)

const healthyRunwayMonths = 18.0

// Snapshot is one immutable reading of the feed.
type Snapshot struct {
	CompanyID       string    `json:"company_id"`
	Timestamp       time.Time `json:"timestamp"`
	MonthlyRevenue  float64   `json:"monthly_revenue"`
	MonthlyExpenses float64   `json:"monthly_expenses"`
	CashBalance     float64   `json:"cash_balance"`
	RunwayMonths    float64   `json:"runway_months"`
	GrowthRate      float64   `json:"growth_rate"`
	Market          Market    `json:"market_conditions"`
	Health          Health    `json:"health"`
	Alerts          []Alert   `json:"alerts"`
	Recommendations []string  `json:"recommendations"`
}

// Market holds simulated external indicators.
type Market struct {
	Sentiment         string  `json:"sentiment"`
	Trend             string  `json:"trend"`
	Volatility        float64 `json:"volatility"`
	Confidence        float64 `json:"confidence"`
	InterestRate      float64 `json:"interest_rate"`
	InflationRate     float64 `json:"inflation_rate"`
	SectorPerformance float64 `json:"sector_performance"`
}

// Health summarises the runway.
type Health struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

// Alert is a threshold breach.
type Alert struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// Config tunes the feed.
type Config struct {
	Interval time.Duration
	// Seed makes readings reproducible when non-zero.
	Seed uint64
}

// ErrClosed is returned by Subscribe after Run has returned.
var ErrClosed = errors.New("feed closed")

// Feed generates snapshots on a timer for every company with subscribers.
type Feed struct {
	contexts ports.ContextStore
	interval time.Duration
	logger   *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.Mutex
	subs   map[string]map[chan Snapshot]struct{}
	closed bool
}

// New creates a feed reading baselines from contexts. contexts may be nil.
func New(contexts ports.ContextStore, cfg Config, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Feed{
		contexts: contexts,
		interval: cfg.Interval,
		logger:   logger.Named("feed"),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		subs:     make(map[string]map[chan Snapshot]struct{}),
	}
}

// Latest produces a fresh snapshot for the company.
func (f *Feed) Latest(ctx context.Context, companyID string) (Snapshot, error) {
	if companyID == "" {
		return Snapshot{}, entities.Invalid("company_id", "is required")
	}
	return f.snapshot(ctx, companyID, time.Now().UTC()), nil
}

// Subscribe registers for snapshots of the company. The returned channel
// keeps only the newest unread snapshot and is closed by cancel or when Run
// returns.
func (f *Feed) Subscribe(companyID string) (<-chan Snapshot, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, nil, ErrClosed
	}
	ch := make(chan Snapshot, 1)
	if f.subs[companyID] == nil {
		f.subs[companyID] = make(map[chan Snapshot]struct{})
	}
	f.subs[companyID][ch] = struct{}{}

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[companyID][ch]; !ok {
			return
		}
		delete(f.subs[companyID], ch)
		if len(f.subs[companyID]) == 0 {
			delete(f.subs, companyID)
		}
		close(ch)
	}
	return ch, cancel, nil
}

// Subscribers returns the number of open subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, set := range f.subs {
		n += len(set)
	}
	return n
}

// Run publishes snapshots every interval until ctx is done, then closes
// every subscription.
func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info("feed started", zap.Duration("interval", f.interval))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	defer f.shutdown()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("feed stopped")
			return nil
		case t := <-ticker.C:
			f.tick(ctx, t.UTC())
		}
	}
}

func (f *Feed) tick(ctx context.Context, now time.Time) {
	f.mu.Lock()
	companies := make([]string, 0, len(f.subs))
	for id := range f.subs {
		companies = append(companies, id)
	}
	f.mu.Unlock()

	for _, id := range companies {
		f.publish(f.snapshot(ctx, id, now))
	}
}

func (f *Feed) publish(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs[s.CompanyID] {
		select {
		case ch <- s:
		default:
			// Drop the stale reading so the subscriber sees the newest.
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func (f *Feed) shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for id, set := range f.subs {
		for ch := range set {
			close(ch)
		}
		delete(f.subs, id)
	}
}

func (f *Feed) baseline(ctx context.Context, companyID string) (revenue, expenses, cash float64) {
	revenue, expenses, cash = DefaultRevenue, DefaultExpenses, DefaultCash
	if f.contexts == nil {
		return revenue, expenses, cash
	}
	fc, err := f.contexts.Get(ctx, companyID)
	if err != nil {
		if !errors.Is(err, entities.ErrNotFound) {
			f.logger.Warn("reading context failed", zap.String("company_id", companyID), zap.Error(err))
		}
		return revenue, expenses, cash
	}
	return fc.MonthlyRevenue, fc.MonthlyExpenses, fc.CurrentCash
}

func (f *Feed) snapshot(ctx context.Context, companyID string, now time.Time) Snapshot {
	revenue, expenses, cash := f.baseline(ctx, companyID)

	f.rngMu.Lock()
	volatility := uniform(f.rng, 0.95, 1.05)
	expenseJitter := uniform(f.rng, 0.98, 1.02)
	cashJitter := uniform(f.rng, -0.05, 0.05)
	market := Market{
		Sentiment:         sentiments[f.rng.IntN(len(sentiments))],
		Volatility:        volatility,
		Confidence:        uniform(f.rng, 0.7, 0.95),
		InterestRate:      uniform(f.rng, 3.0, 7.0),
		InflationRate:     uniform(f.rng, 2.0, 5.0),
		SectorPerformance: uniform(f.rng, -5.0, 10.0),
	}
	f.rngMu.Unlock()

	market.Trend = "down"
	if volatility > 1 {
		market.Trend = "up"
	}

	s := Snapshot{
		CompanyID:       companyID,
		Timestamp:       now,
		MonthlyRevenue:  clamp(revenue * volatility),
		MonthlyExpenses: clamp(expenses * expenseJitter),
		CashBalance:     clamp(cash * (1 + cashJitter)),
		GrowthRate:      (volatility - 1) * 100,
		Market:          market,
	}
	s.RunwayMonths = runway(s.CashBalance, s.MonthlyExpenses)
	s.Health = assessHealth(s.RunwayMonths)
	s.Alerts = alerts(s)
	s.Recommendations = recommendations(s)
	return s
}

var sentiments = []string{"bullish", "bearish", "neutral"}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// runway is cash over gross monthly spend, capped for zero spend.
func runway(cash, expenses float64) float64 {
	if expenses <= 0 {
		return healthyRunwayMonths * 10
	}
	return clamp(math.Max(0, cash/expenses))
}

// clamp keeps jittered figures inside the float64 range.
func clamp(v float64) float64 {
	return math.Max(-math.MaxFloat64, math.Min(math.MaxFloat64, v))
}

func assessHealth(runway float64) Health {
	h := Health{Score: math.Min(100, math.Max(0, runway/healthyRunwayMonths*100))}
	switch {
	case runway > 18:
		h.Status = "excellent"
	case runway > 12:
		h.Status = "good"
	case runway > 6:
		h.Status = "concerning"
	default:
		h.Status = "critical"
	}
	return h
}

func alerts(s Snapshot) []Alert {
	out := []Alert{}
	switch {
	case s.RunwayMonths < 6:
		out = append(out, Alert{
			Level:   "critical",
			Message: fmt.Sprintf("Critical: Only %.1f months of runway remaining", s.RunwayMonths),
			Action:  "Immediate action required",
		})
	case s.RunwayMonths < 12:
		out = append(out, Alert{
			Level:   "warning",
			Message: fmt.Sprintf("Warning: %.1f months of runway remaining", s.RunwayMonths),
			Action:  "Consider cost optimization",
		})
	}
	if s.GrowthRate < -10 {
		out = append(out, Alert{
			Level:   "warning",
			Message: fmt.Sprintf("Revenue declining by %.1f%%", math.Abs(s.GrowthRate)),
			Action:  "Review revenue strategies",
		})
	}
	return out
}

const maxRecommendations = 5

func recommendations(s Snapshot) []string {
	var out []string
	switch {
	case s.RunwayMonths < 12 && s.Market.Sentiment == "bearish":
		out = append(out, "Consider aggressive cost reduction due to low runway and poor market conditions")
	case s.RunwayMonths > 18 && s.Market.Sentiment == "bullish":
		out = append(out, "Good time to consider strategic investments or expansion")
	}
	if s.GrowthRate < 0 {
		out = append(out, "Focus on revenue recovery strategies")
	}
	out = append(out,
		"Monitor real-time metrics for early warning signs",
		"Adjust forecasts based on live market data",
		"Consider scenario planning for different market conditions",
	)
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
