package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"smart-quiz-service/internal/domain"
)

// DefaultRecentScores is how many most-recent scores analytics reports.
const DefaultRecentScores = 10

// DefaultTrendThreshold is the score-point gap between window halves that
// counts as a real trend rather than noise.
const DefaultTrendThreshold = 5.0

// scoreBuckets are the fixed histogram ranges, low to high.
var scoreBuckets = []struct {
	label string
	low   int
	high  int
}{
	{"0-20", 0, 20},
	{"21-40", 21, 40},
	{"41-60", 41, 60},
	{"61-80", 61, 80},
	{"81-100", 81, 100},
}

// Analytics recomputes derived statistics from Result rows on demand.
// Concurrent identical requests are deduplicated with singleflight; nothing
// is cached, so reads stay consistent with the store.
type Analytics struct {
	store          Store
	recentN        int
	trendThreshold float64
	now            func() time.Time
	sf             singleflight.Group
}

// AnalyticsOption customizes an Analytics aggregator.
type AnalyticsOption func(*Analytics)

// WithRecentScores overrides how many recent scores are reported.
func WithRecentScores(n int) AnalyticsOption {
	return func(a *Analytics) { a.recentN = n }
}

// WithTrendThreshold overrides the trend classification threshold.
func WithTrendThreshold(t float64) AnalyticsOption {
	return func(a *Analytics) { a.trendThreshold = t }
}

// WithAnalyticsClock injects a clock for deterministic tests.
func WithAnalyticsClock(now func() time.Time) AnalyticsOption {
	return func(a *Analytics) { a.now = now }
}

func NewAnalytics(store Store, opts ...AnalyticsOption) *Analytics {
	a := &Analytics{
		store:          store,
		recentN:        DefaultRecentScores,
		trendThreshold: DefaultTrendThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CategoryAnalytics aggregates results for one category, or all categories
// when categoryID is 0. A category with zero results yields all-zero stats.
func (a *Analytics) CategoryAnalytics(ctx context.Context, categoryID int64) (domain.CategoryAnalytics, error) {
	v, err, _ := a.sf.Do(fmt.Sprintf("category:%d", categoryID), func() (interface{}, error) {
		return a.categoryAnalytics(ctx, categoryID)
	})
	if err != nil {
		return domain.CategoryAnalytics{}, err
	}
	return v.(domain.CategoryAnalytics), nil
}

func (a *Analytics) categoryAnalytics(ctx context.Context, categoryID int64) (domain.CategoryAnalytics, error) {
	stats := domain.CategoryAnalytics{CategoryID: categoryID, RecentScores: []int{}}

	if categoryID != 0 {
		category, err := a.store.GetCategory(ctx, categoryID)
		if err != nil {
			return domain.CategoryAnalytics{}, err
		}
		stats.CategoryName = category.Name
	}

	results, err := a.store.ListResults(ctx, domain.ResultFilter{CategoryID: categoryID})
	if err != nil {
		return domain.CategoryAnalytics{}, err
	}

	stats.ScoreDistribution = make([]domain.ScoreBucket, len(scoreBuckets))
	for i, b := range scoreBuckets {
		stats.ScoreDistribution[i] = domain.ScoreBucket{Range: b.label}
	}
	stats.TotalAttempts = len(results)
	if len(results) == 0 {
		return stats, nil
	}

	sum := 0
	best, worst := results[0].Score, results[0].Score
	for _, r := range results {
		sum += r.Score
		if r.Score > best {
			best = r.Score
		}
		if r.Score < worst {
			worst = r.Score
		}
		for i, b := range scoreBuckets {
			if r.Score >= b.low && r.Score <= b.high {
				stats.ScoreDistribution[i].Count++
				break
			}
		}
	}
	stats.AverageScore = float64(sum) / float64(len(results))
	stats.BestScore = best
	stats.WorstScore = worst

	recent := make([]domain.Result, len(results))
	copy(recent, results)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CompletedAt.After(recent[j].CompletedAt)
	})
	if len(recent) > a.recentN {
		recent = recent[:a.recentN]
	}
	for _, r := range recent {
		stats.RecentScores = append(stats.RecentScores, r.Score)
	}
	return stats, nil
}

// PerformanceTrend buckets a user's results in the trailing window by
// calendar day and classifies the trajectory by comparing the first-half
// daily mean to the second-half daily mean. Fewer than 2 daily points, or an
// empty half, is insufficient evidence and yields "stable".
func (a *Analytics) PerformanceTrend(ctx context.Context, userName string, days int) (domain.PerformanceTrend, error) {
	if userName == "" {
		return domain.PerformanceTrend{}, fmt.Errorf("%w: user name is required", domain.ErrValidation)
	}
	if days <= 0 {
		return domain.PerformanceTrend{}, fmt.Errorf("%w: days must be positive", domain.ErrValidation)
	}

	v, err, _ := a.sf.Do(fmt.Sprintf("trend:%s:%d", userName, days), func() (interface{}, error) {
		return a.performanceTrend(ctx, userName, days)
	})
	if err != nil {
		return domain.PerformanceTrend{}, err
	}
	return v.(domain.PerformanceTrend), nil
}

func (a *Analytics) performanceTrend(ctx context.Context, userName string, days int) (domain.PerformanceTrend, error) {
	now := a.now()
	windowStart := now.AddDate(0, 0, -days)

	results, err := a.store.ListResults(ctx, domain.ResultFilter{UserName: userName, Since: windowStart})
	if err != nil {
		return domain.PerformanceTrend{}, err
	}

	trend := domain.PerformanceTrend{
		UserName:       userName,
		PeriodDays:     days,
		Daily:          []domain.DailyScore{},
		TrendDirection: "stable",
		TotalAttempts:  len(results),
	}
	if len(results) == 0 {
		return trend, nil
	}

	type dayAgg struct {
		sum   int
		count int
	}
	byDay := make(map[string]*dayAgg)
	for _, r := range results {
		day := r.CompletedAt.Format("2006-01-02")
		agg, ok := byDay[day]
		if !ok {
			agg = &dayAgg{}
			byDay[day] = agg
		}
		agg.sum += r.Score
		agg.count++
	}

	dates := make([]string, 0, len(byDay))
	for day := range byDay {
		dates = append(dates, day)
	}
	sort.Strings(dates)

	total := 0.0
	for _, day := range dates {
		agg := byDay[day]
		mean := float64(agg.sum) / float64(agg.count)
		trend.Daily = append(trend.Daily, domain.DailyScore{Date: day, AverageScore: mean, Attempts: agg.count})
		total += mean
	}
	trend.AverageScore = total / float64(len(trend.Daily))

	if len(trend.Daily) < 2 {
		return trend, nil
	}

	midpoint := now.Add(-time.Duration(days) * 24 * time.Hour / 2).Format("2006-01-02")
	var firstSum, secondSum float64
	var firstN, secondN int
	for _, d := range trend.Daily {
		if d.Date < midpoint {
			firstSum += d.AverageScore
			firstN++
		} else {
			secondSum += d.AverageScore
			secondN++
		}
	}
	if firstN == 0 || secondN == 0 {
		return trend, nil
	}

	delta := secondSum/float64(secondN) - firstSum/float64(firstN)
	switch {
	case delta > a.trendThreshold:
		trend.TrendDirection = "improving"
	case delta < -a.trendThreshold:
		trend.TrendDirection = "declining"
	}
	return trend, nil
}
