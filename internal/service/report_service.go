package service

import (
	"context"
	"sort"

	"recolecta/internal/cache"
	"recolecta/internal/models"
	"recolecta/internal/observability"
	"recolecta/internal/repository"
	"recolecta/internal/units"
)

// CategoryBucket is the aggregated figure for one residue category.
// Totals are normalized to the canonical base unit of the category's
// dimension; Share is the percentage of the grand total for that base.
type CategoryBucket struct {
	Category    string  `json:"category"`
	PickupCount int     `json:"pickup_count"`
	Total       float64 `json:"total"`
	BaseUnit    string  `json:"base_unit"`
	Share       float64 `json:"share"`
}

// SummaryReport is the full aggregation output: per-category buckets, grand
// totals per base unit, and the request counts shown on the dashboard.
type SummaryReport struct {
	Categories        []CategoryBucket   `json:"categories"`
	GrandTotals       map[string]float64 `json:"grand_totals"`
	PendingRequests   int64              `json:"pending_requests"`
	CompletedRequests int64              `json:"completed_requests"`
}

// ReportService computes aggregate figures over collected-residue records.
// Results are cached; completing a pickup invalidates the cache.
type ReportService struct {
	pickupRepo  repository.PickupRepository
	requestRepo repository.RequestRepository
	normalizer  *units.Normalizer
}

// NewReportService wires the aggregation reporter.
func NewReportService(
	pickupRepo repository.PickupRepository,
	requestRepo repository.RequestRepository,
	normalizer *units.Normalizer,
) *ReportService {
	return &ReportService{pickupRepo: pickupRepo, requestRepo: requestRepo, normalizer: normalizer}
}

// Summary aggregates every collected-residue record into per-category
// totals and shares. An empty record set yields an empty report with zero
// totals, never an error.
func (s *ReportService) Summary(ctx context.Context) (*SummaryReport, error) {
	var report SummaryReport
	found, err := cache.GetJSON(ctx, cache.ReportSummaryKey, &report)
	if err == nil && found {
		observability.ReportCacheHits.WithLabelValues("hit").Inc()
		return &report, nil
	}
	observability.ReportCacheHits.WithLabelValues("miss").Inc()

	residues, err := s.pickupRepo.ListCollected(ctx)
	if err != nil {
		return nil, err
	}

	computed, err := s.aggregate(residues)
	if err != nil {
		return nil, err
	}

	if computed.PendingRequests, err = s.requestRepo.CountByStatus(ctx, models.RequestStatusPending); err != nil {
		return nil, err
	}
	if computed.CompletedRequests, err = s.requestRepo.CountByStatus(ctx, models.RequestStatusCompleted); err != nil {
		return nil, err
	}

	_ = cache.SetJSON(ctx, cache.ReportSummaryKey, computed, cache.ReportTTL)
	return computed, nil
}

func (s *ReportService) aggregate(residues []*models.CollectedResidue) (*SummaryReport, error) {
	// A category recorded in both mass and volume units gets one bucket per
	// base unit; shares never compare across dimensions.
	type key struct {
		category string
		base     string
	}
	type bucket struct {
		total   float64
		pickups map[uint]struct{}
	}
	buckets := make(map[key]*bucket)
	grandTotals := make(map[string]float64)

	for _, r := range residues {
		normalized, base, err := s.normalizer.ToBase(r.RealAmount, r.MeasureType)
		if err != nil {
			return nil, err
		}
		k := key{category: r.Category, base: base}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{pickups: make(map[uint]struct{})}
			buckets[k] = b
		}
		b.total += normalized
		b.pickups[r.PickupID] = struct{}{}
		grandTotals[base] += normalized
	}

	report := &SummaryReport{
		Categories:  make([]CategoryBucket, 0, len(buckets)),
		GrandTotals: grandTotals,
	}
	for k, b := range buckets {
		share := 0.0
		if grand := grandTotals[k.base]; grand > 0 {
			share = b.total / grand * 100
		}
		report.Categories = append(report.Categories, CategoryBucket{
			Category:    k.category,
			PickupCount: len(b.pickups),
			Total:       b.total,
			BaseUnit:    k.base,
			Share:       share,
		})
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		if report.Categories[i].Category != report.Categories[j].Category {
			return report.Categories[i].Category < report.Categories[j].Category
		}
		return report.Categories[i].BaseUnit < report.Categories[j].BaseUnit
	})
	return report, nil
}
