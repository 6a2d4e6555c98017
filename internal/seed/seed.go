// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"recolecta/internal/models"
	"recolecta/internal/rules"
	"recolecta/internal/units"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Seeder populates the database with demo providers, requests and pickups.
type Seeder struct {
	db         *gorm.DB
	ruleSet    *rules.RuleSet
	normalizer *units.Normalizer
	rng        *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB and rule tables.
func NewSeeder(db *gorm.DB, ruleSet *rules.RuleSet) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:         db,
		ruleSet:    ruleSet,
		normalizer: units.NewNormalizer(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes every row from the domain tables. Order respects foreign
// keys.
func (s *Seeder) ClearAll() error {
	tables := []string{
		"collected_residues",
		"pickup_documents",
		"pickup_requests",
		"requests",
		"pickups",
		"providers",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	log.Println("Database cleared")
	return nil
}

// Providers creates n collection providers.
func (s *Seeder) Providers(n int) ([]*models.Provider, error) {
	providers := make([]*models.Provider, 0, n)
	for i := 0; i < n; i++ {
		p := &models.Provider{
			Name:    gofakeit.Company() + " Ambiental",
			NIT:     fmt.Sprintf("%d-%d", gofakeit.Number(800000000, 999999999), gofakeit.Number(0, 9)),
			Contact: gofakeit.Email(),
			Active:  true,
		}
		if err := s.db.Create(p).Error; err != nil {
			return nil, fmt.Errorf("seed provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// categorySet picks a category combination that passes the compatibility
// rules: either one exclusive category, a few oil-related ones, or a mix of
// plain categories.
func (s *Seeder) categorySet() []string {
	var exclusive, oil, plain []string
	for _, c := range s.ruleSet.Categories {
		inExclusive := contains(s.ruleSet.Exclusive, c)
		inOil := contains(s.ruleSet.OilRelated, c)
		switch {
		case inExclusive:
			exclusive = append(exclusive, c)
		case inOil:
			oil = append(oil, c)
		default:
			plain = append(plain, c)
		}
	}

	switch s.rng.Intn(3) {
	case 0:
		if len(exclusive) > 0 {
			return []string{exclusive[s.rng.Intn(len(exclusive))]}
		}
		fallthrough
	case 1:
		if len(oil) > 0 {
			return []string{oil[s.rng.Intn(len(oil))]}
		}
		fallthrough
	default:
		if len(plain) == 0 {
			return []string{s.ruleSet.Categories[0]}
		}
		n := 1 + s.rng.Intn(min(2, len(plain)))
		picked := make([]string, 0, n)
		for _, idx := range s.rng.Perm(len(plain))[:n] {
			picked = append(picked, plain[idx])
		}
		return picked
	}
}

// Requests creates n pending requests spread over the last maxDays days.
func (s *Seeder) Requests(n, maxDays int) ([]*models.Request, error) {
	if maxDays <= 0 {
		maxDays = 60
	}
	unitNames := s.normalizer.Units()
	requests := make([]*models.Request, 0, n)
	for i := 0; i < n; i++ {
		r := &models.Request{
			OwnerID:         uint(1 + s.rng.Intn(20)),
			Username:        gofakeit.Username(),
			Categories:      s.categorySet(),
			MeasureType:     unitNames[s.rng.Intn(len(unitNames))],
			EstimatedAmount: float64(1+s.rng.Intn(500)) / 10,
			Details:         gofakeit.Sentence(8),
			Status:          models.RequestStatusPending,
		}
		r.CreatedAt = time.Now().Add(-time.Duration(s.rng.Intn(maxDays*24)) * time.Hour)
		if err := s.db.Create(r).Error; err != nil {
			return nil, fmt.Errorf("seed request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, nil
}

// Demo seeds a realistic demo data set: providers, pending requests, plus a
// few scheduled and completed pickups with collected residues.
func (s *Seeder) Demo() error {
	providers, err := s.Providers(4)
	if err != nil {
		return err
	}
	requests, err := s.Requests(40, 60)
	if err != nil {
		return err
	}

	// Schedule roughly half of the requests into pickups of 2-4 requests.
	pending := requests
	pickupCount := 0
	for len(pending) >= 4 && pickupCount < 8 {
		batch := pending[:2+s.rng.Intn(3)]
		pending = pending[len(batch):]

		provider := providers[s.rng.Intn(len(providers))]
		pickup := &models.Pickup{
			ProviderID:    provider.ID,
			ScheduledDate: time.Now().AddDate(0, 0, s.rng.Intn(14)),
			Status:        models.PickupStatusScheduled,
			CreatedBy:     "seed-admin",
		}
		if err := s.db.Create(pickup).Error; err != nil {
			return fmt.Errorf("seed pickup: %w", err)
		}

		for _, r := range batch {
			link := &models.PickupRequest{PickupID: pickup.ID, RequestID: r.ID}
			if err := s.db.Create(link).Error; err != nil {
				return fmt.Errorf("seed pickup link: %w", err)
			}
			if err := s.db.Model(r).Updates(map[string]any{
				"status":    models.RequestStatusScheduled,
				"pickup_id": pickup.ID,
			}).Error; err != nil {
				return fmt.Errorf("seed request schedule: %w", err)
			}
		}
		pickupCount++

		// Complete every other pickup with residues and certificates.
		if pickupCount%2 == 0 {
			if err := s.complete(pickup, batch); err != nil {
				return err
			}
		}
	}

	log.Printf("Seeded %d providers, %d requests, %d pickups", len(providers), len(requests), pickupCount)
	return nil
}

func (s *Seeder) complete(pickup *models.Pickup, batch []*models.Request) error {
	for _, r := range batch {
		residue := &models.CollectedResidue{
			PickupID:    pickup.ID,
			Category:    r.Categories[0],
			MeasureType: r.MeasureType,
			RealAmount:  r.EstimatedAmount * (0.8 + s.rng.Float64()*0.4),
		}
		if err := s.db.Create(residue).Error; err != nil {
			return fmt.Errorf("seed residue: %w", err)
		}
		if err := s.db.Model(r).Update("status", models.RequestStatusCompleted).Error; err != nil {
			return fmt.Errorf("seed request complete: %w", err)
		}
	}
	docs := []models.PickupDocument{
		{PickupID: pickup.ID, Kind: models.DocumentKindCollectionCert, Ref: "certs/" + gofakeit.UUID() + ".pdf", UploadedBy: "seed-admin"},
		{PickupID: pickup.ID, Kind: models.DocumentKindDisposalCert, Ref: "certs/" + gofakeit.UUID() + ".pdf", UploadedBy: "seed-admin"},
	}
	if err := s.db.Create(&docs).Error; err != nil {
		return fmt.Errorf("seed documents: %w", err)
	}
	return s.db.Model(pickup).Update("status", models.PickupStatusCompleted).Error
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
