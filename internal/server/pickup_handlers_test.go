package server

import (
	"net/http"
	"testing"
	"time"

	"recolecta/internal/models"
	"recolecta/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPickupTestApp(s *Server) *fiber.App {
	app := fiber.New()
	app.Use(fakeAuth(10, "admin", "admin"))
	app.Post("/api/requests", s.CreateRequest)
	app.Post("/api/pickups", s.ScheduleRequests)
	app.Get("/api/pickups", s.GetPickups)
	app.Put("/api/pickups/:id", s.EditPickup)
	app.Post("/api/pickups/:id/cancel", s.CancelPickup)
	app.Post("/api/pickups/:id/complete", s.CompletePickup)
	app.Get("/api/pickups/:id", s.GetPickup)
	app.Get("/api/reports/summary", s.GetSummaryReport)
	return app
}

func seedScheduledPickup(t *testing.T, s *Server, app *fiber.App) (uint, []uint) {
	t.Helper()
	provider := &models.Provider{Name: "EcoGestion SAS", Active: true}
	require.NoError(t, s.db.Create(provider).Error)

	var requestIDs []uint
	for _, categories := range [][]string{{"RAEE"}, {"Aceites usados"}} {
		payload := fiber.Map{
			"categories":       categories,
			"measure_type":     "kg",
			"estimated_amount": 10,
		}
		if categories[0] == "Aceites usados" {
			payload["measure_type"] = "l"
		}
		resp := doJSON(t, app, http.MethodPost, "/api/requests", payload)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decodeBody[models.Request](t, resp)
		requestIDs = append(requestIDs, created.ID)
	}

	resp := doJSON(t, app, http.MethodPost, "/api/pickups", fiber.Map{
		"request_ids":    requestIDs,
		"provider_id":    provider.ID,
		"scheduled_date": time.Now().AddDate(0, 0, 3).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pickup := decodeBody[models.Pickup](t, resp)
	return pickup.ID, requestIDs
}

func TestScheduleAndGetPickupHandlers(t *testing.T) {
	t.Parallel()
	s := setupHandlerTestServer(t)
	app := newPickupTestApp(s)

	pickupID, requestIDs := seedScheduledPickup(t, s, app)

	resp := doJSON(t, app, http.MethodGet, "/api/pickups/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		Pickup     models.Pickup `json:"pickup"`
		RequestIDs []uint        `json:"request_ids"`
	}](t, resp)
	assert.Equal(t, pickupID, body.Pickup.ID)
	assert.Equal(t, models.PickupStatusScheduled, body.Pickup.Status)
	assert.ElementsMatch(t, requestIDs, body.RequestIDs)
	require.NotNil(t, body.Pickup.Provider)

	// Scheduling the same requests again conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/pickups", fiber.Map{
		"request_ids":    requestIDs,
		"provider_id":    body.Pickup.ProviderID,
		"scheduled_date": time.Now().AddDate(0, 0, 5).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/pickups?status=Programada", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[[]models.Pickup](t, resp)
	assert.Len(t, listed, 1)
}

func TestCancelPickupHandler(t *testing.T) {
	t.Parallel()
	s := setupHandlerTestServer(t)
	app := newPickupTestApp(s)

	pickupID, requestIDs := seedScheduledPickup(t, s, app)
	_ = pickupID

	// An empty body is fine; the note is optional.
	resp := doJSON(t, app, http.MethodPost, "/api/pickups/1/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decodeBody[models.Pickup](t, resp)
	assert.Equal(t, models.PickupStatusCancelled, cancelled.Status)

	for _, id := range requestIDs {
		var r models.Request
		require.NoError(t, s.db.First(&r, id).Error)
		assert.Equal(t, models.RequestStatusPending, r.Status)
	}
}

func TestCompletePickupHandlerAndReport(t *testing.T) {
	t.Parallel()
	s := setupHandlerTestServer(t)
	app := newPickupTestApp(s)

	seedScheduledPickup(t, s, app)

	// Missing certificates are rejected.
	resp := doJSON(t, app, http.MethodPost, "/api/pickups/1/complete", fiber.Map{
		"entries": []service.CollectedEntry{
			{Category: "RAEE", MeasureType: "kg", RealAmount: 8},
		},
		"documents": []service.DocumentRef{
			{Kind: models.DocumentKindCollectionCert, Ref: "docs/cr.pdf"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/pickups/1/complete", fiber.Map{
		"entries": []service.CollectedEntry{
			{Category: "RAEE", MeasureType: "kg", RealAmount: 8},
			{Category: "Aceites usados", MeasureType: "l", RealAmount: 9500},
		},
		"documents": []service.DocumentRef{
			{Kind: models.DocumentKindCollectionCert, Ref: "docs/cr.pdf"},
			{Kind: models.DocumentKindDisposalCert, Ref: "docs/cd.pdf"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeBody[models.Pickup](t, resp)
	assert.Equal(t, models.PickupStatusCompleted, completed.Status)
	assert.Len(t, completed.Residues, 2)
	assert.Len(t, completed.Documents, 2)

	resp = doJSON(t, app, http.MethodGet, "/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeBody[service.SummaryReport](t, resp)
	require.Len(t, report.Categories, 2)

	var oil *service.CategoryBucket
	for i := range report.Categories {
		if report.Categories[i].Category == "Aceites usados" {
			oil = &report.Categories[i]
		}
	}
	require.NotNil(t, oil)
	assert.Equal(t, "m3", oil.BaseUnit)
	assert.InDelta(t, 9.5, oil.Total, 1e-9)

	// Both requests reached Completada with the pickup.
	assert.EqualValues(t, 0, report.PendingRequests)
	assert.EqualValues(t, 2, report.CompletedRequests)
}

func TestEditPickupHandler(t *testing.T) {
	t.Parallel()
	s := setupHandlerTestServer(t)
	app := newPickupTestApp(s)

	seedScheduledPickup(t, s, app)

	resp := doJSON(t, app, http.MethodPut, "/api/pickups/1", fiber.Map{
		"note":           "gate code 4412",
		"scheduled_date": time.Now().AddDate(0, 0, 9).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.Pickup](t, resp)
	assert.Equal(t, "gate code 4412", updated.AdminNote)

	resp = doJSON(t, app, http.MethodPut, "/api/pickups/999", fiber.Map{"note": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}
