package server

import (
	"time"

	"recolecta/internal/models"
	"recolecta/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ScheduleRequests handles POST /api/pickups: groups pending requests into
// one scheduled pickup.
func (s *Server) ScheduleRequests(c *fiber.Ctx) error {
	ctx := c.Context()
	_, username := currentUser(c)

	var req struct {
		RequestIDs    []uint    `json:"request_ids"`
		ProviderID    uint      `json:"provider_id"`
		ScheduledDate time.Time `json:"scheduled_date"`
		Note          string    `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pickup, err := s.lifecycle.ScheduleRequests(ctx, service.ScheduleRequestsInput{
		RequestIDs:    req.RequestIDs,
		ProviderID:    req.ProviderID,
		ScheduledDate: req.ScheduledDate,
		Note:          req.Note,
		CreatedBy:     username,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(pickup)
}

// GetPickups handles GET /api/pickups. Optional ?status= filter.
func (s *Server) GetPickups(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c, 20)

	status := c.Query("status")
	if status != "" {
		valid := false
		for _, st := range models.PickupStatuses() {
			if string(st) == status {
				valid = true
				break
			}
		}
		if !valid {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid status filter"))
		}
		pickups, err := s.pickupRepo.ListByStatus(ctx, models.PickupStatus(status), page.Limit, page.Offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(pickups)
	}

	pickups, err := s.pickupRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pickups)
}

// GetPickup handles GET /api/pickups/:id, including its linked request ids.
func (s *Server) GetPickup(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	pickup, err := s.pickupRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	requestIDs, err := s.pickupRepo.LinkedRequestIDs(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"pickup":      pickup,
		"request_ids": requestIDs,
	})
}

// EditPickup handles PUT /api/pickups/:id (date/provider/note while scheduled)
func (s *Server) EditPickup(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	_, username := currentUser(c)

	var req struct {
		ProviderID    *uint      `json:"provider_id"`
		ScheduledDate *time.Time `json:"scheduled_date"`
		Note          *string    `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pickup, err := s.lifecycle.EditPickup(ctx, service.EditPickupInput{
		PickupID:      id,
		ProviderID:    req.ProviderID,
		ScheduledDate: req.ScheduledDate,
		Note:          req.Note,
		Actor:         username,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(pickup)
}

// CancelPickup handles POST /api/pickups/:id/cancel: the pickup is called off
// and every linked request reverts to pending.
func (s *Server) CancelPickup(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	_, username := currentUser(c)

	var req struct {
		Note string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.lifecycle.CancelPickup(ctx, id, req.Note, username); err != nil {
		return respondError(c, err)
	}

	pickup, err := s.pickupRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pickup)
}

// CompletePickup handles POST /api/pickups/:id/complete with collected
// entries and certificate references.
func (s *Server) CompletePickup(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	_, username := currentUser(c)

	var req struct {
		Entries   []service.CollectedEntry `json:"entries"`
		Documents []service.DocumentRef    `json:"documents"`
		Note      string                   `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.lifecycle.CompletePickup(ctx, service.CompletePickupInput{
		PickupID:  id,
		Entries:   req.Entries,
		Documents: req.Documents,
		Note:      req.Note,
		Actor:     username,
	}); err != nil {
		return respondError(c, err)
	}

	pickup, err := s.pickupRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pickup)
}
