package server

import (
	"recolecta/internal/models"
	"recolecta/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateRequest handles POST /api/requests
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	userID, username := currentUser(c)

	var req struct {
		Categories      []string `json:"categories"`
		MeasureType     string   `json:"measure_type"`
		EstimatedAmount float64  `json:"estimated_amount"`
		Details         string   `json:"details"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	request, err := s.lifecycle.CreateRequest(ctx, service.CreateRequestInput{
		OwnerID:         userID,
		Username:        username,
		Categories:      req.Categories,
		MeasureType:     req.MeasureType,
		EstimatedAmount: req.EstimatedAmount,
		Details:         req.Details,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

// GetRequests handles GET /api/requests (admin). Optional ?status= filter.
func (s *Server) GetRequests(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c, 20)

	status := c.Query("status")
	if status != "" {
		valid := false
		for _, st := range models.RequestStatuses() {
			if string(st) == status {
				valid = true
				break
			}
		}
		if !valid {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid status filter"))
		}
		requests, err := s.requestRepo.ListByStatus(ctx, models.RequestStatus(status), page.Limit, page.Offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(requests)
	}

	requests, err := s.requestRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// GetMyRequests handles GET /api/requests/me
func (s *Server) GetMyRequests(c *fiber.Ctx) error {
	ctx := c.Context()
	userID, _ := currentUser(c)
	page := parsePagination(c, 20)

	requests, err := s.requestRepo.ListByOwner(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(requests)
}

// GetRequest handles GET /api/requests/:id
func (s *Server) GetRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	userID, _ := currentUser(c)
	role, _ := c.Locals("role").(string)
	if request.OwnerID != userID && role != "admin" {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only view your own requests"))
	}

	return c.JSON(request)
}

// UpdateRequest handles PUT /api/requests/:id (owner edit while pending)
func (s *Server) UpdateRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUser(c)

	var req struct {
		Categories      []string `json:"categories"`
		MeasureType     *string  `json:"measure_type"`
		EstimatedAmount *float64 `json:"estimated_amount"`
		Details         *string  `json:"details"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	request, err := s.lifecycle.UpdateRequest(ctx, service.UpdateRequestInput{
		OwnerID:         userID,
		RequestID:       id,
		Categories:      req.Categories,
		MeasureType:     req.MeasureType,
		EstimatedAmount: req.EstimatedAmount,
		Details:         req.Details,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(request)
}

// CancelRequest handles POST /api/requests/:id/cancel (owner withdrawal)
func (s *Server) CancelRequest(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUser(c)

	if err := s.lifecycle.CancelRequest(ctx, userID, id); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"status": string(models.RequestStatusCancelled)})
}

// SetRequestNote handles PUT /api/requests/:id/note (admin)
func (s *Server) SetRequestNote(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.lifecycle.SetAdminNote(ctx, id, req.Note); err != nil {
		return respondError(c, err)
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(request)
}
