package server

import (
	"recolecta/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateProvider handles POST /api/providers (admin)
func (s *Server) CreateProvider(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Name    string `json:"name"`
		NIT     string `json:"nit"`
		Contact string `json:"contact"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Provider name is required"))
	}

	provider := &models.Provider{
		Name:    req.Name,
		NIT:     req.NIT,
		Contact: req.Contact,
		Active:  true,
	}
	if err := s.providerRepo.Create(ctx, provider); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(provider)
}

// GetProviders handles GET /api/providers. ?active=true limits to active ones.
func (s *Server) GetProviders(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c, 50)
	activeOnly := c.QueryBool("active", false)

	providers, err := s.providerRepo.List(ctx, activeOnly, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(providers)
}

// GetProvider handles GET /api/providers/:id
func (s *Server) GetProvider(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	provider, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(provider)
}

// UpdateProvider handles PUT /api/providers/:id (admin)
func (s *Server) UpdateProvider(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name    string `json:"name"`
		NIT     string `json:"nit"`
		Contact string `json:"contact"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	provider, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	if req.Name != "" {
		provider.Name = req.Name
	}
	if req.NIT != "" {
		provider.NIT = req.NIT
	}
	if req.Contact != "" {
		provider.Contact = req.Contact
	}

	if err := s.providerRepo.Update(ctx, provider); err != nil {
		return respondError(c, err)
	}
	return c.JSON(provider)
}

// DeactivateProvider handles POST /api/providers/:id/deactivate (admin).
// Deactivated providers keep their history but cannot take new pickups.
func (s *Server) DeactivateProvider(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.providerRepo.SetActive(ctx, id, false); err != nil {
		return respondError(c, err)
	}

	provider, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(provider)
}
