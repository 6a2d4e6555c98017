package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/enums/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.enums.Categories(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// GetMeasureUnits handles GET /api/enums/units
func (s *Server) GetMeasureUnits(c *fiber.Ctx) error {
	units, err := s.enums.MeasureUnits(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"units": units})
}

// GetStatuses handles GET /api/enums/statuses
func (s *Server) GetStatuses(c *fiber.Ctx) error {
	statuses, err := s.enums.Statuses(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"statuses": statuses})
}
