package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetSummaryReport handles GET /api/reports/summary: per-category normalized
// totals, pickup counts and shares over every collected residue.
func (s *Server) GetSummaryReport(c *fiber.Ctx) error {
	report, err := s.reports.Summary(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}
