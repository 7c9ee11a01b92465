package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/dto"
	"github.com/spec-kit/dispatch-service/internal/service"
)

// MatchingHandler serves agent rankings.
type MatchingHandler struct {
	service *service.MatchingService
}

// NewMatchingHandler constructs handler.
func NewMatchingHandler(matchingService *service.MatchingService) *MatchingHandler {
	return &MatchingHandler{service: matchingService}
}

// Matches GET /service-requests/:id/matches.
func (h *MatchingHandler) Matches(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	results, err := h.service.MatchAgents(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMatchingResultResponses(results)})
}
