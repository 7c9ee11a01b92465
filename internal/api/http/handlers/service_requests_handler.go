package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/dto"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/service"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util/errorutil"
)

// ServiceRequestsHandler exposes the request lifecycle.
type ServiceRequestsHandler struct {
	service *service.RequestService
}

// NewServiceRequestsHandler constructs handler.
func NewServiceRequestsHandler(requestService *service.RequestService) *ServiceRequestsHandler {
	return &ServiceRequestsHandler{service: requestService}
}

// Create POST /service-requests.
func (h *ServiceRequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.CreateServiceRequest
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req, err := h.service.CreateRequest(c.UserContext(), actor, service.CreateRequestInput{
		CategoryID:          body.CategoryID,
		Description:         body.Description,
		AddressText:         body.AddressText,
		SuggestedComplexity: body.SuggestedComplexity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewServiceRequestResponse(req)})
}

// Get GET /service-requests/:id.
func (h *ServiceRequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	req, err := h.service.GetRequest(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServiceRequestResponse(req)})
}

// GetAnalysis GET /service-requests/:id/analysis.
func (h *ServiceRequestsHandler) GetAnalysis(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	analysis, err := h.service.GetAnalysis(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServiceAnalysisResponse(analysis)})
}

// Update PATCH /service-requests/:id.
func (h *ServiceRequestsHandler) Update(c *fiber.Ctx) error {
	var body dto.UpdateServiceRequest
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, func(actor events.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Update(c.UserContext(), actor, id, body.Description)
	})
}

// Evaluate POST /service-requests/:id/evaluate.
func (h *ServiceRequestsHandler) Evaluate(c *fiber.Ctx) error {
	var body dto.EvaluateRequest
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, func(actor events.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Evaluate(c.UserContext(), actor, id, body.Complexity)
	})
}

// Approve POST /service-requests/:id/approve.
func (h *ServiceRequestsHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, func(actor events.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Approve(c.UserContext(), actor, id)
	})
}

// Assign POST /service-requests/:id/assign.
func (h *ServiceRequestsHandler) Assign(c *fiber.Ctx) error {
	var body dto.AssignRequest
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, func(actor events.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.AssignProvider(c.UserContext(), actor, id, service.AssignInput{
			AgentID:  body.AgentID,
			Amount:   body.Amount,
			Currency: body.Currency,
		})
	})
}

// Start POST /service-requests/:id/start.
func (h *ServiceRequestsHandler) Start(c *fiber.Ctx) error {
	return h.transition(c, func(actor events.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Start(c.UserContext(), actor, id)
	})
}

// Complete POST /service-requests/:id/complete.
func (h *ServiceRequestsHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, func(actor events.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Complete(c.UserContext(), actor, id)
	})
}

// Cancel POST /service-requests/:id/cancel.
func (h *ServiceRequestsHandler) Cancel(c *fiber.Ctx) error {
	var body dto.CancelRequest
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, func(actor events.Actor, id string) (*domain.ServiceRequest, error) {
		return h.service.Cancel(c.UserContext(), actor, id, body.Reason)
	})
}

func (h *ServiceRequestsHandler) transition(c *fiber.Ctx, run func(actor events.Actor, id string) (*domain.ServiceRequest, error)) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	req, err := run(actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServiceRequestResponse(req)})
}

func actorFrom(c *fiber.Ctx) (events.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return events.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}
