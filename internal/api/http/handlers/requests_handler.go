package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opsboard/internal/api/dto"
	"github.com/spec-kit/opsboard/internal/service"
	apperrors "github.com/spec-kit/opsboard/pkg/util/errorutil"
)

// RequestsHandler manages request lifecycle endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var body dto.CreateRequestBody
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid JSON body", nil)
	}
	if err := body.Validate(); err != nil {
		return err
	}

	view, err := h.service.Create(c.UserContext(), principal.User.ID, body.Input())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": dto.NewRequestResponse(*view)})
}

// AssignOwner POST /requests/:id/assign.
func (h *RequestsHandler) AssignOwner(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var body dto.AssignOwnerBody
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid JSON body", nil)
	}
	if err := body.Validate(); err != nil {
		return err
	}

	view, err := h.service.AssignOwner(c.UserContext(), principal.User.ID, c.Params("id"), body.OwnerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": dto.NewRequestResponse(*view)})
}

// ChangeStatus POST /requests/:id/status.
func (h *RequestsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var body dto.ChangeStatusBody
	if err := c.BodyParser(&body); err != nil {
		return apperrors.NewValidationError("invalid JSON body", nil)
	}
	if err := body.Validate(); err != nil {
		return err
	}

	view, err := h.service.ChangeStatus(c.UserContext(), principal.User.ID, c.Params("id"), body.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": dto.NewRequestResponse(*view)})
}

// Close POST /requests/:id/close. Any body is ignored.
func (h *RequestsHandler) Close(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	view, err := h.service.Close(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": dto.NewRequestResponse(*view)})
}

// History GET /requests/:id/history.
func (h *RequestsHandler) History(c *fiber.Ctx) error {
	history, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": dto.NewRequestHistoryResponse(*history)})
}
