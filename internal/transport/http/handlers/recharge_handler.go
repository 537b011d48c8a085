package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/core/services"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/recarga/backend/internal/transport/http/dto"
)

type RechargeHandler struct {
	service ports.RechargeService
	logger  *logger.Logger
}

func NewRechargeHandler(service ports.RechargeService, logger *logger.Logger) *RechargeHandler {
	return &RechargeHandler{service: service, logger: logger}
}

func invalidForm(c *fiber.Ctx, details []string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.RechargeErrorResponse{
		Success: false,
		Message: dto.InvalidFormMessage,
		Details: details,
	})
}

// CreateRecharge accepts a recharge and answers 202 with the task id before
// the portal is touched.
func (h *RechargeHandler) CreateRecharge(c *fiber.Ctx) error {
	var req dto.RechargeRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("recharge_body_parse_failed", "error", err)
		return invalidForm(c, nil)
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("recharge_validation_failed", "details", errs)
		return invalidForm(c, errs)
	}

	input, err := req.ToDomain()
	if err != nil {
		h.logger.Warnw("recharge_convert_failed", "error", err)
		return invalidForm(c, []string{err.Error()})
	}

	h.logger.Infow("recharge_request", "card", input.CardNumber, "payment_method", input.PaymentMethod, "amount", input.AmountText())
	task, err := h.service.Submit(c.UserContext(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRechargeInvalidInput):
			h.logger.Warnw("recharge_bad_request", "error", err)
			return invalidForm(c, []string{err.Error()})
		case errors.Is(err, services.ErrPortalNotConfigured):
			h.logger.Errorw("recharge_portal_unavailable", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.RechargeErrorResponse{
				Success: false,
				Message: "Automação indisponível.",
			})
		}
		h.logger.Errorw("recharge_submit_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.RechargeErrorResponse{
			Success: false,
			Message: err.Error(),
		})
	}

	h.logger.Infow("recharge_accepted", "task_id", task.ID, "card", input.CardNumber)
	return c.Status(fiber.StatusAccepted).JSON(dto.RechargeAcceptedResponse{
		Success: true,
		TaskID:  task.ID,
	})
}
