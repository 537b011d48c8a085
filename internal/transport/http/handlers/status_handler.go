package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/recarga/backend/internal/transport/http/dto"
)

const defaultStreamInterval = 500 * time.Millisecond

type StatusHandler struct {
	service  ports.RechargeService
	logger   *logger.Logger
	interval time.Duration
}

func NewStatusHandler(service ports.RechargeService, logger *logger.Logger) *StatusHandler {
	return &StatusHandler{service: service, logger: logger, interval: defaultStreamInterval}
}

func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	taskID := c.Params("id")
	task, err := h.service.GetTask(taskID)
	if err != nil {
		h.logger.Warnw("task_status_not_found", "task_id", taskID)
		return c.Status(fiber.StatusNotFound).JSON(dto.TaskNotFoundResponse())
	}

	h.logger.Debugw("task_status_request", "task_id", taskID, "status", task.Status)
	return c.JSON(dto.TaskToResponse(task))
}

// Stream pushes the task over a websocket whenever it changes and closes the
// connection once the task is finished or unknown.
func (h *StatusHandler) Stream(c *websocket.Conn) {
	taskID := c.Params("id")
	defer c.Close()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last dto.TaskStatusResponse
	sent := false
	for {
		task, err := h.service.GetTask(taskID)
		if err != nil {
			h.logger.Warnw("task_stream_not_found", "task_id", taskID)
			_ = c.WriteJSON(dto.TaskNotFoundResponse())
			return
		}

		resp := dto.TaskToResponse(task)
		if !sent || resp != last {
			if err := c.WriteJSON(resp); err != nil {
				h.logger.Debugw("task_stream_write_failed", "task_id", taskID, "error", err)
				return
			}
			last, sent = resp, true
		}
		if task.Status.Terminal() {
			return
		}

		<-ticker.C
	}
}
