package handlers

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"github.com/recarga/backend/internal/infrastructure/logger"
)

type indexPage struct {
	CSRFToken string
}

// IndexHandler renders the operator form.
type IndexHandler struct {
	tmpl       *template.Template
	csrfLocals string
	logger     *logger.Logger
}

func NewIndexHandler(tmpl *template.Template, csrfLocals string, logger *logger.Logger) *IndexHandler {
	return &IndexHandler{tmpl: tmpl, csrfLocals: csrfLocals, logger: logger}
}

func (h *IndexHandler) Render(c *fiber.Ctx) error {
	page := indexPage{}
	if token, ok := c.Locals(h.csrfLocals).(string); ok {
		page.CSRFToken = token
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, page); err != nil {
		h.logger.Errorw("index_render_failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
