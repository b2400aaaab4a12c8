package controller

import (
	"os"

	"loan-insights-be/internal/pkg/serverutils"
	"loan-insights-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IExportController interface {
	RegisterRoutes(r fiber.Router)
	DownloadExcel(ctx *fiber.Ctx) error
}

type exportController struct {
	threadService service.IThreadService
}

func NewExportController(threadService service.IThreadService) IExportController {
	return &exportController{
		threadService: threadService,
	}
}

func (c *exportController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/")
	h.Use(serverutils.JwtMiddleware)
	h.Get("download-excel/:conversation_id", c.DownloadExcel)
}

func (c *exportController) DownloadExcel(ctx *fiber.Ctx) error {
	conversationId := ctx.Params("conversation_id")

	path, err := c.threadService.ExportPath(ctx.Context(), conversationId)
	if err != nil {
		return err
	}
	if path == "" {
		return fiber.NewError(fiber.StatusNotFound, "File not found")
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return fiber.NewError(fiber.StatusNotFound, "File not found")
	}

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return ctx.Download(path, conversationId+".xlsx")
}
