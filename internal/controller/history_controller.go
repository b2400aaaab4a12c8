package controller

import (
	"loan-insights-be/internal/pkg/serverutils"
	"loan-insights-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHistoryController interface {
	RegisterRoutes(r fiber.Router)
	ListThreads(ctx *fiber.Ctx) error
	ListConversations(ctx *fiber.Ctx) error
	MigrateThread(ctx *fiber.Ctx) error
}

type historyController struct {
	threadService service.IThreadService
}

func NewHistoryController(threadService service.IThreadService) IHistoryController {
	return &historyController{
		threadService: threadService,
	}
}

func (c *historyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/history")
	h.Use(serverutils.JwtMiddleware)
	h.Get("threads", c.ListThreads)
	h.Get("threads/:thread_id/conversations", c.ListConversations)
	h.Post("threads/:thread_id/migrate", c.MigrateThread)
}

func (c *historyController) ListThreads(ctx *fiber.Ctx) error {
	adminId := ctx.Locals("admin_id").(string)

	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 10)

	res, err := c.threadService.ListThreads(ctx.Context(), adminId, page, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list threads", res))
}

func (c *historyController) ListConversations(ctx *fiber.Ctx) error {
	adminId := ctx.Locals("admin_id").(string)
	threadId := ctx.Params("thread_id")

	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 10)

	res, err := c.threadService.ListConversations(ctx.Context(), adminId, threadId, page, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list conversations", res))
}

func (c *historyController) MigrateThread(ctx *fiber.Ctx) error {
	threadId := ctx.Params("thread_id")

	if err := c.threadService.MigrateAndEvict(ctx.Context(), threadId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Thread migrated", fiber.Map{
		"thread_id": threadId,
	}))
}
