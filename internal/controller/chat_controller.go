package controller

import (
	"loan-insights-be/internal/dto"
	"loan-insights-be/internal/pkg/serverutils"
	"loan-insights-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	GenerateResponse(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/")
	h.Use(serverutils.JwtMiddleware)
	h.Post("generate-response", c.GenerateResponse)
}

func (c *chatController) GenerateResponse(ctx *fiber.Ctx) error {
	adminId := ctx.Locals("admin_id").(string)

	var req dto.GenerateResponseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.GenerateResponse(ctx.Context(), adminId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Response generated", res))
}
