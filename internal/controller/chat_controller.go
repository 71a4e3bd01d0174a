package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/internal/pkg/serverutils"
	"ai-research-desk/internal/service"
	internalWS "ai-research-desk/internal/websocket"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type chatController struct {
	orchestrator service.IOrchestratorService
	publisher    service.IPublisherService
	hub          *internalWS.Hub
	logger       logger.ILogger
}

func NewChatController(
	orchestrator service.IOrchestratorService,
	publisher service.IPublisherService,
	hub *internalWS.Hub,
	log logger.ILogger,
) IChatController {
	return &chatController{
		orchestrator: orchestrator,
		publisher:    publisher,
		hub:          hub,
		logger:       log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Post("session", c.CreateSession)
	h.Get("session", c.ListSessions)
	h.Get("session/:id", c.ShowSession)
	h.Post("chat", c.SendChat)
	h.Post("cancel", c.Cancel)
	h.Post("retry", c.Retry)
	h.Get("ws", c.ServeWs)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	session := c.orchestrator.CreateSession(req.Model)

	return ctx.JSON(serverutils.SuccessResponse("Success create session", dto.CreateSessionResponse{
		Id:    session.Id,
		Model: session.Model,
	}))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	sessions := c.orchestrator.Sessions()

	res := make([]dto.SessionSummaryResponse, 0, len(sessions))
	for _, s := range sessions {
		res = append(res, dto.SessionSummaryResponse{
			Id:        s.Id,
			Title:     s.Title,
			Model:     s.Model,
			State:     s.State,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *chatController) ShowSession(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse("Invalid session id"))
	}

	session, ok := c.orchestrator.Session(id)
	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse("Session not found"))
	}

	messages := make([]dto.MessageDTO, 0, len(session.Messages))
	for _, msg := range session.Messages {
		messages = append(messages, *dto.MessageToDTO(msg))
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", dto.SessionHistoryResponse{
		Id:        session.Id,
		Title:     session.Title,
		Model:     session.Model,
		State:     session.State,
		LastError: session.LastError,
		Messages:  messages,
	}))
}

// SendChat mirrors the websocket submit command over REST. The reply only
// acknowledges the dispatch; deltas and completion arrive on the event stream.
func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.publisher.PublishCommand(dto.Command{
		Type:      dto.CommandSubmit,
		SessionId: req.SessionId,
		Text:      req.Chat,
		Model:     req.Model,
	}); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Chat submitted", nil))
}

func (c *chatController) Cancel(ctx *fiber.Ctx) error {
	var req dto.CancelRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.publisher.PublishCommand(dto.Command{
		Type:      dto.CommandCancel,
		SessionId: req.SessionId,
	}); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Cancel requested", nil))
}

func (c *chatController) Retry(ctx *fiber.Ctx) error {
	var req dto.RetryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.publisher.PublishCommand(dto.Command{
		Type:      dto.CommandRetry,
		SessionId: req.SessionId,
	}); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Retry requested", nil))
}

// ServeWs upgrades the connection and attaches it to the event hub.
func (c *chatController) ServeWs(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			c.logger.Info("ChatController", "Starting WebSocket session", nil)
			internalWS.ServeWs(c.hub, conn, c.publisher)
			c.logger.Info("ChatController", "WebSocket session ended", nil)
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
