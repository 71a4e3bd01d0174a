package controller

import (
	"github.com/gofiber/fiber/v2"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/pkg/serverutils"
	"ai-research-desk/internal/service"
)

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	Telemetry(ctx *fiber.Ctx) error
	ListDocuments(ctx *fiber.Ctx) error
	AddDocument(ctx *fiber.Ctx) error
}

type systemController struct {
	orchestrator service.IOrchestratorService
	publisher    service.IPublisherService
}

func NewSystemController(orchestrator service.IOrchestratorService, publisher service.IPublisherService) ISystemController {
	return &systemController{
		orchestrator: orchestrator,
		publisher:    publisher,
	}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/system/v1")
	h.Get("telemetry", c.Telemetry)
	h.Get("document", c.ListDocuments)
	h.Post("document", c.AddDocument)
}

func (c *systemController) Telemetry(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get telemetry", c.orchestrator.TelemetrySnapshot()))
}

func (c *systemController) ListDocuments(ctx *fiber.Ctx) error {
	docs := c.orchestrator.Documents()

	res := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		res = append(res, dto.DocumentResponse{
			Id:         doc.Id,
			Path:       doc.Path,
			Status:     string(doc.Status),
			Reason:     doc.Reason,
			ChunkCount: doc.ChunkCount,
			IndexedAt:  doc.IndexedAt,
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

// AddDocument queues a library scan. An empty path rescans the whole
// configured research directory.
func (c *systemController) AddDocument(ctx *fiber.Ctx) error {
	var req dto.AddDocumentRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	if err := c.publisher.PublishCommand(dto.Command{
		Type:      dto.CommandAddDocument,
		SessionId: req.SessionId,
		Path:      req.Path,
	}); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Scan queued", nil))
}
