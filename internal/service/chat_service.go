package service

import (
	"context"
	"encoding/json"
	"path/filepath"

	"loan-insights-be/internal/dto"
	"loan-insights-be/internal/pkg/apperr"
	"loan-insights-be/internal/pkg/logger"
	"loan-insights-be/pkg/charts"
	"loan-insights-be/pkg/events"
	"loan-insights-be/pkg/formatter"
	"loan-insights-be/pkg/sqlexec"
	"loan-insights-be/pkg/sqlgen"
	"loan-insights-be/pkg/sqlparse"
)

// Replies for questions that never reach the loan database.
const (
	msgUnwanted   = "I will answer only loan-related questions."
	msgRestricted = "You can only read the data; modifications or creations are not allowed."
	msgSensitive  = "I won't provide any sensitive data of users."
)

type IChatService interface {
	GenerateResponse(ctx context.Context, adminId string, req *dto.GenerateResponseRequest) (*dto.GenerateResponseResult, error)
}

// chatService runs the question-to-answer pipeline: classify and translate,
// execute, narrate, then hand the exchange to the lifecycle manager. Chart
// and export steps are best-effort and never fail the request.
type chatService struct {
	generator        *sqlgen.Generator
	executor         *sqlexec.Executor
	formatter        *formatter.Formatter
	chartRenderer    *charts.Renderer
	threadService    IThreadService
	publisherService IPublisherService
	eventPublisher   IAuditPublisher
	contextWindow    int
	logger           logger.ILogger
}

func NewChatService(
	generator *sqlgen.Generator,
	executor *sqlexec.Executor,
	fmtr *formatter.Formatter,
	chartRenderer *charts.Renderer,
	threadService IThreadService,
	publisherService IPublisherService,
	eventPublisher IAuditPublisher,
	contextWindow int,
	log logger.ILogger,
) IChatService {
	return &chatService{
		generator:        generator,
		executor:         executor,
		formatter:        fmtr,
		chartRenderer:    chartRenderer,
		threadService:    threadService,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		contextWindow:    contextWindow,
		logger:           log,
	}
}

func (c *chatService) GenerateResponse(ctx context.Context, adminId string, req *dto.GenerateResponseRequest) (*dto.GenerateResponseResult, error) {
	if req == nil || req.UserInput == "" {
		return nil, apperr.Validation("user_input is required")
	}

	var recent []string
	if req.ThreadId != "" {
		var err error
		recent, err = c.threadService.RecentQueries(ctx, req.ThreadId, c.contextWindow)
		if err != nil {
			// Context only sharpens follow-up questions, the pipeline works
			// without it.
			c.logger.Warn("chat_service", "failed to load recent queries", map[string]interface{}{
				"thread_id": req.ThreadId,
				"error":     err.Error(),
			})
		}
	}

	gen, err := c.generator.Generate(ctx, req.UserInput, recent)
	if err != nil {
		return nil, apperr.Upstream("sql generation", err)
	}

	if gen.IsClassified() {
		return &dto.GenerateResponseResult{Message: classificationMessage(gen.Classification)}, nil
	}

	rows, err := c.executor.Execute(ctx, gen.SQL)
	if err != nil {
		return nil, apperr.Upstream("query execution", err)
	}

	formatted, err := c.formatter.Format(ctx, rows, req.UserInput)
	if err != nil {
		c.logger.Warn("chat_service", "result formatting failed, returning raw rows", map[string]interface{}{
			"error": err.Error(),
		})
		raw, _ := json.Marshal(rows)
		formatted = string(raw)
	}

	tables, cols := sqlparse.ExtractTablesAndColumns(gen.SQL)

	result, err := c.threadService.CreateOrAppend(ctx, adminId, req.ThreadId, &ConversationInput{
		Query:    req.UserInput,
		Response: formatted,
		DataType: tables,
		Cols:     cols,
		Rows:     len(rows),
	})
	if err != nil {
		return nil, err
	}

	chartType, chartPath := c.renderChart(rows, req.UserInput, result.ConversationId)

	excelPath := c.queueExport(ctx, result.ConversationId, rows)

	c.publishAudit(ctx, req.ThreadId, result)

	return &dto.GenerateResponseResult{
		SQLQuery:          gen.SQL,
		Results:           formatted,
		ThreadId:          result.ThreadId,
		ConversationId:    result.ConversationId,
		ConversationCount: result.ConversationCount,
		ChartType:         chartType,
		ChartPath:         chartPath,
		ExcelPath:         excelPath,
	}, nil
}

func classificationMessage(class string) string {
	switch class {
	case sqlgen.ClassUnwanted:
		return msgUnwanted
	case sqlgen.ClassRestricted:
		return msgRestricted
	case sqlgen.ClassSensitive:
		return msgSensitive
	default:
		return msgUnwanted
	}
}

func (c *chatService) renderChart(rows []sqlexec.Row, userText, conversationId string) (string, string) {
	kind := charts.SuggestChart(rows, userText)
	if kind == charts.KindNone {
		return "", ""
	}

	path, err := c.chartRenderer.Render(rows, kind, userText, conversationId)
	if err != nil {
		c.logger.Warn("chat_service", "chart rendering failed", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
		return "", ""
	}
	// Clients reach the artifact through the static /charts mount, not the
	// filesystem location the renderer wrote to.
	return string(kind), "/charts/" + filepath.Base(path)
}

func (c *chatService) queueExport(ctx context.Context, conversationId string, rows []sqlexec.Row) string {
	if len(rows) == 0 {
		return ""
	}

	payload, err := json.Marshal(dto.PublishExportMessage{
		ConversationId: conversationId,
		Rows:           rows,
	})
	if err != nil {
		c.logger.Error("chat_service", "failed to marshal export message", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
		return ""
	}

	if err := c.publisherService.Publish(ctx, payload); err != nil {
		c.logger.Warn("chat_service", "failed to queue export", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
		return ""
	}

	// The worker registers the artifact once the workbook is written; the
	// download route serves it by conversation id and 404s until then.
	return "/api/download-excel/" + conversationId
}

func (c *chatService) publishAudit(ctx context.Context, requestThreadId string, result *dto.CreateOrAppendResult) {
	if c.eventPublisher == nil {
		return
	}

	eventType := events.TypeConversationCreated
	if requestThreadId == "" {
		eventType = events.TypeThreadCreated
	}

	evt := events.NewBaseEvent(eventType, map[string]interface{}{
		"thread_id":       result.ThreadId,
		"conversation_id": result.ConversationId,
	})
	if err := c.eventPublisher.Publish(ctx, evt); err != nil {
		c.logger.Warn("chat_service", "failed to publish audit event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}
