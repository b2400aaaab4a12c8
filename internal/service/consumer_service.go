package service

import (
	"context"
	"encoding/json"

	"loan-insights-be/internal/dto"
	"loan-insights-be/internal/pkg/logger"
	"loan-insights-be/pkg/excel"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the export worker. It drains the export topic, writes
// the workbook to disk and registers the artifact so the download endpoint
// can find it. Worker failures never reach the chat request that queued the
// export.
type consumerService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	exporter      *excel.Exporter
	threadService IThreadService
	logger        logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	exporter *excel.Exporter,
	threadService IThreadService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:        pubSub,
		topicName:     topicName,
		exporter:      exporter,
		threadService: threadService,
		logger:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishExportMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("export_worker", "failed to unmarshal export message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed, retrying cannot help
		return
	}

	path, err := cs.exporter.Generate(payload.ConversationId, payload.Rows)
	if err != nil {
		cs.logger.Error("export_worker", "workbook generation failed", map[string]interface{}{
			"conversation_id": payload.ConversationId,
			"error":           err.Error(),
		})
		msg.Nack()
		return
	}

	if err := cs.threadService.RegisterExport(ctx, payload.ConversationId, path); err != nil {
		cs.logger.Error("export_worker", "failed to register export reference", map[string]interface{}{
			"conversation_id": payload.ConversationId,
			"path":            path,
			"error":           err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Info("export_worker", "export ready", map[string]interface{}{
		"conversation_id": payload.ConversationId,
		"path":            path,
	})
	msg.Ack()
}
