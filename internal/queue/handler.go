package queue

import (
	"context"

	"github.com/artigraph/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const maxRetries = 10

// HandleDelivery processes one delivery from queueName and acks it on
// success. Failures are routed by HandleProcessingError.
func HandleDelivery(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, p *Processor) error {
	summary, err := p.ProcessArtifactMessage(ctx, msg.Body)
	if err != nil {
		logger.Error("[Queue] Error processing message", "queue", queueName, "err", err)
		HandleProcessingError(ch, msg, queueName, err)
		return err
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
	logger.Info(
		"[Queue] Message processed successfully",
		"queue", queueName,
		"artifact_id", summary.ArtifactID,
		"nodes", summary.NodesInserted,
		"relationships", summary.RelationshipsInserted,
	)
	return nil
}

// HandleProcessingError routes a failed delivery. Permanent failures and
// deliveries that used up their retries go to the dead-letter queue, all
// others to the retry queue with an incremented x-retries header. The
// original delivery is acked once the copy is published, or requeued if
// publishing fails.
func HandleProcessingError(ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	retries := retryCount(msg.Headers)

	if IsPermanent(cause) || retries >= maxRetries {
		dlqName := queueName + dlqSuffix
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries, "err", cause)
		republish(ch, msg, dlqName, msg.Headers)
		return
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)
	headers["x-last-error"] = cause.Error()

	republish(ch, msg, queueName+retrySuffix, headers)
}

func republish(ch Publisher, msg amqp091.Delivery, target string, headers amqp091.Table) {
	err := ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}

func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
