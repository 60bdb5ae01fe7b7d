package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"worker-scribe/config"
	"worker-scribe/dto"
)

const (
	TranscribeExchange   = "transcription_exchange"
	TranscribeQueue      = "transcription_queue"
	TranscribeRoutingKey = "transcription.request"

	SummarizeExchange   = "summarization_exchange"
	SummarizeQueue      = "summarization_queue"
	SummarizeRoutingKey = "summarization.request"
)

// JobPublisher dispatches pipeline work onto the queue. The upload service
// and the sweep driver use it to trigger transcription without blocking the
// caller.
type JobPublisher interface {
	PublishTranscribe(ctx context.Context, msg dto.TranscribeMessage) error
	PublishSummarize(ctx context.Context, msg dto.SummarizeMessage) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) JobPublisher {
	return &publisher{
		conn: conn,
		cfg:  cfg,
	}
}

func (p *publisher) PublishTranscribe(ctx context.Context, msg dto.TranscribeMessage) error {
	return p.publish(ctx, TranscribeExchange, TranscribeRoutingKey, msg)
}

func (p *publisher) PublishSummarize(ctx context.Context, msg dto.SummarizeMessage) error {
	return p.publish(ctx, SummarizeExchange, SummarizeRoutingKey, msg)
}

func (p *publisher) publish(ctx context.Context, exchange, routingKey string, payload any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, p.cfg.Kind, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
