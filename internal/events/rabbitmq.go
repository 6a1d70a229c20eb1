package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/couplediary/diary/internal/diary"
)

// Dial connects to the broker and verifies a channel can be opened.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	_ = ch.Close()
	return conn, nil
}

// AMQPPublisher publishes DiaryCreated events to a durable queue.
type AMQPPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewAMQPPublisher(conn *amqp.Connection, queueName string) *AMQPPublisher {
	if queueName == "" {
		queueName = TypeDiaryCreated
	}
	return &AMQPPublisher{conn: conn, queueName: queueName}
}

func (p *AMQPPublisher) PublishCreated(ctx context.Context, e diary.Entry) error {
	payload, err := Encode(e)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         TypeDiaryCreated,
			Timestamp:    e.CreatedAt,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish event failed: %w", err)
	}
	return nil
}
