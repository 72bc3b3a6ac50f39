package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/quorumapp/quorum-api/internal/domain/event"
	"github.com/quorumapp/quorum-api/internal/logger"
)

// AMQPNotifier publishes event changes to a topic exchange with routing key
// "event.<stage>".
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPNotifier connects to the broker and declares the exchange
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Notifier().Info("Connected to AMQP broker", "exchange", exchange)
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

// EventChanged implements the scheduler.Notifier interface
func (n *AMQPNotifier) EventChanged(ctx context.Context, groupID, eventID uuid.UUID, stage event.Stage, selected string) error {
	change := EventChange{
		GroupID:        groupID.String(),
		EventID:        eventID.String(),
		Stage:          stage.String(),
		SelectedChoice: selected,
	}

	body, err := json.Marshal(change)
	if err != nil {
		return err
	}

	return n.ch.PublishWithContext(ctx, n.exchange, "event."+stage.String(), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Close closes the channel and connection
func (n *AMQPNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
