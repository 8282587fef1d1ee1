package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const EventsExchange = "gamification.events"

// Routing keys on EventsExchange.
const (
	EventLevelUp             = "progress.level_up"
	EventBadgeEarned         = "badge.earned"
	EventAchievementUnlocked = "achievement.unlocked"
)

// GamificationEvent is the message body published for every progression milestone.
type GamificationEvent struct {
	Type          string    `json:"type"`
	UserID        string    `json:"user_id"`
	Level         int       `json:"level,omitempty"`
	PreviousLevel int       `json:"previous_level,omitempty"`
	BadgeID       string    `json:"badge_id,omitempty"`
	AchievementID string    `json:"achievement_id,omitempty"`
	XP            int64     `json:"xp,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event GamificationEvent) error
	Close() error
}

// RabbitPublisher publishes events to a durable topic exchange. With an empty
// URI it is a logging no-op.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
}

func NewRabbitPublisher(rabbitURI string) (*RabbitPublisher, error) {
	if rabbitURI == "" {
		log.Println("⚠️ [EVENTS] RABBITMQ_URL is empty, event publishing is disabled")
		return &RabbitPublisher{exchange: EventsExchange}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		EventsExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Printf("📡 [EVENTS] Publisher ready on exchange %s", EventsExchange)
	return &RabbitPublisher{conn: conn, channel: channel, exchange: EventsExchange, enabled: true}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event GamificationEvent) error {
	if !p.enabled {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
			Headers: amqp091.Table{
				"event_type": event.Type,
				"user_id":    event.UserID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Printf("⚠️ [EVENTS] Error closing RabbitMQ channel: %v", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}

// RecordingPublisher keeps events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []GamificationEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, event GamificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// OfType returns the recorded events with the given routing key.
func (p *RecordingPublisher) OfType(eventType string) []GamificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []GamificationEvent
	for _, e := range p.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
