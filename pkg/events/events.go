package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuskit/roombooking/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	SlotBooked     = "slot.booked"
	SlotBlocked    = "slot.blocked"
	SlotReleased   = "slot.released"
	UserRegistered = "user.registered"
)

// Event payloads

type SlotBookedEvent struct {
	BookingID  int64     `json:"booking_id"`
	UserID     int64     `json:"user_id"`
	ResourceID int64     `json:"resource_id"`
	Date       string    `json:"date"`
	TimeSlot   string    `json:"time_slot"`
	CreatedAt  time.Time `json:"created_at"`
}

// SlotBlockedEvent records an administrative block. EvictedBookingID is set
// when the block displaced an existing reservation; it is the only record of
// the eviction once the row is gone.
type SlotBlockedEvent struct {
	BookingID        int64     `json:"booking_id"`
	ResourceID       int64     `json:"resource_id"`
	Date             string    `json:"date"`
	TimeSlot         string    `json:"time_slot"`
	EvictedBookingID *int64    `json:"evicted_booking_id,omitempty"`
	BlockedAt        time.Time `json:"blocked_at"`
}

type SlotReleasedEvent struct {
	BookingID  int64     `json:"booking_id"`
	ResourceID int64     `json:"resource_id"`
	Date       string    `json:"date"`
	TimeSlot   string    `json:"time_slot"`
	ReleasedAt time.Time `json:"released_at"`
}

type UserRegisteredEvent struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
