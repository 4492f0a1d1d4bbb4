package domain

import (
	"fmt"
	"time"
)

// BlockSentinelID is the reserved owner identifier legacy clients send to
// request an administrative block. It is recognized at the API boundary
// only; internally a block is stored as an ownerless row with the blocked
// flag set, so the sentinel can never collide with a real account id.
const BlockSentinelID int64 = 99999

// Booking occupies one half-hour slot on one resource on one day. UserID is
// nil for administrative blocks.
type Booking struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	Blocked    bool      `json:"blocked"`
	ResourceID int64     `json:"resource_id"`
	Date       string    `json:"date"`
	TimeSlot   string    `json:"time_slot"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsBlock reports whether the booking is an administrative block rather
// than a user reservation.
func (b *Booking) IsBlock() bool {
	return b.Blocked
}

type CreateBookingRequest struct {
	UserID     int64  `json:"userId"`
	ResourceID int64  `json:"resourceId"`
	Date       string `json:"date"`
	TimeSlot   string `json:"timeSlot"`
	Block      bool   `json:"block,omitempty"`
}

// IsBlockRequest reports whether the request asks for an administrative
// block, either via the explicit flag or the legacy sentinel owner id.
func (r *CreateBookingRequest) IsBlockRequest() bool {
	return r.Block || r.UserID == BlockSentinelID
}

func (r *CreateBookingRequest) Validate() error {
	if r.ResourceID == 0 || r.Date == "" || r.TimeSlot == "" {
		return fmt.Errorf("%w: resourceId, date, and timeSlot are required", ErrValidation)
	}
	if !IsValidDate(r.Date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if !IsValidTimeSlot(r.TimeSlot) {
		return fmt.Errorf("%w: timeSlot must be a half-hour mark between %s and %s", ErrValidation, SlotGridStart, SlotGridEnd)
	}
	return nil
}

// The bookable grid: half-hour marks from 09:00 to 17:00 inclusive.
const (
	SlotGridStart = "09:00:00"
	SlotGridEnd   = "17:00:00"
	DateLayout    = "2006-01-02"
)

var slotGrid = buildSlotGrid()

func buildSlotGrid() []string {
	var slots []string
	for hour := 9; hour <= 17; hour++ {
		slots = append(slots, fmt.Sprintf("%02d:00:00", hour))
		if hour < 17 {
			slots = append(slots, fmt.Sprintf("%02d:30:00", hour))
		}
	}
	return slots
}

// SlotGrid returns the full ordered set of bookable time slots.
func SlotGrid() []string {
	out := make([]string, len(slotGrid))
	copy(out, slotGrid)
	return out
}

var slotSet = func() map[string]bool {
	set := make(map[string]bool, len(slotGrid))
	for _, s := range slotGrid {
		set[s] = true
	}
	return set
}()

func IsValidTimeSlot(slot string) bool {
	return slotSet[slot]
}

func IsValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}
