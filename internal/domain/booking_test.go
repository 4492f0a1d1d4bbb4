package domain

import (
	"errors"
	"testing"
)

func TestSlotGrid(t *testing.T) {
	grid := SlotGrid()

	// Half-hour marks from 09:00 to 17:00 inclusive.
	if len(grid) != 17 {
		t.Fatalf("grid size = %d, want 17", len(grid))
	}
	if grid[0] != "09:00:00" {
		t.Errorf("first slot = %s, want 09:00:00", grid[0])
	}
	if grid[len(grid)-1] != "17:00:00" {
		t.Errorf("last slot = %s, want 17:00:00", grid[len(grid)-1])
	}

	for _, slot := range grid {
		if !IsValidTimeSlot(slot) {
			t.Errorf("grid slot %s reported invalid", slot)
		}
	}
}

func TestIsValidTimeSlot(t *testing.T) {
	valid := []string{"09:00:00", "09:30:00", "12:00:00", "16:30:00", "17:00:00"}
	for _, slot := range valid {
		if !IsValidTimeSlot(slot) {
			t.Errorf("IsValidTimeSlot(%s) = false, want true", slot)
		}
	}

	invalid := []string{"", "08:30:00", "17:30:00", "09:15:00", "9:00:00", "09:00", "noon"}
	for _, slot := range invalid {
		if IsValidTimeSlot(slot) {
			t.Errorf("IsValidTimeSlot(%s) = true, want false", slot)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	if !IsValidDate("2025-11-25") {
		t.Error("IsValidDate(2025-11-25) = false")
	}
	for _, date := range []string{"", "25/11/2025", "2025-13-01", "2025-11-32", "tomorrow"} {
		if IsValidDate(date) {
			t.Errorf("IsValidDate(%s) = true, want false", date)
		}
	}
}

func TestCreateBookingRequestValidate(t *testing.T) {
	req := CreateBookingRequest{UserID: 1, ResourceID: 1, Date: "2025-11-25", TimeSlot: "09:00:00"}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	broken := []CreateBookingRequest{
		{UserID: 1, Date: "2025-11-25", TimeSlot: "09:00:00"},
		{UserID: 1, ResourceID: 1, TimeSlot: "09:00:00"},
		{UserID: 1, ResourceID: 1, Date: "2025-11-25"},
		{UserID: 1, ResourceID: 1, Date: "bad", TimeSlot: "09:00:00"},
		{UserID: 1, ResourceID: 1, Date: "2025-11-25", TimeSlot: "08:00:00"},
	}
	for i, req := range broken {
		if err := req.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
}

func TestIsBlockRequest(t *testing.T) {
	sentinel := CreateBookingRequest{UserID: BlockSentinelID, ResourceID: 1, Date: "2025-11-25", TimeSlot: "09:00:00"}
	if !sentinel.IsBlockRequest() {
		t.Error("sentinel owner id not recognized as block request")
	}

	flagged := CreateBookingRequest{Block: true, ResourceID: 1, Date: "2025-11-25", TimeSlot: "09:00:00"}
	if !flagged.IsBlockRequest() {
		t.Error("block flag not recognized as block request")
	}

	normal := CreateBookingRequest{UserID: 1, ResourceID: 1, Date: "2025-11-25", TimeSlot: "09:00:00"}
	if normal.IsBlockRequest() {
		t.Error("normal booking misread as block request")
	}
}
