package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campuskit/roombooking/internal/domain"
	"github.com/campuskit/roombooking/internal/repository"
	"github.com/campuskit/roombooking/pkg/events"
	"github.com/campuskit/roombooking/pkg/logger"
)

// Actor is the authenticated identity performing an operation, taken from
// the caller's session rather than from request fields.
type Actor struct {
	UserID int64
	Role   domain.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

type BookingService interface {
	// BookedSlots returns the occupied time slots for a resource/date,
	// bookings and administrative blocks uniformly.
	BookedSlots(ctx context.Context, resourceID int64, date string) ([]string, error)
	// Create is the admission rule. A block request (admin only) evicts
	// whatever occupies the slot; a normal booking is rejected with
	// domain.ErrSlotConflict when the slot is occupied.
	Create(ctx context.Context, actor Actor, req *domain.CreateBookingRequest) (*domain.Booking, error)
	// Cancel removes a reservation by id, used for both user cancellation
	// and admin unblock. Returns the number of rows deleted.
	Cancel(ctx context.Context, actor Actor, id int64) (int64, error)
	ListUserBookings(ctx context.Context, actor Actor, userID int64) ([]domain.Booking, error)
	ListAllBookings(ctx context.Context, actor Actor) ([]domain.Booking, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	eventBus    events.Publisher
}

func NewBookingService(bookingRepo repository.BookingRepository, eventBus events.Publisher) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		eventBus:    eventBus,
	}
}

func (s *bookingService) BookedSlots(ctx context.Context, resourceID int64, date string) ([]string, error) {
	if date == "" {
		return nil, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	if !domain.IsValidDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
	}
	if resourceID == 0 {
		resourceID = 1
	}

	return s.bookingRepo.BookedSlots(ctx, resourceID, date)
}

func (s *bookingService) Create(ctx context.Context, actor Actor, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IsBlockRequest() {
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: only administrators can block slots", domain.ErrForbidden)
		}
		return s.blockSlot(ctx, req)
	}

	// The session identity owns the booking. Admins may book on behalf of
	// another user; anyone else declaring a different owner is rejected.
	ownerID := actor.UserID
	if req.UserID != 0 && req.UserID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: cannot book on behalf of another user", domain.ErrForbidden)
		}
		ownerID = req.UserID
	}
	if ownerID == 0 {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}

	// Friendly early rejection. The unique constraint on
	// (resource_id, date, time_slot) remains the source of truth: a racing
	// insert still fails with the same conflict.
	occupied, err := s.bookingRepo.SlotOccupied(ctx, req.ResourceID, req.Date, req.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot occupancy: %w", err)
	}
	if occupied {
		return nil, domain.ErrSlotConflict
	}

	booking, err := s.bookingRepo.Create(ctx, &ownerID, false, req.ResourceID, req.Date, req.TimeSlot)
	if err != nil {
		return nil, err
	}

	event := events.SlotBookedEvent{
		BookingID:  booking.ID,
		UserID:     ownerID,
		ResourceID: booking.ResourceID,
		Date:       booking.Date,
		TimeSlot:   booking.TimeSlot,
		CreatedAt:  booking.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.SlotBooked, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish slot booked event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

// blockSlot is the administrative override: it evicts whatever holds the
// slot and inserts a block in its place. The pair is deliberately not a
// transaction; if the insert fails after the eviction the slot is left
// free, never rolled back to the evicted reservation.
func (s *bookingService) blockSlot(ctx context.Context, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	evictedID, err := s.bookingRepo.DeleteBySlot(ctx, req.ResourceID, req.Date, req.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to evict slot occupant: %w", err)
	}
	if evictedID != nil {
		logger.InfoContext(ctx, "Evicted reservation for administrative block",
			"evicted_booking_id", *evictedID,
			"resource_id", req.ResourceID,
			"date", req.Date,
			"time_slot", req.TimeSlot,
		)
	}

	booking, err := s.bookingRepo.Create(ctx, nil, true, req.ResourceID, req.Date, req.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to insert block: %w", err)
	}

	event := events.SlotBlockedEvent{
		BookingID:        booking.ID,
		ResourceID:       booking.ResourceID,
		Date:             booking.Date,
		TimeSlot:         booking.TimeSlot,
		EvictedBookingID: evictedID,
		BlockedAt:        booking.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.SlotBlocked, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish slot blocked event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor Actor, id int64) (int64, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return 0, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
	}

	if !actor.IsAdmin() {
		if booking.UserID == nil || *booking.UserID != actor.UserID {
			return 0, fmt.Errorf("%w: not your booking", domain.ErrForbidden)
		}
	}

	affected, err := s.bookingRepo.DeleteByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete booking: %w", err)
	}
	if affected == 0 {
		// Deleted by a concurrent request between the read and the delete.
		return 0, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
	}

	event := events.SlotReleasedEvent{
		BookingID:  booking.ID,
		ResourceID: booking.ResourceID,
		Date:       booking.Date,
		TimeSlot:   booking.TimeSlot,
		ReleasedAt: time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.SlotReleased, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish slot released event", "error", err, "booking_id", booking.ID)
	}

	return affected, nil
}

func (s *bookingService) ListUserBookings(ctx context.Context, actor Actor, userID int64) ([]domain.Booking, error) {
	if !actor.IsAdmin() && actor.UserID != userID {
		return nil, fmt.Errorf("%w: cannot list another user's bookings", domain.ErrForbidden)
	}
	return s.bookingRepo.ListByUser(ctx, userID)
}

func (s *bookingService) ListAllBookings(ctx context.Context, actor Actor) ([]domain.Booking, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: administrators only", domain.ErrForbidden)
	}
	return s.bookingRepo.ListAll(ctx)
}
