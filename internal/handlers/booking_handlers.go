package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/campuskit/roombooking/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AvailableSlots returns the occupied time slots for a resource/date; the
// complement against the fixed grid is the bookable set.
func (h *Handlers) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "Date is required", "VALIDATION_ERROR")
		return
	}

	resourceID := int64(1)
	if v := r.URL.Query().Get("resourceId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid resourceId", "VALIDATION_ERROR")
			return
		}
		resourceID = id
	}

	booked, err := h.bookingService.BookedSlots(r.Context(), resourceID, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if booked == nil {
		booked = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":            date,
		"resourceId":      resourceID,
		"bookedTimeSlots": booked,
	})
}

// CreateBooking handles both normal bookings and administrative blocks; a
// block request (sentinel owner or block flag) is admin-only and evicts the
// current occupant.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	booking, err := h.bookingService.Create(r.Context(), actor(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	message := "Booking created successfully"
	if booking.IsBlock() {
		message = "Time slot blocked successfully"
	}

	resp := map[string]interface{}{
		"success":    true,
		"message":    message,
		"bookingId":  booking.ID,
		"resourceId": booking.ResourceID,
		"date":       booking.Date,
		"timeSlot":   booking.TimeSlot,
		"blocked":    booking.Blocked,
	}
	if booking.UserID != nil {
		resp["userId"] = *booking.UserID
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ListUserBookings returns a user's bookings, most recent slot first
func (h *Handlers) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", "INVALID_INPUT")
		return
	}

	bookings, err := h.bookingService.ListUserBookings(r.Context(), actor(r), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// ListAllBookings returns every booking and block, admin only
func (h *Handlers) ListAllBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListAllBookings(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// DeleteBooking cancels a booking or removes a block
func (h *Handlers) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking ID", "INVALID_INPUT")
		return
	}

	affected, err := h.bookingService.Cancel(r.Context(), actor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Booking deleted successfully",
		"deletedId":    id,
		"affectedRows": affected,
	})
}
