package repository

import (
	"context"
	"time"

	"github.com/campuskit/roombooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	// Create inserts a reservation. userID is nil for administrative
	// blocks. The (resource_id, date, time_slot) unique constraint is the
	// source of truth for occupancy: a racing duplicate insert surfaces
	// here as domain.ErrSlotConflict.
	Create(ctx context.Context, userID *int64, blocked bool, resourceID int64, date, timeSlot string) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	SlotOccupied(ctx context.Context, resourceID int64, date, timeSlot string) (bool, error)
	BookedSlots(ctx context.Context, resourceID int64, date string) ([]string, error)
	// DeleteBySlot removes whatever occupies the triple and returns the
	// evicted booking id, or nil when the slot was free.
	DeleteBySlot(ctx context.Context, resourceID int64, date, timeSlot string) (*int64, error)
	// DeleteByID removes a reservation and returns the number of rows
	// affected (zero when the id does not resolve).
	DeleteByID(ctx context.Context, id int64) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListAll(ctx context.Context) ([]domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, user_id, blocked, resource_id, to_char(date, 'YYYY-MM-DD'), time_slot, created_at`

func (r *bookingRepository) Create(ctx context.Context, userID *int64, blocked bool, resourceID int64, date, timeSlot string) (*domain.Booking, error) {
	const q = `
		INSERT INTO bookings (user_id, blocked, resource_id, date, time_slot)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, userID, blocked, resourceID, date, timeSlot).Scan(
		&b.ID, &b.UserID, &b.Blocked, &b.ResourceID, &b.Date, &b.TimeSlot, &b.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrSlotConflict
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.Blocked, &b.ResourceID, &b.Date, &b.TimeSlot, &b.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

func (r *bookingRepository) SlotOccupied(ctx context.Context, resourceID int64, date, timeSlot string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM bookings WHERE resource_id = $1 AND date = $2 AND time_slot = $3)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var occupied bool
	err := r.pool.QueryRow(ctx, q, resourceID, date, timeSlot).Scan(&occupied)
	return occupied, err
}

func (r *bookingRepository) BookedSlots(ctx context.Context, resourceID int64, date string) ([]string, error) {
	const q = `SELECT time_slot FROM bookings WHERE resource_id = $1 AND date = $2 ORDER BY time_slot`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, resourceID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (r *bookingRepository) DeleteBySlot(ctx context.Context, resourceID int64, date, timeSlot string) (*int64, error) {
	const q = `DELETE FROM bookings WHERE resource_id = $1 AND date = $2 AND time_slot = $3 RETURNING id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	err := r.pool.QueryRow(ctx, q, resourceID, date, timeSlot).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *bookingRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	const q = `DELETE FROM bookings WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const q = `
		SELECT ` + bookingCols + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY date DESC, time_slot DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (r *bookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	const q = `
		SELECT ` + bookingCols + `
		FROM bookings
		ORDER BY date DESC, time_slot DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.Blocked, &b.ResourceID, &b.Date, &b.TimeSlot, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
