package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/campuskit/roombooking/internal/domain"
	"github.com/campuskit/roombooking/internal/service"
)

// ---------- Mocks ----------

type publishedEvent struct {
	subject string
	data    interface{}
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{subject: subject, data: data})
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.subject
	}
	return out
}

type slotKey struct {
	resourceID int64
	date       string
	timeSlot   string
}

// mockBookingRepo enforces the (resource, date, slot) unique constraint the
// way the database does, so the storage-level conflict path is exercised.
type mockBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]domain.Booking
	bySlot   map[slotKey]int64

	// reportFree makes SlotOccupied always answer false, simulating a
	// racing insert that lands between the check and the insert.
	reportFree bool
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{
		nextID:   1,
		bookings: make(map[int64]domain.Booking),
		bySlot:   make(map[slotKey]int64),
	}
}

func (m *mockBookingRepo) Create(_ context.Context, userID *int64, blocked bool, resourceID int64, date, timeSlot string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey{resourceID, date, timeSlot}
	if _, taken := m.bySlot[key]; taken {
		return nil, domain.ErrSlotConflict
	}

	id := m.nextID
	m.nextID++

	var owner *int64
	if userID != nil {
		v := *userID
		owner = &v
	}

	b := domain.Booking{
		ID:         id,
		UserID:     owner,
		Blocked:    blocked,
		ResourceID: resourceID,
		Date:       date,
		TimeSlot:   timeSlot,
	}
	m.bookings[id] = b
	m.bySlot[key] = id
	return &b, nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *mockBookingRepo) SlotOccupied(_ context.Context, resourceID int64, date, timeSlot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reportFree {
		return false, nil
	}
	_, taken := m.bySlot[slotKey{resourceID, date, timeSlot}]
	return taken, nil
}

func (m *mockBookingRepo) BookedSlots(_ context.Context, resourceID int64, date string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var slots []string
	for key := range m.bySlot {
		if key.resourceID == resourceID && key.date == date {
			slots = append(slots, key.timeSlot)
		}
	}
	return slots, nil
}

func (m *mockBookingRepo) DeleteBySlot(_ context.Context, resourceID int64, date, timeSlot string) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := slotKey{resourceID, date, timeSlot}
	id, ok := m.bySlot[key]
	if !ok {
		return nil, nil
	}
	delete(m.bySlot, key)
	delete(m.bookings, id)
	return &id, nil
}

func (m *mockBookingRepo) DeleteByID(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return 0, nil
	}
	delete(m.bookings, id)
	delete(m.bySlot, slotKey{b.ResourceID, b.Date, b.TimeSlot})
	return 1, nil
}

func (m *mockBookingRepo) ListByUser(_ context.Context, userID int64) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID != nil && *b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) ListAll(_ context.Context) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		out = append(out, b)
	}
	return out, nil
}

// ---------- Helpers ----------

var (
	student = service.Actor{UserID: 1, Role: domain.RoleStudent}
	faculty = service.Actor{UserID: 2, Role: domain.RoleFaculty}
	admin   = service.Actor{UserID: 3, Role: domain.RoleAdmin}
)

func bookingReq(userID int64) *domain.CreateBookingRequest {
	return &domain.CreateBookingRequest{
		UserID:     userID,
		ResourceID: 1,
		Date:       "2025-11-25",
		TimeSlot:   "09:00:00",
	}
}

func newBookingService(repo *mockBookingRepo) (service.BookingService, *mockPublisher) {
	bus := &mockPublisher{}
	return service.NewBookingService(repo, bus), bus
}

// ---------- Tests ----------

func TestCreateBooking(t *testing.T) {
	repo := newMockBookingRepo()
	svc, bus := newBookingService(repo)
	ctx := context.Background()

	booking, err := svc.Create(ctx, student, bookingReq(0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if booking.UserID == nil || *booking.UserID != student.UserID {
		t.Errorf("owner = %v, want %d", booking.UserID, student.UserID)
	}
	if booking.Blocked {
		t.Error("normal booking must not be blocked")
	}

	subjects := bus.subjects()
	if len(subjects) != 1 || subjects[0] != "slot.booked" {
		t.Errorf("published subjects = %v, want [slot.booked]", subjects)
	}
}

func TestCreateBookingConflict(t *testing.T) {
	repo := newMockBookingRepo()
	svc, _ := newBookingService(repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, student, bookingReq(0)); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := svc.Create(ctx, faculty, bookingReq(0))
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("second Create err = %v, want ErrSlotConflict", err)
	}

	// Only the winner's reservation exists.
	all, _ := repo.ListAll(ctx)
	if len(all) != 1 {
		t.Errorf("reservations = %d, want 1", len(all))
	}
}

func TestCreateBookingLostRace(t *testing.T) {
	// The occupancy pre-check is only an optimization; when it misses, the
	// storage constraint still rejects the second insert with the same
	// conflict outcome.
	repo := newMockBookingRepo()
	svc, _ := newBookingService(repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, student, bookingReq(0)); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	repo.reportFree = true
	_, err := svc.Create(ctx, faculty, bookingReq(0))
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("raced Create err = %v, want ErrSlotConflict", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		req  *domain.CreateBookingRequest
	}{
		{"missing date", &domain.CreateBookingRequest{ResourceID: 1, TimeSlot: "09:00:00"}},
		{"missing slot", &domain.CreateBookingRequest{ResourceID: 1, Date: "2025-11-25"}},
		{"missing resource", &domain.CreateBookingRequest{Date: "2025-11-25", TimeSlot: "09:00:00"}},
		{"off-grid slot", &domain.CreateBookingRequest{ResourceID: 1, Date: "2025-11-25", TimeSlot: "09:15:00"}},
		{"after hours", &domain.CreateBookingRequest{ResourceID: 1, Date: "2025-11-25", TimeSlot: "17:30:00"}},
		{"malformed date", &domain.CreateBookingRequest{ResourceID: 1, Date: "25/11/2025", TimeSlot: "09:00:00"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, student, tc.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateBookingOnBehalf(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())
	ctx := context.Background()

	// A non-admin cannot declare another owner.
	req := bookingReq(faculty.UserID)
	if _, err := svc.Create(ctx, student, req); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("student booking for faculty err = %v, want ErrForbidden", err)
	}

	// An admin can.
	booking, err := svc.Create(ctx, admin, req)
	if err != nil {
		t.Fatalf("admin booking for faculty: %v", err)
	}
	if booking.UserID == nil || *booking.UserID != faculty.UserID {
		t.Errorf("owner = %v, want %d", booking.UserID, faculty.UserID)
	}
}

func TestBlockSlotEvictsOccupant(t *testing.T) {
	repo := newMockBookingRepo()
	svc, bus := newBookingService(repo)
	ctx := context.Background()

	victim, err := svc.Create(ctx, student, bookingReq(0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	block, err := svc.Create(ctx, admin, bookingReq(domain.BlockSentinelID))
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if !block.Blocked || block.UserID != nil {
		t.Errorf("block = %+v, want ownerless blocked booking", block)
	}

	// Exactly one reservation remains and the victim no longer resolves.
	all, _ := repo.ListAll(ctx)
	if len(all) != 1 || all[0].ID != block.ID {
		t.Errorf("remaining = %+v, want only block %d", all, block.ID)
	}
	if got, _ := repo.GetByID(ctx, victim.ID); got != nil {
		t.Errorf("evicted booking %d still resolves", victim.ID)
	}

	subjects := bus.subjects()
	if len(subjects) != 2 || subjects[1] != "slot.blocked" {
		t.Fatalf("published subjects = %v, want [... slot.blocked]", subjects)
	}
}

func TestBlockSlotRequiresAdmin(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, student, bookingReq(domain.BlockSentinelID)); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("student block err = %v, want ErrForbidden", err)
	}

	req := bookingReq(0)
	req.Block = true
	if _, err := svc.Create(ctx, faculty, req); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("faculty block err = %v, want ErrForbidden", err)
	}
}

func TestBlockFreeSlot(t *testing.T) {
	repo := newMockBookingRepo()
	svc, _ := newBookingService(repo)
	ctx := context.Background()

	block, err := svc.Create(ctx, admin, bookingReq(domain.BlockSentinelID))
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if !block.Blocked {
		t.Error("expected blocked booking")
	}

	occupied, _ := repo.SlotOccupied(ctx, 1, "2025-11-25", "09:00:00")
	if !occupied {
		t.Error("blocked slot must read as occupied")
	}
}

func TestCancelIdempotence(t *testing.T) {
	repo := newMockBookingRepo()
	svc, _ := newBookingService(repo)
	ctx := context.Background()

	booking, err := svc.Create(ctx, student, bookingReq(0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	affected, err := svc.Cancel(ctx, student, booking.ID)
	if err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}

	if _, err := svc.Cancel(ctx, student, booking.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Cancel err = %v, want ErrNotFound", err)
	}
}

func TestCancelOwnership(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())
	ctx := context.Background()

	booking, err := svc.Create(ctx, student, bookingReq(0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Cancel(ctx, faculty, booking.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner Cancel err = %v, want ErrForbidden", err)
	}

	if _, err := svc.Cancel(ctx, admin, booking.ID); err != nil {
		t.Errorf("admin Cancel: %v", err)
	}
}

func TestUnblockIsAdminOnly(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())
	ctx := context.Background()

	block, err := svc.Create(ctx, admin, bookingReq(domain.BlockSentinelID))
	if err != nil {
		t.Fatalf("block: %v", err)
	}

	if _, err := svc.Cancel(ctx, student, block.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("student unblock err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Cancel(ctx, admin, block.ID); err != nil {
		t.Errorf("admin unblock: %v", err)
	}
}

func TestBookedSlotsRoundTrip(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())
	ctx := context.Background()

	booking, err := svc.Create(ctx, student, bookingReq(0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	booked, err := svc.BookedSlots(ctx, 1, "2025-11-25")
	if err != nil {
		t.Fatalf("BookedSlots: %v", err)
	}
	if len(booked) != 1 || booked[0] != "09:00:00" {
		t.Errorf("booked = %v, want [09:00:00]", booked)
	}

	if _, err := svc.Cancel(ctx, student, booking.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	booked, err = svc.BookedSlots(ctx, 1, "2025-11-25")
	if err != nil {
		t.Fatalf("BookedSlots after cancel: %v", err)
	}
	if len(booked) != 0 {
		t.Errorf("booked after cancel = %v, want empty", booked)
	}
}

func TestBookedSlotsRequiresDate(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())

	if _, err := svc.BookedSlots(context.Background(), 1, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestListAuthorization(t *testing.T) {
	svc, _ := newBookingService(newMockBookingRepo())
	ctx := context.Background()

	if _, err := svc.ListUserBookings(ctx, student, faculty.UserID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("cross-user list err = %v, want ErrForbidden", err)
	}
	if _, err := svc.ListUserBookings(ctx, student, student.UserID); err != nil {
		t.Errorf("self list: %v", err)
	}
	if _, err := svc.ListUserBookings(ctx, admin, student.UserID); err != nil {
		t.Errorf("admin list: %v", err)
	}

	if _, err := svc.ListAllBookings(ctx, student); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-admin ListAll err = %v, want ErrForbidden", err)
	}
	if _, err := svc.ListAllBookings(ctx, admin); err != nil {
		t.Errorf("admin ListAll: %v", err)
	}
}

func TestConcurrentCreatesOneWinner(t *testing.T) {
	repo := newMockBookingRepo()
	svc, _ := newBookingService(repo)
	ctx := context.Background()

	const racers = 8
	errs := make(chan error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			actor := service.Actor{UserID: int64(n + 1), Role: domain.RoleStudent}
			_, err := svc.Create(ctx, actor, bookingReq(0))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1 (conflicts = %d)", wins, conflicts)
	}
	if all, _ := repo.ListAll(ctx); len(all) != 1 {
		t.Errorf("reservations = %d, want 1", len(all))
	}
}

func TestBlockSentinelNeverStoredAsOwner(t *testing.T) {
	repo := newMockBookingRepo()
	svc, _ := newBookingService(repo)
	ctx := context.Background()

	block, err := svc.Create(ctx, admin, bookingReq(domain.BlockSentinelID))
	if err != nil {
		t.Fatalf("block: %v", err)
	}

	stored, _ := repo.GetByID(ctx, block.ID)
	if stored.UserID != nil {
		t.Errorf("block stored with owner %d, want tagged ownerless row", *stored.UserID)
	}

	// A real account with the sentinel's numeric value can never be
	// confused with a block.
	if !stored.Blocked {
		t.Error("blocked flag not set")
	}
}
