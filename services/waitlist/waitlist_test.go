package waitlist

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"servana/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memWaitlistRepo applies status moves as conditional updates keyed on the
// current status, matching the real store.
type memWaitlistRepo struct {
	mu      sync.Mutex
	entries map[string]*models.WaitlistEntry
}

func newMemWaitlistRepo() *memWaitlistRepo {
	return &memWaitlistRepo{entries: make(map[string]*models.WaitlistEntry)}
}

func (r *memWaitlistRepo) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *memWaitlistRepo) GetByID(ctx context.Context, entryID string) (*models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return nil, models.NotFoundError{Resource: "waitlist entry", ID: entryID}
	}
	cp := *e
	return &cp, nil
}

func (r *memWaitlistRepo) HasActiveEntry(ctx context.Context, serviceID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ServiceID != serviceID || e.UserID != userID {
			continue
		}
		if e.Status == models.WaitlistWaiting || e.Status == models.WaitlistNotified {
			return true, nil
		}
	}
	return false, nil
}

func (r *memWaitlistRepo) transition(entryID string, from []string, to string, apply func(*models.WaitlistEntry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return models.NotFoundError{Resource: "waitlist entry", ID: entryID}
	}
	allowed := false
	for _, f := range from {
		if e.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.InvalidStateError{
			Reason: fmt.Sprintf("waitlist entry %s is %s, cannot move to %s", entryID, e.Status, to),
		}
	}
	e.Status = to
	e.UpdatedAt = time.Now().UTC()
	if apply != nil {
		apply(e)
	}
	return nil
}

func (r *memWaitlistRepo) MarkNotified(ctx context.Context, entryID, slotID string, expiresAt time.Time) error {
	return r.transition(entryID, []string{models.WaitlistWaiting}, models.WaitlistNotified, func(e *models.WaitlistEntry) {
		e.OfferedSlotID = slotID
		exp := expiresAt
		e.ExpiresAt = &exp
	})
}

func (r *memWaitlistRepo) MarkConverted(ctx context.Context, entryID string) error {
	return r.transition(entryID, []string{models.WaitlistNotified}, models.WaitlistConverted, nil)
}

func (r *memWaitlistRepo) MarkLeft(ctx context.Context, entryID string) error {
	return r.transition(entryID, models.ActiveWaitlistStatuses, models.WaitlistLeft, nil)
}

func (r *memWaitlistRepo) MarkExpired(ctx context.Context, entryID string) error {
	return r.transition(entryID, []string{models.WaitlistNotified}, models.WaitlistExpired, nil)
}

func (r *memWaitlistRepo) ListOverdueNotified(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range r.entries {
		if e.Status == models.WaitlistNotified && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memWaitlistRepo) NextWaiting(ctx context.Context, serviceID string) (*models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.WaitlistEntry
	for _, e := range r.entries {
		if e.ServiceID != serviceID || e.Status != models.WaitlistWaiting {
			continue
		}
		if best == nil ||
			e.Priority > best.Priority ||
			(e.Priority == best.Priority && e.CreatedAt.Before(best.CreatedAt)) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *memWaitlistRepo) ListByService(ctx context.Context, serviceID string) ([]models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range r.entries {
		if e.ServiceID == serviceID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeBookings struct {
	mu        sync.Mutex
	drafts    []models.BookingDraft
	createErr error
}

func (b *fakeBookings) CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.drafts = append(b.drafts, draft)
	return &models.Booking{
		ID:         uuid.New().String(),
		ServiceID:  draft.ServiceID,
		ClientID:   draft.ClientID,
		TimeSlotID: draft.TimeSlotID,
		Status:     models.BookingPending,
		Amount:     draft.Amount,
	}, nil
}

func (b *fakeBookings) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return nil, models.NotFoundError{Resource: "booking", ID: bookingID}
}

func (b *fakeBookings) ListBookings(ctx context.Context, actorID, role, status string) ([]models.Booking, error) {
	return nil, nil
}

func (b *fakeBookings) AcceptBooking(ctx context.Context, bookingID, providerID string) error {
	return nil
}

func (b *fakeBookings) DeclineBooking(ctx context.Context, bookingID, providerID, reason string) error {
	return nil
}

func (b *fakeBookings) CompleteBooking(ctx context.Context, bookingID, providerID string, now time.Time) error {
	return nil
}

func (b *fakeBookings) CancelBooking(ctx context.Context, bookingID, actorID, actorRole, reason string) (*models.PolicyVerdict, error) {
	return nil, nil
}

func (b *fakeBookings) RescheduleBooking(ctx context.Context, bookingID, actorID, newSlotID string) (*models.Booking, *models.PolicyVerdict, error) {
	return nil, nil, nil
}

func (b *fakeBookings) ApplyNoShowSweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (b *fakeBookings) ExpirePendingHolds(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
	users []string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, ntype, title, message string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, ntype)
	n.users = append(n.users, userID)
	return nil
}

func (n *recordingNotifier) ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	return nil, nil
}

func (n *recordingNotifier) RedeliverUnsent(ctx context.Context, limit int64) (int, error) {
	return 0, nil
}

type waitlistFixture struct {
	svc      *DefaultWaitlistService
	repo     *memWaitlistRepo
	bookings *fakeBookings
	notifier *recordingNotifier
}

func newWaitlistFixture() *waitlistFixture {
	repo := newMemWaitlistRepo()
	bookings := &fakeBookings{}
	notifier := &recordingNotifier{}
	svc := &DefaultWaitlistService{
		Repo:              repo,
		Bookings:          bookings,
		Notifier:          notifier,
		Logger:            zap.NewNop(),
		NotifyWindowHours: 24,
	}
	return &waitlistFixture{svc: svc, repo: repo, bookings: bookings, notifier: notifier}
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("queues a waiting entry", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "2026-04-01", []string{"2026-04-02"}, 3)
		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, models.WaitlistWaiting, entry.Status)
		assert.Equal(t, 3, entry.Priority)
		assert.Equal(t, []string{"2026-04-02"}, entry.AlternativeDates)
	})

	t.Run("one active entry per user and service", func(t *testing.T) {
		f := newWaitlistFixture()
		_, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)

		_, err = f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		assert.ErrorAs(t, err, &models.ConflictError{})

		// A different service is a separate queue.
		_, err = f.svc.Join(ctx, "svc-2", "user-1", "", nil, 0)
		assert.NoError(t, err)
	})

	t.Run("leaving clears the way for a rejoin", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)
		require.NoError(t, f.svc.Leave(ctx, entry.ID, "user-1"))

		_, err = f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		assert.NoError(t, err)
	})

	t.Run("rejects a join without a service or user", func(t *testing.T) {
		f := newWaitlistFixture()
		_, err := f.svc.Join(ctx, "", "user-1", "", nil, 0)
		assert.ErrorAs(t, err, &models.InvalidStateError{})
		_, err = f.svc.Join(ctx, "svc-1", "", "", nil, 0)
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})
}

func TestNotifyAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("offers the slot and starts the claim window", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)

		require.NoError(t, f.svc.NotifyAvailability(ctx, entry.ID, "slot-1", 6))

		updated, err := f.repo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistNotified, updated.Status)
		assert.Equal(t, "slot-1", updated.OfferedSlotID)
		require.NotNil(t, updated.ExpiresAt)
		assert.WithinDuration(t, time.Now().UTC().Add(6*time.Hour), *updated.ExpiresAt, time.Minute)
		assert.Contains(t, f.notifier.types, "waitlist_slot_available")
		assert.Contains(t, f.notifier.users, "user-1")
	})

	t.Run("falls back to the default window", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)

		require.NoError(t, f.svc.NotifyAvailability(ctx, entry.ID, "slot-1", 0))

		updated, err := f.repo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.ExpiresAt)
		assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), *updated.ExpiresAt, time.Minute)
	})

	t.Run("only waiting entries can be notified", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)
		require.NoError(t, f.svc.NotifyAvailability(ctx, entry.ID, "slot-1", 6))

		err = f.svc.NotifyAvailability(ctx, entry.ID, "slot-2", 6)
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})
}

func TestExpireSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("expires overdue entries and leaves live ones", func(t *testing.T) {
		f := newWaitlistFixture()
		overdue, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)
		live, err := f.svc.Join(ctx, "svc-1", "user-2", "", nil, 0)
		require.NoError(t, err)

		require.NoError(t, f.svc.NotifyAvailability(ctx, overdue.ID, "slot-1", 1))
		require.NoError(t, f.svc.NotifyAvailability(ctx, live.ID, "slot-2", 48))

		expired, err := f.svc.ExpireSweep(ctx, time.Now().UTC().Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), expired)

		overdueAfter, err := f.repo.GetByID(ctx, overdue.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistExpired, overdueAfter.Status)

		liveAfter, err := f.repo.GetByID(ctx, live.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistNotified, liveAfter.Status)
	})

	t.Run("an expired offer moves to the next entry in line", func(t *testing.T) {
		f := newWaitlistFixture()
		overdue, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)
		next, err := f.svc.Join(ctx, "svc-1", "user-2", "", nil, 5)
		require.NoError(t, err)
		require.NoError(t, f.svc.NotifyAvailability(ctx, overdue.ID, "slot-1", 1))

		expired, err := f.svc.ExpireSweep(ctx, time.Now().UTC().Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), expired)

		nextAfter, err := f.repo.GetByID(ctx, next.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistNotified, nextAfter.Status)
		assert.Equal(t, "slot-1", nextAfter.OfferedSlotID)
		assert.Contains(t, f.notifier.users, "user-2")
	})

	t.Run("an expiry deadline is inclusive", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)
		require.NoError(t, f.svc.NotifyAvailability(ctx, entry.ID, "slot-1", 48))

		deadline := time.Now().UTC().Add(48 * time.Hour)
		f.repo.mu.Lock()
		f.repo.entries[entry.ID].ExpiresAt = &deadline
		f.repo.mu.Unlock()

		expired, err := f.svc.ExpireSweep(ctx, deadline)
		require.NoError(t, err)
		assert.Equal(t, int64(1), expired)
	})
}

func TestConvertToBooking(t *testing.T) {
	ctx := context.Background()

	notified := func(t *testing.T, f *waitlistFixture, hours int) *models.WaitlistEntry {
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)
		require.NoError(t, f.svc.NotifyAvailability(ctx, entry.ID, "slot-1", hours))
		updated, err := f.repo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		return updated
	}

	t.Run("converts inside the claim window", func(t *testing.T) {
		f := newWaitlistFixture()
		entry := notified(t, f, 6)

		booking, err := f.svc.ConvertToBooking(ctx, entry.ID, 120)
		require.NoError(t, err)
		assert.Equal(t, "svc-1", booking.ServiceID)
		assert.Equal(t, "user-1", booking.ClientID)
		assert.Equal(t, "slot-1", booking.TimeSlotID)
		assert.Equal(t, 120.0, booking.Amount)

		updated, err := f.repo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistConverted, updated.Status)
	})

	t.Run("waiting entries do not convert", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)

		_, err = f.svc.ConvertToBooking(ctx, entry.ID, 120)
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})

	t.Run("an elapsed window blocks the claim", func(t *testing.T) {
		f := newWaitlistFixture()
		entry := notified(t, f, 6)

		past := time.Now().UTC().Add(-time.Minute)
		f.repo.mu.Lock()
		f.repo.entries[entry.ID].ExpiresAt = &past
		f.repo.mu.Unlock()

		_, err := f.svc.ConvertToBooking(ctx, entry.ID, 120)
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})

	t.Run("losing the slot race keeps the entry notified", func(t *testing.T) {
		f := newWaitlistFixture()
		entry := notified(t, f, 6)
		f.bookings.createErr = models.SlotConflictError{SlotID: "slot-1"}

		_, err := f.svc.ConvertToBooking(ctx, entry.ID, 120)
		assert.ErrorAs(t, err, &models.SlotConflictError{})

		updated, err := f.repo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistNotified, updated.Status)
	})
}

func TestLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("only the owner can leave", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)

		err = f.svc.Leave(ctx, entry.ID, "user-2")
		assert.ErrorAs(t, err, &models.InvalidStateError{})

		require.NoError(t, f.svc.Leave(ctx, entry.ID, "user-1"))
		updated, err := f.repo.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistLeft, updated.Status)
	})

	t.Run("converted entries cannot leave", func(t *testing.T) {
		f := newWaitlistFixture()
		entry, err := f.svc.Join(ctx, "svc-1", "user-1", "", nil, 0)
		require.NoError(t, err)
		require.NoError(t, f.svc.NotifyAvailability(ctx, entry.ID, "slot-1", 6))
		_, err = f.svc.ConvertToBooking(ctx, entry.ID, 120)
		require.NoError(t, err)

		err = f.svc.Leave(ctx, entry.ID, "user-1")
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})
}

func TestOfferSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("highest priority waits the shortest", func(t *testing.T) {
		f := newWaitlistFixture()
		_, err := f.svc.Join(ctx, "svc-1", "user-low", "", nil, 1)
		require.NoError(t, err)
		vip, err := f.svc.Join(ctx, "svc-1", "user-vip", "", nil, 9)
		require.NoError(t, err)

		require.NoError(t, f.svc.OfferSlot(ctx, "svc-1", "slot-1"))

		updated, err := f.repo.GetByID(ctx, vip.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistNotified, updated.Status)
		assert.Equal(t, "slot-1", updated.OfferedSlotID)
		assert.Contains(t, f.notifier.users, "user-vip")
		assert.NotContains(t, f.notifier.users, "user-low")
	})

	t.Run("equal priority goes to the earliest join", func(t *testing.T) {
		f := newWaitlistFixture()
		first, err := f.svc.Join(ctx, "svc-1", "user-a", "", nil, 2)
		require.NoError(t, err)

		// Force distinct join times without sleeping.
		later := time.Now().UTC().Add(time.Second)
		second, err := f.svc.Join(ctx, "svc-1", "user-b", "", nil, 2)
		require.NoError(t, err)
		f.repo.mu.Lock()
		f.repo.entries[second.ID].CreatedAt = later
		f.repo.mu.Unlock()

		require.NoError(t, f.svc.OfferSlot(ctx, "svc-1", "slot-1"))

		updated, err := f.repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WaitlistNotified, updated.Status)
	})

	t.Run("an empty queue is a no-op", func(t *testing.T) {
		f := newWaitlistFixture()
		assert.NoError(t, f.svc.OfferSlot(ctx, "svc-nobody", "slot-1"))
	})
}
