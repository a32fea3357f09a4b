package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"servana/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memBookingRepo mirrors the conditional Transition of the real store: the
// status write only lands when the current status is in the allowed set.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking

	failCreate error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*models.Booking)}
}

func (r *memBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, models.NotFoundError{Resource: "booking", ID: id}
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) ListByClient(ctx context.Context, clientID, status string) ([]models.Booking, error) {
	return r.filter(func(b *models.Booking) bool {
		return b.ClientID == clientID && (status == "" || b.Status == status)
	}), nil
}

func (r *memBookingRepo) ListByProvider(ctx context.Context, providerID, status string) ([]models.Booking, error) {
	return r.filter(func(b *models.Booking) bool {
		return b.ProviderID == providerID && (status == "" || b.Status == status)
	}), nil
}

func (r *memBookingRepo) Transition(ctx context.Context, bookingID string, from []string, to string, set map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return models.NotFoundError{Resource: "booking", ID: bookingID}
	}
	allowed := false
	for _, f := range from {
		if b.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.InvalidTransitionError{BookingID: bookingID, From: b.Status, To: to}
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	for k, v := range set {
		switch k {
		case "cancellationReason":
			b.CancellationReason = v.(string)
		case "cancelledBy":
			b.CancelledBy = v.(string)
		case "timeSlotId":
			b.TimeSlotID = v.(string)
		case "scheduledStart":
			b.ScheduledStart = v.(time.Time)
		case "scheduledEnd":
			b.ScheduledEnd = v.(time.Time)
		}
	}
	return nil
}

func (r *memBookingRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return r.filter(func(b *models.Booking) bool {
		return b.Status == models.BookingPending && b.CreatedAt.Before(cutoff)
	}), nil
}

func (r *memBookingRepo) ListAcceptedEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	return r.filter(func(b *models.Booking) bool {
		return b.Status == models.BookingAccepted && !b.ScheduledEnd.After(cutoff)
	}), nil
}

func (r *memBookingRepo) ListAcceptedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return r.filter(func(b *models.Booking) bool {
		return b.Status == models.BookingAccepted && !b.ScheduledStart.Before(from) && !b.ScheduledStart.After(to)
	}), nil
}

func (r *memBookingRepo) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return r.filter(func(b *models.Booking) bool {
		return b.Status == models.BookingCompleted && !b.ScheduledEnd.Before(from) && !b.ScheduledEnd.After(to)
	}), nil
}

func (r *memBookingRepo) filter(keep func(*models.Booking) bool) []models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	return out
}

// fakeAvailability holds slots in memory with the same claim semantics as
// the real service: one winner per free slot, release is unconditional.
type fakeAvailability struct {
	mu    sync.Mutex
	slots map[string]*models.TimeSlot
}

func newFakeAvailability() *fakeAvailability {
	return &fakeAvailability{slots: make(map[string]*models.TimeSlot)}
}

func (a *fakeAvailability) addSlot(id, providerID string, start time.Time) *models.TimeSlot {
	s := &models.TimeSlot{
		ID:         id,
		ProviderID: providerID,
		Date:       start.Format("2006-01-02"),
		Start:      start,
		End:        start.Add(time.Hour),
	}
	a.slots[id] = s
	return s
}

func (a *fakeAvailability) SetWeeklyAvailability(ctx context.Context, providerID string, windows []models.AvailabilityWindow) error {
	return nil
}

func (a *fakeAvailability) GenerateTimeSlots(ctx context.Context, providerID string, from, to time.Time, slotDuration time.Duration) ([]models.TimeSlot, error) {
	return nil, nil
}

func (a *fakeAvailability) ReserveSlot(ctx context.Context, slotID, bookingID string) (*models.TimeSlot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[slotID]
	if !ok {
		return nil, models.NotFoundError{Resource: "time slot", ID: slotID}
	}
	if s.IsBooked {
		return nil, models.SlotConflictError{SlotID: slotID}
	}
	s.IsBooked = true
	s.BookingID = bookingID
	cp := *s
	return &cp, nil
}

func (a *fakeAvailability) ReleaseSlot(ctx context.Context, slotID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[slotID]
	if !ok {
		return models.NotFoundError{Resource: "time slot", ID: slotID}
	}
	s.IsBooked = false
	s.BookingID = ""
	return nil
}

func (a *fakeAvailability) GetAvailableSlots(ctx context.Context, providerID, date string) ([]models.TimeSlot, error) {
	return nil, nil
}

func (a *fakeAvailability) GetSlot(ctx context.Context, slotID string) (*models.TimeSlot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[slotID]
	if !ok {
		return nil, models.NotFoundError{Resource: "time slot", ID: slotID}
	}
	cp := *s
	return &cp, nil
}

func (a *fakeAvailability) GetWeeklySchedule(ctx context.Context, providerID string, weekStart time.Time) (map[string][]models.TimeSlot, error) {
	return nil, nil
}

func (a *fakeAvailability) FirstFreeSlot(ctx context.Context, providerID string, after time.Time) (*models.TimeSlot, error) {
	return nil, models.NotFoundError{Resource: "free time slot", ID: providerID}
}

type refundCall struct {
	bookingID string
	amount    float64
	partial   bool
}

type fakeEscrow struct {
	mu      sync.Mutex
	opened  map[string]float64
	refunds []refundCall

	refundErr error
}

func newFakeEscrow() *fakeEscrow {
	return &fakeEscrow{opened: make(map[string]float64)}
}

func (e *fakeEscrow) OpenEscrow(ctx context.Context, bookingID string, amount float64) (*models.EscrowRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened[bookingID] = amount
	return &models.EscrowRecord{BookingID: bookingID, Amount: amount}, nil
}

func (e *fakeEscrow) AttachGatewayCharge(ctx context.Context, bookingID, chargeID string) error {
	return nil
}

func (e *fakeEscrow) ProcessReleases(ctx context.Context, now time.Time) (*models.ReleaseReport, error) {
	return &models.ReleaseReport{}, nil
}

func (e *fakeEscrow) RequestEarlyRelease(ctx context.Context, bookingID, providerID, justification string) error {
	return nil
}

func (e *fakeEscrow) DisputePayment(ctx context.Context, bookingID, userID, reason string) error {
	return nil
}

func (e *fakeEscrow) ApplyRefund(ctx context.Context, bookingID string, amount float64, partial bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.refundErr != nil {
		return e.refundErr
	}
	e.refunds = append(e.refunds, refundCall{bookingID: bookingID, amount: amount, partial: partial})
	return nil
}

func (e *fakeEscrow) RequestWithdrawal(ctx context.Context, userID string, amount float64, bankAccountID string) (*models.Withdrawal, error) {
	return nil, nil
}

func (e *fakeEscrow) HandleGatewayEvent(ctx context.Context, event models.GatewayEvent) error {
	return nil
}

func (e *fakeEscrow) GetEarningsOverview(ctx context.Context, providerID string) (*models.EarningsOverview, error) {
	return nil, nil
}

type fakePolicy struct {
	cancelVerdict     *models.PolicyVerdict
	rescheduleVerdict *models.PolicyVerdict
	noShowVerdict     *models.PolicyVerdict
}

func allowAll() *fakePolicy {
	allowed := &models.PolicyVerdict{Allowed: true}
	return &fakePolicy{cancelVerdict: allowed, rescheduleVerdict: allowed, noShowVerdict: allowed}
}

func (p *fakePolicy) EvaluateCancellation(ctx context.Context, bookingID string, now time.Time) (*models.PolicyVerdict, error) {
	return p.cancelVerdict, nil
}

func (p *fakePolicy) EvaluateRescheduling(ctx context.Context, bookingID string, newStart time.Time, now time.Time) (*models.PolicyVerdict, error) {
	return p.rescheduleVerdict, nil
}

func (p *fakePolicy) NoShowVerdict(ctx context.Context, booking *models.Booking) (*models.PolicyVerdict, error) {
	return p.noShowVerdict, nil
}

func (p *fakePolicy) CreatePolicy(ctx context.Context, policy *models.BookingPolicy) error {
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, ntype, title, message string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, ntype)
	return nil
}

func (n *recordingNotifier) ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	return nil, nil
}

func (n *recordingNotifier) RedeliverUnsent(ctx context.Context, limit int64) (int, error) {
	return 0, nil
}

type recordingOfferer struct {
	mu     sync.Mutex
	offers []string
}

func (o *recordingOfferer) OfferSlot(ctx context.Context, serviceID, slotID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.offers = append(o.offers, slotID)
	return nil
}

type bookingFixture struct {
	svc          *DefaultBookingService
	repo         *memBookingRepo
	availability *fakeAvailability
	escrow       *fakeEscrow
	policy       *fakePolicy
	notifier     *recordingNotifier
	offerer      *recordingOfferer
}

func newBookingFixture() *bookingFixture {
	repo := newMemBookingRepo()
	avail := newFakeAvailability()
	esc := newFakeEscrow()
	pol := allowAll()
	notifier := &recordingNotifier{}
	offerer := &recordingOfferer{}
	svc := &DefaultBookingService{
		Repo:         repo,
		Availability: avail,
		Escrow:       esc,
		Policy:       pol,
		Notifier:     notifier,
		Waitlist:     offerer,
		Logger:       zap.NewNop(),
		PendingHold:  24 * time.Hour,
	}
	return &bookingFixture{
		svc: svc, repo: repo, availability: avail,
		escrow: esc, policy: pol, notifier: notifier, offerer: offerer,
	}
}

func (f *bookingFixture) draft(slotID string) models.BookingDraft {
	return models.BookingDraft{
		ServiceID:  "svc-1",
		ClientID:   "client-1",
		ProviderID: "provider-1",
		TimeSlotID: slotID,
		Amount:     200,
	}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	t.Run("claims the slot and opens a pending booking", func(t *testing.T) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)

		booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.NoError(t, err)
		assert.Equal(t, models.BookingPending, booking.Status)
		assert.Equal(t, "slot-1", booking.TimeSlotID)
		assert.Equal(t, "provider-1", booking.ProviderID)
		assert.Equal(t, start, booking.ScheduledStart)
		assert.Equal(t, start.Add(time.Hour), booking.ScheduledEnd)

		slot, err := f.availability.GetSlot(ctx, "slot-1")
		require.NoError(t, err)
		assert.True(t, slot.IsBooked)
		assert.Equal(t, booking.ID, slot.BookingID)
		assert.Contains(t, f.notifier.types, "booking_requested")
	})

	t.Run("a taken slot is a conflict and leaves no booking behind", func(t *testing.T) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)

		_, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.NoError(t, err)

		_, err = f.svc.CreateBooking(ctx, f.draft("slot-1"))
		assert.ErrorAs(t, err, &models.SlotConflictError{})
	})

	t.Run("persistence failure rolls the claim back", func(t *testing.T) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)
		f.repo.failCreate = errors.New("write timeout")

		_, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.Error(t, err)

		slot, err := f.availability.GetSlot(ctx, "slot-1")
		require.NoError(t, err)
		assert.False(t, slot.IsBooked)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newBookingFixture()
		d := f.draft("slot-1")
		d.Amount = 0
		_, err := f.svc.CreateBooking(ctx, d)
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})
}

func TestAcceptBooking(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	t.Run("moves pending to accepted and opens escrow", func(t *testing.T) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)
		booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.NoError(t, err)

		require.NoError(t, f.svc.AcceptBooking(ctx, booking.ID, "provider-1"))

		updated, err := f.repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingAccepted, updated.Status)
		assert.Equal(t, 200.0, f.escrow.opened[booking.ID])
		assert.Contains(t, f.notifier.types, "booking_accepted")
	})

	t.Run("a different provider cannot accept", func(t *testing.T) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)
		booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.NoError(t, err)

		err = f.svc.AcceptBooking(ctx, booking.ID, "impostor")
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})

	t.Run("accepting twice is an invalid transition", func(t *testing.T) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)
		booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.NoError(t, err)

		require.NoError(t, f.svc.AcceptBooking(ctx, booking.ID, "provider-1"))
		err = f.svc.AcceptBooking(ctx, booking.ID, "provider-1")
		assert.ErrorAs(t, err, &models.InvalidTransitionError{})
	})
}

func TestDeclineBooking(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	f := newBookingFixture()
	f.availability.addSlot("slot-1", "provider-1", start)
	booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeclineBooking(ctx, booking.ID, "provider-1", "fully booked elsewhere"))

	updated, err := f.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingDeclined, updated.Status)
	assert.Equal(t, "fully booked elsewhere", updated.CancellationReason)

	slot, err := f.availability.GetSlot(ctx, "slot-1")
	require.NoError(t, err)
	assert.False(t, slot.IsBooked)
	assert.Contains(t, f.offerer.offers, "slot-1")
}

func TestCompleteBooking(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*bookingFixture, *models.Booking) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)
		booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.NoError(t, err)
		require.NoError(t, f.svc.AcceptBooking(ctx, booking.ID, "provider-1"))
		return f, booking
	}

	t.Run("cannot complete before the scheduled end", func(t *testing.T) {
		f, booking := setup(t)
		err := f.svc.CompleteBooking(ctx, booking.ID, "provider-1", start.Add(30*time.Minute))
		assert.ErrorAs(t, err, &models.InvalidStateError{})

		updated, err := f.repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingAccepted, updated.Status)
	})

	t.Run("completes after the scheduled end", func(t *testing.T) {
		f, booking := setup(t)
		require.NoError(t, f.svc.CompleteBooking(ctx, booking.ID, "provider-1", start.Add(2*time.Hour)))

		updated, err := f.repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingCompleted, updated.Status)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*bookingFixture, *models.Booking) {
		f := newBookingFixture()
		f.availability.addSlot("slot-1", "provider-1", start)
		booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
		require.NoError(t, err)
		require.NoError(t, f.svc.AcceptBooking(ctx, booking.ID, "provider-1"))
		return f, booking
	}

	t.Run("a stranger cannot cancel", func(t *testing.T) {
		f, booking := setup(t)
		_, err := f.svc.CancelBooking(ctx, booking.ID, "stranger", "client", "changed plans")
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})

	t.Run("penalized cancel refunds the remainder", func(t *testing.T) {
		f, booking := setup(t)
		f.policy.cancelVerdict = &models.PolicyVerdict{Allowed: true, PenaltyAmount: 50, PolicyApplied: "pol-1"}

		verdict, err := f.svc.CancelBooking(ctx, booking.ID, "client-1", "client", "changed plans")
		require.NoError(t, err)
		assert.Equal(t, 50.0, verdict.PenaltyAmount)

		require.Len(t, f.escrow.refunds, 1)
		assert.Equal(t, 150.0, f.escrow.refunds[0].amount)
		assert.True(t, f.escrow.refunds[0].partial)

		updated, err := f.repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingCancelled, updated.Status)
		assert.Equal(t, "client-1", updated.CancelledBy)

		slot, err := f.availability.GetSlot(ctx, "slot-1")
		require.NoError(t, err)
		assert.False(t, slot.IsBooked)
		assert.Contains(t, f.offerer.offers, "slot-1")
	})

	t.Run("free cancel refunds in full", func(t *testing.T) {
		f, booking := setup(t)

		_, err := f.svc.CancelBooking(ctx, booking.ID, "client-1", "client", "changed plans")
		require.NoError(t, err)
		require.Len(t, f.escrow.refunds, 1)
		assert.Equal(t, 200.0, f.escrow.refunds[0].amount)
		assert.False(t, f.escrow.refunds[0].partial)
	})

	t.Run("policy can forbid the cancel outright", func(t *testing.T) {
		f, booking := setup(t)
		f.policy.cancelVerdict = &models.PolicyVerdict{Allowed: false, PolicyApplied: "pol-strict"}

		_, err := f.svc.CancelBooking(ctx, booking.ID, "client-1", "client", "changed plans")
		assert.ErrorAs(t, err, &models.PolicyViolationError{})

		updated, err := f.repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingAccepted, updated.Status)
	})

	t.Run("terminal bookings cannot be cancelled again", func(t *testing.T) {
		f, booking := setup(t)
		_, err := f.svc.CancelBooking(ctx, booking.ID, "client-1", "client", "changed plans")
		require.NoError(t, err)

		_, err = f.svc.CancelBooking(ctx, booking.ID, "client-1", "client", "again")
		assert.ErrorAs(t, err, &models.InvalidTransitionError{})
	})

	t.Run("system cancels record the system actor", func(t *testing.T) {
		f, booking := setup(t)
		_, err := f.svc.CancelBooking(ctx, booking.ID, "sweeper", "system", "no-show")
		require.NoError(t, err)

		updated, err := f.repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, "system", updated.CancelledBy)
	})
}

func TestRescheduleBooking(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	laterStart := start.Add(48 * time.Hour)

	setup := func(t *testing.T) (*bookingFixture, *models.Booking) {
		f := newBookingFixture()
		f.availability.addSlot("slot-old", "provider-1", start)
		f.availability.addSlot("slot-new", "provider-1", laterStart)
		booking, err := f.svc.CreateBooking(ctx, f.draft("slot-old"))
		require.NoError(t, err)
		require.NoError(t, f.svc.AcceptBooking(ctx, booking.ID, "provider-1"))
		return f, booking
	}

	t.Run("moves the booking and frees the old slot", func(t *testing.T) {
		f, booking := setup(t)

		updated, verdict, err := f.svc.RescheduleBooking(ctx, booking.ID, "client-1", "slot-new")
		require.NoError(t, err)
		assert.True(t, verdict.Allowed)
		assert.Equal(t, "slot-new", updated.TimeSlotID)
		assert.Equal(t, laterStart, updated.ScheduledStart)
		assert.Equal(t, models.BookingAccepted, updated.Status)

		oldSlot, err := f.availability.GetSlot(ctx, "slot-old")
		require.NoError(t, err)
		assert.False(t, oldSlot.IsBooked)
		assert.Contains(t, f.offerer.offers, "slot-old")

		newSlot, err := f.availability.GetSlot(ctx, "slot-new")
		require.NoError(t, err)
		assert.True(t, newSlot.IsBooked)
		assert.Equal(t, booking.ID, newSlot.BookingID)
	})

	t.Run("the current slot is not a valid target", func(t *testing.T) {
		f, booking := setup(t)
		_, _, err := f.svc.RescheduleBooking(ctx, booking.ID, "client-1", "slot-old")
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})

	t.Run("another provider's slot is not a valid target", func(t *testing.T) {
		f, booking := setup(t)
		f.availability.addSlot("slot-foreign", "provider-2", laterStart)

		_, _, err := f.svc.RescheduleBooking(ctx, booking.ID, "client-1", "slot-foreign")
		assert.ErrorAs(t, err, &models.InvalidStateError{})
	})

	t.Run("losing the claim keeps the original slot", func(t *testing.T) {
		f, booking := setup(t)
		_, err := f.availability.ReserveSlot(ctx, "slot-new", "someone-else")
		require.NoError(t, err)

		_, _, err = f.svc.RescheduleBooking(ctx, booking.ID, "client-1", "slot-new")
		assert.ErrorAs(t, err, &models.SlotConflictError{})

		updated, err := f.repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, "slot-old", updated.TimeSlotID)

		oldSlot, err := f.availability.GetSlot(ctx, "slot-old")
		require.NoError(t, err)
		assert.True(t, oldSlot.IsBooked)
	})
}

func TestApplyNoShowSweep(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	f := newBookingFixture()
	f.availability.addSlot("slot-1", "provider-1", start)
	booking, err := f.svc.CreateBooking(ctx, f.draft("slot-1"))
	require.NoError(t, err)
	require.NoError(t, f.svc.AcceptBooking(ctx, booking.ID, "provider-1"))
	f.policy.noShowVerdict = &models.PolicyVerdict{Allowed: true, PenaltyAmount: 40, PolicyApplied: "pol-ns"}

	applied, err := f.svc.ApplyNoShowSweep(ctx, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	updated, err := f.repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, updated.Status)
	assert.Equal(t, "no-show", updated.CancellationReason)
	assert.Equal(t, "system", updated.CancelledBy)

	require.Len(t, f.escrow.refunds, 1)
	assert.Equal(t, 160.0, f.escrow.refunds[0].amount)

	slot, err := f.availability.GetSlot(ctx, "slot-1")
	require.NoError(t, err)
	assert.False(t, slot.IsBooked)

	// A second sweep finds nothing.
	applied, err = f.svc.ApplyNoShowSweep(ctx, start.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestExpirePendingHolds(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	f := newBookingFixture()
	f.availability.addSlot("slot-stale", "provider-1", start)
	f.availability.addSlot("slot-fresh", "provider-1", start.Add(time.Hour))

	stale, err := f.svc.CreateBooking(ctx, f.draft("slot-stale"))
	require.NoError(t, err)
	fresh, err := f.svc.CreateBooking(ctx, f.draft("slot-fresh"))
	require.NoError(t, err)

	// Age the first booking past the hold window.
	f.repo.mu.Lock()
	f.repo.bookings[stale.ID].CreatedAt = time.Now().UTC().Add(-25 * time.Hour)
	f.repo.mu.Unlock()

	expired, err := f.svc.ExpirePendingHolds(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	staleAfter, err := f.repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingDeclined, staleAfter.Status)
	assert.Equal(t, "pending hold expired", staleAfter.CancellationReason)

	freshAfter, err := f.repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, freshAfter.Status)

	slot, err := f.availability.GetSlot(ctx, "slot-stale")
	require.NoError(t, err)
	assert.False(t, slot.IsBooked)
}
