package booking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/puznanski/SIK-ticketserver/internal/catalogue"
	"github.com/puznanski/SIK-ticketserver/internal/models"
	"github.com/puznanski/SIK-ticketserver/internal/protocol"
)

// MockLedger is a mock implementation of the Ledger interface
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) ReservationCreated(reservation *models.Reservation) {
	m.Called(reservation)
}

func (m *MockLedger) ReservationRedeemed(reservation *models.Reservation) {
	m.Called(reservation)
}

func (m *MockLedger) ReservationExpired(reservation *models.Reservation) {
	m.Called(reservation)
}

func testCatalogue() *catalogue.Catalogue {
	return catalogue.New([]*models.Event{
		{Description: "Concert", Remaining: 10, Initial: 10},
		{Description: "Play", Remaining: 5, Initial: 5},
	})
}

func newTestService() *Service {
	return NewService(testCatalogue(), 5, nil)
}

func TestReserve(t *testing.T) {
	service := newTestService()

	reservation, err := service.Reserve(0, 3, 1000)
	require.NoError(t, err)

	assert.Equal(t, uint32(1_000_000), reservation.ID)
	assert.Equal(t, uint32(0), reservation.EventID)
	assert.Equal(t, uint16(3), reservation.TicketCount)
	assert.Equal(t, uint64(1005), reservation.ExpiresAt)
	assert.Len(t, reservation.Cookie, models.CookieLength)
	assert.False(t, reservation.Grant.Collected)

	event, err := service.Catalogue.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), event.Remaining)
}

func TestReserveIDsAreSequentialAndNeverReused(t *testing.T) {
	service := newTestService()

	first, err := service.Reserve(0, 1, 1000)
	require.NoError(t, err)
	second, err := service.Reserve(1, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1_000_000), first.ID)
	assert.Equal(t, uint32(1_000_001), second.ID)

	// Expire both; the next id still moves forward.
	service.Sweep(2000)
	third, err := service.Reserve(0, 1, 2000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1_000_002), third.ID)
}

func TestReserveRejections(t *testing.T) {
	service := newTestService()

	_, err := service.Reserve(0, 0, 1000)
	assert.ErrorIs(t, err, models.ErrNoTicketsRequested)

	_, err = service.Reserve(0, uint16(protocol.MaxTicketsPerReservation+1), 1000)
	assert.ErrorIs(t, err, models.ErrTooManyTickets)

	_, err = service.Reserve(2, 1, 1000)
	assert.ErrorIs(t, err, models.ErrUnknownEvent)

	_, err = service.Reserve(0, 20, 1000)
	assert.ErrorIs(t, err, models.ErrSoldOut)

	// Nothing above touched the pool.
	event, err := service.Catalogue.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), event.Remaining)
}

func TestRedeemIssuesSequentialCodes(t *testing.T) {
	service := newTestService()

	reservation, err := service.Reserve(0, 3, 1000)
	require.NoError(t, err)

	codes, err := service.Redeem(reservation.ID, reservation.Cookie, 1002)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000000", "2000000", "3000000"}, codes)

	// The next collected reservation continues where this one stopped.
	other, err := service.Reserve(1, 2, 1002)
	require.NoError(t, err)
	otherCodes, err := service.Redeem(other.ID, other.Cookie, 1003)
	require.NoError(t, err)
	assert.Equal(t, []string{"4000000", "5000000"}, otherCodes)
}

func TestRedeemIsIdempotent(t *testing.T) {
	service := newTestService()

	reservation, err := service.Reserve(0, 3, 1000)
	require.NoError(t, err)

	first, err := service.Redeem(reservation.ID, reservation.Cookie, 1001)
	require.NoError(t, err)
	second, err := service.Redeem(reservation.ID, reservation.Cookie, 1003)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// The ticket counter advanced exactly once.
	assert.Equal(t, uint64(3), service.Snapshot().TicketsIssued)
}

func TestRedeemRejections(t *testing.T) {
	service := newTestService()

	reservation, err := service.Reserve(0, 3, 1000)
	require.NoError(t, err)

	_, err = service.Redeem(reservation.ID+1, reservation.Cookie, 1001)
	assert.ErrorIs(t, err, models.ErrUnknownReservation)

	wrongCookie := []byte(strings.Repeat("x", models.CookieLength))
	_, err = service.Redeem(reservation.ID, wrongCookie, 1001)
	assert.ErrorIs(t, err, models.ErrBadCookie)

	// now >= expiration means expired, even at the boundary second.
	_, err = service.Redeem(reservation.ID, reservation.Cookie, 1005)
	assert.ErrorIs(t, err, models.ErrReservationExpired)
}

func TestSweepReclaimsUncollected(t *testing.T) {
	service := newTestService()

	reservation, err := service.Reserve(1, 2, 1000)
	require.NoError(t, err)

	event, err := service.Catalogue.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), event.Remaining)

	// Not due yet at 1004.
	assert.Equal(t, 0, service.Sweep(1004))

	// Due at 1006: tickets return to the pool and the id stops resolving.
	assert.Equal(t, 1, service.Sweep(1006))
	assert.Equal(t, uint16(5), event.Remaining)

	_, err = service.Redeem(reservation.ID, reservation.Cookie, 1006)
	assert.ErrorIs(t, err, models.ErrUnknownReservation)
}

func TestSweepBoundarySecond(t *testing.T) {
	service := newTestService()

	_, err := service.Reserve(0, 1, 1000)
	require.NoError(t, err)

	// Expires at 1005; now == 1005 already counts as expired.
	assert.Equal(t, 1, service.Sweep(1005))
}

func TestSweepKeepsCollected(t *testing.T) {
	service := newTestService()

	reservation, err := service.Reserve(0, 3, 1000)
	require.NoError(t, err)
	codes, err := service.Redeem(reservation.ID, reservation.Cookie, 1002)
	require.NoError(t, err)

	assert.Equal(t, 0, service.Sweep(1010))

	// The reservation is permanent: still stored, tickets not returned.
	stored, ok := service.Reservation(reservation.ID)
	require.True(t, ok)
	assert.Equal(t, codes[0], "1000000")
	assert.True(t, stored.Grant.Collected)

	event, err := service.Catalogue.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), event.Remaining)

	// But redemption after the deadline is refused.
	_, err = service.Redeem(reservation.ID, reservation.Cookie, 1010)
	assert.ErrorIs(t, err, models.ErrReservationExpired)
}

func TestTicketConservation(t *testing.T) {
	service := newTestService()

	checkConservation := func() {
		t.Helper()
		for _, event := range service.Catalogue.Events() {
			total := uint32(event.Remaining) + service.liveFor(event.ID)
			assert.Equal(t, uint32(event.Initial), total, "event %d", event.ID)
		}
	}

	r1, err := service.Reserve(0, 4, 1000)
	require.NoError(t, err)
	checkConservation()

	_, err = service.Reserve(0, 3, 1001)
	require.NoError(t, err)
	checkConservation()

	_, err = service.Reserve(1, 5, 1001)
	require.NoError(t, err)
	checkConservation()

	_, err = service.Redeem(r1.ID, r1.Cookie, 1002)
	require.NoError(t, err)
	checkConservation()

	// r2 and r3 expire; r1 is collected and stays.
	service.Sweep(1008)
	checkConservation()
}

func TestExpirationTimesAreMonotonic(t *testing.T) {
	service := newTestService()

	var previous uint64
	for i, now := range []uint64{1000, 1000, 1003, 1007, 1020} {
		reservation, err := service.Reserve(1, 1, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reservation.ExpiresAt, previous, "reservation %d", i)
		previous = reservation.ExpiresAt
		service.Sweep(now)
	}
}

func TestCodesNeverRepeatAcrossReservations(t *testing.T) {
	service := NewService(catalogue.New([]*models.Event{
		{Description: "Big venue", Remaining: 500, Initial: 500},
	}), 5, nil)

	seen := make(map[string]bool)
	now := uint64(1000)
	for i := 0; i < 50; i++ {
		reservation, err := service.Reserve(0, 7, now)
		require.NoError(t, err)
		codes, err := service.Redeem(reservation.ID, reservation.Cookie, now+1)
		require.NoError(t, err)
		for _, code := range codes {
			assert.False(t, seen[code], "code %q issued twice", code)
			seen[code] = true
		}
		now += 10
		service.Sweep(now)
	}
}

func TestListEventsFitsAll(t *testing.T) {
	service := newTestService()

	events, size := service.ListEvents()
	assert.Len(t, events, 2)
	// 1 id byte + (7+7) for Concert + (7+4) for Play.
	assert.Equal(t, 1+14+11, size)
	assert.Len(t, protocol.EncodeEvents(events), size)
}

func TestListEventsStopsAtDatagramBudget(t *testing.T) {
	longDescription := strings.Repeat("x", 255)
	events := make([]*models.Event, 300)
	for i := range events {
		events[i] = &models.Event{Description: longDescription, Remaining: 1, Initial: 1}
	}
	service := NewService(catalogue.New(events), 5, nil)

	prefix, size := service.ListEvents()

	// Each entry is 4+2+1+255 = 262 bytes; 250 entries plus the message
	// id byte fit under 65507, 251 do not.
	assert.Len(t, prefix, 250)
	assert.Equal(t, 1+250*262, size)
	assert.LessOrEqual(t, size, protocol.MaxDatagram)
	assert.Len(t, protocol.EncodeEvents(prefix), size)
}

func TestLedgerCallbacks(t *testing.T) {
	mockLedger := new(MockLedger)
	service := NewService(testCatalogue(), 5, mockLedger)

	mockLedger.On("ReservationCreated", mock.Anything).Return()
	mockLedger.On("ReservationRedeemed", mock.Anything).Return()
	mockLedger.On("ReservationExpired", mock.Anything).Return()

	collected, err := service.Reserve(0, 2, 1000)
	require.NoError(t, err)
	abandoned, err := service.Reserve(1, 1, 1000)
	require.NoError(t, err)

	_, err = service.Redeem(collected.ID, collected.Cookie, 1001)
	require.NoError(t, err)
	// A repeat redemption must not produce a second ledger row.
	_, err = service.Redeem(collected.ID, collected.Cookie, 1002)
	require.NoError(t, err)

	service.Sweep(1005)

	mockLedger.AssertNumberOfCalls(t, "ReservationCreated", 2)
	mockLedger.AssertNumberOfCalls(t, "ReservationRedeemed", 1)
	mockLedger.AssertNumberOfCalls(t, "ReservationExpired", 1)
	_ = abandoned
}

func TestSnapshot(t *testing.T) {
	service := newTestService()

	reservation, err := service.Reserve(0, 3, 1000)
	require.NoError(t, err)
	_, err = service.Reserve(1, 1, 1000)
	require.NoError(t, err)
	_, err = service.Redeem(reservation.ID, reservation.Cookie, 1001)
	require.NoError(t, err)
	service.Sweep(1005)

	snapshot := service.Snapshot()
	assert.Equal(t, uint64(2), snapshot.ReservationsMade)
	assert.Equal(t, uint64(3), snapshot.TicketsIssued)
	assert.Equal(t, uint64(1), snapshot.Expired)
	assert.Equal(t, 1, snapshot.LiveReservations)
	require.Len(t, snapshot.Events, 2)
	assert.Equal(t, uint16(7), snapshot.Events[0].Remaining)
	assert.Equal(t, uint16(5), snapshot.Events[1].Remaining)
}
