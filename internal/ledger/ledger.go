package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/puznanski/SIK-ticketserver/internal/logger"
	"github.com/puznanski/SIK-ticketserver/internal/models"
)

// DB is the append-only issuance ledger, an SQLite file written through
// bun. It records reservation lifecycle rows for operators; the server
// never reads it back, so protocol state stays purely in memory.
type DB struct {
	Bun    *bun.DB
	Logger *logger.Logger
}

// Open creates (or appends to) the ledger file and ensures the schema.
func Open(path string, lgr *logger.Logger) (*DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().
		Model((*models.LedgerEntry)(nil)).
		IfNotExists().
		Exec(context.Background())
	if err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return &DB{Bun: bunDB, Logger: lgr}, nil
}

func (d *DB) ReservationCreated(reservation *models.Reservation) {
	d.insert(models.LedgerReserved, reservation, 0)
}

func (d *DB) ReservationRedeemed(reservation *models.Reservation) {
	d.insert(models.LedgerRedeemed, reservation, int64(reservation.Grant.FirstTicket))
}

func (d *DB) ReservationExpired(reservation *models.Reservation) {
	d.insert(models.LedgerExpired, reservation, 0)
}

// insert never propagates failure: the ledger is observability, and a
// broken ledger must not turn a valid request into an error.
func (d *DB) insert(kind string, reservation *models.Reservation, firstTicket int64) {
	entry := models.LedgerEntry{
		ID:            uuid.New().String(),
		Kind:          kind,
		ReservationID: int64(reservation.ID),
		EventID:       int64(reservation.EventID),
		TicketCount:   int64(reservation.TicketCount),
		FirstTicket:   firstTicket,
		ExpiresAt:     int64(reservation.ExpiresAt),
		RecordedAt:    time.Now().UTC(),
	}
	if _, err := d.Bun.NewInsert().Model(&entry).Exec(context.Background()); err != nil {
		if d.Logger != nil {
			d.Logger.Error("LEDGER", fmt.Sprintf("insert %s row for reservation %d: %v", kind, reservation.ID, err))
		}
		return
	}
	if d.Logger != nil {
		d.Logger.LogLedger(kind, fmt.Sprintf("reservation %d recorded", reservation.ID))
	}
}

func (d *DB) Close() error {
	return d.Bun.Close()
}
