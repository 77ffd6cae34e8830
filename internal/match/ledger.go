package match

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Ledger records which vendors were offered a work order and their response
// state. Rows are never deleted; a (work_order_id, vendor_id) pair is unique.
type Ledger struct {
	DB *sql.DB
}

// RecordOffers inserts one notified response per vendor. The batch is
// all-or-nothing; duplicate offers for a pair are silently skipped, so the
// call is idempotent.
func (l *Ledger) RecordOffers(ctx context.Context, workOrderID string, vendorIDs []string) error {
	if len(vendorIDs) == 0 {
		return nil
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record offers: %w", err)
	}
	defer tx.Rollback()

	for _, vendorID := range vendorIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO work_order_vendor_responses (id, work_order_id, vendor_id, response, response_at)
			VALUES ($1, $2, $3, 'notified', CURRENT_TIMESTAMP)
			ON CONFLICT (work_order_id, vendor_id) DO NOTHING`,
			uuid.NewString(), workOrderID, vendorID)
		if err != nil {
			return fmt.Errorf("record offer for vendor %s: %w", vendorID, err)
		}
	}

	return tx.Commit()
}

// markAccepted flips the winner's response to accepted, inserting the row if
// the vendor was never formally notified (discoverable/open selection). Runs
// inside the coordinator's assignment transaction.
func markAccepted(ctx context.Context, tx *sql.Tx, workOrderID, vendorID string, notes *string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE work_order_vendor_responses
		SET response = 'accepted', response_at = CURRENT_TIMESTAMP, notes = $3
		WHERE work_order_id = $1 AND vendor_id = $2`,
		workOrderID, vendorID, notes)
	if err != nil {
		return fmt.Errorf("mark accepted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO work_order_vendor_responses (id, work_order_id, vendor_id, response, response_at, notes)
			VALUES ($1, $2, $3, 'accepted', CURRENT_TIMESTAMP, $4)`,
			uuid.NewString(), workOrderID, vendorID, notes)
		if err != nil {
			return fmt.Errorf("insert accepted response: %w", err)
		}
	}
	return nil
}

// closeOutLosers flips every remaining notified response for the work order
// to declined_auto. Runs inside the coordinator's assignment transaction.
func closeOutLosers(ctx context.Context, tx *sql.Tx, workOrderID, winnerID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE work_order_vendor_responses
		SET response = 'declined_auto', response_at = CURRENT_TIMESTAMP
		WHERE work_order_id = $1 AND vendor_id != $2 AND response = 'notified'`,
		workOrderID, winnerID)
	if err != nil {
		return fmt.Errorf("close out losers: %w", err)
	}
	return nil
}
