package match

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcome classifies the result of a lifecycle operation on a work order.
type Outcome int

const (
	OutcomeAssigned Outcome = iota
	OutcomeCompleted
	OutcomeConflict
	OutcomeNotFound
)

// AcceptResult reports how an acceptance attempt resolved. On Conflict,
// CurrentStatus and AssignedVendorID carry the authoritative state so the
// caller can reconcile its view.
type AcceptResult struct {
	Outcome          Outcome
	WorkOrderID      string
	VendorID         string
	AssignedAt       time.Time
	CurrentStatus    string
	AssignedVendorID *string
}

// CompleteResult reports how a completion attempt resolved.
type CompleteResult struct {
	Outcome       Outcome
	CurrentStatus string
}

// Coordinator drives the work-order state machine:
// created -> assigned -> in_progress -> completed, plus terminal cancelled.
// Acceptance is serialized per work order by the store's row lock; the
// coordinator holds no in-process synchronization of its own.
type Coordinator struct {
	DB *sql.DB
}

// Accept resolves the race to claim a work order. Concurrent acceptors
// serialize on an exclusive row lock; exactly one observes status 'created'
// and wins. Everyone else gets a Conflict result, which is a normal outcome
// and must not be retried automatically. Any failure rolls the whole
// transaction back, leaving the work order untouched.
func (c *Coordinator) Accept(ctx context.Context, workOrderID, vendorID string, notes *string) (AcceptResult, error) {
	res := AcceptResult{WorkOrderID: workOrderID, VendorID: vendorID}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback()

	var status string
	var assignedVendorID sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT status, assigned_vendor_id FROM work_orders
		WHERE id = $1 FOR UPDATE`, workOrderID).Scan(&status, &assignedVendorID)
	if err == sql.ErrNoRows {
		res.Outcome = OutcomeNotFound
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("lock work order %s: %w", workOrderID, err)
	}

	if status != "created" {
		res.Outcome = OutcomeConflict
		res.CurrentStatus = status
		if assignedVendorID.Valid {
			res.AssignedVendorID = &assignedVendorID.String
		}
		return res, nil
	}

	var assignedAt time.Time
	err = tx.QueryRowContext(ctx, `
		UPDATE work_orders
		SET assigned_vendor_id = $1, assigned_at = CURRENT_TIMESTAMP,
		    status = 'assigned', updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING assigned_at`, vendorID, workOrderID).Scan(&assignedAt)
	if err != nil {
		return res, fmt.Errorf("assign work order %s: %w", workOrderID, err)
	}

	if err := markAccepted(ctx, tx, workOrderID, vendorID, notes); err != nil {
		return res, err
	}
	if err := closeOutLosers(ctx, tx, workOrderID, vendorID); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit accept: %w", err)
	}

	res.Outcome = OutcomeAssigned
	res.CurrentStatus = "assigned"
	res.AssignedAt = assignedAt
	return res, nil
}

// Complete moves an assigned or in-progress work order to completed. Other
// states produce a Conflict result rather than silently overwriting, a
// deliberately stricter guard than completion-on-mere-existence.
func (c *Coordinator) Complete(ctx context.Context, workOrderID string, notes *string) (CompleteResult, error) {
	var res CompleteResult

	err := c.DB.QueryRowContext(ctx, `
		UPDATE work_orders
		SET status = 'completed', completed_at = CURRENT_TIMESTAMP,
		    completion_notes = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('assigned', 'in_progress')
		RETURNING status`, workOrderID, notes).Scan(&res.CurrentStatus)
	if err == nil {
		res.Outcome = OutcomeCompleted
		return res, nil
	}
	if err != sql.ErrNoRows {
		return res, fmt.Errorf("complete work order %s: %w", workOrderID, err)
	}

	// Distinguish missing from wrong-state.
	err = c.DB.QueryRowContext(ctx,
		`SELECT status FROM work_orders WHERE id = $1`, workOrderID).Scan(&res.CurrentStatus)
	if err == sql.ErrNoRows {
		res.Outcome = OutcomeNotFound
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("check work order %s: %w", workOrderID, err)
	}
	res.Outcome = OutcomeConflict
	return res, nil
}
