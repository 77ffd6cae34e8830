package internal

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
)

// reminderWindows are the days-before-expiry thresholds at which a reminder
// is recorded for an approved document. Each window fires at most once per
// document.
var reminderWindows = []int{60, 30, 5}

// reminderRecord is one recorded expiry reminder
type reminderRecord struct {
	ID               string    `json:"id"`
	VendorDocumentID string    `json:"vendor_document_id"`
	VendorID         string    `json:"vendor_id"`
	CompanyName      string    `json:"company_name"`
	DocumentTypeName string    `json:"document_type_name"`
	ExpirationDate   time.Time `json:"expiration_date"`
	ReminderDays     int       `json:"reminder_days"`
	CreatedAt        time.Time `json:"created_at"`
}

// expiryCandidate is an approved document inside a reminder window
type expiryCandidate struct {
	documentID    string
	businessEmail string
	documentType  string
	expiration    time.Time
}

// sweepReminders first flips approved documents that are already past their
// expiration date to 'expired', then records a reminder for every approved
// document whose expiry falls inside a window that has not fired yet. Runs on
// the pgx pool; each (document, window) pair fires at most once.
func (s *Server) sweepReminders(ctx context.Context) (created, expired int, err error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE vendor_documents
		SET status = 'expired'
		WHERE status = 'approved'
		AND expiration_date IS NOT NULL
		AND expiration_date < CURRENT_DATE`)
	if err != nil {
		return 0, 0, err
	}
	expired = int(tag.RowsAffected())

	for _, days := range reminderWindows {
		candidates, err := s.expiryCandidates(ctx, days)
		if err != nil {
			return created, expired, err
		}
		for _, c := range candidates {
			tag, err := s.Pool.Exec(ctx, `
				INSERT INTO document_reminders (vendor_document_id, reminder_days)
				VALUES ($1, $2)
				ON CONFLICT (vendor_document_id, reminder_days) DO NOTHING`,
				c.documentID, days)
			if err != nil {
				return created, expired, err
			}
			if tag.RowsAffected() == 0 {
				continue
			}
			created++
			// Email delivery is a logged stub
			log.Printf("reminder: %s for %s expires %s (%d-day notice)",
				c.documentType, c.businessEmail, c.expiration.Format("2006-01-02"), days)
		}
	}
	return created, expired, nil
}

// expiryCandidates lists approved documents expiring within the window,
// with the vendor contact the reminder email would go to.
func (s *Server) expiryCandidates(ctx context.Context, days int) ([]expiryCandidate, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT vd.id, v.business_email, dt.name, vd.expiration_date
		FROM vendor_documents vd
		INNER JOIN vendors v ON v.id = vd.vendor_id
		INNER JOIN document_types dt ON dt.id = vd.document_type_id
		WHERE vd.status = 'approved'
		AND vd.expiration_date IS NOT NULL
		AND vd.expiration_date BETWEEN CURRENT_DATE AND CURRENT_DATE + $1 * INTERVAL '1 day'`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []expiryCandidate
	for rows.Next() {
		var c expiryCandidate
		if err := rows.Scan(&c.documentID, &c.businessEmail, &c.documentType, &c.expiration); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// runReminderSweep triggers a sweep on demand
func (s *Server) runReminderSweep(w http.ResponseWriter, r *http.Request) {
	created, expired, err := s.sweepReminders(r.Context())
	if err != nil {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reminders_created": created,
		"documents_expired": expired,
		"windows_days":      reminderWindows,
	})
}

// listReminders returns recorded reminders, most recent first
func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Pool.Query(r.Context(), `
		SELECT dr.id, dr.vendor_document_id, vd.vendor_id, v.company_name, dt.name,
		       vd.expiration_date, dr.reminder_days, dr.created_at
		FROM document_reminders dr
		INNER JOIN vendor_documents vd ON vd.id = dr.vendor_document_id
		INNER JOIN vendors v ON v.id = vd.vendor_id
		INNER JOIN document_types dt ON dt.id = vd.document_type_id
		ORDER BY dr.created_at DESC
		LIMIT 500`)
	if err != nil {
		serverError(w)
		return
	}
	defer rows.Close()

	reminders := []reminderRecord{}
	for rows.Next() {
		var rec reminderRecord
		if err := rows.Scan(&rec.ID, &rec.VendorDocumentID, &rec.VendorID, &rec.CompanyName,
			&rec.DocumentTypeName, &rec.ExpirationDate, &rec.ReminderDays, &rec.CreatedAt); err != nil {
			serverError(w)
			return
		}
		reminders = append(reminders, rec)
	}
	if rows.Err() != nil && rows.Err() != pgx.ErrNoRows {
		serverError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reminders": reminders,
		"total":     len(reminders),
	})
}
