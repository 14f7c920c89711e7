package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// ==================== Consent Log ====================

// consentLog implements driven.ConsentLog. Rows are inserted, never updated.
type consentLog struct {
	store *Store
}

var _ driven.ConsentLog = (*consentLog)(nil)

// Append inserts a consent record. Duplicate consent IDs are rejected.
func (c *consentLog) Append(ctx context.Context, record *domain.ConsentRecord) error {
	typesJSON, err := marshalJSON(record.DataTypes, "[]")
	if err != nil {
		return fmt.Errorf("marshalling data types: %w", err)
	}

	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO consent_log (consent_id, subject_id, purpose, data_types, timestamp, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ConsentID, record.SubjectID, record.Purpose, typesJSON,
		formatTime(record.Timestamp), formatTimePtr(record.ExpiresAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("consent %s: %w", record.ConsentID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("appending consent: %w", err)
	}
	return nil
}

// Get retrieves a consent by ID.
func (c *consentLog) Get(ctx context.Context, consentID string) (*domain.ConsentRecord, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT consent_id, subject_id, purpose, data_types, timestamp, expires_at
		FROM consent_log WHERE consent_id = ?
	`, consentID)

	rec, err := scanConsent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// ListBySubject returns a subject's consents, oldest first.
func (c *consentLog) ListBySubject(ctx context.Context, subjectID string) ([]domain.ConsentRecord, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT consent_id, subject_id, purpose, data_types, timestamp, expires_at
		FROM consent_log WHERE subject_id = ?
		ORDER BY timestamp, rowid
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("querying consents: %w", err)
	}
	defer rows.Close()

	var records []domain.ConsentRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating consents: %w", err)
	}
	return records, nil
}

// EraseSubject deletes every consent of a subject.
func (c *consentLog) EraseSubject(ctx context.Context, subjectID string) (int, error) {
	res, err := c.store.db.ExecContext(ctx, "DELETE FROM consent_log WHERE subject_id = ?", subjectID)
	if err != nil {
		return 0, fmt.Errorf("erasing consents: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanConsent(row scanner) (*domain.ConsentRecord, error) {
	var rec domain.ConsentRecord
	var typesJSON, timestamp string
	var expiresAt sql.NullString

	if err := row.Scan(&rec.ConsentID, &rec.SubjectID, &rec.Purpose, &typesJSON,
		&timestamp, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning consent: %w", err)
	}

	rec.Timestamp = parseTime(timestamp)
	rec.ExpiresAt = parseTimePtr(expiresAt)
	if err := json.Unmarshal([]byte(typesJSON), &rec.DataTypes); err != nil {
		return nil, fmt.Errorf("unmarshaling data types: %w", err)
	}
	return &rec, nil
}

// ==================== Rights Requests ====================

// rightsRequestStore implements driven.RightsRequestStore.
type rightsRequestStore struct {
	store *Store
}

var _ driven.RightsRequestStore = (*rightsRequestStore)(nil)

const rightsColumns = `id, subject_id, right_type, status, message, created_at, due_by, completed_at`

// Save creates or updates a request.
func (r *rightsRequestStore) Save(ctx context.Context, req *domain.RightsRequest) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO rights_requests (`+rightsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			message = excluded.message,
			completed_at = excluded.completed_at
	`, req.ID, req.SubjectID, string(req.Right), string(req.Status), req.Message,
		formatTime(req.CreatedAt), formatTime(req.DueBy), formatTimePtr(req.CompletedAt))
	if err != nil {
		return fmt.Errorf("saving rights request: %w", err)
	}
	return nil
}

// Get retrieves a request by ID.
func (r *rightsRequestStore) Get(ctx context.Context, id string) (*domain.RightsRequest, error) {
	row := r.store.db.QueryRowContext(ctx, "SELECT "+rightsColumns+" FROM rights_requests WHERE id = ?", id)
	req, err := scanRightsRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return req, err
}

// List returns all requests, oldest first.
func (r *rightsRequestStore) List(ctx context.Context) ([]domain.RightsRequest, error) {
	return r.query(ctx, "SELECT "+rightsColumns+" FROM rights_requests ORDER BY created_at")
}

// ListOpen returns requests that are pending or in progress.
func (r *rightsRequestStore) ListOpen(ctx context.Context) ([]domain.RightsRequest, error) {
	return r.query(ctx, "SELECT "+rightsColumns+" FROM rights_requests WHERE status IN (?, ?) ORDER BY created_at",
		string(domain.RightsPending), string(domain.RightsInProgress))
}

func (r *rightsRequestStore) query(ctx context.Context, query string, args ...any) ([]domain.RightsRequest, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rights requests: %w", err)
	}
	defer rows.Close()

	var out []domain.RightsRequest //nolint:prealloc // size unknown from query
	for rows.Next() {
		req, err := scanRightsRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rights requests: %w", err)
	}
	return out, nil
}

func scanRightsRequest(row scanner) (*domain.RightsRequest, error) {
	var req domain.RightsRequest
	var right, status, createdAt, dueBy string
	var completedAt sql.NullString

	if err := row.Scan(&req.ID, &req.SubjectID, &right, &status, &req.Message,
		&createdAt, &dueBy, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rights request: %w", err)
	}

	req.Right = domain.RightType(right)
	req.Status = domain.RightsStatus(status)
	req.CreatedAt = parseTime(createdAt)
	req.DueBy = parseTime(dueBy)
	req.CompletedAt = parseTimePtr(completedAt)
	return &req, nil
}

// ==================== Retention ====================

// retentionStore implements driven.RetentionStore.
type retentionStore struct {
	store *Store
}

var _ driven.RetentionStore = (*retentionStore)(nil)

// SaveCachedRecord stores a fetched record.
func (r *retentionStore) SaveCachedRecord(ctx context.Context, rec *domain.CachedRecord) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO cached_records (id, consent_id, subject_id, data_type, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, rec.ID, rec.ConsentID, rec.SubjectID, rec.DataType, rec.Payload,
		formatTime(rec.FetchedAt), formatTime(rec.ExpiresAt))
	if err != nil {
		return fmt.Errorf("saving cached record: %w", err)
	}
	return nil
}

// ListCachedRecords returns a subject's cached records, oldest first.
func (r *retentionStore) ListCachedRecords(ctx context.Context, subjectID string) ([]domain.CachedRecord, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, consent_id, subject_id, data_type, payload, fetched_at, expires_at
		FROM cached_records WHERE subject_id = ?
		ORDER BY fetched_at
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("querying cached records: %w", err)
	}
	defer rows.Close()

	var out []domain.CachedRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.CachedRecord
		var fetchedAt, expiresAt string
		if err := rows.Scan(&rec.ID, &rec.ConsentID, &rec.SubjectID, &rec.DataType, &rec.Payload,
			&fetchedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning cached record: %w", err)
		}
		rec.FetchedAt = parseTime(fetchedAt)
		rec.ExpiresAt = parseTime(expiresAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cached records: %w", err)
	}
	return out, nil
}

// DeleteCachedByConsent removes cached records fetched under the given consents.
func (r *retentionStore) DeleteCachedByConsent(ctx context.Context, consentIDs []string) (int, error) {
	if len(consentIDs) == 0 {
		return 0, nil
	}
	args := make([]any, len(consentIDs))
	for i, id := range consentIDs {
		args[i] = id
	}
	res, err := r.store.db.ExecContext(ctx,
		"DELETE FROM cached_records WHERE consent_id IN ("+placeholders(len(args))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("deleting cached records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SaveLoanApplication stores a loan application.
func (r *retentionStore) SaveLoanApplication(ctx context.Context, app *domain.LoanApplication) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO loan_applications (id, subject_id, consent_id, deletion_due_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET deletion_due_date = excluded.deletion_due_date
	`, app.ID, app.SubjectID, app.ConsentID, formatTime(app.DeletionDueDate))
	if err != nil {
		return fmt.Errorf("saving loan application: %w", err)
	}
	return nil
}

// DeleteExpiredCached removes cached records with expires_at <= now in one statement.
func (r *retentionStore) DeleteExpiredCached(ctx context.Context, now time.Time) (int, error) {
	res, err := r.store.db.ExecContext(ctx,
		"DELETE FROM cached_records WHERE expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("deleting expired cached records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteDueApplications removes applications with deletion_due_date <= now in one statement.
func (r *retentionStore) DeleteDueApplications(ctx context.Context, now time.Time) (int, error) {
	res, err := r.store.db.ExecContext(ctx,
		"DELETE FROM loan_applications WHERE deletion_due_date <= ?", formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("deleting due loan applications: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
