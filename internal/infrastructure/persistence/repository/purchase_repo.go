package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// PurchaseRepository implements port.PurchaseRepository over sqlite
type PurchaseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *sql.DB, logger *zap.Logger) port.PurchaseRepository {
	return &PurchaseRepository{
		db:     db,
		logger: logger,
	}
}

const purchaseColumns = `
	id, uploader_name, vendor_name, purpose, amount, hub, bill_type,
	payment_sequence, payment_date, file_url, file_name, extracted_data,
	reconciliation, status, director_approved_at, finance_approved_at,
	created_at, version
`

// Insert stores a new purchase record
func (r *PurchaseRepository) Insert(ctx context.Context, p *entity.Purchase) error {
	query := `
		INSERT INTO purchases (` + purchaseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	extracted, err := marshalNullable(p.Extracted)
	if err != nil {
		return fmt.Errorf("failed to encode extracted data: %w", err)
	}
	reconciliation, err := marshalNullable(p.Reconciliation)
	if err != nil {
		return fmt.Errorf("failed to encode reconciliation: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.UploaderName,
		p.VendorName,
		string(p.Purpose),
		p.Amount,
		string(p.Hub),
		string(p.BillType),
		string(p.PaymentSequence),
		p.PaymentDate,
		nullString(p.FileURL),
		nullString(p.FileName),
		extracted,
		reconciliation,
		string(p.Status),
		approvalTime(p.DirectorApproval),
		approvalTime(p.FinanceApproval),
		p.CreatedAt,
		p.Version,
	)
	if err != nil {
		r.logger.Error("Failed to insert purchase", zap.String("id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	return nil
}

// GetByID retrieves a purchase by ID
func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*entity.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = ?`

	p, err := scanPurchase(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get purchase", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	return p, nil
}

// CompareAndSwap writes the record conditioned on the stored version still
// matching expectedVersion. A transition that lost the race affects zero
// rows and surfaces as port.ErrVersionConflict.
func (r *PurchaseRepository) CompareAndSwap(ctx context.Context, p *entity.Purchase, expectedVersion int64) error {
	query := `
		UPDATE purchases SET
			uploader_name = ?, vendor_name = ?, purpose = ?, hub = ?,
			bill_type = ?, payment_sequence = ?, payment_date = ?,
			file_url = ?, file_name = ?, extracted_data = ?, reconciliation = ?,
			status = ?, director_approved_at = ?, finance_approved_at = ?,
			version = ?
		WHERE id = ? AND version = ?
	`

	extracted, err := marshalNullable(p.Extracted)
	if err != nil {
		return fmt.Errorf("failed to encode extracted data: %w", err)
	}
	reconciliation, err := marshalNullable(p.Reconciliation)
	if err != nil {
		return fmt.Errorf("failed to encode reconciliation: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		p.UploaderName,
		p.VendorName,
		string(p.Purpose),
		string(p.Hub),
		string(p.BillType),
		string(p.PaymentSequence),
		p.PaymentDate,
		nullString(p.FileURL),
		nullString(p.FileName),
		extracted,
		reconciliation,
		string(p.Status),
		approvalTime(p.DirectorApproval),
		approvalTime(p.FinanceApproval),
		p.Version,
		p.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to write purchase", zap.String("id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to write purchase: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Either the record is gone or another write bumped the version
		if _, err := r.GetByID(ctx, p.ID); err == port.ErrNotFound {
			return port.ErrNotFound
		}
		return port.ErrVersionConflict
	}

	return nil
}

// ListByRecency retrieves purchases newest first
func (r *PurchaseRepository) ListByRecency(ctx context.Context, limit, offset int) ([]*entity.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list purchases", zap.Error(err))
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*entity.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	return purchases, rows.Err()
}

// Delete removes a purchase record
func (r *PurchaseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM purchases WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete purchase", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete purchase: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return port.ErrNotFound
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPurchase(row scanner) (*entity.Purchase, error) {
	var (
		p                entity.Purchase
		purpose          string
		hub              string
		billType         string
		paymentSequence  string
		status           string
		fileURL          sql.NullString
		fileName         sql.NullString
		extracted        sql.NullString
		reconciliation   sql.NullString
		directorApproved sql.NullTime
		financeApproved  sql.NullTime
	)

	err := row.Scan(
		&p.ID,
		&p.UploaderName,
		&p.VendorName,
		&purpose,
		&p.Amount,
		&hub,
		&billType,
		&paymentSequence,
		&p.PaymentDate,
		&fileURL,
		&fileName,
		&extracted,
		&reconciliation,
		&status,
		&directorApproved,
		&financeApproved,
		&p.CreatedAt,
		&p.Version,
	)
	if err != nil {
		return nil, err
	}

	p.Purpose = entity.Purpose(purpose)
	p.Hub = entity.Hub(hub)
	p.BillType = entity.BillType(billType)
	p.PaymentSequence = entity.PaymentSequence(paymentSequence)
	p.Status = entity.Status(status)
	p.FileURL = fileURL.String
	p.FileName = fileName.String

	if extracted.Valid && extracted.String != "" {
		var data entity.ExtractedData
		if err := json.Unmarshal([]byte(extracted.String), &data); err != nil {
			return nil, fmt.Errorf("failed to decode extracted data: %w", err)
		}
		p.Extracted = &data
	}
	if reconciliation.Valid && reconciliation.String != "" {
		var report entity.ReconciliationReport
		if err := json.Unmarshal([]byte(reconciliation.String), &report); err != nil {
			return nil, fmt.Errorf("failed to decode reconciliation: %w", err)
		}
		p.Reconciliation = &report
	}
	if directorApproved.Valid {
		p.DirectorApproval = &entity.Approval{Approved: true, Date: directorApproved.Time}
	}
	if financeApproved.Valid {
		p.FinanceApproval = &entity.Approval{Approved: true, Date: financeApproved.Time}
	}

	return &p, nil
}

func marshalNullable[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func approvalTime(a *entity.Approval) sql.NullTime {
	if a == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: a.Date, Valid: true}
}

// Verify interface compliance
var _ port.PurchaseRepository = (*PurchaseRepository)(nil)
