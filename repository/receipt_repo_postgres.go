package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"wmsinbound/models"
)

// PostgresReceiptRepo stores receipts, photo evidence, receipt lines and the
// ledger rows posted on confirmation.
//
// Older deployments lack inbound_receipt_lines.location_id. The repository
// tracks that capability explicitly and, when a write hits undefined_column,
// turns it off and repeats the write without the location. This is a
// compatibility behavior, not an error path.
type PostgresReceiptRepo struct {
	DB     *sql.DB
	logger *zap.Logger

	locationColumn atomic.Bool
}

func NewPostgresReceiptRepo(db *sql.DB, hasLocationColumn bool, logger *zap.Logger) *PostgresReceiptRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &PostgresReceiptRepo{DB: db, logger: logger}
	r.locationColumn.Store(hasLocationColumn)
	return r
}

// DetectLocationColumn reports whether the connected schema has
// inbound_receipt_lines.location_id.
func DetectLocationColumn(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = 'inbound_receipt_lines' AND column_name = 'location_id'
	`).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresReceiptRepo) HasLocationColumn() bool {
	return r.locationColumn.Load()
}

const receiptColumns = `id, plan_id, organization_id, warehouse_id, client_id, receipt_no, status,
	created_by, created_at, updated_at, confirmed_at, confirmed_by`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanReceipt(row rowScanner) (*models.InboundReceipt, error) {
	var rc models.InboundReceipt
	err := row.Scan(&rc.ID, &rc.PlanID, &rc.OrganizationID, &rc.WarehouseID, &rc.ClientID, &rc.ReceiptNo,
		&rc.Status, &rc.CreatedBy, &rc.CreatedAt, &rc.UpdatedAt, &rc.ConfirmedAt, &rc.ConfirmedBy)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func lineColumns(withLocation bool) string {
	cols := `id, receipt_id, plan_line_id, product_id, expected_qty, accepted_qty, damaged_qty,
		missing_qty, other_qty, notes, inspected_by, inspected_at`
	if withLocation {
		cols += ", location_id"
	}
	return cols
}

func scanLine(row rowScanner, withLocation bool) (*models.InboundReceiptLine, error) {
	var l models.InboundReceiptLine
	dest := []any{&l.ID, &l.ReceiptID, &l.PlanLineID, &l.ProductID, &l.ExpectedQty, &l.AcceptedQty,
		&l.DamagedQty, &l.MissingQty, &l.OtherQty, &l.Notes, &l.InspectedBy, &l.InspectedAt}
	if withLocation {
		dest = append(dest, &l.LocationID)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &l, nil
}

func listLines(ctx context.Context, q querier, receiptID string, withLocation bool) ([]models.InboundReceiptLine, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+lineColumns(withLocation)+`
		FROM inbound_receipt_lines WHERE receipt_id=$1 ORDER BY product_id`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.InboundReceiptLine
	for rows.Next() {
		l, err := scanLine(rows, withLocation)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *l)
	}
	return lines, rows.Err()
}

// photoProgress counts photos per slot in the database so the gate never sees
// a half-iterated photo list.
func photoProgress(ctx context.Context, q querier, receiptID string) ([]models.SlotProgress, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.receipt_id, s.slot_key, s.title, s.is_required, s.min_photos, s.sort_order,
		       COUNT(p.id)
		FROM inbound_photo_slots s
		LEFT JOIN inbound_photos p ON p.slot_id = s.id
		WHERE s.receipt_id = $1
		GROUP BY s.id
		ORDER BY s.sort_order
	`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SlotProgress
	for rows.Next() {
		var sp models.SlotProgress
		if err := rows.Scan(&sp.ID, &sp.ReceiptID, &sp.SlotKey, &sp.Title, &sp.IsRequired,
			&sp.MinPhotos, &sp.SortOrder, &sp.PhotoCount); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func planLines(ctx context.Context, q querier, planID string) ([]models.InboundPlanLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, plan_id, product_id, expected_qty, box_count, pallet_id, mfg_date, expiry_date, notes
		FROM inbound_plan_lines WHERE plan_id=$1 ORDER BY product_id
	`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.InboundPlanLine
	for rows.Next() {
		var l models.InboundPlanLine
		if err := rows.Scan(&l.ID, &l.PlanID, &l.ProductID, &l.ExpectedQty, &l.BoxCount,
			&l.PalletID, &l.MfgDate, &l.ExpiryDate, &l.Notes); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ------------------------ Receipts ------------------------

func (r *PostgresReceiptRepo) GetReceipt(ctx context.Context, id string) (*models.InboundReceipt, error) {
	rc, err := scanReceipt(r.DB.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM inbound_receipts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rc, err
}

func (r *PostgresReceiptRepo) GetReceiptByPlan(ctx context.Context, planID string) (*models.InboundReceipt, error) {
	rc, err := scanReceipt(r.DB.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM inbound_receipts WHERE plan_id=$1`, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rc, err
}

func (r *PostgresReceiptRepo) AdvanceStatus(ctx context.Context, receiptID string, from []models.ReceiptStatus, to models.ReceiptStatus) (bool, error) {
	fromStr := make([]string, len(from))
	for i, s := range from {
		fromStr[i] = string(s)
	}
	res, err := r.DB.ExecContext(ctx, `
		WITH rc AS (
			UPDATE inbound_receipts SET status=$2, updated_at=$3
			WHERE id=$1 AND status = ANY($4)
			RETURNING plan_id
		)
		UPDATE inbound_plans p SET status=$2 FROM rc WHERE p.id = rc.plan_id
	`, receiptID, to, time.Now().UTC(), pq.Array(fromStr))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ------------------------ Photos ------------------------

func (r *PostgresReceiptRepo) PhotoProgress(ctx context.Context, receiptID string) ([]models.SlotProgress, error) {
	return photoProgress(ctx, r.DB, receiptID)
}

func (r *PostgresReceiptRepo) AddPhoto(ctx context.Context, photo *models.InboundPhoto, guard StatusGuard) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := shareLockStatus(ctx, tx, photo.ReceiptID, guard); err != nil {
		return err
	}

	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO inbound_photos(id,receipt_id,slot_id,storage_path,uploaded_by,uploaded_at)
		VALUES($1,$2,$3,$4,$5,$6)
	`, photo.ID, photo.ReceiptID, photo.SlotID, photo.StoragePath, photo.UploadedBy, photo.UploadedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresReceiptRepo) ListPhotos(ctx context.Context, receiptID string) ([]models.InboundPhoto, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, receipt_id, slot_id, storage_path, uploaded_by, uploaded_at
		FROM inbound_photos WHERE receipt_id=$1 ORDER BY uploaded_at
	`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.InboundPhoto
	for rows.Next() {
		var p models.InboundPhoto
		if err := rows.Scan(&p.ID, &p.ReceiptID, &p.SlotID, &p.StoragePath, &p.UploadedBy, &p.UploadedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// ------------------------ Receipt Lines ------------------------

func (r *PostgresReceiptRepo) ListLines(ctx context.Context, receiptID string) ([]models.InboundReceiptLine, error) {
	return listLines(ctx, r.DB, receiptID, r.locationColumn.Load())
}

func (r *PostgresReceiptRepo) UpsertLine(ctx context.Context, line *models.InboundReceiptLine, guard StatusGuard) (bool, error) {
	return r.withLocationFallback(line, func(withLocation bool) (bool, error) {
		return r.upsertLine(ctx, line, guard, withLocation)
	})
}

// withLocationFallback runs write with the current location capability. An
// undefined_column failure turns the capability off and repeats the write
// once without the location.
func (r *PostgresReceiptRepo) withLocationFallback(line *models.InboundReceiptLine, write func(withLocation bool) (bool, error)) (bool, error) {
	withLocation := r.locationColumn.Load()
	changed, err := write(withLocation)
	if withLocation && isUndefinedColumn(err) {
		r.locationColumn.Store(false)
		r.logger.Warn("receipt line location column missing, saving without location",
			zap.String("receipt_id", line.ReceiptID),
			zap.String("product_id", line.ProductID))
		return write(false)
	}
	return changed, err
}

// shareLockStatus reads the receipt status FOR SHARE, which waits for and
// then blocks a confirm holding the row FOR UPDATE, and applies guard to it.
func shareLockStatus(ctx context.Context, tx *sql.Tx, receiptID string, guard StatusGuard) error {
	var status models.ReceiptStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM inbound_receipts WHERE id=$1 FOR SHARE`, receiptID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if guard != nil {
		return guard(&status)
	}
	return nil
}

func (r *PostgresReceiptRepo) upsertLine(ctx context.Context, line *models.InboundReceiptLine, guard StatusGuard, withLocation bool) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := shareLockStatus(ctx, tx, line.ReceiptID, guard); err != nil {
		return false, err
	}

	query := `SELECT ` + lineColumns(withLocation) + ` FROM inbound_receipt_lines WHERE receipt_id=$1 AND `
	args := []any{line.ReceiptID}
	if line.PlanLineID != nil {
		query += `plan_line_id=$2`
		args = append(args, *line.PlanLineID)
	} else {
		query += `product_id=$2 AND plan_line_id IS NULL`
		args = append(args, line.ProductID)
	}
	existing, err := scanLine(tx.QueryRowContext(ctx, query+` FOR UPDATE`, args...), withLocation)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	want := *line
	if !withLocation {
		want.LocationID = nil
	}

	cols := []string{"receipt_id", "plan_line_id", "product_id", "expected_qty", "accepted_qty", "damaged_qty",
		"missing_qty", "other_qty", "notes", "inspected_by", "inspected_at"}
	vals := []any{line.ReceiptID, line.PlanLineID, line.ProductID, line.ExpectedQty, line.AcceptedQty, line.DamagedQty,
		line.MissingQty, line.OtherQty, line.Notes, line.InspectedBy, line.InspectedAt}
	if withLocation {
		cols = append(cols, "location_id")
		vals = append(vals, line.LocationID)
	}

	if existing != nil {
		line.ID = existing.ID
		if existing.SameCounts(want) {
			return false, nil
		}
		set := make([]string, len(cols))
		for i, c := range cols {
			set[i] = fmt.Sprintf("%s=$%d", c, i+1)
		}
		vals = append(vals, existing.ID)
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`UPDATE inbound_receipt_lines SET %s WHERE id=$%d`,
			strings.Join(set, ", "), len(vals)), vals...)
	} else {
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		cols = append([]string{"id"}, cols...)
		vals = append([]any{line.ID}, vals...)
		ph := make([]string, len(cols))
		for i := range cols {
			ph[i] = fmt.Sprintf("$%d", i+1)
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO inbound_receipt_lines(%s) VALUES(%s)`,
			strings.Join(cols, ","), strings.Join(ph, ",")), vals...)
	}
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// ------------------------ Locked Receipt ------------------------

func (r *PostgresReceiptRepo) WithReceiptLock(ctx context.Context, receiptID string, fn func(tx ReceiptTx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rc, err := scanReceipt(tx.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM inbound_receipts WHERE id=$1 FOR UPDATE`, receiptID))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := fn(&pgReceiptTx{tx: tx, receipt: rc, withLocation: r.locationColumn.Load()}); err != nil {
		return err
	}
	return tx.Commit()
}

type pgReceiptTx struct {
	tx           *sql.Tx
	receipt      *models.InboundReceipt
	withLocation bool
}

func (t *pgReceiptTx) Receipt() *models.InboundReceipt {
	return t.receipt
}

func (t *pgReceiptTx) PlanLines(ctx context.Context) ([]models.InboundPlanLine, error) {
	return planLines(ctx, t.tx, t.receipt.PlanID)
}

func (t *pgReceiptTx) Lines(ctx context.Context) ([]models.InboundReceiptLine, error) {
	return listLines(ctx, t.tx, t.receipt.ID, t.withLocation)
}

func (t *pgReceiptTx) PhotoProgress(ctx context.Context) ([]models.SlotProgress, error) {
	return photoProgress(ctx, t.tx, t.receipt.ID)
}

func (t *pgReceiptTx) SetStatus(ctx context.Context, status models.ReceiptStatus, actor string) error {
	now := time.Now().UTC()
	var err error
	if status == models.StatusConfirmed {
		_, err = t.tx.ExecContext(ctx, `
			UPDATE inbound_receipts SET status=$1, updated_at=$2, confirmed_at=$2, confirmed_by=$3 WHERE id=$4
		`, status, now, actor, t.receipt.ID)
		t.receipt.ConfirmedAt = &now
		t.receipt.ConfirmedBy = &actor
	} else {
		_, err = t.tx.ExecContext(ctx, `UPDATE inbound_receipts SET status=$1, updated_at=$2 WHERE id=$3`,
			status, now, t.receipt.ID)
	}
	if err != nil {
		return fmt.Errorf("set receipt status: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE inbound_plans SET status=$1 WHERE id=$2`, status, t.receipt.PlanID); err != nil {
		return fmt.Errorf("set plan status: %w", err)
	}
	t.receipt.Status = status
	t.receipt.UpdatedAt = &now
	return nil
}

func (t *pgReceiptTx) PostLedger(ctx context.Context, entries []models.LedgerEntry) error {
	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO inventory_ledger(id,organization_id,warehouse_id,client_id,product_id,location_id,
				receipt_id,receipt_line_id,available_qty,damaged_qty,movement_type,created_by,created_at)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`, e.ID, e.OrganizationID, e.WarehouseID, e.ClientID, e.ProductID, e.LocationID,
			e.ReceiptID, e.ReceiptLineID, e.AvailableQty, e.DamagedQty, e.MovementType, e.CreatedBy, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("post ledger for %s: %w", e.ProductID, err)
		}
	}
	return nil
}
