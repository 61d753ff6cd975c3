package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wmsinbound/models"
)

type PostgresPlanRepo struct {
	DB *sql.DB
}

func NewPostgresPlanRepo(db *sql.DB) *PostgresPlanRepo {
	return &PostgresPlanRepo{DB: db}
}

const planColumns = `id, organization_id, warehouse_id, client_id, plan_no, planned_date,
	manager, notes, status, created_by, created_at, updated_at`

// ------------------------ Helper Functions ------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*models.InboundPlan, error) {
	var p models.InboundPlan
	err := row.Scan(&p.ID, &p.OrganizationID, &p.WarehouseID, &p.ClientID, &p.PlanNo, &p.PlannedDate,
		&p.Manager, &p.Notes, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPlanRepo) insertPlanLines(ctx context.Context, tx *sql.Tx, planID string, lines []models.InboundPlanLine) error {
	for i := range lines {
		l := &lines[i]
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.PlanID = planID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inbound_plan_lines(id,plan_id,product_id,expected_qty,box_count,pallet_id,mfg_date,expiry_date,notes)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, l.ID, planID, l.ProductID, l.ExpectedQty, l.BoxCount, l.PalletID, l.MfgDate, l.ExpiryDate, l.Notes)
		if err != nil {
			return fmt.Errorf("insert plan line %s: %w", l.ProductID, err)
		}
	}
	return nil
}

// lockPlanReceipt locks the plan and its receipt (if any) for the rest of tx.
func lockPlanReceipt(ctx context.Context, tx *sql.Tx, planID string) (*models.InboundReceipt, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM inbound_plans WHERE id=$1 FOR UPDATE`, planID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	receipt, err := scanReceipt(tx.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM inbound_receipts WHERE plan_id=$1 FOR UPDATE`, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return receipt, err
}

func statusOf(receipt *models.InboundReceipt) *models.ReceiptStatus {
	if receipt == nil {
		return nil
	}
	s := receipt.Status
	return &s
}

// ------------------------ Create Plan ------------------------

func (r *PostgresPlanRepo) CreatePlanWithReceipt(ctx context.Context, plan *models.InboundPlan, receipt *models.InboundReceipt, slots []models.InboundPhotoSlot) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inbound_plans(id,organization_id,warehouse_id,client_id,plan_no,planned_date,manager,notes,status,created_by,created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, plan.ID, plan.OrganizationID, plan.WarehouseID, plan.ClientID, plan.PlanNo, plan.PlannedDate,
		plan.Manager, plan.Notes, plan.Status, plan.CreatedBy, plan.CreatedAt)
	if isUniqueViolation(err, "inbound_plans_org_plan_no_key") {
		return ErrDuplicateNumber
	}
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	if err := r.insertPlanLines(ctx, tx, plan.ID, plan.Lines); err != nil {
		return err
	}

	receipt.PlanID = plan.ID
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = plan.CreatedAt
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO inbound_receipts(id,plan_id,organization_id,warehouse_id,client_id,receipt_no,status,created_by,created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, receipt.ID, receipt.PlanID, receipt.OrganizationID, receipt.WarehouseID, receipt.ClientID,
		receipt.ReceiptNo, receipt.Status, receipt.CreatedBy, receipt.CreatedAt)
	if isUniqueViolation(err, "inbound_receipts_org_receipt_no_key") {
		return ErrDuplicateNumber
	}
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	for i := range slots {
		s := &slots[i]
		s.ReceiptID = receipt.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inbound_photo_slots(id,receipt_id,slot_key,title,is_required,min_photos,sort_order)
			VALUES($1,$2,$3,$4,$5,$6,$7)
		`, s.ID, s.ReceiptID, s.SlotKey, s.Title, s.IsRequired, s.MinPhotos, s.SortOrder)
		if err != nil {
			return fmt.Errorf("insert photo slot %s: %w", s.SlotKey, err)
		}
	}

	return tx.Commit()
}

// ------------------------ Read Plans ------------------------

func (r *PostgresPlanRepo) GetPlan(ctx context.Context, id string) (*models.InboundPlan, error) {
	p, err := scanPlan(r.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM inbound_plans WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*models.InboundPlan{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListPlans(ctx context.Context, filter models.PlanFilter) ([]*models.InboundPlan, error) {
	query := `SELECT ` + planColumns + ` FROM inbound_plans`

	args := []any{}
	where := []string{}
	add := func(column string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.OrganizationID != "" {
		add("organization_id", filter.OrganizationID)
	}
	if filter.WarehouseID != "" {
		add("warehouse_id", filter.WarehouseID)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY planned_date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.InboundPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// loadLines fetches the lines of all plans in one query.
func (r *PostgresPlanRepo) loadLines(ctx context.Context, plans []*models.InboundPlan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]any, len(plans))
	placeholders := make([]string, len(plans))
	byID := make(map[string]*models.InboundPlan, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		byID[p.ID] = p
	}

	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, plan_id, product_id, expected_qty, box_count, pallet_id, mfg_date, expiry_date, notes
		FROM inbound_plan_lines
		WHERE plan_id IN (%s)
		ORDER BY product_id
	`, strings.Join(placeholders, ",")), ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l models.InboundPlanLine
		if err := rows.Scan(&l.ID, &l.PlanID, &l.ProductID, &l.ExpectedQty, &l.BoxCount,
			&l.PalletID, &l.MfgDate, &l.ExpiryDate, &l.Notes); err != nil {
			return err
		}
		if p, ok := byID[l.PlanID]; ok {
			p.Lines = append(p.Lines, l)
		}
	}
	return rows.Err()
}

// ------------------------ Update Plan ------------------------

func (r *PostgresPlanRepo) UpdatePlan(ctx context.Context, plan *models.InboundPlan, guard StatusGuard) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	receipt, err := lockPlanReceipt(ctx, tx, plan.ID)
	if err != nil {
		return err
	}
	if guard != nil {
		if err := guard(statusOf(receipt)); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	plan.UpdatedAt = &now
	_, err = tx.ExecContext(ctx, `
		UPDATE inbound_plans SET
			warehouse_id=$1,
			client_id=$2,
			planned_date=$3,
			manager=$4,
			notes=$5,
			updated_at=$6
		WHERE id=$7
	`, plan.WarehouseID, plan.ClientID, plan.PlannedDate, plan.Manager, plan.Notes, now, plan.ID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	// Refresh lines
	if _, err := tx.ExecContext(ctx, `DELETE FROM inbound_plan_lines WHERE plan_id=$1`, plan.ID); err != nil {
		return fmt.Errorf("delete plan lines: %w", err)
	}
	if err := r.insertPlanLines(ctx, tx, plan.ID, plan.Lines); err != nil {
		return err
	}

	if receipt != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE inbound_receipts SET warehouse_id=$1, client_id=$2, updated_at=$3 WHERE id=$4
		`, plan.WarehouseID, plan.ClientID, now, receipt.ID)
		if err != nil {
			return fmt.Errorf("sync receipt: %w", err)
		}

		// Counted lines follow the replacement plan line of the same product.
		_, err = tx.ExecContext(ctx, `
			UPDATE inbound_receipt_lines rl SET
				plan_line_id=pl.id,
				expected_qty=pl.expected_qty
			FROM (
				SELECT DISTINCT ON (product_id) id, product_id, expected_qty
				FROM inbound_plan_lines WHERE plan_id=$1
				ORDER BY product_id, id
			) pl
			WHERE rl.receipt_id=$2 AND rl.plan_line_id IS NOT NULL AND rl.product_id=pl.product_id
		`, plan.ID, receipt.ID)
		if err != nil {
			return fmt.Errorf("remap receipt lines: %w", err)
		}

		// Counts for products that left the plan go with them.
		_, err = tx.ExecContext(ctx, `
			DELETE FROM inbound_receipt_lines
			WHERE receipt_id=$1 AND plan_line_id IS NOT NULL
				AND product_id NOT IN (SELECT product_id FROM inbound_plan_lines WHERE plan_id=$2)
		`, receipt.ID, plan.ID)
		if err != nil {
			return fmt.Errorf("drop receipt lines: %w", err)
		}
	}

	return tx.Commit()
}

// ------------------------ Delete Plan ------------------------

func (r *PostgresPlanRepo) DeletePlan(ctx context.Context, planID string, guard StatusGuard) (*models.InboundReceipt, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	receipt, err := lockPlanReceipt(ctx, tx, planID)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(statusOf(receipt)); err != nil {
			return nil, err
		}
	}

	// Slots, photos and lines cascade with the receipt.
	if receipt != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM inbound_receipts WHERE id=$1`, receipt.ID); err != nil {
			return nil, fmt.Errorf("delete receipt %s: %w", receipt.ReceiptNo, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inbound_plans WHERE id=$1`, planID); err != nil {
		return nil, fmt.Errorf("delete plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return receipt, nil
}
