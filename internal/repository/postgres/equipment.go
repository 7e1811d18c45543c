package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/repository"
)

// Items in these states shrink the borrowable pool regardless of counters.
const unavailableItemsSubquery = `(SELECT COUNT(*) FROM equipment_items i WHERE i.equipment_id = e.id AND i.status IN ('MAINTENANCE', 'DAMAGED'))`

type equipmentRepository struct {
	db *sql.DB
}

func NewEquipmentRepository(db *sql.DB) repository.EquipmentRepository {
	return &equipmentRepository{db: db}
}

func (r *equipmentRepository) Create(ctx context.Context, eq *domain.Equipment) error {
	query := `INSERT INTO equipment (type_id, name, quantity_total, quantity_borrowed, credit_cost, status, created_on, updated_on)
	          VALUES ($1, $2, $3, 0, $4, $5, $6, $7) RETURNING id`
	now := time.Now()
	return r.db.QueryRowContext(ctx, query, eq.TypeID, eq.Name, eq.QuantityTotal, eq.CreditCost, eq.Status, now, now).Scan(&eq.ID)
}

func (r *equipmentRepository) GetByID(ctx context.Context, id int32) (*domain.Equipment, error) {
	eq := &domain.Equipment{}
	query := `SELECT e.id, e.type_id, e.name, e.quantity_total, e.quantity_borrowed, ` + unavailableItemsSubquery + `,
	                 e.credit_cost, e.status, e.created_on, e.updated_on
	          FROM equipment e WHERE e.id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&eq.ID, &eq.TypeID, &eq.Name, &eq.QuantityTotal, &eq.QuantityBorrowed,
		&eq.QuantityUnavailable, &eq.CreditCost, &eq.Status, &eq.CreatedOn, &eq.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "equipment %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return eq, nil
}

func (r *equipmentRepository) Update(ctx context.Context, eq *domain.Equipment) error {
	query := `UPDATE equipment SET name = $1, quantity_total = $2, credit_cost = $3, status = $4, updated_on = $5 WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, eq.Name, eq.QuantityTotal, eq.CreditCost, eq.Status, time.Now(), eq.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.KindNotFound, "equipment %d not found", eq.ID)
	}
	return nil
}

func (r *equipmentRepository) List(ctx context.Context, page, pageSize int32) ([]domain.Equipment, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM equipment`).Scan(&count); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := `SELECT e.id, e.type_id, e.name, e.quantity_total, e.quantity_borrowed, ` + unavailableItemsSubquery + `,
	                 e.credit_cost, e.status, e.created_on, e.updated_on
	          FROM equipment e ORDER BY e.name LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Equipment
	for rows.Next() {
		var eq domain.Equipment
		if err := rows.Scan(&eq.ID, &eq.TypeID, &eq.Name, &eq.QuantityTotal, &eq.QuantityBorrowed,
			&eq.QuantityUnavailable, &eq.CreditCost, &eq.Status, &eq.CreatedOn, &eq.UpdatedOn); err != nil {
			return nil, 0, err
		}
		list = append(list, eq)
	}
	return list, count, rows.Err()
}

func (r *equipmentRepository) Reserve(ctx context.Context, equipmentID, qty int32) error {
	// The guard keeps 0 <= borrowed <= total - unavailable even if two callers
	// race past the service-level lock.
	query := `UPDATE equipment e
	          SET quantity_borrowed = quantity_borrowed + $2, updated_on = $3
	          WHERE e.id = $1
	            AND e.status = 'AVAILABLE'
	            AND e.quantity_borrowed + $2 <= e.quantity_total - ` + unavailableItemsSubquery
	res, err := r.db.ExecContext(ctx, query, equipmentID, qty, time.Now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, equipmentID); err != nil {
			return err
		}
		return domain.Errorf(domain.KindInsufficientInventory, "equipment %d has fewer than %d units available", equipmentID, qty)
	}
	return nil
}

func (r *equipmentRepository) Release(ctx context.Context, equipmentID, qty int32) error {
	query := `UPDATE equipment SET quantity_borrowed = quantity_borrowed - $2, updated_on = $3
	          WHERE id = $1 AND quantity_borrowed - $2 >= 0`
	res, err := r.db.ExecContext(ctx, query, equipmentID, qty, time.Now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, equipmentID); err != nil {
			return err
		}
		// A release that would go negative means a caller double-released.
		return domain.Errorf(domain.KindInvariantViolation, "release of %d units would drive equipment %d borrowed counter negative", qty, equipmentID)
	}
	return nil
}

func (r *equipmentRepository) CreateItem(ctx context.Context, item *domain.EquipmentItem) error {
	query := `INSERT INTO equipment_items (equipment_id, serial_no, status, note, updated_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.db.QueryRowContext(ctx, query, item.EquipmentID, item.SerialNo, item.Status, item.Note, time.Now()).Scan(&item.ID)
}

func (r *equipmentRepository) GetItemByID(ctx context.Context, itemID int32) (*domain.EquipmentItem, error) {
	item := &domain.EquipmentItem{}
	query := `SELECT id, equipment_id, serial_no, status, COALESCE(note, ''), updated_on FROM equipment_items WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&item.ID, &item.EquipmentID, &item.SerialNo, &item.Status, &item.Note, &item.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "equipment item %d not found", itemID)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *equipmentRepository) SetItemStatus(ctx context.Context, itemID int32, status domain.EquipmentStatus, note string) error {
	query := `UPDATE equipment_items SET status = $1, note = $2, updated_on = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, status, note, time.Now(), itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Errorf(domain.KindNotFound, "equipment item %d not found", itemID)
	}
	return nil
}

func (r *equipmentRepository) ListItems(ctx context.Context, equipmentID int32) ([]domain.EquipmentItem, error) {
	query := `SELECT id, equipment_id, serial_no, status, COALESCE(note, ''), updated_on
	          FROM equipment_items WHERE equipment_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.EquipmentItem
	for rows.Next() {
		var item domain.EquipmentItem
		if err := rows.Scan(&item.ID, &item.EquipmentID, &item.SerialNo, &item.Status, &item.Note, &item.UpdatedOn); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
