package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"landten/internal/domain/property"

	"github.com/google/uuid"
)

type PostgresPropertyRepository struct {
	db *sql.DB
}

func NewPostgresPropertyRepository(db *sql.DB) *PostgresPropertyRepository {
	return &PostgresPropertyRepository{db: db}
}

// --- Property Methods ---

func (r *PostgresPropertyRepository) CreateProperty(ctx context.Context, p *property.Property) error {
	query := `INSERT INTO properties (id, landlord_id, name, address, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.LandlordID, p.Name, p.Address, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating property: %w", err)
	}
	return nil
}

func (r *PostgresPropertyRepository) GetProperty(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	query := `SELECT id, landlord_id, name, address, description, created_at, updated_at FROM properties WHERE id = $1`
	p := property.Property{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.LandlordID, &p.Name, &p.Address, &p.Description,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, property.ErrNotFound
		}
		return nil, fmt.Errorf("error getting property by ID: %w", err)
	}
	return &p, nil
}

func (r *PostgresPropertyRepository) ListProperties(ctx context.Context, landlordID uuid.UUID) ([]*property.Property, error) {
	query := `SELECT id, landlord_id, name, address, description, created_at, updated_at
		FROM properties WHERE landlord_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, landlordID)
	if err != nil {
		return nil, fmt.Errorf("error listing properties: %w", err)
	}
	defer rows.Close()

	properties := make([]*property.Property, 0)
	for rows.Next() {
		p := property.Property{}
		if err := rows.Scan(&p.ID, &p.LandlordID, &p.Name, &p.Address, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning property row: %w", err)
		}
		properties = append(properties, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property rows: %w", err)
	}
	return properties, nil
}

func (r *PostgresPropertyRepository) UpdateProperty(ctx context.Context, p *property.Property) error {
	query := `UPDATE properties SET name = $1, address = $2, description = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Address, p.Description, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("error updating property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return property.ErrNotFound
	}
	return nil
}

func (r *PostgresPropertyRepository) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var inUse bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (
				SELECT 1 FROM rooms r WHERE r.property_id = $1
				AND (r.is_occupied OR EXISTS (SELECT 1 FROM tenants t WHERE t.room_id = r.id)))`, id).Scan(&inUse)
		if err != nil {
			return fmt.Errorf("error checking property usage: %w", err)
		}
		if inUse {
			return property.ErrInUse
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("error deleting property: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return property.ErrNotFound
		}
		return nil
	})
}

// --- Room Methods ---

const roomColumns = `rm.id, rm.property_id, rm.name, rm.rent_amount, rm.currency, rm.is_occupied, rm.created_at, rm.updated_at`

func scanRoom(row rowScanner) (*property.Room, error) {
	rm := property.Room{}
	if err := row.Scan(&rm.ID, &rm.PropertyID, &rm.Name, &rm.RentAmount, &rm.Currency, &rm.IsOccupied,
		&rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

func scanRooms(rows *sql.Rows) ([]*property.Room, error) {
	rooms := make([]*property.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning room row: %w", err)
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room rows: %w", err)
	}
	return rooms, nil
}

func (r *PostgresPropertyRepository) CreateRoom(ctx context.Context, rm *property.Room) error {
	query := `INSERT INTO rooms (id, property_id, name, rent_amount, currency, is_occupied, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, rm.ID, rm.PropertyID, rm.Name, rm.RentAmount, rm.Currency, rm.IsOccupied,
		rm.CreatedAt, rm.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating room: %w", err)
	}
	return nil
}

func (r *PostgresPropertyRepository) GetRoom(ctx context.Context, id uuid.UUID) (*property.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms rm WHERE rm.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, property.ErrRoomNotFound
		}
		return nil, fmt.Errorf("error getting room by ID: %w", err)
	}
	return rm, nil
}

func (r *PostgresPropertyRepository) ListRooms(ctx context.Context, propertyID uuid.UUID) ([]*property.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms rm WHERE rm.property_id = $1 ORDER BY rm.name`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("error listing rooms: %w", err)
	}
	defer rows.Close()
	return scanRooms(rows)
}

func (r *PostgresPropertyRepository) ListRoomsByLandlord(ctx context.Context, landlordID uuid.UUID) ([]*property.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms rm
		JOIN properties pr ON pr.id = rm.property_id
		WHERE pr.landlord_id = $1 ORDER BY rm.name`
	rows, err := r.db.QueryContext(ctx, query, landlordID)
	if err != nil {
		return nil, fmt.Errorf("error listing landlord rooms: %w", err)
	}
	defer rows.Close()
	return scanRooms(rows)
}

func (r *PostgresPropertyRepository) UpdateRoom(ctx context.Context, rm *property.Room) error {
	query := `UPDATE rooms SET name = $1, rent_amount = $2, currency = $3, updated_at = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, rm.Name, rm.RentAmount, rm.Currency, rm.UpdatedAt, rm.ID)
	if err != nil {
		return fmt.Errorf("error updating room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return property.ErrRoomNotFound
	}
	return nil
}

func (r *PostgresPropertyRepository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var inUse bool
		err := tx.QueryRowContext(ctx, `SELECT is_occupied OR EXISTS (SELECT 1 FROM tenants t WHERE t.room_id = $1)
			FROM rooms WHERE id = $1 FOR UPDATE`, id).Scan(&inUse)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return property.ErrRoomNotFound
			}
			return fmt.Errorf("error checking room usage: %w", err)
		}
		if inUse {
			return property.ErrInUse
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
			return fmt.Errorf("error deleting room: %w", err)
		}
		return nil
	})
}
