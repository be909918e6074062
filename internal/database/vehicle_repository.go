package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// VehicleRepository handles vehicle and operator database operations
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Create inserts a new vehicle and sets the generated ID
func (r *VehicleRepository) Create(v *models.Vehicle) error {
	v.CreatedAt = time.Now()
	v.UpdatedAt = time.Now()

	query := `
		INSERT INTO vehicles (operator_id, name, number, type, total_seats, seat_map, class_prices, facilities, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return r.db.QueryRow(query,
		v.OperatorID, v.Name, v.Number, v.Type, v.TotalSeats,
		v.SeatMap, v.ClassPrices, v.Facilities, v.IsActive,
		v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID)
}

// GetByID retrieves a vehicle by ID, returning nil when not found
func (r *VehicleRepository) GetByID(id int) (*models.Vehicle, error) {
	var v models.Vehicle
	query := `
		SELECT id, operator_id, name, number, type, total_seats, seat_map, class_prices, facilities, is_active, created_at, updated_at
		FROM vehicles
		WHERE id = $1`

	err := r.db.Get(&v, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Update replaces the mutable fields of a vehicle
func (r *VehicleRepository) Update(v *models.Vehicle) error {
	v.UpdatedAt = time.Now()

	query := `
		UPDATE vehicles
		SET name = $1, number = $2, type = $3, total_seats = $4,
		    seat_map = $5, class_prices = $6, facilities = $7, is_active = $8, updated_at = $9
		WHERE id = $10`

	result, err := r.db.Exec(query,
		v.Name, v.Number, v.Type, v.TotalSeats,
		v.SeatMap, v.ClassPrices, v.Facilities, v.IsActive, v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByOperator retrieves all active vehicles belonging to an operator
func (r *VehicleRepository) ListByOperator(operatorID int) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	query := `
		SELECT id, operator_id, name, number, type, total_seats, seat_map, class_prices, facilities, is_active, created_at, updated_at
		FROM vehicles
		WHERE operator_id = $1 AND is_active = true
		ORDER BY name`

	if err := r.db.Select(&vehicles, query, operatorID); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// GetOperatorByID retrieves an operator by ID, returning nil when not found
func (r *VehicleRepository) GetOperatorByID(id int) (*models.Operator, error) {
	var op models.Operator
	query := `SELECT id, name, contact, is_active, created_at FROM operators WHERE id = $1`

	err := r.db.Get(&op, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}
