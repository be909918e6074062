package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// ScheduleRepository handles schedule database operations
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new schedule and sets the generated ID
func (r *ScheduleRepository) Create(s *models.Schedule) error {
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()

	query := `
		INSERT INTO schedules (vehicle_id, source_id, destination_id, departure_time, arrival_time, duration, base_price, frequency, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return r.db.QueryRow(query,
		s.VehicleID, s.SourceID, s.DestinationID,
		s.DepartureTime, s.ArrivalTime, s.Duration,
		s.BasePrice, s.Frequency, s.IsActive,
		s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
}

// GetByID retrieves a schedule by ID, returning nil when not found
func (r *ScheduleRepository) GetByID(id int) (*models.Schedule, error) {
	var s models.Schedule
	query := `
		SELECT id, vehicle_id, source_id, destination_id, departure_time, arrival_time, duration, base_price, frequency, is_active, created_at, updated_at
		FROM schedules
		WHERE id = $1`

	err := r.db.Get(&s, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Search finds active schedules between two locations, joined with vehicle,
// operator and endpoint details. Vehicle type filtering is optional.
func (r *ScheduleRepository) Search(sourceID, destinationID int, vehicleType string) ([]models.ScheduleSearchResult, error) {
	query := `
		SELECT
			s.id, s.vehicle_id, s.source_id, s.destination_id,
			s.departure_time, s.arrival_time, s.duration, s.base_price, s.frequency,
			s.is_active, s.created_at, s.updated_at,
			v.name AS vehicle_name, v.number AS vehicle_number, v.type AS vehicle_type,
			v.total_seats, v.class_prices,
			o.name AS operator_name,
			src.name AS source_name, dst.name AS destination_name
		FROM schedules s
		JOIN vehicles v ON v.id = s.vehicle_id
		JOIN operators o ON o.id = v.operator_id
		JOIN locations src ON src.id = s.source_id
		JOIN locations dst ON dst.id = s.destination_id
		WHERE s.source_id = $1 AND s.destination_id = $2
		  AND s.is_active = true AND v.is_active = true`

	args := []interface{}{sourceID, destinationID}
	if vehicleType != "" {
		query += ` AND v.type = $3`
		args = append(args, vehicleType)
	}
	query += ` ORDER BY s.departure_time`

	var results []models.ScheduleSearchResult
	if err := r.db.Select(&results, query, args...); err != nil {
		return nil, err
	}
	return results, nil
}

// GetWithVehicle retrieves a schedule together with its vehicle, returning
// nils when the schedule does not exist.
func (r *ScheduleRepository) GetWithVehicle(scheduleID int) (*models.Schedule, *models.Vehicle, error) {
	schedule, err := r.GetByID(scheduleID)
	if err != nil || schedule == nil {
		return nil, nil, err
	}

	var v models.Vehicle
	query := `
		SELECT id, operator_id, name, number, type, total_seats, seat_map, class_prices, facilities, is_active, created_at, updated_at
		FROM vehicles
		WHERE id = $1`

	if err := r.db.Get(&v, query, schedule.VehicleID); err != nil {
		if err == sql.ErrNoRows {
			return schedule, nil, nil
		}
		return nil, nil, err
	}
	return schedule, &v, nil
}

// GetRouteSummary retrieves the denormalized route context for a schedule
func (r *ScheduleRepository) GetRouteSummary(scheduleID int) (*models.RouteSummary, error) {
	var row struct {
		SourceName      string `db:"source_name"`
		DestinationName string `db:"destination_name"`
		DepartureTime   string `db:"departure_time"`
		ArrivalTime     string `db:"arrival_time"`
	}
	query := `
		SELECT src.name AS source_name, dst.name AS destination_name,
		       s.departure_time, s.arrival_time
		FROM schedules s
		JOIN locations src ON src.id = s.source_id
		JOIN locations dst ON dst.id = s.destination_id
		WHERE s.id = $1`

	err := r.db.Get(&row, query, scheduleID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.RouteSummary{
		SourceName:      row.SourceName,
		DestinationName: row.DestinationName,
		DepartureTime:   row.DepartureTime,
		ArrivalTime:     row.ArrivalTime,
	}, nil
}

// Deactivate marks a schedule inactive
func (r *ScheduleRepository) Deactivate(id int) error {
	query := `UPDATE schedules SET is_active = false, updated_at = $1 WHERE id = $2`
	result, err := r.db.Exec(query, time.Now(), id)
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
