package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// LocationRepository handles location database operations
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new LocationRepository
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create inserts a new location and sets the generated ID
func (r *LocationRepository) Create(loc *models.Location) error {
	loc.CreatedAt = time.Now()

	query := `
		INSERT INTO locations (name, city, code, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return r.db.QueryRow(query, loc.Name, loc.City, loc.Code, loc.IsActive, loc.CreatedAt).Scan(&loc.ID)
}

// GetByID retrieves a location by ID, returning nil when not found
func (r *LocationRepository) GetByID(id int) (*models.Location, error) {
	var loc models.Location
	query := `
		SELECT id, name, city, code, is_active, created_at
		FROM locations
		WHERE id = $1`

	err := r.db.Get(&loc, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// ListActive retrieves all active locations ordered by name
func (r *LocationRepository) ListActive() ([]models.Location, error) {
	var locations []models.Location
	query := `
		SELECT id, name, city, code, is_active, created_at
		FROM locations
		WHERE is_active = true
		ORDER BY name`

	if err := r.db.Select(&locations, query); err != nil {
		return nil, err
	}
	return locations, nil
}

// SearchByName finds active locations whose name or city matches the prefix
func (r *LocationRepository) SearchByName(prefix string) ([]models.Location, error) {
	var locations []models.Location
	query := `
		SELECT id, name, city, code, is_active, created_at
		FROM locations
		WHERE is_active = true AND (name ILIKE $1 OR city ILIKE $1)
		ORDER BY name
		LIMIT 20`

	if err := r.db.Select(&locations, query, prefix+"%"); err != nil {
		return nil, err
	}
	return locations, nil
}
