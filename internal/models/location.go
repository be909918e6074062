package models

import "time"

// Location is a city or terminal served by the network
type Location struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city" db:"city"`
	Code      string    `json:"code" db:"code"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateLocationRequest is the admin payload for adding a location
type CreateLocationRequest struct {
	Name string `json:"name" binding:"required"`
	City string `json:"city" binding:"required"`
	Code string `json:"code" binding:"required"`
}
