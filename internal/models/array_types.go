package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SeatList is a JSON-encoded list of seat numbers stored in a JSONB column.
type SeatList []int

// Value implements driver.Valuer for database storage
func (s SeatList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]int{})
	}
	return json.Marshal([]int(s))
}

// Scan implements sql.Scanner for database retrieval
func (s *SeatList) Scan(value interface{}) error {
	if value == nil {
		*s = SeatList{}
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into SeatList", value)
	}
	return json.Unmarshal(data, (*[]int)(s))
}

// Contains reports whether the list holds the given seat number.
func (s SeatList) Contains(seat int) bool {
	for _, n := range s {
		if n == seat {
			return true
		}
	}
	return false
}

// Dedupe returns the list with duplicate seat numbers removed, preserving order.
func (s SeatList) Dedupe() SeatList {
	seen := make(map[int]bool, len(s))
	out := make(SeatList, 0, len(s))
	for _, n := range s {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// PassengerList is a JSON-encoded list of passenger details stored in a JSONB column.
type PassengerList []PassengerDetail

// PassengerDetail holds per-seat passenger information
type PassengerDetail struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender,omitempty"`
}

// Value implements driver.Valuer for database storage
func (p PassengerList) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal([]PassengerDetail{})
	}
	return json.Marshal([]PassengerDetail(p))
}

// Scan implements sql.Scanner for database retrieval
func (p *PassengerList) Scan(value interface{}) error {
	if value == nil {
		*p = PassengerList{}
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into PassengerList", value)
	}
	return json.Unmarshal(data, (*[]PassengerDetail)(p))
}

// SeatMap is the vehicle seat layout stored in a JSONB column.
// Classes maps a seat class name to the ordered seat numbers belonging to it.
type SeatMap struct {
	Layout  string           `json:"layout,omitempty"`
	Classes map[string][]int `json:"classes"`
}

// Value implements driver.Valuer for database storage
func (m SeatMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval
func (m *SeatMap) Scan(value interface{}) error {
	if value == nil {
		*m = SeatMap{}
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into SeatMap", value)
	}
	return json.Unmarshal(data, m)
}

// ClassPrices maps a seat class name to its per-seat price.
type ClassPrices map[string]float64

// Value implements driver.Valuer for database storage
func (c ClassPrices) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(map[string]float64(c))
}

// Scan implements sql.Scanner for database retrieval
func (c *ClassPrices) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ClassPrices", value)
	}
	return json.Unmarshal(data, (*map[string]float64)(c))
}
