package models

import "time"

// UserRole determines access level
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// LoyaltyTier is the discount tier derived from a user's booking history
type LoyaltyTier string

const (
	TierFirstTime LoyaltyTier = "FIRSTTIME5"
	TierSilver    LoyaltyTier = "SILVERPASS"
	TierGold      LoyaltyTier = "GOLDPASS"
	TierNone      LoyaltyTier = ""
)

// DiscountPercent returns the percentage discount the tier grants.
func (t LoyaltyTier) DiscountPercent() float64 {
	switch t {
	case TierFirstTime, TierSilver:
		return 5
	case TierGold:
		return 8
	default:
		return 0
	}
}

// TierForBookingCount maps a completed-booking count to a loyalty tier.
// Tiers are mutually exclusive.
func TierForBookingCount(count int) LoyaltyTier {
	switch {
	case count == 0:
		return TierFirstTime
	case count >= 40:
		return TierGold
	case count >= 20:
		return TierSilver
	default:
		return TierNone
	}
}

// User represents a registered account
type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	Role         UserRole  `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RegisterRequest is the payload for account registration
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest is the payload for authentication
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the token pair issued on login or refresh
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
	Device       string `json:"device,omitempty"`
}

// UpdateProfileRequest is the payload for editing the signed-in account
type UpdateProfileRequest struct {
	FullName string  `json:"full_name" binding:"required"`
	Phone    *string `json:"phone,omitempty"`
}

// RefreshRequest is the payload for rotating an access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LoyaltyStatus is the API view of a user's tier
type LoyaltyStatus struct {
	Tier            LoyaltyTier `json:"tier"`
	DiscountPercent float64     `json:"discount_percent"`
	BookingCount    int         `json:"booking_count"`
}
