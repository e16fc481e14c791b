package models

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User represents an API user
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FullName     string     `json:"full_name"`
	Role         string     `gorm:"default:'user'" json:"role"` // user, admin
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SetPassword hashes and stores the given password
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies the given password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Watchlist represents a user's tracked asset
type Watchlist struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"index" json:"user_id"`
	User       User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AssetID    uint            `gorm:"index" json:"asset_id"`
	Asset      Asset           `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Notes      string          `json:"notes"`
	AlertPrice decimal.Decimal `gorm:"type:decimal(30,10)" json:"alert_price"`
	AlertType  string          `json:"alert_type"` // above, below, both
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// UserAlert represents price alerts for users
type UserAlert struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"index" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AssetID     uint            `gorm:"index" json:"asset_id"`
	Asset       Asset           `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	AlertType   string          `json:"alert_type"` // price_above, price_below, percent_change
	TargetValue decimal.Decimal `gorm:"type:decimal(30,10)" json:"target_value"`
	IsTriggered bool            `gorm:"default:false" json:"is_triggered"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	TriggeredAt *time.Time      `json:"triggered_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Alert type constants for watchlist
const (
	AlertTypeAbove = "above"
	AlertTypeBelow = "below"
	AlertTypeBoth  = "both"
)

// Alert type constants for user alerts
const (
	UserAlertTypePriceAbove    = "price_above"
	UserAlertTypePriceBelow    = "price_below"
	UserAlertTypePercentChange = "percent_change"
)

// ValidWatchlistAlertTypes returns valid alert types for watchlist
func ValidWatchlistAlertTypes() []string {
	return []string{AlertTypeAbove, AlertTypeBelow, AlertTypeBoth}
}

// ValidUserAlertTypes returns valid alert types for user alerts
func ValidUserAlertTypes() []string {
	return []string{
		UserAlertTypePriceAbove,
		UserAlertTypePriceBelow,
		UserAlertTypePercentChange,
	}
}

// IsValidWatchlistAlertType checks if the alert type is valid
func IsValidWatchlistAlertType(alertType string) bool {
	for _, valid := range ValidWatchlistAlertTypes() {
		if alertType == valid {
			return true
		}
	}
	return false
}

// IsValidUserAlertType checks if the alert type is valid
func IsValidUserAlertType(alertType string) bool {
	for _, valid := range ValidUserAlertTypes() {
		if alertType == valid {
			return true
		}
	}
	return false
}

// MigrateUserModels runs database migrations for user-related models
func MigrateUserModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Watchlist{},
		&UserAlert{},
	)
}
