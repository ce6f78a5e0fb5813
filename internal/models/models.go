package models

import "time"

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin     RoleName = "admin"
	RoleManager   RoleName = "manager"
	RoleVolunteer RoleName = "volunteer"
)

// User represents an authenticated account.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	Role      RoleName  `gorm:"type:varchar(16)" json:"role"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SystemSettings holds singleton shelter-wide configuration edited from the
// settings screen.
type SystemSettings struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	ShelterName    string    `json:"shelter_name"`
	Address        string    `gorm:"type:text" json:"address"`
	ContactEmail   string    `json:"contact_email"`
	ContactPhone   string    `json:"contact_phone"`
	Timezone       string    `gorm:"type:varchar(32)" json:"timezone"`
	TimelineDays   int       `gorm:"default:30" json:"timeline_days"`
	CheckoutHour   int       `gorm:"default:11" json:"checkout_hour"`
	LowStockAlerts bool      `gorm:"default:true" json:"low_stock_alerts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
