package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PackageGrant records that a user holds a norm-database package. Which
// database files a package unlocks is configuration (packages.yaml), not data.
type PackageGrant struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string     `gorm:"column:user_id;not null;index" json:"user_id"`
	PackageID   string     `gorm:"column:package_id;not null;index" json:"package_id"`
	Status      string     `gorm:"column:status;not null;default:'active';index" json:"status"`
	ActivatedAt time.Time  `gorm:"column:activated_at;not null" json:"activated_at"`
	ExpiresAt   *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (PackageGrant) TableName() string { return "package_grant" }

func (g *PackageGrant) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

const PackageStatusActive = "active"
