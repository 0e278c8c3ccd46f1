package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/enums"
)

// User is the minimal identity record the core reads. Registration, login,
// and credential storage live outside the core; products keep a weak
// back-reference to their owning seller through UserID.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Username  string     `gorm:"column:username;not null"`
	Email     string     `gorm:"column:email;not null;uniqueIndex"`
	Role      enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	Status    string     `gorm:"column:status;not null;default:'active'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
