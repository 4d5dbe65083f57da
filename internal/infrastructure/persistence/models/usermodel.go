package models

import (
	"time"

	"github.com/orris-inc/billing/internal/shared/constants"
)

// UserModel is the read-only billing contact owned by the account system.
type UserModel struct {
	ID        uint   `gorm:"primarykey"`
	Email     string `gorm:"uniqueIndex;not null;size:255"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
}

func (UserModel) TableName() string {
	return constants.TableUsers
}
