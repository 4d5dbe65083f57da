// Package adapters provides infrastructure adapters.
package adapters

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
	"github.com/orris-inc/billing/internal/shared/db"
	"github.com/orris-inc/billing/internal/shared/logger"
)

// UserDirectoryAdapter implements usecases.UserDirectory over the users table.
type UserDirectoryAdapter struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserDirectoryAdapter(database *gorm.DB, log logger.Interface) *UserDirectoryAdapter {
	return &UserDirectoryAdapter{db: database, logger: log}
}

// GetContact returns nil, nil for an unknown user.
func (a *UserDirectoryAdapter) GetContact(ctx context.Context, userID uint) (*usecases.UserContact, error) {
	var model models.UserModel
	err := db.GetTxFromContext(ctx, a.db).Select("id", "email", "name").Where("id = ?", userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		a.logger.Errorw("failed to load user contact", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load user contact: %w", err)
	}
	return &usecases.UserContact{UserID: model.ID, Email: model.Email, Name: model.Name}, nil
}
