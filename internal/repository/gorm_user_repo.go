package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func preloadOwnedStreams(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

// Create inserts a new user with a generated id. The role defaults to USER.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	l := log.Ctx(ctx)

	user.ID = uuid.New().String()
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	model := &domain.UserModel{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		AvatarURL: user.AvatarURL,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		l.Error().Err(err).Msg("failed to create user in db")
		return err
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	user.Streams = []domain.StreamSummary{}
	l.Debug().Str(log.FieldUserID, user.ID).Msg("user created in db")
	return nil
}

// GetByID retrieves a user with their owned streams.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByEmail retrieves a user with their owned streams.
func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email = ?", email)
}

func (r *GormUserRepository) getBy(ctx context.Context, cond string, arg string) (*domain.User, error) {
	l := log.Ctx(ctx)

	var model domain.UserModel
	err := r.db.WithContext(ctx).
		Preload("Streams", preloadOwnedStreams).
		First(&model, cond, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str("lookup", cond).Msg("failed to get user from db")
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update applies the non-nil fields of update.
func (r *GormUserRepository) Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	l := log.Ctx(ctx)

	if update.Role != nil && !update.Role.SelfAssignable() {
		return nil, ErrRoleNotAllowed
	}

	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.AvatarURL != nil {
		fields["avatar_url"] = *update.AvatarURL
	}
	if update.Role != nil {
		fields["role"] = string(*update.Role)
	}

	if len(fields) > 0 {
		result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
			Where("id = ?", id).
			Updates(fields)
		if result.Error != nil {
			l.Error().Err(result.Error).Str(log.FieldUserID, id).Msg("failed to update user in db")
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}

	return r.GetByID(ctx, id)
}

// Delete removes the user, the payments they sent, and their streams with
// the payments those streams received.
func (r *GormUserRepository) Delete(ctx context.Context, id string) ([]domain.PaymentRef, error) {
	l := log.Ctx(ctx)

	var removed []domain.PaymentRef
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = paymentRefs(tx, "payments.user_id = ? OR streams.streamer_id = ?", id, id)
		if err != nil {
			return err
		}
		owned := tx.Model(&domain.StreamModel{}).Select("id").Where("streamer_id = ?", id)
		if err := tx.Where("user_id = ? OR stream_id IN (?)", id, owned).Delete(&domain.PaymentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("streamer_id = ?", id).Delete(&domain.StreamModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.UserModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			l.Error().Err(err).Str(log.FieldUserID, id).Msg("failed to delete user in db")
		}
		return nil, err
	}
	return removed, nil
}
