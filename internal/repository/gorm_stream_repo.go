package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// GormStreamRepository implements StreamRepository using GORM.
type GormStreamRepository struct {
	db *gorm.DB
}

// NewGormStreamRepository creates a new GORM-based stream repository.
func NewGormStreamRepository(db *gorm.DB) *GormStreamRepository {
	return &GormStreamRepository{db: db}
}

func preloadSuccessfulPayments(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(domain.PaymentSuccess)).Order("created_at DESC")
}

// Create inserts a new stream with a generated id. New streams start live.
func (r *GormStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	l := log.Ctx(ctx)

	stream.ID = uuid.New().String()
	stream.IsLive = true

	model := domain.StreamToModel(stream)
	if err := r.db.WithContext(ctx).Omit("Streamer", "Payments").Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldUserID, stream.StreamerID).Msg("failed to create stream in db")
		return err
	}

	stream.CreatedAt = model.CreatedAt
	stream.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldStreamID, stream.ID).Msg("stream created in db")
	return nil
}

// GetByID retrieves a stream with its streamer and successful payments.
func (r *GormStreamRepository) GetByID(ctx context.Context, id string) (*domain.Stream, error) {
	l := log.Ctx(ctx)

	var model domain.StreamModel
	err := r.db.WithContext(ctx).
		Preload("Streamer").
		Preload("Payments", preloadSuccessfulPayments).
		Preload("Payments.User").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStreamNotFound
		}
		l.Error().Err(err).Str(log.FieldStreamID, id).Msg("failed to get stream by id")
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetOwnerID returns the streamer id of a stream.
func (r *GormStreamRepository) GetOwnerID(ctx context.Context, id string) (string, error) {
	l := log.Ctx(ctx)

	var model domain.StreamModel
	err := r.db.WithContext(ctx).Select("id", "streamer_id").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrStreamNotFound
		}
		l.Error().Err(err).Str(log.FieldStreamID, id).Msg("failed to get stream owner")
		return "", err
	}
	return model.StreamerID, nil
}

// ListLive returns live streams with their streamers, newest first.
func (r *GormStreamRepository) ListLive(ctx context.Context) ([]domain.Stream, error) {
	l := log.Ctx(ctx)

	var models []domain.StreamModel
	err := r.db.WithContext(ctx).
		Preload("Streamer").
		Where("is_live = ?", true).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to list live streams from db")
		return nil, err
	}

	streams := make([]domain.Stream, len(models))
	for i := range models {
		streams[i] = *models[i].ToDomain()
	}
	return streams, nil
}

// Update applies the non-nil fields and returns the fresh stream detail.
func (r *GormStreamRepository) Update(ctx context.Context, id string, update domain.StreamUpdate) (*domain.Stream, error) {
	l := log.Ctx(ctx)

	fields := map[string]interface{}{}
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.StreamLink != nil {
		fields["stream_link"] = *update.StreamLink
	}
	if update.IsLive != nil {
		fields["is_live"] = *update.IsLive
	}

	if len(fields) > 0 {
		result := r.db.WithContext(ctx).Model(&domain.StreamModel{}).
			Where("id = ?", id).
			Updates(fields)
		if result.Error != nil {
			l.Error().Err(result.Error).Str(log.FieldStreamID, id).Msg("failed to update stream in db")
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrStreamNotFound
		}
	}

	return r.GetByID(ctx, id)
}

// Delete removes a stream and its payments.
func (r *GormStreamRepository) Delete(ctx context.Context, id string) ([]domain.PaymentRef, error) {
	l := log.Ctx(ctx)

	var removed []domain.PaymentRef
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = paymentRefs(tx, "payments.stream_id = ?", id)
		if err != nil {
			return err
		}
		if err := tx.Where("stream_id = ?", id).Delete(&domain.PaymentModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.StreamModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStreamNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrStreamNotFound) {
			l.Error().Err(err).Str(log.FieldStreamID, id).Msg("failed to delete stream in db")
		}
		return nil, err
	}
	return removed, nil
}

// paymentRefs lists the payments matching cond together with the streamer
// of the stream each one went to.
func paymentRefs(tx *gorm.DB, cond string, args ...interface{}) ([]domain.PaymentRef, error) {
	refs := []domain.PaymentRef{}
	err := tx.Model(&domain.PaymentModel{}).
		Select("payments.id AS id, payments.user_id AS user_id, payments.stream_id AS stream_id, streams.streamer_id AS streamer_id").
		Joins("JOIN streams ON streams.id = payments.stream_id").
		Where(cond, args...).
		Scan(&refs).Error
	return refs, err
}
