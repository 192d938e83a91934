package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// GormPaymentRepository implements PaymentRepository using GORM.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GORM-based payment repository.
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a payment. The id must already be set to the gateway
// order id; the status defaults to PENDING.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	l := log.Ctx(ctx)

	if payment.Status == "" {
		payment.Status = domain.PaymentPending
	}

	model := domain.PaymentToModel(payment)
	if err := r.db.WithContext(ctx).Omit("User", "Stream").Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPaymentExists
		}
		l.Error().Err(err).Str(log.FieldPaymentID, payment.ID).Msg("failed to create payment in db")
		return err
	}

	payment.CreatedAt = model.CreatedAt
	payment.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldPaymentID, payment.ID).Msg("payment created in db")
	return nil
}

// GetByID retrieves a payment with its sender and stream.
func (r *GormPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	l := log.Ctx(ctx)

	var model domain.PaymentModel
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Stream.Streamer").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		l.Error().Err(err).Str(log.FieldPaymentID, id).Msg("failed to get payment by id")
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateStatus moves a payment to status. The write is conditional on the
// status read in the same transaction, so two concurrent transitions cannot
// both observe the same previous status. Settled payments stay settled.
func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Payment, domain.PaymentStatus, error) {
	l := log.Ctx(ctx)

	var previous domain.PaymentStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.PaymentModel
		if err := tx.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		previous = domain.PaymentStatus(current.Status)
		if previous == domain.PaymentSuccess && status != domain.PaymentSuccess {
			return ErrPaymentSettled
		}

		result := tx.Model(&domain.PaymentModel{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(map[string]interface{}{
				"status":     string(status),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrPaymentNotFound) && !errors.Is(err, ErrStatusConflict) && !errors.Is(err, ErrPaymentSettled) {
			l.Error().Err(err).Str(log.FieldPaymentID, id).Msg("failed to update payment status in db")
		}
		return nil, "", err
	}

	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return updated, previous, nil
}

func (r *GormPaymentRepository) filtered(ctx context.Context, filter PaymentFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.PaymentModel{})
	if filter.SenderID != "" {
		q = q.Where("user_id = ?", filter.SenderID)
	}
	if filter.StreamerID != "" {
		owned := r.db.Model(&domain.StreamModel{}).Select("id").Where("streamer_id = ?", filter.StreamerID)
		q = q.Where("stream_id IN (?)", owned)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	return q
}

// Count counts payments matching filter.
func (r *GormPaymentRepository) Count(ctx context.Context, filter PaymentFilter) (int, error) {
	l := log.Ctx(ctx)

	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count payments")
		return 0, err
	}
	return int(total), nil
}

// List returns one window of payments matching filter, newest first. Sent
// histories carry the stream and its streamer; received histories carry
// the sender and the stream.
func (r *GormPaymentRepository) List(ctx context.Context, filter PaymentFilter, offset, limit int) ([]domain.Payment, error) {
	l := log.Ctx(ctx)

	q := r.filtered(ctx, filter)
	if filter.SenderID != "" {
		q = q.Preload("Stream.Streamer")
	} else {
		q = q.Preload("User").Preload("Stream")
	}

	var models []domain.PaymentModel
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list payments from db")
		return nil, err
	}

	payments := make([]domain.Payment, len(models))
	for i := range models {
		payments[i] = *models[i].ToDomain()
	}
	return payments, nil
}

// StreamStats aggregates the successful payments of a stream.
func (r *GormPaymentRepository) StreamStats(ctx context.Context, streamID string) (*domain.StreamPaymentStats, error) {
	l := log.Ctx(ctx)

	var stream domain.StreamModel
	if err := r.db.WithContext(ctx).Select("id").First(&stream, "id = ?", streamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStreamNotFound
		}
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to look up stream for stats")
		return nil, err
	}

	var row struct {
		Count int64
		Total float64
	}
	err := r.db.WithContext(ctx).Model(&domain.PaymentModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("stream_id = ? AND status = ?", streamID, string(domain.PaymentSuccess)).
		Scan(&row).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to aggregate stream payments")
		return nil, err
	}

	return &domain.StreamPaymentStats{
		StreamID:           streamID,
		SuccessfulPayments: row.Count,
		TotalAmount:        row.Total,
		ComputedAt:         time.Now().UTC(),
	}, nil
}
