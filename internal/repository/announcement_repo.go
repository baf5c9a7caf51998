package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// AnnouncementFilter narrows announcement listings.
type AnnouncementFilter struct {
	Audience string
	Page     int
	PageSize int
}

// AnnouncementRepository persists announcements and their dispatch bookkeeping.
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	GetByID(ctx context.Context, id uint) (models.Announcement, error)
	List(ctx context.Context, filter AnnouncementFilter) ([]models.Announcement, int64, error)
	MarkChunkQueued(ctx context.Context, id uint, channel string, chunk int) error
	MarkDispatched(ctx context.Context, id uint, recipients, chunks int, at time.Time) error
}

// Fan-out channels tracked by MarkChunkQueued.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

type announcementRepository struct {
	db *gorm.DB
}

// NewAnnouncementRepository constructs a GORM-backed announcement repository.
func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	return r.db.WithContext(ctx).Create(announcement).Error
}

func (r *announcementRepository) GetByID(ctx context.Context, id uint) (models.Announcement, error) {
	var announcement models.Announcement
	if err := r.db.WithContext(ctx).First(&announcement, id).Error; err != nil {
		return models.Announcement{}, err
	}
	return announcement, nil
}

func (r *announcementRepository) List(ctx context.Context, filter AnnouncementFilter) ([]models.Announcement, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Announcement{})
	if filter.Audience != "" {
		query = query.Where("audience = ?", filter.Audience)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var items []models.Announcement
	if err := query.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *announcementRepository) MarkChunkQueued(ctx context.Context, id uint, channel string, chunk int) error {
	column := "in_app_chunks_queued"
	if channel == ChannelEmail {
		column = "email_chunks_queued"
	}
	return r.db.WithContext(ctx).Model(&models.Announcement{}).
		Where("id = ? AND "+column+" < ?", id, chunk).
		Update(column, chunk).Error
}

func (r *announcementRepository) MarkDispatched(ctx context.Context, id uint, recipients, chunks int, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Announcement{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"recipients":    recipients,
			"chunks":        chunks,
			"dispatched_at": at,
		}).Error
}
