package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms-api/internal/models"
)

// ApplicationFilter narrows admission listings.
type ApplicationFilter struct {
	Status   string
	Page     int
	PageSize int
}

// ApplicationRepository persists admission applications and the accounts created from them.
type ApplicationRepository interface {
	Create(ctx context.Context, application *models.StudentApplication) error
	GetByID(ctx context.Context, id uint) (models.StudentApplication, error)
	List(ctx context.Context, filter ApplicationFilter) ([]models.StudentApplication, int64, error)
	UpdateStatus(ctx context.Context, id uint, status, note string) error
	MarkSynced(ctx context.Context, id uint) error
	ProgramCode(ctx context.Context, programID uint) (string, error)
	CreateAccount(ctx context.Context, applicationID uint, user *models.User, student *models.Student, at time.Time) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository constructs the admission repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, application *models.StudentApplication) error {
	return r.db.WithContext(ctx).Create(application).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.StudentApplication, error) {
	var application models.StudentApplication
	if err := r.db.WithContext(ctx).First(&application, id).Error; err != nil {
		return models.StudentApplication{}, err
	}
	return application, nil
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.StudentApplication, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentApplication{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var items []models.StudentApplication
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uint, status, note string) error {
	updates := map[string]interface{}{"status": status}
	if note != "" {
		updates["review_note"] = note
	}

	result := r.db.WithContext(ctx).Model(&models.StudentApplication{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *applicationRepository) MarkSynced(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.StudentApplication{}).Where("id = ?", id).Update("lms_synced", true).Error
}

func (r *applicationRepository) ProgramCode(ctx context.Context, programID uint) (string, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).Select("code").First(&program, programID).Error; err != nil {
		return "", err
	}
	return program.Code, nil
}

// CreateAccount inserts the user and student rows and flags the application in one transaction.
func (r *applicationRepository) CreateAccount(ctx context.Context, applicationID uint, user *models.User, student *models.Student, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		student.UserID = user.ID
		if err := tx.Omit("User").Create(student).Error; err != nil {
			return err
		}

		update := tx.Model(&models.StudentApplication{}).
			Where("id = ?", applicationID).
			Updates(map[string]interface{}{
				"status":       models.ApplicationStatusAccountCreated,
				"user_id":      user.ID,
				"processed_at": at,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
