package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Admin",
		Action:     models.ActionApplicationApproved,
		EntityType: "application",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"email":  "student@example.com",
			"status": "approved",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "approved", entry.Metadata["status"])
	require.Equal(t, "admin", entry.ActorRole)
}

func TestActivityServiceRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "module"})
	require.Error(t, err)
}

func TestActivityServiceListPaginates(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{ActorID: 2, Action: models.ActionRetakeUnlocked, EntityType: "module"})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), dto.ActivityListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	require.Equal(t, 1, list.Pagination.Page)
	require.Equal(t, 20, list.Pagination.PageSize)
	require.Equal(t, int64(3), list.Pagination.TotalItems)
}

func ptrUint(v uint) *uint {
	return &v
}
