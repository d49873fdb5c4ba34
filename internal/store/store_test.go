package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-crowd/crowdgate/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func newLogEntry(eventType models.EventType, username string, success bool, at time.Time) *models.AuditLog {
	return &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     eventType,
		EventTime:     at,
		Severity:      models.SeverityInfo,
		ActorUsername: username,
		ResourceType:  models.ResourceUser,
		ResourceName:  username,
		Action:        string(eventType),
		Success:       success,
		CreatedAt:     at,
	}
}

func TestCreateAndGetAuditLog(t *testing.T) {
	s := newTestStore(t)

	entry := newLogEntry(models.EventAuthenticationSuccess, "sclaus", true, time.Now())
	entry.Details = models.AuditDetails{"directory": "crowd"}
	require.NoError(t, s.CreateAuditLog(entry))

	got, err := s.GetAuditLogByID(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventAuthenticationSuccess, got.EventType)
	assert.Equal(t, "sclaus", got.ActorUsername)
	assert.Equal(t, models.AuditDetails{"directory": "crowd"}, got.Details)
}

func TestGetAuditLogByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAuditLogByID("missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestCreateAuditLogBatch(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	batch := []*models.AuditLog{
		newLogEntry(models.EventAuthenticationSuccess, "sclaus", true, now),
		newLogEntry(models.EventAuthenticationFailure, "grinch", false, now),
		newLogEntry(models.EventLogout, "sclaus", true, now),
	}
	require.NoError(t, s.CreateAuditLogBatch(batch))

	logs, result, err := s.GetAuditLogsPaginated(PaginationParams{}, AuditLogFilters{})
	require.NoError(t, err)
	assert.Len(t, logs, 3)
	assert.Equal(t, int64(3), result.TotalRows)
}

func TestCreateAuditLogBatchEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.CreateAuditLogBatch(nil))
}

func TestGetAuditLogsFiltered(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	require.NoError(t, s.CreateAuditLogBatch([]*models.AuditLog{
		newLogEntry(models.EventAuthenticationSuccess, "sclaus", true, now.Add(-2*time.Hour)),
		newLogEntry(models.EventAuthenticationFailure, "sclaus", false, now.Add(-time.Hour)),
		newLogEntry(models.EventAuthenticationFailure, "grinch", false, now),
	}))

	logs, _, err := s.GetAuditLogsPaginated(PaginationParams{}, AuditLogFilters{
		EventType: models.EventAuthenticationFailure,
	})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, _, err = s.GetAuditLogsPaginated(PaginationParams{}, AuditLogFilters{
		ActorUsername: "grinch",
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "grinch", logs[0].ActorUsername)

	failed := false
	logs, _, err = s.GetAuditLogsPaginated(PaginationParams{}, AuditLogFilters{
		Success: &failed,
	})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, _, err = s.GetAuditLogsPaginated(PaginationParams{}, AuditLogFilters{
		StartTime: now.Add(-90 * time.Minute),
	})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestGetAuditLogsPagination(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	var batch []*models.AuditLog
	for i := 0; i < 7; i++ {
		batch = append(batch, newLogEntry(
			models.EventSessionValidated, "sclaus", true,
			now.Add(time.Duration(i)*time.Minute),
		))
	}
	require.NoError(t, s.CreateAuditLogBatch(batch))

	logs, result, err := s.GetAuditLogsPaginated(
		PaginationParams{Page: 2, PageSize: 3},
		AuditLogFilters{},
	)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
	assert.Equal(t, int64(7), result.TotalRows)
	assert.Equal(t, 3, result.TotalPages)

	// Newest first: page 2 starts at the 4th newest entry.
	assert.True(t, logs[0].EventTime.After(logs[2].EventTime))
}

func TestDeleteOldAuditLogs(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	require.NoError(t, s.CreateAuditLogBatch([]*models.AuditLog{
		newLogEntry(models.EventLogout, "sclaus", true, now.Add(-48*time.Hour)),
		newLogEntry(models.EventLogout, "sclaus", true, now.Add(-36*time.Hour)),
		newLogEntry(models.EventLogout, "sclaus", true, now),
	}))

	deleted, err := s.DeleteOldAuditLogs(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, result, err := s.GetAuditLogsPaginated(PaginationParams{}, AuditLogFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalRows)
}

func TestHealth(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Health())
}
