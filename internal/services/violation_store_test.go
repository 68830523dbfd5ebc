package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/models"
)

func TestViolationStore_LoadEmpty(t *testing.T) {
	store := NewViolationStore(openTestDB(t))
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestViolationStore_SaveReplaces(t *testing.T) {
	db := openTestDB(t)
	store := NewViolationStore(db)
	ctx := context.Background()
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, []audit.Violation{{ID: "a", Type: audit.TypeXSS, Timestamp: ts}}))
	require.NoError(t, store.Save(ctx, []audit.Violation{
		{ID: "b", Type: audit.TypeSQLInjection, Severity: audit.SeverityCritical, Timestamp: ts, Patterns: []string{"' OR"}},
		{ID: "c", Type: audit.TypeRateLimit, Timestamp: ts.Add(time.Second)},
	}))

	var rows int64
	db.Model(&models.Setting{}).Where("key = ?", ViolationsSettingKey).Count(&rows)
	assert.Equal(t, int64(1), rows)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, audit.SeverityCritical, got[0].Severity)
	assert.Equal(t, []string{"' OR"}, got[0].Patterns)
	assert.True(t, ts.Equal(got[0].Timestamp))
}

func TestViolationStore_ToleratesMissingFields(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&models.Setting{Key: ViolationsSettingKey, Value: `[{"type":"XSS_ATTEMPT"}]`}).Error)

	got, err := NewViolationStore(db).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, audit.TypeXSS, got[0].Type)
	assert.Empty(t, got[0].ID)
}

func TestViolationStore_CorruptValue(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&models.Setting{Key: ViolationsSettingKey, Value: "{not json"}).Error)

	_, err := NewViolationStore(db).Load(context.Background())
	assert.Error(t, err)
}

func TestViolationStore_LedgerRestart(t *testing.T) {
	db := openTestDB(t)
	cfg := audit.DefaultConfig()
	cfg.StoreCap = 3
	ctx := context.Background()

	first := audit.New(cfg, audit.WithStore(NewViolationStore(db)))
	for _, field := range []string{"plate", "brand", "model", "notes"} {
		first.Record(ctx, audit.Violation{Type: audit.TypeMaliciousInput, Severity: audit.SeverityMedium, FieldName: field, UserID: "u1"})
	}

	second := audit.New(cfg, audit.WithStore(NewViolationStore(db)))
	require.NoError(t, second.Load(ctx))
	got := second.Violations(0)
	require.Len(t, got, 3)
	assert.Equal(t, "notes", got[0].FieldName)
	assert.Equal(t, "brand", got[2].FieldName)
}
