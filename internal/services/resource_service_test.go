package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResources(t *testing.T) {
	assert.Equal(t, []string{"drivers", "subscriptions", "transactions", "vehicles"}, Resources())
}

func TestResourceService_VehicleLifecycle(t *testing.T) {
	svc := NewResourceService(openTestDB(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, "vehicles", map[string]any{
		"plate": "AB-123-CD", "brand": "Toyota", "model": "Corolla",
		"year": 2019.0, "mileage": "84000", "notes": "O&#x27;Brien&#x27;s car",
	})
	require.NoError(t, err)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 2019.0, created["year"])
	assert.Equal(t, 84000.0, created["mileage"])
	assert.Equal(t, "active", created["status"])
	assert.Equal(t, "O&#x27;Brien&#x27;s car", created["notes"])

	updated, err := svc.Update(ctx, "vehicles", id, map[string]any{"mileage": 90000.0})
	require.NoError(t, err)
	assert.Equal(t, 90000.0, updated["mileage"])
	assert.Equal(t, "Corolla", updated["model"])

	got, err := svc.Get(ctx, "vehicles", id)
	require.NoError(t, err)
	assert.Equal(t, 90000.0, got["mileage"])

	require.NoError(t, svc.Delete(ctx, "vehicles", id))
	_, err = svc.Get(ctx, "vehicles", id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "vehicles", id), ErrNotFound)
}

func TestResourceService_IgnoresReadOnlyFields(t *testing.T) {
	svc := NewResourceService(openTestDB(t))
	created, err := svc.Create(context.Background(), "drivers", map[string]any{
		"id": "chosen-by-client", "name": "Jane", "created_at": "2000-01-01",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "chosen-by-client", created["id"])
}

func TestResourceService_Transactions(t *testing.T) {
	svc := NewResourceService(openTestDB(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, "transactions", map[string]any{
		"vehicle_id": "v1", "kind": "expense", "category": "fuel",
		"amount": "12,50", "date": "2026-05-04",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "transactions", map[string]any{
		"vehicle_id": "v1", "kind": "income", "amount": 300.0, "date": "2026-05-06",
	})
	require.NoError(t, err)

	list, err := svc.List(ctx, "transactions")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "income", list[0]["kind"])
	assert.Equal(t, 12.5, list[1]["amount"])
	assert.Contains(t, list[1]["date"], "2026-05-04")
}

func TestResourceService_InvalidPayloads(t *testing.T) {
	svc := NewResourceService(openTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name     string
		resource string
		data     map[string]any
	}{
		{"unknown field", "drivers", map[string]any{"name": "Jane", "shoe_size": "42"}},
		{"missing required", "vehicles", map[string]any{"brand": "Toyota"}},
		{"bad email", "drivers", map[string]any{"name": "Jane", "email": "nope"}},
		{"bad kind", "transactions", map[string]any{"vehicle_id": "v1", "kind": "gift", "date": "2026-05-04"}},
		{"missing date", "transactions", map[string]any{"vehicle_id": "v1", "kind": "income", "date": ""}},
		{"bad date", "transactions", map[string]any{"vehicle_id": "v1", "kind": "income", "date": "04/05/2026"}},
		{"bad number", "vehicles", map[string]any{"plate": "A", "brand": "B", "model": "C", "year": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.resource, tt.data)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestResourceService_UnknownResource(t *testing.T) {
	svc := NewResourceService(openTestDB(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, "users", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrUnknownResource)
	_, err = svc.List(ctx, "users")
	assert.ErrorIs(t, err, ErrUnknownResource)
	assert.ErrorIs(t, svc.Delete(ctx, "users", "1"), ErrUnknownResource)
}

func TestResourceService_ListEmpty(t *testing.T) {
	svc := NewResourceService(openTestDB(t))
	list, err := svc.List(context.Background(), "subscriptions")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestResourceService_SubscriptionRenewal(t *testing.T) {
	svc := NewResourceService(openTestDB(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, "subscriptions", map[string]any{
		"plan": "pro", "billing_email": "billing@example.com", "amount": 49.0, "renews_on": "2026-06-01",
	})
	require.NoError(t, err)
	assert.Contains(t, created["renews_on"], "2026-06-01")
}
