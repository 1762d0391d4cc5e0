package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

func TestResultCache_LoadMiss(t *testing.T) {
	cache := NewResultCache()
	row, err := cache.Load(context.Background(), "5265877635@test")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestResultCache_SaveItemsOnlyKeepsQuery(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache()
	q := domain.SearchQuery{SubjectRole: domain.SubjectBuyer, DateField: domain.DateIssue, From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, cache.Save(ctx, "k", q, []domain.InvoiceSummary{{KSeFNumber: "1"}}))
	require.NoError(t, cache.SaveItemsOnly(ctx, "k", []domain.InvoiceSummary{{KSeFNumber: "1"}, {KSeFNumber: "2"}}))

	row, err := cache.Load(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, row.Query)
	assert.Equal(t, q, *row.Query)
	assert.Len(t, row.Items, 2)
}

func TestResultCache_SaveItemsOnlyWithoutRowIsNoop(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache()

	require.NoError(t, cache.SaveItemsOnly(ctx, "k", []domain.InvoiceSummary{{KSeFNumber: "1"}}))

	row, err := cache.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestCredentialStore(t *testing.T) {
	store := NewCredentialStore()

	_, err := store.Load("k")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save("k", domain.Credential{AccessToken: "a"}))
	cred, err := store.Load("k")
	require.NoError(t, err)
	assert.Equal(t, "a", cred.AccessToken)
}

func TestPreferencesStore_Merge(t *testing.T) {
	store := NewPreferencesStore()
	require.NoError(t, store.Save(map[string]any{"theme": "dark", "outputDir": "/a"}))
	require.NoError(t, store.Merge(map[string]any{"outputDir": "/b"}))

	prefs, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"theme": "dark", "outputDir": "/b"}, prefs)
}
