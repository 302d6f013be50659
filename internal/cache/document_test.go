package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
)

func TestDocumentCache(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	store := NewMemory(16, time.Minute)
	dc, err := NewDocumentCache(store, time.Minute, reg)
	require.NoError(t, err)

	_, err = dc.Get(ctx, "d1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	doc := &model.Document{ID: "d1", Title: "Report", Tags: []string{"q1"}, Status: model.StatusDraft, OwnerUsername: "alice"}
	require.NoError(t, dc.Set(ctx, doc))

	got, err := dc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.OwnerUsername, got.OwnerUsername)

	assert.Equal(t, float64(1), testutil.ToFloat64(dc.requests.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(dc.requests.WithLabelValues("miss")))

	require.NoError(t, dc.Evict(ctx, "d1"))
	_, err = dc.Get(ctx, "d1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDocumentCache_EvictAllKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, time.Minute)
	dc, err := NewDocumentCache(store, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDocumentTTL, dc.ttl)

	require.NoError(t, dc.Set(ctx, &model.Document{ID: "a"}))
	require.NoError(t, dc.Set(ctx, &model.Document{ID: "b"}))
	require.NoError(t, store.Set(ctx, "sessions:x", []byte("1"), time.Minute))

	require.NoError(t, dc.EvictAll(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestDocumentCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, time.Minute)
	dc, err := NewDocumentCache(store, time.Minute, nil)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, documentKey("bad"), []byte("{not json"), time.Minute))
	_, err = dc.Get(ctx, "bad")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewDocumentCache_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewDocumentCache(NewMemory(1, time.Minute), time.Minute, reg)
	require.NoError(t, err)
	_, err = NewDocumentCache(NewMemory(1, time.Minute), time.Minute, reg)
	assert.Error(t, err)
}
