package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/model"
)

const documentKeyPrefix = "documents:"

// DefaultDocumentTTL is how long a cached document stays valid after insertion.
const DefaultDocumentTTL = 10 * time.Minute

// DocumentCache stores materialized documents keyed by id on top of a Store.
type DocumentCache struct {
	store    Store
	ttl      time.Duration
	requests *prometheus.CounterVec
}

// NewDocumentCache wraps store. A nil reg skips metric registration.
func NewDocumentCache(store Store, ttl time.Duration, reg prometheus.Registerer) (*DocumentCache, error) {
	if ttl <= 0 {
		ttl = DefaultDocumentTTL
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docvault_document_cache_requests_total",
		Help: "Document cache lookups by result.",
	}, []string{"result"})
	if reg != nil {
		if err := reg.Register(requests); err != nil {
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
	}
	return &DocumentCache{store: store, ttl: ttl, requests: requests}, nil
}

func documentKey(id string) string {
	return documentKeyPrefix + id
}

// Get returns the cached document or ErrCacheMiss. Undecodable entries count as misses.
func (c *DocumentCache) Get(ctx context.Context, id string) (*model.Document, error) {
	data, err := c.store.Get(ctx, documentKey(id))
	if err != nil {
		c.requests.WithLabelValues("miss").Inc()
		return nil, err
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.requests.WithLabelValues("miss").Inc()
		return nil, ErrCacheMiss
	}
	c.requests.WithLabelValues("hit").Inc()
	return &doc, nil
}

// Set writes doc under its id for the configured TTL.
func (c *DocumentCache) Set(ctx context.Context, doc *model.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal cached document: %w", err)
	}
	return c.store.Set(ctx, documentKey(doc.ID), data, c.ttl)
}

// Evict removes the entry for id.
func (c *DocumentCache) Evict(ctx context.Context, id string) error {
	return c.store.Delete(ctx, documentKey(id))
}

// EvictAll removes every cached document.
func (c *DocumentCache) EvictAll(ctx context.Context) error {
	return c.store.DeleteByPrefix(ctx, documentKeyPrefix)
}
