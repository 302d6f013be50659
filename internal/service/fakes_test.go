package service

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docvault/internal/auth"
	"docvault/internal/cache"
	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// memDB is an in-memory stand-in for the three PostgreSQL repositories,
// including the unique constraints and the version cascade.
type memDB struct {
	mu                sync.Mutex
	users             map[string]model.User
	docs              map[string]model.Document
	versions          map[string]model.FileVersion
	failVersionCreate error
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[string]model.User{},
		docs:     map[string]model.Document{},
		versions: map[string]model.FileVersion{},
	}
}

type memUsers struct{ *memDB }
type memDocs struct{ *memDB }
type memVersions struct{ *memDB }

func (m memUsers) Create(_ context.Context, u *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return nil, &repository.DuplicateError{Field: "username"}
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, &repository.DuplicateError{Field: "email"}
		}
	}
	m.users[u.ID] = *u
	out := *u
	return &out, nil
}

func (m memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

func (m memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// materialize must be called with mu held.
func (m memDocs) materialize(d model.Document) *model.Document {
	d.Tags = append([]string{}, d.Tags...)
	d.OwnerUsername = m.users[d.OwnerID].Username
	return &d
}

func (m memDocs) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return m.materialize(*doc), nil
}

func (m memDocs) FindByID(_ context.Context, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.materialize(d), nil
}

func (m memDocs) Update(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[doc.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d.Title = doc.Title
	d.Description = doc.Description
	d.Tags = append([]string{}, doc.Tags...)
	d.Status = doc.Status
	d.UpdatedAt = doc.UpdatedAt
	m.docs[d.ID] = d
	return m.materialize(d), nil
}

func (m memDocs) ListByOwner(_ context.Context, ownerID string, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Document
	for _, d := range m.docs {
		if d.OwnerID != ownerID {
			continue
		}
		if f.Title != "" && !strings.Contains(strings.ToLower(d.Title), strings.ToLower(f.Title)) {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		all = append(all, *m.materialize(d))
	}
	sort.Slice(all, func(i, j int) bool {
		if pq.Descending {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	items := []model.Document{}
	for i := pq.Offset; i < len(all) && i < pq.Offset+pq.Limit; i++ {
		items = append(items, all[i])
	}
	return &repository.PageResult[model.Document]{Items: items, Total: len(all)}, nil
}

func (m memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	for vid, v := range m.versions {
		if v.DocumentID == id {
			delete(m.versions, vid)
		}
	}
	return nil
}

func (m memVersions) materialize(v model.FileVersion) *model.FileVersion {
	v.UploadedByUsername = m.users[v.UploadedBy].Username
	return &v
}

func (m memVersions) Create(_ context.Context, v *model.FileVersion) (*model.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failVersionCreate != nil {
		return nil, m.failVersionCreate
	}
	for _, existing := range m.versions {
		if existing.FileKey == v.FileKey {
			return nil, &repository.DuplicateError{Field: "file_key"}
		}
	}
	m.versions[v.ID] = *v
	return m.materialize(*v), nil
}

func (m memVersions) FindByID(_ context.Context, id string) (*model.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.materialize(v), nil
}

func (m memVersions) ListByDocument(_ context.Context, documentID string) ([]model.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.FileVersion{}
	for _, v := range m.versions {
		if v.DocumentID == documentID {
			out = append(out, *m.materialize(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m memVersions) FindLatestByDocument(ctx context.Context, documentID string) (*model.FileVersion, error) {
	all, _ := m.ListByDocument(ctx, documentID)
	if len(all) == 0 {
		return nil, repository.ErrNotFound
	}
	return &all[0], nil
}

func (m memVersions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.versions, id)
	return nil
}

func (m memVersions) FileKeyExists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.FileKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDB) versionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.versions)
}

// brokenCache fails every call.
type brokenCache struct{}

var errCacheDown = errors.New("cache unavailable")

func (brokenCache) Get(context.Context, string) (*model.Document, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, *model.Document) error          { return errCacheDown }
func (brokenCache) Evict(context.Context, string) error                 { return errCacheDown }
func (brokenCache) EvictAll(context.Context) error                      { return errCacheDown }

const testMaxUpload = 1024

type harness struct {
	db    *memDB
	root  string
	blobs storage.Storage
	cache *cache.DocumentCache
	docs  DocumentService
	files FileVersionService

	alice auth.Identity
	bob   auth.Identity
	admin auth.Identity
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	root := t.TempDir()
	blobs, err := storage.NewFilesystem(root)
	require.NoError(t, err)
	dc, err := cache.NewDocumentCache(cache.NewMemory(64, time.Minute), time.Minute, nil)
	require.NoError(t, err)

	log := logger.Nop()
	h := &harness{
		db:    db,
		root:  root,
		blobs: blobs,
		cache: dc,
		docs:  NewDocumentService(memDocs{db}, memUsers{db}, memVersions{db}, blobs, dc, log),
		files: NewFileVersionService(memDocs{db}, memVersions{db}, memUsers{db}, blobs, UploadPolicy{
			MaxSize:             testMaxUpload,
			AllowedContentTypes: []string{"application/pdf", "image/png", "image/jpeg"},
		}, log),
	}
	h.alice = h.addUser(t, "alice", model.RoleUser)
	h.bob = h.addUser(t, "bob", model.RoleUser)
	h.admin = h.addUser(t, "root", model.RoleAdmin)
	return h
}

func (h *harness) addUser(t *testing.T, name string, role model.Role) auth.Identity {
	t.Helper()
	u, err := memUsers{h.db}.Create(context.Background(), &model.User{
		ID:       "id-" + name,
		Username: name,
		Email:    name + "@x.com",
		Role:     role,
	})
	require.NoError(t, err)
	return auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (h *harness) createDoc(t *testing.T, owner auth.Identity, title string) *model.Document {
	t.Helper()
	doc, err := h.docs.Create(context.Background(), owner, CreateDocumentRequest{Title: title, Tags: []string{"b", "a", "a"}})
	require.NoError(t, err)
	return doc
}

func (h *harness) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(h.root)
	require.NoError(t, err)
	return len(entries)
}
