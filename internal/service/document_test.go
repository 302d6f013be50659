package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/auth"
	"docvault/internal/cache"
	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	repoMocks "docvault/internal/repository/mocks"
	storeMocks "docvault/internal/storage/mocks"
)

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	alice := auth.Identity{UserID: "u1", Username: "alice", Role: model.RoleUser}
	bob := auth.Identity{UserID: "u2", Username: "bob", Role: model.RoleUser}
	admin := auth.Identity{UserID: "u3", Username: "root", Role: model.RoleAdmin}
	stored := &model.Document{ID: "d1", Title: "Report", OwnerID: "u1", OwnerUsername: "alice", Status: model.StatusDraft, Tags: []string{}}

	tests := []struct {
		name       string
		caller     auth.Identity
		primed     bool
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    any
	}{
		{
			name:   "cache miss loads and authorizes",
			caller: alice,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "d1").Return(stored, nil).Once()
			},
		},
		{
			name:       "cache hit skips the repository",
			caller:     alice,
			primed:     true,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
		},
		{
			name:       "cache hit still checks the owner",
			caller:     bob,
			primed:     true,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    &UnauthorizedError{},
		},
		{
			name:       "admin reads any document",
			caller:     admin,
			primed:     true,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
		},
		{
			name:   "not found",
			caller: alice,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "d1").Return(nil, repository.ErrNotFound)
			},
			wantErr: &NotFoundError{},
		},
		{
			name:   "non-owner on miss",
			caller: bob,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "d1").Return(stored, nil)
			},
			wantErr: &UnauthorizedError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			dc, err := cache.NewDocumentCache(cache.NewMemory(8, time.Minute), time.Minute, nil)
			require.NoError(t, err)
			if tt.primed {
				require.NoError(t, dc.Set(ctx, stored))
			}
			tt.setupMocks(mRepo)

			svc := NewDocumentService(mRepo, nil, nil, nil, dc, logger.Nop())
			doc, err := svc.Get(ctx, tt.caller, "d1")

			switch want := tt.wantErr.(type) {
			case *UnauthorizedError:
				assert.ErrorAs(t, err, &want)
				assert.Nil(t, doc)
			case *NotFoundError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, ResourceDocument, want.Resource)
			default:
				require.NoError(t, err)
				assert.Equal(t, "Report", doc.Title)
				_, err := dc.Get(ctx, "d1")
				assert.NoError(t, err, "document should be cached after a successful read")
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	alice := auth.Identity{UserID: "u1", Username: "alice", Role: model.RoleUser}

	tests := []struct {
		name       string
		filter     ListFilter
		page       PageRequest
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    string
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name: "defaults",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("ListByOwner", ctx, "u1", repository.DocumentFilter{},
					repository.PageQuery{Limit: 10, Offset: 0, SortColumn: repository.SortCreatedAt, Descending: true}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{{ID: "1"}, {ID: "2"}}, Total: 12}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Len(t, res.Items, 2)
				assert.Equal(t, 12, res.Total)
				assert.Equal(t, 2, res.TotalPages)
				assert.Equal(t, 10, res.Size)
			},
		},
		{
			name:   "title and status with custom sort",
			filter: ListFilter{Title: " plan ", Status: "published"},
			page:   PageRequest{Page: 2, Size: 500, Sort: "title", Direction: "asc"},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("ListByOwner", ctx, "u1",
					repository.DocumentFilter{Title: "plan", Status: model.StatusPublished},
					repository.PageQuery{Limit: 100, Offset: 200, SortColumn: repository.SortTitle}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 2, res.Page)
				assert.Equal(t, 100, res.Size)
				assert.Equal(t, 0, res.TotalPages)
			},
		},
		{
			name:       "bad status",
			filter:     ListFilter{Status: "deleted"},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    "status",
		},
		{
			name:       "bad sort",
			page:       PageRequest{Sort: "owner_id"},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    "sort",
		},
		{
			name:       "bad direction",
			page:       PageRequest{Direction: "sideways"},
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    "direction",
		},
		{
			name: "repository error",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("ListByOwner", ctx, "u1", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: "db fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			tt.setupMocks(mRepo)
			svc := NewDocumentService(mRepo, nil, nil, nil, brokenCache{}, logger.Nop())

			res, err := svc.List(ctx, alice, tt.filter, tt.page)

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				tt.checkRes(t, res)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_ListRequiresIdentity(t *testing.T) {
	svc := NewDocumentService(new(repoMocks.MockDocumentRepository), nil, nil, nil, brokenCache{}, logger.Nop())
	_, err := svc.List(context.Background(), auth.Identity{}, ListFilter{}, PageRequest{})
	var ue *UnauthorizedError
	assert.ErrorAs(t, err, &ue)
}

func TestDocumentService_ListNeverLeaksOtherUsersDocuments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.createDoc(t, h.alice, "alice one")
	h.createDoc(t, h.alice, "alice two")
	mine := h.createDoc(t, h.bob, "bob one")

	res, err := h.docs.List(ctx, h.bob, ListFilter{}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, mine.ID, res.Items[0].ID)

	// admins are scoped to their own documents too
	res, err = h.docs.List(ctx, h.admin, ListFilter{}, PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.Total)

	res, err = h.docs.List(ctx, h.alice, ListFilter{Title: "TWO"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "alice two", res.Items[0].Title)
}

func TestDocumentService_Create(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := h.createDoc(t, h.alice, "  Quarterly report ")
	assert.Equal(t, "Quarterly report", doc.Title)
	assert.Equal(t, model.StatusDraft, doc.Status)
	assert.Equal(t, "alice", doc.OwnerUsername)
	assert.Equal(t, []string{"a", "b"}, doc.Tags)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

	_, err := h.docs.Create(ctx, h.alice, CreateDocumentRequest{Title: "   "})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)

	_, err = h.docs.Create(ctx, auth.Identity{}, CreateDocumentRequest{Title: "x"})
	var ue *UnauthorizedError
	assert.ErrorAs(t, err, &ue)
}

func TestDocumentService_CreateEvictsCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.createDoc(t, h.alice, "first")
	_, err := h.docs.Get(ctx, h.alice, first.ID)
	require.NoError(t, err)
	_, err = h.cache.Get(ctx, first.ID)
	require.NoError(t, err)

	h.createDoc(t, h.alice, "second")

	_, err = h.cache.Get(ctx, first.ID)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestDocumentService_UpdateWritesThrough(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := h.createDoc(t, h.alice, "draft title")
	_, err := h.docs.Get(ctx, h.alice, doc.ID)
	require.NoError(t, err)

	updated, err := h.docs.Update(ctx, h.alice, doc.ID, UpdateDocumentRequest{
		Title:       "final title",
		Description: "done",
		Tags:        []string{"z"},
	})
	require.NoError(t, err)
	assert.Equal(t, "final title", updated.Title)
	assert.True(t, updated.UpdatedAt.After(doc.UpdatedAt))
	assert.Equal(t, doc.CreatedAt, updated.CreatedAt)
	assert.Equal(t, doc.OwnerID, updated.OwnerID)

	cached, err := h.cache.Get(ctx, doc.ID)
	require.NoError(t, err, "updated document should be written through to the cache")
	assert.Equal(t, "final title", cached.Title)
	assert.Equal(t, []string{"z"}, cached.Tags)

	_, err = h.docs.Update(ctx, h.bob, doc.ID, UpdateDocumentRequest{Title: "hijack"})
	var ue *UnauthorizedError
	assert.ErrorAs(t, err, &ue)

	got, err := h.docs.Get(ctx, h.alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "final title", got.Title)
}

func TestDocumentService_ChangeStatusIsVisibleToGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := h.createDoc(t, h.alice, "announcement")
	// prime the cache with the DRAFT view
	got, err := h.docs.Get(ctx, h.alice, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDraft, got.Status)

	changed, err := h.docs.ChangeStatus(ctx, h.alice, doc.ID, model.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, changed.Status)

	got, err = h.docs.Get(ctx, h.alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, got.Status)

	// any state may move to any other
	_, err = h.docs.ChangeStatus(ctx, h.alice, doc.ID, model.StatusArchived)
	require.NoError(t, err)
	_, err = h.docs.ChangeStatus(ctx, h.alice, doc.ID, model.StatusDraft)
	require.NoError(t, err)

	_, err = h.docs.ChangeStatus(ctx, h.alice, doc.ID, model.Status("DELETED"))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = h.docs.ChangeStatus(ctx, h.bob, doc.ID, model.StatusPublished)
	var ue *UnauthorizedError
	assert.ErrorAs(t, err, &ue)
}

func TestDocumentService_DeleteByNonOwnerChangesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := h.createDoc(t, h.alice, "private")
	_, err := h.files.Upload(ctx, h.alice, doc.ID, pdfUpload("v1"))
	require.NoError(t, err)

	err = h.docs.Delete(ctx, h.bob, doc.ID)
	var ue *UnauthorizedError
	require.ErrorAs(t, err, &ue)

	still, err := h.docs.Get(ctx, h.alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, still.Title)
	history, err := h.files.History(ctx, h.alice, doc.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 1, h.blobCount(t))
}

func TestDocumentService_DeleteRemovesVersionsAndBlobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	doc := h.createDoc(t, h.alice, "to delete")
	for _, body := range []string{"one", "two"} {
		_, err := h.files.Upload(ctx, h.alice, doc.ID, pdfUpload(body))
		require.NoError(t, err)
	}
	_, err := h.docs.Get(ctx, h.alice, doc.ID)
	require.NoError(t, err)

	// admins may delete any document
	require.NoError(t, h.docs.Delete(ctx, h.admin, doc.ID))

	_, err = h.docs.Get(ctx, h.alice, doc.ID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, 0, h.db.versionCount())
	assert.Equal(t, 0, h.blobCount(t))
}

func TestDocumentService_DeleteToleratesBlobFailures(t *testing.T) {
	db := newMemDB()
	ctx := context.Background()
	alice := auth.Identity{UserID: "u1", Username: "alice", Role: model.RoleUser}
	db.users["u1"] = model.User{ID: "u1", Username: "alice"}
	db.docs["d1"] = model.Document{ID: "d1", OwnerID: "u1", Status: model.StatusDraft}
	db.versions["v1"] = model.FileVersion{ID: "v1", DocumentID: "d1", FileKey: "k1", UploadedBy: "u1"}

	mStore := new(storeMocks.MockStorage)
	mStore.On("Delete", ctx, "k1").Return(errors.New("permission denied"))

	svc := NewDocumentService(memDocs{db}, memUsers{db}, memVersions{db}, mStore, brokenCache{}, logger.Nop())
	require.NoError(t, svc.Delete(ctx, alice, "d1"))

	assert.Empty(t, db.docs)
	assert.Empty(t, db.versions)
	mStore.AssertExpectations(t)
}

func TestDocumentService_CacheFailuresAreNotFatal(t *testing.T) {
	db := newMemDB()
	ctx := context.Background()
	alice := auth.Identity{UserID: "u1", Username: "alice", Role: model.RoleUser}
	db.users["u1"] = model.User{ID: "u1", Username: "alice"}

	svc := NewDocumentService(memDocs{db}, memUsers{db}, memVersions{db}, nil, brokenCache{}, logger.Nop())

	doc, err := svc.Create(ctx, alice, CreateDocumentRequest{Title: "t"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, alice, doc.ID)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, alice, doc.ID, model.StatusArchived)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, alice, doc.ID))
}

func TestDocumentService_CallerWithoutUserID(t *testing.T) {
	h := newHarness(t)
	byName := auth.Identity{Username: "alice", Role: model.RoleUser}

	doc, err := h.docs.Create(context.Background(), byName, CreateDocumentRequest{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, h.alice.UserID, doc.OwnerID)
}
