package mocks

import (
	"context"

	"docvault/internal/auth"
	"docvault/internal/model"
	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, caller auth.Identity, req service.CreateDocumentRequest) (*model.Document, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, caller auth.Identity, id string) (*model.Document, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, caller auth.Identity, f service.ListFilter, p service.PageRequest) (*service.DocumentListResult, error) {
	args := m.Called(ctx, caller, f, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, caller auth.Identity, id string, req service.UpdateDocumentRequest) (*model.Document, error) {
	args := m.Called(ctx, caller, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

func (m *MockDocumentService) ChangeStatus(ctx context.Context, caller auth.Identity, id string, status model.Status) (*model.Document, error) {
	args := m.Called(ctx, caller, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}
