package mocks

import (
	"context"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockFileVersionRepository struct {
	mock.Mock
}

func (m *MockFileVersionRepository) Create(ctx context.Context, v *model.FileVersion) (*model.FileVersion, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileVersion), args.Error(1)
}

func (m *MockFileVersionRepository) FindByID(ctx context.Context, id string) (*model.FileVersion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileVersion), args.Error(1)
}

func (m *MockFileVersionRepository) FindLatestByDocument(ctx context.Context, documentID string) (*model.FileVersion, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileVersion), args.Error(1)
}

func (m *MockFileVersionRepository) ListByDocument(ctx context.Context, documentID string) ([]model.FileVersion, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileVersion), args.Error(1)
}

func (m *MockFileVersionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFileVersionRepository) FileKeyExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
