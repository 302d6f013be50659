package mocks

import (
	"context"
	"io"

	"docvault/internal/auth"
	"docvault/internal/model"
	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockFileVersionService struct {
	mock.Mock
}

func (m *MockFileVersionService) Upload(ctx context.Context, caller auth.Identity, documentID string, in service.UploadInput) (*model.FileVersion, error) {
	args := m.Called(ctx, caller, documentID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileVersion), args.Error(1)
}

func (m *MockFileVersionService) Latest(ctx context.Context, caller auth.Identity, documentID string) (*model.FileVersion, error) {
	args := m.Called(ctx, caller, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileVersion), args.Error(1)
}

func (m *MockFileVersionService) History(ctx context.Context, caller auth.Identity, documentID string) ([]model.FileVersion, error) {
	args := m.Called(ctx, caller, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileVersion), args.Error(1)
}

func (m *MockFileVersionService) Download(ctx context.Context, caller auth.Identity, versionID string) (io.ReadCloser, *model.FileVersion, error) {
	args := m.Called(ctx, caller, versionID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.FileVersion), args.Error(2)
}

func (m *MockFileVersionService) DeleteVersion(ctx context.Context, caller auth.Identity, versionID string) error {
	args := m.Called(ctx, caller, versionID)
	return args.Error(0)
}
