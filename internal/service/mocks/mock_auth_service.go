package mocks

import (
	"context"

	"docvault/internal/auth"
	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req service.LoginRequest) (*service.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResponse), args.Error(1)
}

func (m *MockAuthService) ResolveIdentity(ctx context.Context, username string) (auth.Identity, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockAuthService) EnsureAdmin(ctx context.Context, req service.RegisterRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
