package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockCatalogService[T any] struct {
	mock.Mock
}

func (m *MockCatalogService[T]) List(ctx context.Context, department string) ([]T, error) {
	args := m.Called(ctx, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockCatalogService[T]) Get(ctx context.Context, department, id string) (*T, error) {
	args := m.Called(ctx, department, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockCatalogService[T]) Create(ctx context.Context, department string, item *T) (*T, error) {
	args := m.Called(ctx, department, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockCatalogService[T]) Update(ctx context.Context, department, id string, item *T) (*T, error) {
	args := m.Called(ctx, department, id, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockCatalogService[T]) Delete(ctx context.Context, department, id string) error {
	args := m.Called(ctx, department, id)
	return args.Error(0)
}
