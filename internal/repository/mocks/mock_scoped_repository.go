package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockScopedRepository[T any] struct {
	mock.Mock
}

func (m *MockScopedRepository[T]) Create(ctx context.Context, item *T) (*T, error) {
	args := m.Called(ctx, item)
	if f, ok := args.Get(0).(func(context.Context, *T) *T); ok {
		return f(ctx, item), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockScopedRepository[T]) FindByID(ctx context.Context, department, id string) (*T, error) {
	args := m.Called(ctx, department, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockScopedRepository[T]) List(ctx context.Context, department string) ([]T, error) {
	args := m.Called(ctx, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockScopedRepository[T]) Update(ctx context.Context, item *T) (*T, error) {
	args := m.Called(ctx, item)
	if f, ok := args.Get(0).(func(context.Context, *T) *T); ok {
		return f(ctx, item), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockScopedRepository[T]) Delete(ctx context.Context, department, id string) error {
	args := m.Called(ctx, department, id)
	return args.Error(0)
}
