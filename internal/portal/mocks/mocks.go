package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"timetabledocs/internal/client"
	"timetabledocs/internal/model"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, in client.UploadRequest) (*model.UploadResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadResult), args.Error(1)
}

type MockLister struct {
	mock.Mock
}

func (m *MockLister) List(ctx context.Context, token string) ([]model.DocumentView, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentView), args.Error(1)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*model.AdminToken, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminToken), args.Error(1)
}

type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(url string) error {
	args := m.Called(url)
	return args.Error(0)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

type MockClipboard struct {
	mock.Mock
}

func (m *MockClipboard) WriteText(text string) error {
	args := m.Called(text)
	return args.Error(0)
}
