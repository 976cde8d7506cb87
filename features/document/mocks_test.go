package document_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"minirag/backend/features/document"
)

type MockIngester struct{ mock.Mock }

func (m *MockIngester) Ingest(ctx context.Context, text, documentID string) (int, error) {
	args := m.Called(ctx, text, documentID)
	return args.Int(0), args.Error(1)
}

type MockRepo struct{ mock.Mock }

func (m *MockRepo) Upsert(ctx context.Context, doc *document.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockRepo) List(ctx context.Context) ([]document.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

type MockObserver struct{ mock.Mock }

func (m *MockObserver) ObserveIngest(chunks int, err error) {
	m.Called(chunks, err)
}
