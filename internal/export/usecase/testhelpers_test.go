// Shared mocks for the export usecase tests.
package usecase

import (
	"context"
	"errors"
	"sync"

	"verified-export/internal/export/domain/model"
	"verified-export/internal/export/domain/repository"
	apperrors "verified-export/internal/shared/errors"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
)

// recordSourceMock serves in-memory collections; the Fn fields override single calls.
type recordSourceMock struct {
	Collections       []string
	Records           map[string][]bson.D
	FailStream        map[string]error
	ListCollectionsFn func(ctx context.Context) ([]string, error)
	StreamVerifiedFn  func(ctx context.Context, collection string, fn repository.RecordHandler) error

	mu      sync.Mutex
	queried []string
}

func (m *recordSourceMock) ListCollections(ctx context.Context) ([]string, error) {
	if m.ListCollectionsFn != nil {
		return m.ListCollectionsFn(ctx)
	}
	return m.Collections, nil
}

// StreamVerified applies the verified == true filter to the in-memory records.
func (m *recordSourceMock) StreamVerified(ctx context.Context, collection string, fn repository.RecordHandler) error {
	m.mu.Lock()
	m.queried = append(m.queried, collection)
	m.mu.Unlock()

	if m.StreamVerifiedFn != nil {
		return m.StreamVerifiedFn(ctx, collection, fn)
	}
	if err := m.FailStream[collection]; err != nil {
		return err
	}
	for _, doc := range m.Records[collection] {
		rec, err := toRecord(doc)
		if err != nil {
			return err
		}
		if !rec.IsVerified() {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *recordSourceMock) Queried() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queried...)
}

func toRecord(doc bson.D) (*model.Record, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var rec model.Record
	if err := bson.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// memorySink keeps committed files in memory.
type memorySink struct {
	Files     map[string][][]string
	Discarded []string
	// FailCreate, FailWriteAfter and FailCommit inject errors per collection.
	FailCreate     map[string]error
	FailWriteAfter map[string]int
	FailCommit     map[string]error
	CloseCalls     int
}

func newMemorySink() *memorySink {
	return &memorySink{
		Files:          map[string][][]string{},
		FailCreate:     map[string]error{},
		FailWriteAfter: map[string]int{},
		FailCommit:     map[string]error{},
	}
}

func (s *memorySink) Create(collection string) (repository.RowWriter, error) {
	if err := s.FailCreate[collection]; err != nil {
		return nil, err
	}
	limit, hasLimit := s.FailWriteAfter[collection]
	return &memoryWriter{sink: s, collection: collection, limit: limit, hasLimit: hasLimit}, nil
}

type memoryWriter struct {
	sink       *memorySink
	collection string
	lines      [][]string
	limit      int
	hasLimit   bool
	written    int
	committed  bool
	closed     bool
}

func (w *memoryWriter) WriteHeader() error {
	w.lines = append(w.lines, model.CSVHeader)
	return nil
}

func (w *memoryWriter) Write(row model.Row) error {
	if w.hasLimit && w.written >= w.limit {
		return apperrors.NewFileIOError(w.collection, "failed to write row").WithCause(errors.New("disk full"))
	}
	w.lines = append(w.lines, row.Strings())
	w.written++
	return nil
}

func (w *memoryWriter) Commit() error {
	if err := w.sink.FailCommit[w.collection]; err != nil {
		return err
	}
	w.committed = true
	w.sink.Files[w.collection] = w.lines
	return nil
}

func (w *memoryWriter) Close() error {
	w.sink.CloseCalls++
	if !w.committed && !w.closed {
		w.sink.Discarded = append(w.sink.Discarded, w.collection)
	}
	w.closed = true
	return nil
}

func (w *memoryWriter) Path() string {
	return w.collection + ".csv"
}

// MockPublisher is a testify mock of repository.EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event model.ExportEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
