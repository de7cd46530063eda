package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/geometry"
	"github.com/outsource-importer/internal/infrastructure/storage"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/usecase"
)

// memFeatureRepository is an in-memory FeatureRepository with full-overwrite upsert
type memFeatureRepository struct {
	mu       sync.Mutex
	nextID   int64
	features map[domain.FeatureKey]*domain.OutSourceFeature
	upserts  int
}

func newMemFeatureRepository() *memFeatureRepository {
	return &memFeatureRepository{features: make(map[domain.FeatureKey]*domain.OutSourceFeature)}
}

func (r *memFeatureRepository) Upsert(_ context.Context, sourceID, endpoint string, params domain.FeatureParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upserts++
	key := domain.FeatureKey{SourceID: sourceID, Endpoint: endpoint}
	f, ok := r.features[key]
	if !ok {
		r.nextID++
		f = &domain.OutSourceFeature{ID: r.nextID, SourceID: sourceID, Endpoint: endpoint, CreatedAt: time.Now()}
		r.features[key] = f
	}
	f.Type = params.Type
	f.Provider = params.Provider
	f.Geometry = params.Geometry
	f.RawData = params.RawData
	f.Tags = params.Tags.Clone()
	f.UpdatedAt = time.Now()
	return f.ID, nil
}

func (r *memFeatureRepository) GetByKey(_ context.Context, sourceID, endpoint string) (*domain.OutSourceFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.features[domain.FeatureKey{SourceID: sourceID, Endpoint: endpoint}]
	if !ok {
		return nil, errors.ErrFeatureNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFeatureRepository) GetByID(_ context.Context, id int64) (*domain.OutSourceFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.features {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, errors.ErrFeatureNotFound
}

func (r *memFeatureRepository) ListSourceIDs(_ context.Context, endpoint string, types ...domain.FeatureType) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for key, f := range r.features {
		if key.Endpoint != endpoint {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, f.Type) {
			continue
		}
		ids = append(ids, key.SourceID)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *memFeatureRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.features)
}

// stubDownloader serves fixed bodies by URL; unknown URLs fail
type stubDownloader struct {
	mu        sync.Mutex
	bodies    map[string][]byte
	requested []string
}

func (d *stubDownloader) Download(_ context.Context, rawURL string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requested = append(d.requested, rawURL)
	if body, ok := d.bodies[rawURL]; ok {
		return body, nil
	}
	return nil, errors.ErrMediaFetch.Wrap(fmt.Errorf("unexpected status 404 for %s", rawURL))
}

// MockSICAIRepository is a mock of SICAIRepository
type MockSICAIRepository struct {
	mock.Mock
}

func (m *MockSICAIRepository) GetTrack(ctx context.Context, sourceID string) (*repository.SourceRow, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SourceRow), args.Error(1)
}

func (m *MockSICAIRepository) GetPoi(ctx context.Context, sourceID string) (*repository.SourceRow, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SourceRow), args.Error(1)
}

func (m *MockSICAIRepository) ListIDs(ctx context.Context, featureType domain.FeatureType) ([]string, error) {
	args := m.Called(ctx, featureType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockWordPressRepository is a mock of WordPressRepository
type MockWordPressRepository struct {
	mock.Mock
}

func (m *MockWordPressRepository) GetRecord(ctx context.Context, endpoint, resource, id string) (json.RawMessage, error) {
	args := m.Called(ctx, endpoint, resource, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockWordPressRepository) GetURL(ctx context.Context, rawURL string) (json.RawMessage, error) {
	args := m.Called(ctx, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockWordPressRepository) ListCollection(ctx context.Context, endpoint, resource string) ([]json.RawMessage, error) {
	args := m.Called(ctx, endpoint, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]json.RawMessage), args.Error(1)
}

// importEnv wires the use cases over in-memory collaborators
type importEnv struct {
	repo       *memFeatureRepository
	disk       repository.BlobStorage
	downloader *stubDownloader
	store      *usecase.FeatureStore
	media      *usecase.MediaUseCase
	geometry   repository.GeometryExtractor
	logger     *zap.Logger
}

func newImportEnv(t *testing.T) *importEnv {
	t.Helper()

	logger := zap.NewNop()
	disk, err := storage.NewLocalDisk(afero.NewMemMapFs(), "/media", logger)
	require.NoError(t, err)

	env := &importEnv{
		repo:       newMemFeatureRepository(),
		disk:       disk,
		downloader: &stubDownloader{bodies: map[string][]byte{}},
		geometry:   geometry.NewExtractor(geometry.SRIDWGS84, logger),
		logger:     logger,
	}
	env.store = usecase.NewFeatureStore(env.repo, nil, time.Minute, logger)
	env.media = usecase.NewMediaUseCase(env.store, env.disk, env.downloader, time.Second, logger)
	return env
}

func (e *importEnv) feature(t *testing.T, sourceID, endpoint string) *domain.OutSourceFeature {
	t.Helper()
	f, err := e.repo.GetByKey(context.Background(), sourceID, endpoint)
	require.NoError(t, err)
	return f
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}
