package usecase_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/usecase"
)

// MockSourceImporter is a mock of SourceImporter
type MockSourceImporter struct {
	mock.Mock
}

func (m *MockSourceImporter) ImportTrack(ctx context.Context, job domain.ImportJob) (int64, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSourceImporter) ImportPoi(ctx context.Context, job domain.ImportJob) (int64, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSourceImporter) ImportMedia(ctx context.Context, job domain.ImportJob) (int64, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSourceImporter) ListSourceIDs(ctx context.Context, endpoint string, featureType domain.FeatureType) ([]string, error) {
	args := m.Called(ctx, endpoint, featureType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// panickingImporter fails inside normalization
type panickingImporter struct {
	MockSourceImporter
}

func (p *panickingImporter) ImportPoi(context.Context, domain.ImportJob) (int64, error) {
	panic("nil map")
}

func TestImportUseCase_Dispatch(t *testing.T) {
	importer := new(MockSourceImporter)
	uc := usecase.NewImportUseCase(map[domain.Provider]usecase.SourceImporter{domain.ProviderSICAI: importer}, zap.NewNop())

	track := domain.ImportJob{Type: domain.FeatureTypeTrack, Endpoint: "sicai", Provider: domain.ProviderSICAI, SourceID: "6"}
	poi := domain.ImportJob{Type: domain.FeatureTypePOI, Endpoint: "sicai", Provider: domain.ProviderSICAI, SourceID: "3"}
	media := domain.ImportJob{Type: domain.FeatureTypeMedia, Endpoint: "sicai", Provider: domain.ProviderSICAI, SourceID: "9"}
	importer.On("ImportTrack", mock.Anything, track).Return(int64(1), nil)
	importer.On("ImportPoi", mock.Anything, poi).Return(int64(2), nil)
	importer.On("ImportMedia", mock.Anything, media).Return(int64(3), nil)

	for job, want := range map[domain.ImportJob]int64{track: 1, poi: 2, media: 3} {
		id, err := uc.Import(context.Background(), job)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	importer.AssertExpectations(t)
}

func TestImportUseCase_Failures(t *testing.T) {
	importer := new(MockSourceImporter)
	uc := usecase.NewImportUseCase(map[domain.Provider]usecase.SourceImporter{
		domain.ProviderWP:    importer,
		domain.ProviderSICAI: &panickingImporter{},
	}, zap.NewNop())

	notFound := domain.ImportJob{Type: domain.FeatureTypeTrack, Endpoint: "https://wp.example.org", Provider: domain.ProviderWP, SourceID: "404"}
	importer.On("ImportTrack", mock.Anything, notFound).Return(int64(0), errors.ErrSourceNotFound)

	tests := []struct {
		name     string
		job      domain.ImportJob
		expected error
	}{
		{"not found", notFound, errors.ErrSourceNotFound},
		{"unknown provider", domain.ImportJob{Type: domain.FeatureTypePOI, Endpoint: "e", Provider: "OSM", SourceID: "1"}, errors.ErrUnsupportedProvider},
		{"unknown type", domain.ImportJob{Type: "route", Endpoint: "e", Provider: domain.ProviderWP, SourceID: "1"}, errors.ErrUnsupportedType},
		{"missing source id", domain.ImportJob{Type: domain.FeatureTypePOI, Endpoint: "e", Provider: domain.ProviderWP}, errors.ErrInvalidRequest},
		{"panic in normalizer", domain.ImportJob{Type: domain.FeatureTypePOI, Endpoint: "sicai", Provider: domain.ProviderSICAI, SourceID: "3"}, errors.ErrTagNormalization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := uc.Import(context.Background(), tt.job)
			assert.Zero(t, id)
			assert.ErrorIs(t, err, tt.expected)

			var importErr *usecase.ImportError
			require.True(t, stderrors.As(err, &importErr))
			assert.Equal(t, tt.job.SourceID, importErr.SourceID)
			assert.Equal(t, tt.job.Endpoint, importErr.Endpoint)
		})
	}
}

func TestBatchUseCase_CollectsFailures(t *testing.T) {
	importer := new(MockSourceImporter)
	uc := usecase.NewImportUseCase(map[domain.Provider]usecase.SourceImporter{domain.ProviderSICAI: importer}, zap.NewNop())
	batch := usecase.NewBatchUseCase(uc, nil, 3, zap.NewNop())

	ids := []string{"1", "2", "3", "4", "5", "6"}
	for i, id := range ids {
		job := domain.ImportJob{Type: domain.FeatureTypePOI, Endpoint: "sicai", Provider: domain.ProviderSICAI, SourceID: id}
		if id == "2" || id == "5" {
			importer.On("ImportPoi", mock.Anything, job).Return(int64(0), errors.ErrGeometryTransform.Wrap(fmt.Errorf("bad %s", id)))
			continue
		}
		importer.On("ImportPoi", mock.Anything, job).Return(int64(100+i), nil)
	}

	result, err := batch.ImportMany(context.Background(), usecase.BatchRequest{
		Type:      domain.FeatureTypePOI,
		Endpoint:  "sicai",
		Provider:  domain.ProviderSICAI,
		SourceIDs: ids,
	})
	require.NoError(t, err)

	failed := result.FailedIDs()
	sort.Strings(failed)
	assert.Equal(t, []string{"2", "5"}, failed)
	assert.Len(t, result.Imported, 4)
	assert.Equal(t, int64(100), result.Imported["1"])
	for _, f := range result.Failed {
		assert.ErrorIs(t, f, errors.ErrGeometryTransform)
	}
}

// countingImporter tracks how many imports run at once
type countingImporter struct {
	MockSourceImporter
	mu      sync.Mutex
	running int
	max     int
	release chan struct{}
}

func (c *countingImporter) ImportTrack(ctx context.Context, job domain.ImportJob) (int64, error) {
	c.mu.Lock()
	c.running++
	if c.running > c.max {
		c.max = c.running
	}
	c.mu.Unlock()

	<-c.release

	c.mu.Lock()
	c.running--
	c.mu.Unlock()
	return 1, nil
}

func TestBatchUseCase_RespectsConcurrency(t *testing.T) {
	importer := &countingImporter{release: make(chan struct{})}
	uc := usecase.NewImportUseCase(map[domain.Provider]usecase.SourceImporter{domain.ProviderWP: importer}, zap.NewNop())
	batch := usecase.NewBatchUseCase(uc, nil, 2, zap.NewNop())

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}

	done := make(chan *usecase.BatchResult)
	go func() {
		result, _ := batch.ImportMany(context.Background(), usecase.BatchRequest{
			Type: domain.FeatureTypeTrack, Endpoint: "e", Provider: domain.ProviderWP, SourceIDs: ids,
		})
		done <- result
	}()

	for range ids {
		importer.release <- struct{}{}
	}
	result := <-done

	assert.Len(t, result.Imported, 10)
	assert.LessOrEqual(t, importer.max, 2)
}

func TestBatchUseCase_ImportAll(t *testing.T) {
	importer := new(MockSourceImporter)
	uc := usecase.NewImportUseCase(map[domain.Provider]usecase.SourceImporter{domain.ProviderSICAI: importer}, zap.NewNop())
	batch := usecase.NewBatchUseCase(uc, nil, 4, zap.NewNop())

	importer.On("ListSourceIDs", mock.Anything, "sicai", domain.FeatureTypeTrack).Return([]string{"6", "7"}, nil)
	importer.On("ImportTrack", mock.Anything, mock.AnythingOfType("domain.ImportJob")).Return(int64(1), nil)

	result, err := batch.ImportAll(context.Background(), domain.ProviderSICAI, "sicai", domain.FeatureTypeTrack)
	require.NoError(t, err)
	assert.Len(t, result.Imported, 2)
	assert.Empty(t, result.Failed)
	importer.AssertNumberOfCalls(t, "ImportTrack", 2)
}

func TestBatchUseCase_ImportAllUnknownProvider(t *testing.T) {
	uc := usecase.NewImportUseCase(map[domain.Provider]usecase.SourceImporter{}, zap.NewNop())
	batch := usecase.NewBatchUseCase(uc, nil, 4, zap.NewNop())

	_, err := batch.ImportAll(context.Background(), domain.ProviderWP, "e", domain.FeatureTypePOI)
	assert.ErrorIs(t, err, errors.ErrUnsupportedProvider)
}

func TestBatchUseCase_Reimport(t *testing.T) {
	env := newImportEnv(t)
	ctx := context.Background()
	_, err := env.store.Upsert(ctx, domain.FeatureKey{SourceID: "3", Endpoint: "sicai"}, domain.FeatureParams{Type: domain.FeatureTypePOI})
	require.NoError(t, err)
	_, err = env.store.Upsert(ctx, domain.FeatureKey{SourceID: "3000", Endpoint: "sicai"}, domain.FeatureParams{Type: domain.FeatureTypeMedia})
	require.NoError(t, err)

	importer := new(MockSourceImporter)
	job := domain.ImportJob{Type: domain.FeatureTypePOI, Endpoint: "sicai", Provider: domain.ProviderSICAI, SourceID: "3"}
	importer.On("ImportPoi", mock.Anything, job).Return(int64(1), nil)

	uc := usecase.NewImportUseCase(map[domain.Provider]usecase.SourceImporter{domain.ProviderSICAI: importer}, zap.NewNop())
	result, err := usecase.NewBatchUseCase(uc, env.store, 2, zap.NewNop()).
		Reimport(ctx, domain.ProviderSICAI, "sicai", domain.FeatureTypePOI)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"3": 1}, result.Imported)
	importer.AssertExpectations(t)
}
