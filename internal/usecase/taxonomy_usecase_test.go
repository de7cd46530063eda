package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/infrastructure/storage"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/usecase"
)

const stelvio = "https://stelvio.wp.webmapp.it"

func newTaxonomyUseCase(t *testing.T, wp repository.WordPressRepository) (*usecase.TaxonomyMappingUseCase, repository.BlobStorage, repository.BlobStorage) {
	t.Helper()
	logger := zap.NewNop()
	fs := afero.NewMemMapFs()
	csvDisk, err := storage.NewLocalDisk(fs, "/csv", logger)
	require.NoError(t, err)
	mappingDisk, err := storage.NewLocalDisk(fs, "/mapping", logger)
	require.NoError(t, err)
	return usecase.NewTaxonomyMappingUseCase(wp, csvDisk, mappingDisk, "", time.Second, logger), csvDisk, mappingDisk
}

func readMapping(t *testing.T, disk repository.BlobStorage, name string) domain.TaxonomyMappingDocument {
	t.Helper()
	data, err := disk.Get(context.Background(), name)
	require.NoError(t, err)
	var doc domain.TaxonomyMappingDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestTaxonomyMapping_WPCategories(t *testing.T) {
	wp := new(MockWordPressRepository)
	wp.On("ListCollection", mock.Anything, stelvio, "webmapp_category").Return([]json.RawMessage{
		raw(`{"id":5,"name":"Rifugi","description":"Rifugi alpini","wpml_current_locale":"it_IT",
			"wpml_translations":[{"locale":"de_DE","name":"Hütten","source":"https://stelvio.wp.webmapp.it/wp-json/wp/v2/webmapp_category/15"}]}`),
		raw(`{"id":6,"name":"Fontane","description":"","wpml_current_locale":"it_IT","wpml_translations":[]}`),
	}, nil)
	wp.On("GetURL", mock.Anything, "https://stelvio.wp.webmapp.it/wp-json/wp/v2/webmapp_category/15").
		Return(raw(`{"id":15,"description":"Alpenhütten"}`), nil)

	uc, _, mappingDisk := newTaxonomyUseCase(t, wp)
	result, err := uc.Build(context.Background(), usecase.TaxonomyRequest{Endpoint: stelvio, Provider: "WP", PoiType: true})
	require.NoError(t, err)

	assert.Equal(t, "stelvio-wp-webmapp-it.json", result.FileName)
	assert.Equal(t, usecase.TaxonomyStateDone, result.State)

	doc := readMapping(t, mappingDisk, "stelvio-wp-webmapp-it.json")
	require.Len(t, doc, 1)
	entries := doc[0][domain.TaxonomyWebmappCategory]
	require.Len(t, entries, 2)

	assert.Equal(t, int64(5), entries[0].SourceID)
	assert.Equal(t, domain.LocaleText{"it": "Rifugi", "de": "Hütten"}, entries[0].SourceTitle)
	assert.Equal(t, domain.LocaleText{"it": "Rifugi alpini", "de": "Alpenhütten"}, entries[0].SourceDescription)
	assert.Empty(t, entries[0].GeohubIdentifier)
	assert.Equal(t, domain.LocaleText{"it": "Fontane"}, entries[1].SourceTitle)

	wp.AssertNotCalled(t, "ListCollection", mock.Anything, stelvio, "activity")
}

func TestTaxonomyMapping_NoFlagsBuildsBothKinds(t *testing.T) {
	wp := new(MockWordPressRepository)
	wp.On("ListCollection", mock.Anything, stelvio, "webmapp_category").Return([]json.RawMessage{}, nil)
	wp.On("ListCollection", mock.Anything, stelvio, "activity").
		Return([]json.RawMessage{raw(`{"id":1,"name":"Hiking","wpml_current_locale":"en_US"}`)}, nil)

	uc, _, mappingDisk := newTaxonomyUseCase(t, wp)
	_, err := uc.Build(context.Background(), usecase.TaxonomyRequest{Endpoint: stelvio, Provider: "wp"})
	require.NoError(t, err)

	doc := readMapping(t, mappingDisk, "stelvio-wp-webmapp-it.json")
	require.Len(t, doc, 2)
	assert.Contains(t, doc[0], domain.TaxonomyWebmappCategory)
	assert.Empty(t, doc[0][domain.TaxonomyWebmappCategory])
	assert.Equal(t, domain.LocaleText{"en": "Hiking"}, doc[1][domain.TaxonomyActivity][0].SourceTitle)
}

func TestTaxonomyMapping_RerunOverwritesFile(t *testing.T) {
	wp := new(MockWordPressRepository)
	wp.On("ListCollection", mock.Anything, stelvio, "activity").
		Return([]json.RawMessage{raw(`{"id":1,"name":"Escursionismo"}`)}, nil)

	uc, _, mappingDisk := newTaxonomyUseCase(t, wp)
	req := usecase.TaxonomyRequest{Endpoint: stelvio, Provider: "WP", Activity: true}
	_, err := uc.Build(context.Background(), req)
	require.NoError(t, err)
	_, err = uc.Build(context.Background(), req)
	require.NoError(t, err)

	doc := readMapping(t, mappingDisk, "stelvio-wp-webmapp-it.json")
	require.Len(t, doc, 1)
	assert.Len(t, doc[0][domain.TaxonomyActivity], 1)
}

func TestTaxonomyMapping_TranslationFailureAborts(t *testing.T) {
	wp := new(MockWordPressRepository)
	wp.On("ListCollection", mock.Anything, stelvio, "activity").Return([]json.RawMessage{
		raw(`{"id":1,"name":"Bici","wpml_translations":[{"locale":"en","name":"Bike","source":"https://x/1"}]}`),
	}, nil)
	wp.On("GetURL", mock.Anything, "https://x/1").Return(nil, errors.ErrSourceFetch)

	uc, _, mappingDisk := newTaxonomyUseCase(t, wp)
	_, err := uc.Build(context.Background(), usecase.TaxonomyRequest{Endpoint: stelvio, Provider: "WP", Activity: true})
	assert.ErrorIs(t, err, errors.ErrTaxonomyFetch)

	exists, err := mappingDisk.Exists(context.Background(), "stelvio-wp-webmapp-it.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTaxonomyMapping_UnknownProviderIsNoop(t *testing.T) {
	wp := new(MockWordPressRepository)
	uc, _, _ := newTaxonomyUseCase(t, wp)

	result, err := uc.Build(context.Background(), usecase.TaxonomyRequest{Endpoint: stelvio, Provider: "ftp"})
	require.NoError(t, err)
	assert.Empty(t, result.FileName)
	assert.Empty(t, result.Document)
	assert.Equal(t, usecase.TaxonomyStateIdle, result.State)
	wp.AssertExpectations(t)
}

func TestTaxonomyMapping_StorageCSV(t *testing.T) {
	uc, csvDisk, mappingDisk := newTaxonomyUseCase(t, nil)
	require.NoError(t, csvDisk.Put(context.Background(), "webmapp_category.csv", []byte(
		"id,locale,name,description\n"+
			"5,it_IT,Rifugi,Rifugi alpini\n"+
			"5,de,Hütten,\n"+
			"8,it,Bivacchi,\n")))

	_, err := uc.Build(context.Background(), usecase.TaxonomyRequest{Endpoint: "https://csv.example.org", Provider: "StorageCSV", PoiType: true})
	require.NoError(t, err)

	doc := readMapping(t, mappingDisk, "csv-example-org.json")
	entries := doc[0][domain.TaxonomyWebmappCategory]
	require.Len(t, entries, 2)
	assert.Equal(t, domain.LocaleText{"it": "Rifugi", "de": "Hütten"}, entries[0].SourceTitle)
	assert.Equal(t, domain.LocaleText{"it": "Rifugi alpini"}, entries[0].SourceDescription)
	assert.Equal(t, int64(8), entries[1].SourceID)
}

func TestTaxonomyMapping_StorageCSVMissingFile(t *testing.T) {
	uc, _, _ := newTaxonomyUseCase(t, nil)
	_, err := uc.Build(context.Background(), usecase.TaxonomyRequest{Endpoint: "https://csv.example.org", Provider: "StorageCSV", Activity: true})
	assert.ErrorIs(t, err, errors.ErrTaxonomyFetch)
}
