package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// TaxonomyState - шаг построения файла маппинга
type TaxonomyState string

const (
	TaxonomyStateIdle                 TaxonomyState = "idle"
	TaxonomyStateFetchingTerms        TaxonomyState = "fetching_terms"
	TaxonomyStateFetchingTranslations TaxonomyState = "fetching_translations"
	TaxonomyStateWriting              TaxonomyState = "writing"
	TaxonomyStateDone                 TaxonomyState = "done"
)

// TaxonomyRequest - параметры запуска.
// Provider сравнивается без учёта регистра; неизвестный провайдер ничего не делает.
// Если не выбран ни Activity, ни PoiType, строятся обе таксономии.
type TaxonomyRequest struct {
	Endpoint string
	Provider string
	Activity bool
	PoiType  bool
}

// TaxonomyResult - результат запуска
type TaxonomyResult struct {
	FileName string
	Document domain.TaxonomyMappingDocument
	State    TaxonomyState
}

// TaxonomyMappingUseCase строит файл соответствия терминов внешних таксономий
type TaxonomyMappingUseCase struct {
	wp            repository.WordPressRepository
	csvDisk       repository.BlobStorage
	mappingDisk   repository.BlobStorage
	defaultLocale string
	fetchTimeout  time.Duration
	logger        *zap.Logger
}

func NewTaxonomyMappingUseCase(
	wp repository.WordPressRepository,
	csvDisk repository.BlobStorage,
	mappingDisk repository.BlobStorage,
	defaultLocale string,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *TaxonomyMappingUseCase {
	if defaultLocale == "" {
		defaultLocale = domain.PrimaryLocale
	}
	return &TaxonomyMappingUseCase{
		wp:            wp,
		csvDisk:       csvDisk,
		mappingDisk:   mappingDisk,
		defaultLocale: defaultLocale,
		fetchTimeout:  fetchTimeout,
		logger:        logger,
	}
}

// taxonomyRun - состояние одного запуска
type taxonomyRun struct {
	req    TaxonomyRequest
	state  TaxonomyState
	doc    domain.TaxonomyMappingDocument
	logger *zap.Logger
}

func (r *taxonomyRun) enter(state TaxonomyState) {
	r.logger.Debug("Taxonomy mapping state", zap.String("from", string(r.state)), zap.String("to", string(state)))
	r.state = state
}

// Build выполняет Idle -> FetchingTerms -> FetchingTranslations -> Writing -> Done.
// Ошибка загрузки любого термина прерывает запуск, файл не пишется.
func (uc *TaxonomyMappingUseCase) Build(ctx context.Context, req TaxonomyRequest) (*TaxonomyResult, error) {
	run := &taxonomyRun{
		req:    req,
		state:  TaxonomyStateIdle,
		logger: uc.logger.With(zap.String("endpoint", req.Endpoint), zap.String("provider", req.Provider)),
	}

	provider, ok := domain.ParseProvider(req.Provider)
	if !ok || provider == domain.ProviderSICAI {
		run.logger.Warn("Unknown taxonomy provider, nothing to do")
		return &TaxonomyResult{State: run.state}, nil
	}

	fileName, err := domain.MappingFileName(req.Endpoint)
	if err != nil {
		return nil, errors.ErrInvalidRequest.Wrap(err)
	}

	for _, kind := range req.kinds() {
		var entries []domain.TaxonomyMappingEntry
		switch provider {
		case domain.ProviderWP:
			entries, err = uc.wpTerms(ctx, run, kind)
		case domain.ProviderStorageCSV:
			entries, err = uc.csvTerms(ctx, run, kind)
		}
		if err != nil {
			return nil, err
		}
		run.doc = append(run.doc, domain.TaxonomyMappingGroup{kind: entries})
	}

	run.enter(TaxonomyStateWriting)
	data, err := json.MarshalIndent(run.doc, "", "    ")
	if err != nil {
		return nil, errors.ErrInternalServer.Wrap(err)
	}
	if err := uc.mappingDisk.Put(ctx, fileName, data); err != nil {
		return nil, err
	}

	run.enter(TaxonomyStateDone)
	run.logger.Info("Taxonomy mapping written",
		zap.String("file", fileName),
		zap.Int("groups", len(run.doc)))

	return &TaxonomyResult{FileName: fileName, Document: run.doc, State: run.state}, nil
}

func (r TaxonomyRequest) kinds() []domain.TaxonomyKind {
	if !r.Activity && !r.PoiType {
		return []domain.TaxonomyKind{domain.TaxonomyWebmappCategory, domain.TaxonomyActivity}
	}
	var kinds []domain.TaxonomyKind
	if r.PoiType {
		kinds = append(kinds, domain.TaxonomyWebmappCategory)
	}
	if r.Activity {
		kinds = append(kinds, domain.TaxonomyActivity)
	}
	return kinds
}

func (uc *TaxonomyMappingUseCase) wpTerms(ctx context.Context, run *taxonomyRun, kind domain.TaxonomyKind) ([]domain.TaxonomyMappingEntry, error) {
	run.enter(TaxonomyStateFetchingTerms)

	fetchCtx, cancel := withTimeout(ctx, uc.fetchTimeout)
	terms, err := uc.wp.ListCollection(fetchCtx, run.req.Endpoint, string(kind))
	cancel()
	if err != nil {
		return nil, errors.ErrTaxonomyFetch.Wrap(fmt.Errorf("list %s: %w", kind, err))
	}

	entries := make([]domain.TaxonomyMappingEntry, 0, len(terms))
	for _, raw := range terms {
		term := gjson.ParseBytes(raw)
		locale := NormalizeLocale(term.Get("wpml_current_locale").String())
		if locale == "" {
			locale = uc.defaultLocale
		}

		entry := domain.TaxonomyMappingEntry{
			SourceID:          term.Get("id").Int(),
			SourceTitle:       domain.LocaleText{},
			SourceDescription: domain.LocaleText{},
		}
		setLocale(entry.SourceTitle, locale, term.Get("name").String())
		setLocale(entry.SourceDescription, locale, term.Get("description").String())

		translations := term.Get("wpml_translations").Array()
		if len(translations) > 0 {
			run.enter(TaxonomyStateFetchingTranslations)
		}
		for _, tr := range translations {
			trLocale := NormalizeLocale(tr.Get("locale").String())
			if trLocale == "" {
				continue
			}
			setLocale(entry.SourceTitle, trLocale, tr.Get("name").String())

			source := tr.Get("source").String()
			if source == "" {
				continue
			}
			fetchCtx, cancel := withTimeout(ctx, uc.fetchTimeout)
			translated, err := uc.wp.GetURL(fetchCtx, source)
			cancel()
			if err != nil {
				return nil, errors.ErrTaxonomyFetch.Wrap(fmt.Errorf("term %d translation %s: %w", entry.SourceID, trLocale, err))
			}
			setLocale(entry.SourceDescription, trLocale, gjson.GetBytes(translated, "description").String())
		}

		entries = append(entries, entry)
	}

	run.logger.Info("Taxonomy terms fetched", zap.String("kind", string(kind)), zap.Int("count", len(entries)))
	return entries, nil
}

// csvTerms читает <kind>.csv с колонками id, locale, name, description; строка на язык
func (uc *TaxonomyMappingUseCase) csvTerms(ctx context.Context, run *taxonomyRun, kind domain.TaxonomyKind) ([]domain.TaxonomyMappingEntry, error) {
	run.enter(TaxonomyStateFetchingTerms)

	fetchCtx, cancel := withTimeout(ctx, uc.fetchTimeout)
	data, err := uc.csvDisk.Get(fetchCtx, string(kind)+".csv")
	cancel()
	if err != nil {
		return nil, errors.ErrTaxonomyFetch.Wrap(fmt.Errorf("read %s.csv: %w", kind, err))
	}

	rows, err := readCSV(data)
	if err != nil {
		return nil, errors.ErrTaxonomyFetch.Wrap(err)
	}

	run.enter(TaxonomyStateFetchingTranslations)
	entries := make([]domain.TaxonomyMappingEntry, 0)
	for n, row := range rows {
		id, err := strconv.ParseInt(strings.TrimSpace(row["id"]), 10, 64)
		if err != nil {
			return nil, errors.ErrTaxonomyFetch.Wrap(fmt.Errorf("%s.csv row %d: bad id %q", kind, n+1, row["id"]))
		}
		locale := NormalizeLocale(row["locale"])
		if locale == "" {
			locale = uc.defaultLocale
		}

		idx := slices.IndexFunc(entries, func(e domain.TaxonomyMappingEntry) bool { return e.SourceID == id })
		if idx < 0 {
			entries = append(entries, domain.TaxonomyMappingEntry{
				SourceID:          id,
				SourceTitle:       domain.LocaleText{},
				SourceDescription: domain.LocaleText{},
			})
			idx = len(entries) - 1
		}
		setLocale(entries[idx].SourceTitle, locale, row["name"])
		setLocale(entries[idx].SourceDescription, locale, row["description"])
	}

	run.logger.Info("Taxonomy terms read", zap.String("kind", string(kind)), zap.Int("count", len(entries)))
	return entries, nil
}

func setLocale(dst domain.LocaleText, locale, text string) {
	text = strings.TrimSpace(html.UnescapeString(text))
	if text == "" {
		return
	}
	dst[locale] = text
}
