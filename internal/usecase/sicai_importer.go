package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"go.uber.org/zap"
)

// sicaiGallerySlots - нумерованные поля галереи точки accoglienza
var sicaiGallerySlots = []string{"foto02", "foto03", "foto04", "foto05"}

// SICAIImporter импортирует tappe и точки accoglienza из базы Sentiero Italia CAI
type SICAIImporter struct {
	source       repository.SICAIRepository
	geometry     repository.GeometryExtractor
	store        *FeatureStore
	media        *MediaUseCase
	mediaBaseURL string
	fetchTimeout time.Duration
	logger       *zap.Logger
}

func NewSICAIImporter(
	source repository.SICAIRepository,
	geometry repository.GeometryExtractor,
	store *FeatureStore,
	media *MediaUseCase,
	mediaBaseURL string,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *SICAIImporter {
	return &SICAIImporter{
		source:       source,
		geometry:     geometry,
		store:        store,
		media:        media,
		mediaBaseURL: mediaBaseURL,
		fetchTimeout: fetchTimeout,
		logger:       logger.With(zap.String("provider", string(domain.ProviderSICAI))),
	}
}

func (i *SICAIImporter) ImportTrack(ctx context.Context, job domain.ImportJob) (int64, error) {
	i.logger.Info("Preparing track", zap.String("source_id", job.SourceID), zap.String("endpoint", job.Endpoint))

	row, err := i.fetch(ctx, job, i.source.GetTrack)
	if err != nil {
		return 0, err
	}

	geometry, err := i.geometry.Extract(ctx, row.Geometry, true)
	if err != nil {
		return 0, err
	}

	tags := normalizeSICAITrack(row.Record)

	return i.store.Upsert(ctx, job.Key(), domain.FeatureParams{
		Type:     domain.FeatureTypeTrack,
		Provider: domain.ProviderSICAI,
		Geometry: geometry,
		RawData:  row.Raw,
		Tags:     tags.Build(),
	})
}

func (i *SICAIImporter) ImportPoi(ctx context.Context, job domain.ImportJob) (int64, error) {
	i.logger.Info("Preparing poi", zap.String("source_id", job.SourceID), zap.String("endpoint", job.Endpoint))

	row, err := i.fetch(ctx, job, i.source.GetPoi)
	if err != nil {
		return 0, err
	}

	geometry, err := i.geometry.Extract(ctx, row.Geometry, false)
	if err != nil {
		return 0, err
	}

	tags, slots := normalizeSICAIPoi(row.Record)
	name := tags.Build().Name

	attachMedia(ctx, i.media, tags, slots, func(slot mediaSlot) MediaRequest {
		return MediaRequest{
			Reference: slot.Reference,
			URL:       i.mediaBaseURL + rawURLEncode(slot.Reference),
			SourceID:  job.SourceID + slot.Suffix,
			Endpoint:  job.Endpoint,
			Provider:  domain.ProviderSICAI,
			Geometry:  geometry,
			Name:      name,
		}
	})

	return i.store.Upsert(ctx, job.Key(), domain.FeatureParams{
		Type:     domain.FeatureTypePOI,
		Provider: domain.ProviderSICAI,
		Geometry: geometry,
		RawData:  row.Raw,
		Tags:     tags.Build(),
	})
}

// ImportMedia: в SICAI медиа существуют только как вложения точек
func (i *SICAIImporter) ImportMedia(_ context.Context, _ domain.ImportJob) (int64, error) {
	return 0, errors.ErrUnsupportedType.WithDetails(map[string]interface{}{
		"provider": string(domain.ProviderSICAI),
		"type":     string(domain.FeatureTypeMedia),
	})
}

func (i *SICAIImporter) ListSourceIDs(ctx context.Context, _ string, featureType domain.FeatureType) ([]string, error) {
	ctx, cancel := withTimeout(ctx, i.fetchTimeout)
	defer cancel()
	return i.source.ListIDs(ctx, featureType)
}

func (i *SICAIImporter) fetch(
	ctx context.Context,
	job domain.ImportJob,
	get func(ctx context.Context, sourceID string) (*repository.SourceRow, error),
) (*repository.SourceRow, error) {
	ctx, cancel := withTimeout(ctx, i.fetchTimeout)
	defer cancel()

	row, err := get(ctx, job.SourceID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.ErrSourceNotFound
	}
	return row, nil
}

func normalizeSICAITrack(rec domain.SourceRecord) *TagBuilder {
	return NewTagBuilder().
		Name(domain.PrimaryLocale, rec.String("tappa")).
		Description(domain.PrimaryLocale, rec.String("descrizione_sito")).
		From(rec.String("partenza")).
		To(rec.String("arrivo")).
		CaiScale(rec.String("difficolta"))
}

func normalizeSICAIPoi(rec domain.SourceRecord) (*TagBuilder, []mediaSlot) {
	tags := NewTagBuilder().
		Name(domain.PrimaryLocale, rec.String("name")).
		Description(domain.PrimaryLocale, rec.String("Descrizione")).
		AddrStreet(rec.String("addr:street")).
		AddrHousenumber(rec.String("addr:housenumber")).
		AddrCity(rec.String("addr:city")).
		ContactPhone(rec.String("phone")).
		ContactEmail(rec.String("email")).
		OpeningHours(rec.String("opening_hours")).
		RelatedURL(rec.String("website"))

	var slots []mediaSlot
	if ref := rec.String("immagine"); ref != "" {
		slots = append(slots, mediaSlot{Reference: ref, Suffix: "000", Primary: true})
	}
	for _, field := range sicaiGallerySlots {
		if ref := rec.String(field); ref != "" {
			// foto02 -> 002
			slots = append(slots, mediaSlot{Reference: ref, Suffix: fmt.Sprintf("0%s", strings.TrimPrefix(field, "foto"))})
		}
	}

	return tags, slots
}

// rawURLEncode кодирует всё, кроме unreserved символов RFC 3986 (пробел -> %20)
func rawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
