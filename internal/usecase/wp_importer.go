package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/pkg/utils"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Поля записей WP (тема webmapp + WPML)
const (
	wpTrackGallery = "n7webmap_track_media_gallery"
	wpPoiGallery   = "n7webmap_media_gallery"
)

// WPImporter импортирует записи WordPress REST API (/wp-json/wp/v2)
type WPImporter struct {
	client        repository.WordPressRepository
	geometry      repository.GeometryExtractor
	store         *FeatureStore
	media         *MediaUseCase
	defaultLocale string
	fetchTimeout  time.Duration
	logger        *zap.Logger
}

func NewWPImporter(
	client repository.WordPressRepository,
	geometry repository.GeometryExtractor,
	store *FeatureStore,
	media *MediaUseCase,
	defaultLocale string,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *WPImporter {
	if defaultLocale == "" {
		defaultLocale = domain.PrimaryLocale
	}
	return &WPImporter{
		client:        client,
		geometry:      geometry,
		store:         store,
		media:         media,
		defaultLocale: defaultLocale,
		fetchTimeout:  fetchTimeout,
		logger:        logger.With(zap.String("provider", string(domain.ProviderWP))),
	}
}

func (i *WPImporter) ImportTrack(ctx context.Context, job domain.ImportJob) (int64, error) {
	i.logger.Info("Preparing track", zap.String("source_id", job.SourceID), zap.String("endpoint", job.Endpoint))

	raw, err := i.fetch(ctx, job.Endpoint, "track", job.SourceID)
	if err != nil {
		return 0, err
	}
	record := gjson.ParseBytes(raw)

	geometry, err := i.geometry.Extract(ctx, domain.RawGeometry{
		Encoding: domain.GeometryGeoJSON,
		Data:     geoJSONField(record, "n7webmap_geojson"),
	}, true)
	if err != nil {
		return 0, err
	}

	tags := NewTagBuilder()
	i.mergeTexts(tags, record)
	i.mergeTranslations(ctx, tags, job, "track", record)

	tags.From(wpString(record, "n7webmap_start")).
		To(wpString(record, "n7webmap_end")).
		CaiScale(wpString(record, "cai_scale")).
		Ref(wpString(record, "ref")).
		Distance(floatField(record, "distance")).
		Ascent(floatField(record, "ascent")).
		Descent(floatField(record, "descent")).
		Duration(wpString(record, "duration:forward"), wpString(record, "duration:backward"))

	i.attachWPMedia(ctx, tags, job, record, wpTrackGallery, geometry)

	return i.store.Upsert(ctx, job.Key(), domain.FeatureParams{
		Type:     domain.FeatureTypeTrack,
		Provider: domain.ProviderWP,
		Geometry: geometry,
		RawData:  json.RawMessage(raw),
		Tags:     tags.Build(),
	})
}

func (i *WPImporter) ImportPoi(ctx context.Context, job domain.ImportJob) (int64, error) {
	i.logger.Info("Preparing poi", zap.String("source_id", job.SourceID), zap.String("endpoint", job.Endpoint))

	raw, err := i.fetch(ctx, job.Endpoint, "poi", job.SourceID)
	if err != nil {
		return 0, err
	}
	record := gjson.ParseBytes(raw)

	lng, lat := record.Get("n7webmap_coord.lng"), record.Get("n7webmap_coord.lat")
	if !lng.Exists() || !lat.Exists() {
		return 0, errors.ErrGeometryTransform.Wrap(fmt.Errorf("poi %s has no n7webmap_coord", job.SourceID))
	}
	point, err := utils.PointWKT(lng.Float(), lat.Float())
	if err != nil {
		return 0, errors.ErrGeometryTransform.Wrap(err)
	}
	geometry, err := i.geometry.Extract(ctx, domain.RawGeometry{Encoding: domain.GeometryWKT, Data: point}, false)
	if err != nil {
		return 0, err
	}

	tags := NewTagBuilder()
	i.mergeTexts(tags, record)
	i.mergeTranslations(ctx, tags, job, "poi", record)

	tags.AddrStreet(wpString(record, "addr:street")).
		AddrHousenumber(wpString(record, "addr:housenumber")).
		AddrCity(wpString(record, "addr:city")).
		ContactPhone(firstString(record, "contact:phone", "phone")).
		ContactEmail(firstString(record, "contact:email", "email")).
		OpeningHours(wpString(record, "opening_hours")).
		RelatedURL(wpString(record, "website"))
	for _, u := range record.Get("n7webmap_rpt_related_url.#.net7webmap_related_url").Array() {
		tags.RelatedURL(wpValue(u))
	}

	i.attachWPMedia(ctx, tags, job, record, wpPoiGallery, geometry)

	return i.store.Upsert(ctx, job.Key(), domain.FeatureParams{
		Type:     domain.FeatureTypePOI,
		Provider: domain.ProviderWP,
		Geometry: geometry,
		RawData:  json.RawMessage(raw),
		Tags:     tags.Build(),
	})
}

// ImportMedia импортирует запись /media/{id} без геометрии владельца
func (i *WPImporter) ImportMedia(ctx context.Context, job domain.ImportJob) (int64, error) {
	i.logger.Info("Preparing media", zap.String("source_id", job.SourceID), zap.String("endpoint", job.Endpoint))
	return i.importMediaRecord(ctx, job.Endpoint, job.SourceID, "")
}

func (i *WPImporter) ListSourceIDs(ctx context.Context, endpoint string, featureType domain.FeatureType) ([]string, error) {
	resource, err := wpResource(featureType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, i.fetchTimeout)
	defer cancel()

	items, err := i.client.ListCollection(ctx, endpoint, resource)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := gjson.GetBytes(item, "id").String(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (i *WPImporter) fetch(ctx context.Context, endpoint, resource, id string) (json.RawMessage, error) {
	ctx, cancel := withTimeout(ctx, i.fetchTimeout)
	defer cancel()
	return i.client.GetRecord(ctx, endpoint, resource, id)
}

// recordLocale - язык записи из WPML, иначе язык по умолчанию
func (i *WPImporter) recordLocale(record gjson.Result) string {
	if l := NormalizeLocale(wpString(record, "wpml_current_locale")); l != "" {
		return l
	}
	return i.defaultLocale
}

func (i *WPImporter) mergeTexts(tags *TagBuilder, record gjson.Result) {
	locale := i.recordLocale(record)
	tags.Name(locale, wpString(record, "title.rendered")).
		Description(locale, wpString(record, "content.rendered")).
		Excerpt(locale, wpString(record, "excerpt.rendered"))
}

// mergeTranslations загружает каждый перевод WPML отдельным запросом.
// Недоступный перевод пропускается.
func (i *WPImporter) mergeTranslations(ctx context.Context, tags *TagBuilder, job domain.ImportJob, resource string, record gjson.Result) {
	record.Get("wpml_translations").ForEach(func(_, tr gjson.Result) bool {
		id := tr.Get("id").String()
		if id == "" || id == job.SourceID {
			return true
		}

		raw, err := i.fetch(ctx, job.Endpoint, resource, id)
		if err != nil {
			i.logger.Warn("Failed to fetch translation",
				zap.String("source_id", job.SourceID),
				zap.String("endpoint", job.Endpoint),
				zap.String("translation_id", id),
				zap.Error(err))
			return true
		}

		translation := gjson.ParseBytes(raw)
		locale := NormalizeLocale(tr.Get("locale").String())
		if locale == "" {
			locale = i.recordLocale(translation)
		}
		tags.Name(locale, wpString(translation, "title.rendered")).
			Description(locale, wpString(translation, "content.rendered")).
			Excerpt(locale, wpString(translation, "excerpt.rendered"))
		return true
	})
}

// attachWPMedia: featured_media -> feature_image, галерея -> image_gallery по порядку
func (i *WPImporter) attachWPMedia(ctx context.Context, tags *TagBuilder, job domain.ImportJob, record gjson.Result, galleryField, geometry string) {
	if featured := record.Get("featured_media"); featured.Int() > 0 {
		if mediaID, ok := i.tryMedia(ctx, job, featured.String(), geometry); ok {
			tags.FeatureImage(mediaID)
		}
	}

	record.Get(galleryField).ForEach(func(_, item gjson.Result) bool {
		ref := item.String()
		if item.IsObject() {
			ref = item.Get("id").String()
		}
		if ref == "" || ref == "0" {
			return true
		}
		if mediaID, ok := i.tryMedia(ctx, job, ref, geometry); ok {
			tags.AppendGallery(mediaID)
		}
		return true
	})
}

func (i *WPImporter) tryMedia(ctx context.Context, job domain.ImportJob, mediaID, geometry string) (int64, bool) {
	id, err := i.importMediaRecord(ctx, job.Endpoint, mediaID, geometry)
	if err != nil {
		i.logger.Warn("Media import failed, tag left unset",
			zap.String("source_id", job.SourceID),
			zap.String("endpoint", job.Endpoint),
			zap.String("media_id", mediaID),
			zap.Error(err))
		return 0, false
	}
	return id, true
}

func (i *WPImporter) importMediaRecord(ctx context.Context, endpoint, mediaID, geometry string) (int64, error) {
	raw, err := i.fetch(ctx, endpoint, "media", mediaID)
	if err != nil {
		return 0, err
	}
	record := gjson.ParseBytes(raw)

	sourceURL := wpString(record, "source_url")
	reference := sourceURL
	if u, err := url.Parse(sourceURL); err == nil && u.Path != "" {
		reference = path.Base(u.Path)
	}

	return i.media.FetchAndStore(ctx, MediaRequest{
		Reference: reference,
		URL:       sourceURL,
		SourceID:  mediaID,
		Endpoint:  endpoint,
		Provider:  domain.ProviderWP,
		Geometry:  geometry,
		Name:      domain.LocaleText{i.recordLocale(record): wpString(record, "title.rendered")},
	})
}

func wpResource(featureType domain.FeatureType) (string, error) {
	switch featureType {
	case domain.FeatureTypeTrack:
		return "track", nil
	case domain.FeatureTypePOI:
		return "poi", nil
	case domain.FeatureTypeMedia:
		return "media", nil
	default:
		return "", errors.ErrUnsupportedType
	}
}

// geoJSONField принимает GeoJSON как вложенный объект или как строку с JSON
func geoJSONField(record gjson.Result, field string) string {
	v := record.Get(field)
	if v.Type == gjson.String {
		return v.String()
	}
	if v.IsObject() {
		return v.Raw
	}
	return ""
}

// floatField возвращает nil для всего, кроме числа или строки с числом
func floatField(record gjson.Result, field string) *float64 {
	v := record.Get(field)
	switch v.Type {
	case gjson.Number:
		f := v.Num
		return &f
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// wpString читает скалярное поле тега. ACF отдаёт false для незаполненных
// полей, поэтому всё, кроме строки и числа, считается отсутствующим.
func wpString(record gjson.Result, field string) string {
	return wpValue(record.Get(field))
}

func wpValue(v gjson.Result) string {
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	default:
		return ""
	}
}

func firstString(record gjson.Result, fields ...string) string {
	for _, f := range fields {
		if v := wpString(record, f); v != "" {
			return v
		}
	}
	return ""
}
