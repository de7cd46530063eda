package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/pkg/utils"
	"github.com/sfomuseum/go-csvdict/v2"
	"go.uber.org/zap"
)

// csvMaxGallery - сколько колонок gallery_N просматривается
const csvMaxGallery = 10

// CSVImporter импортирует строки CSV файла с диска storage.csv.
// endpoint - имя файла на диске, source_id - значение колонки id.
type CSVImporter struct {
	disk         repository.BlobStorage
	geometry     repository.GeometryExtractor
	store        *FeatureStore
	media        *MediaUseCase
	fetchTimeout time.Duration
	logger       *zap.Logger
}

func NewCSVImporter(
	disk repository.BlobStorage,
	geometry repository.GeometryExtractor,
	store *FeatureStore,
	media *MediaUseCase,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *CSVImporter {
	return &CSVImporter{
		disk:         disk,
		geometry:     geometry,
		store:        store,
		media:        media,
		fetchTimeout: fetchTimeout,
		logger:       logger.With(zap.String("provider", string(domain.ProviderStorageCSV))),
	}
}

func (i *CSVImporter) ImportTrack(ctx context.Context, job domain.ImportJob) (int64, error) {
	return i.importRow(ctx, job, domain.FeatureTypeTrack)
}

func (i *CSVImporter) ImportPoi(ctx context.Context, job domain.ImportJob) (int64, error) {
	return i.importRow(ctx, job, domain.FeatureTypePOI)
}

func (i *CSVImporter) ImportMedia(_ context.Context, _ domain.ImportJob) (int64, error) {
	return 0, errors.ErrUnsupportedType.WithDetails(map[string]interface{}{
		"provider": string(domain.ProviderStorageCSV),
		"type":     string(domain.FeatureTypeMedia),
	})
}

// ListSourceIDs возвращает id строк; если в файле есть колонка type, фильтрует по ней
func (i *CSVImporter) ListSourceIDs(ctx context.Context, endpoint string, featureType domain.FeatureType) ([]string, error) {
	rows, err := i.loadRows(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		if id == "" || !rowMatchesType(row, featureType) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (i *CSVImporter) importRow(ctx context.Context, job domain.ImportJob, featureType domain.FeatureType) (int64, error) {
	i.logger.Info("Preparing "+string(featureType),
		zap.String("source_id", job.SourceID),
		zap.String("endpoint", job.Endpoint))

	rows, err := i.loadRows(ctx, job.Endpoint)
	if err != nil {
		return 0, err
	}

	idx := slices.IndexFunc(rows, func(row map[string]string) bool {
		return strings.TrimSpace(row["id"]) == job.SourceID
	})
	if idx < 0 {
		return 0, errors.ErrSourceNotFound.WithDetails(map[string]interface{}{
			"file":      job.Endpoint,
			"source_id": job.SourceID,
		})
	}
	row := rows[idx]

	raw, err := csvRowGeometry(row)
	if err != nil {
		return 0, errors.ErrGeometryTransform.Wrap(err)
	}
	geometry, err := i.geometry.Extract(ctx, raw, featureType == domain.FeatureTypeTrack)
	if err != nil {
		return 0, err
	}

	tags, slots := normalizeCSVRow(row)
	name := tags.Build().Name

	attachMedia(ctx, i.media, tags, slots, func(slot mediaSlot) MediaRequest {
		return MediaRequest{
			Reference: csvMediaReference(slot.Reference),
			URL:       slot.Reference,
			SourceID:  job.SourceID + slot.Suffix,
			Endpoint:  job.Endpoint,
			Provider:  domain.ProviderStorageCSV,
			Geometry:  geometry,
			Name:      name,
		}
	})

	rawData, err := json.Marshal(row)
	if err != nil {
		return 0, errors.ErrTagNormalization.Wrap(err)
	}

	return i.store.Upsert(ctx, job.Key(), domain.FeatureParams{
		Type:     featureType,
		Provider: domain.ProviderStorageCSV,
		Geometry: geometry,
		RawData:  rawData,
		Tags:     tags.Build(),
	})
}

func (i *CSVImporter) loadRows(ctx context.Context, name string) ([]map[string]string, error) {
	ctx, cancel := withTimeout(ctx, i.fetchTimeout)
	defer cancel()

	data, err := i.disk.Get(ctx, name)
	if err != nil {
		if errors.Is(err, errors.ErrObjectNotFound) {
			return nil, errors.ErrSourceNotFound.Wrap(err)
		}
		return nil, errors.ErrSourceFetch.Wrap(err)
	}

	return readCSV(data)
}

// readCSV читает все строки CSV с заголовком в словари колонка -> значение
func readCSV(data []byte) ([]map[string]string, error) {
	reader, err := csvdict.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("open csv: %w", err))
	}

	var rows []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ErrSourceFetch.Wrap(fmt.Errorf("read csv row %d: %w", len(rows)+1, err))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowMatchesType(row map[string]string, featureType domain.FeatureType) bool {
	t, ok := row["type"]
	if !ok || strings.TrimSpace(t) == "" {
		return true
	}
	parsed, err := domain.ParseFeatureType(t)
	return err == nil && parsed == featureType
}

// csvRowGeometry: колонка geometry (WKT или GeoJSON), иначе lon/lat
func csvRowGeometry(row map[string]string) (domain.RawGeometry, error) {
	if g := strings.TrimSpace(row["geometry"]); g != "" {
		encoding := domain.GeometryWKT
		if strings.HasPrefix(g, "{") {
			encoding = domain.GeometryGeoJSON
		}
		srid, _ := strconv.Atoi(strings.TrimSpace(row["srid"]))
		return domain.RawGeometry{Encoding: encoding, Data: g, SRID: srid}, nil
	}

	lon, errLon := strconv.ParseFloat(strings.TrimSpace(row["lon"]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(row["lat"]), 64)
	if errLon != nil || errLat != nil {
		return domain.RawGeometry{}, fmt.Errorf("row %q has neither geometry nor lon/lat", row["id"])
	}
	point, err := utils.PointWKT(lon, lat)
	if err != nil {
		return domain.RawGeometry{}, err
	}
	return domain.RawGeometry{Encoding: domain.GeometryWKT, Data: point}, nil
}

func normalizeCSVRow(row map[string]string) (*TagBuilder, []mediaSlot) {
	tags := NewTagBuilder().
		Name(domain.PrimaryLocale, row["name"]).
		Description(domain.PrimaryLocale, row["description"])

	// name_en, description_de ... в стабильном порядке
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, "name_"):
			tags.Name(strings.TrimPrefix(k, "name_"), row[k])
		case strings.HasPrefix(k, "description_"):
			tags.Description(strings.TrimPrefix(k, "description_"), row[k])
		}
	}

	tags.From(row["from"]).
		To(row["to"]).
		CaiScale(row["cai_scale"]).
		Ref(row["ref"]).
		AddrStreet(row["addr:street"]).
		AddrHousenumber(row["addr:housenumber"]).
		AddrCity(row["addr:city"]).
		ContactPhone(row["phone"]).
		ContactEmail(row["email"]).
		OpeningHours(row["opening_hours"]).
		RelatedURL(row["website"])

	var slots []mediaSlot
	if ref := strings.TrimSpace(row["image"]); ref != "" {
		slots = append(slots, mediaSlot{Reference: ref, Suffix: "000", Primary: true})
	}
	for n := 1; n <= csvMaxGallery; n++ {
		if ref := strings.TrimSpace(row[fmt.Sprintf("gallery_%d", n)]); ref != "" {
			slots = append(slots, mediaSlot{Reference: ref, Suffix: fmt.Sprintf("%03d", n)})
		}
	}

	return tags, slots
}

// csvMediaReference - имя файла из URL колонки изображения
func csvMediaReference(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return rawURL
}
