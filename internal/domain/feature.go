package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FeatureType - тип канонической фичи
type FeatureType string

const (
	FeatureTypeTrack FeatureType = "track"
	FeatureTypePOI   FeatureType = "poi"
	FeatureTypeMedia FeatureType = "media"
)

// ParseFeatureType разбирает тип фичи без учёта регистра
func ParseFeatureType(s string) (FeatureType, error) {
	switch FeatureType(strings.ToLower(strings.TrimSpace(s))) {
	case FeatureTypeTrack:
		return FeatureTypeTrack, nil
	case FeatureTypePOI:
		return FeatureTypePOI, nil
	case FeatureTypeMedia:
		return FeatureTypeMedia, nil
	default:
		return "", fmt.Errorf("unknown feature type %q", s)
	}
}

// Provider - идентификатор варианта импортёра
type Provider string

const (
	ProviderSICAI      Provider = "SICAI"
	ProviderWP         Provider = "WP"
	ProviderStorageCSV Provider = "StorageCSV"
)

// ParseProvider разбирает провайдера без учёта регистра.
// Неизвестное значение возвращает ok=false.
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sicai":
		return ProviderSICAI, true
	case "wp":
		return ProviderWP, true
	case "storagecsv":
		return ProviderStorageCSV, true
	default:
		return "", false
	}
}

// OutSourceFeature - каноническая фича, импортированная из внешнего источника.
// Натуральный ключ: (SourceID, Endpoint).
type OutSourceFeature struct {
	ID        int64           `json:"id" db:"id"`
	SourceID  string          `json:"source_id" db:"source_id"`
	Endpoint  string          `json:"endpoint" db:"endpoint"`
	Type      FeatureType     `json:"type" db:"type"`
	Provider  Provider        `json:"provider" db:"provider"`
	Geometry  string          `json:"geometry" db:"geometry"`
	RawData   json.RawMessage `json:"raw_data,omitempty" db:"raw_data"`
	Tags      Tags            `json:"tags" db:"tags"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// FeatureParams - полный набор атрибутов, которые upsert записывает целиком
type FeatureParams struct {
	Type     FeatureType
	Provider Provider
	Geometry string
	RawData  json.RawMessage
	Tags     Tags
}

// FeatureKey - натуральный ключ фичи
type FeatureKey struct {
	SourceID string
	Endpoint string
}

func (k FeatureKey) String() string {
	return k.Endpoint + "|" + k.SourceID
}

// ImportJob - одна единица работы импортёра
type ImportJob struct {
	Type     FeatureType `json:"type"`
	Endpoint string      `json:"endpoint"`
	Provider Provider    `json:"provider"`
	SourceID string      `json:"source_id"`
}

func (j ImportJob) Key() FeatureKey {
	return FeatureKey{SourceID: j.SourceID, Endpoint: j.Endpoint}
}

// SourceRecord - сырая запись источника в виде словаря полей
type SourceRecord map[string]any

// String возвращает строковое значение поля, пустую строку для отсутствующих и null полей
func (r SourceRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []byte:
		return strings.TrimSpace(string(val))
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// RawGeometry - геометрия в нативной кодировке источника
type RawGeometry struct {
	Encoding GeometryEncoding
	Data     string
	SRID     int
}

type GeometryEncoding string

const (
	GeometryEWKBHex GeometryEncoding = "ewkb_hex"
	GeometryWKT     GeometryEncoding = "wkt"
	GeometryGeoJSON GeometryEncoding = "geojson"
)
