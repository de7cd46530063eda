package dto

import "github.com/google/uuid"

// ImportRequest - импорт одной записи
type ImportRequest struct {
	Type     string `json:"type" validate:"required,feature_type"`
	Endpoint string `json:"endpoint" validate:"required"`
	Provider string `json:"provider" validate:"required,provider"`
	SourceID string `json:"source_id" validate:"required"`
}

// BatchImportRequest - импорт нескольких записей; пустой SourceIDs означает все записи источника
type BatchImportRequest struct {
	Type      string   `json:"type" validate:"required,feature_type"`
	Endpoint  string   `json:"endpoint" validate:"required"`
	Provider  string   `json:"provider" validate:"required,provider"`
	SourceIDs []string `json:"source_ids" validate:"omitempty,max=5000,dive,required"`
	// Reimport повторяет импорт уже сохранённых фич вместо чтения списка из источника
	Reimport bool `json:"reimport"`
}

// TaxonomyMappingRequest - построение файла маппинга таксономий
type TaxonomyMappingRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Provider string `json:"provider" validate:"required"`
	Activity bool   `json:"activity"`
	PoiType  bool   `json:"poi_type"`
}

// ImportResponse - результат импорта одной записи
type ImportResponse struct {
	FeatureID int64  `json:"feature_id"`
	SourceID  string `json:"source_id"`
	Endpoint  string `json:"endpoint"`
}

// FailedImport - неудачный импорт в пакете
type FailedImport struct {
	SourceID string `json:"source_id"`
	Error    string `json:"error"`
}

// BatchImportResponse - итог пакетного импорта
type BatchImportResponse struct {
	Imported map[string]int64 `json:"imported"`
	Failed   []FailedImport   `json:"failed"`
}

// QueuedImportResponse - импорт поставлен в очередь
type QueuedImportResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// TaxonomyMappingResponse - результат построения маппинга
type TaxonomyMappingResponse struct {
	FileName string `json:"file_name,omitempty"`
	Groups   int    `json:"groups"`
	Entries  int    `json:"entries"`
}
