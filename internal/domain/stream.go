package domain

import "github.com/google/uuid"

// Stream names
const (
	StreamImportRequest = "stream:outsource:import"
	StreamImportDone    = "stream:outsource:done"
)

// ImportRequestEvent - входящее событие на импорт одной записи
type ImportRequestEvent struct {
	JobID    uuid.UUID   `json:"job_id"`
	Type     FeatureType `json:"type"`
	Endpoint string      `json:"endpoint"`
	Provider Provider    `json:"provider"`
	SourceID string      `json:"source_id"`
}

// Job возвращает ImportJob для диспетчера
func (e *ImportRequestEvent) Job() ImportJob {
	return ImportJob{
		Type:     e.Type,
		Endpoint: e.Endpoint,
		Provider: e.Provider,
		SourceID: e.SourceID,
	}
}

// ImportDoneEvent - результат импорта
type ImportDoneEvent struct {
	JobID     uuid.UUID `json:"job_id"`
	SourceID  string    `json:"source_id"`
	Endpoint  string    `json:"endpoint"`
	FeatureID *int64    `json:"feature_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
