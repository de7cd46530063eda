package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// PrimaryLocale - основной язык для источников с итальянским по умолчанию
const PrimaryLocale = "it"

// LocaleText - отображение locale -> локализованный текст
type LocaleText map[string]string

// Locales возвращает отсортированный список языков
func (t LocaleText) Locales() []string {
	return slices.Sorted(maps.Keys(t))
}

// Tags - нормализованные свойства фичи.
// Пустые поля не сериализуются: отсутствие ключа означает "неизвестно".
type Tags struct {
	Name        LocaleText `json:"name,omitempty"`
	Description LocaleText `json:"description,omitempty"`
	Excerpt     LocaleText `json:"excerpt,omitempty"`

	From             string   `json:"from,omitempty"`
	To               string   `json:"to,omitempty"`
	CaiScale         string   `json:"cai_scale,omitempty"`
	Ref              string   `json:"ref,omitempty"`
	Distance         *float64 `json:"distance,omitempty"`
	Ascent           *float64 `json:"ascent,omitempty"`
	Descent          *float64 `json:"descent,omitempty"`
	DurationForward  string   `json:"duration_forward,omitempty"`
	DurationBackward string   `json:"duration_backward,omitempty"`

	AddrStreet      string `json:"addr_street,omitempty"`
	AddrHousenumber string `json:"addr_housenumber,omitempty"`
	AddrCity        string `json:"addr_city,omitempty"`
	ContactPhone    string `json:"contact_phone,omitempty"`
	ContactEmail    string `json:"contact_email,omitempty"`
	OpeningHours    string `json:"opening_hours,omitempty"`

	RelatedURL   map[string]string `json:"related_url,omitempty"`
	FeatureImage *int64            `json:"feature_image,omitempty"`
	ImageGallery []int64           `json:"image_gallery,omitempty"`

	// URL - имя файла в blob-хранилище, только для media
	URL string `json:"url,omitempty"`
}

// Clone возвращает глубокую копию
func (t Tags) Clone() Tags {
	cp := t
	cp.Name = maps.Clone(t.Name)
	cp.Description = maps.Clone(t.Description)
	cp.Excerpt = maps.Clone(t.Excerpt)
	cp.RelatedURL = maps.Clone(t.RelatedURL)
	cp.ImageGallery = slices.Clone(t.ImageGallery)
	if t.FeatureImage != nil {
		v := *t.FeatureImage
		cp.FeatureImage = &v
	}
	cp.Distance = cloneFloat(t.Distance)
	cp.Ascent = cloneFloat(t.Ascent)
	cp.Descent = cloneFloat(t.Descent)
	return cp
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Value реализует driver.Valuer для колонки jsonb
func (t Tags) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return b, nil
}

// Scan реализует sql.Scanner для колонки jsonb
func (t *Tags) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported tags type %T", src)
	}
	var out Tags
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal tags: %w", err)
	}
	*t = out
	return nil
}
