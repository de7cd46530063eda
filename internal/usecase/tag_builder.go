package usecase

import (
	"html"
	"net/url"
	"strings"

	"github.com/outsource-importer/internal/domain"
)

// CaiScalePending - значение difficolta "ещё не оценено", в теги не попадает
const CaiScalePending = "Dato in aggiornamento"

// TagBuilder собирает domain.Tags. Пустые значения игнорируются,
// Build возвращает независимую копию.
type TagBuilder struct {
	tags           domain.Tags
	primaryWritten map[string]bool
}

func NewTagBuilder() *TagBuilder {
	return &TagBuilder{primaryWritten: make(map[string]bool)}
}

// Build возвращает готовые теги; builder можно продолжать использовать
func (b *TagBuilder) Build() domain.Tags {
	return b.tags.Clone()
}

func (b *TagBuilder) Name(locale, text string) *TagBuilder {
	b.mergeLocale(&b.tags.Name, "name", locale, html.UnescapeString(text))
	return b
}

func (b *TagBuilder) Description(locale, text string) *TagBuilder {
	b.mergeLocale(&b.tags.Description, "description", locale, text)
	return b
}

func (b *TagBuilder) Excerpt(locale, text string) *TagBuilder {
	b.mergeLocale(&b.tags.Excerpt, "excerpt", locale, text)
	return b
}

// mergeLocale: первый записанный язык не перезаписывается, кроме первой
// записи основного языка
func (b *TagBuilder) mergeLocale(target *domain.LocaleText, field, locale, text string) {
	text = strings.TrimSpace(text)
	locale = NormalizeLocale(locale)
	if text == "" || locale == "" {
		return
	}
	if *target == nil {
		*target = domain.LocaleText{}
	}

	if locale == domain.PrimaryLocale && !b.primaryWritten[field] {
		(*target)[locale] = text
		b.primaryWritten[field] = true
		return
	}
	if _, exists := (*target)[locale]; !exists {
		(*target)[locale] = text
	}
}

func (b *TagBuilder) From(v string) *TagBuilder {
	setString(&b.tags.From, v)
	return b
}

func (b *TagBuilder) To(v string) *TagBuilder {
	setString(&b.tags.To, v)
	return b
}

func (b *TagBuilder) CaiScale(v string) *TagBuilder {
	if strings.TrimSpace(v) == CaiScalePending {
		return b
	}
	setString(&b.tags.CaiScale, v)
	return b
}

func (b *TagBuilder) Ref(v string) *TagBuilder {
	setString(&b.tags.Ref, v)
	return b
}

func (b *TagBuilder) Distance(v *float64) *TagBuilder {
	b.tags.Distance = v
	return b
}

func (b *TagBuilder) Ascent(v *float64) *TagBuilder {
	b.tags.Ascent = v
	return b
}

func (b *TagBuilder) Descent(v *float64) *TagBuilder {
	b.tags.Descent = v
	return b
}

func (b *TagBuilder) Duration(forward, backward string) *TagBuilder {
	setString(&b.tags.DurationForward, forward)
	setString(&b.tags.DurationBackward, backward)
	return b
}

// AddrStreet декодирует HTML сущности: источники хранят адрес экранированным
func (b *TagBuilder) AddrStreet(v string) *TagBuilder {
	setString(&b.tags.AddrStreet, html.UnescapeString(v))
	return b
}

func (b *TagBuilder) AddrHousenumber(v string) *TagBuilder {
	setString(&b.tags.AddrHousenumber, v)
	return b
}

func (b *TagBuilder) AddrCity(v string) *TagBuilder {
	setString(&b.tags.AddrCity, html.UnescapeString(v))
	return b
}

func (b *TagBuilder) ContactPhone(v string) *TagBuilder {
	setString(&b.tags.ContactPhone, v)
	return b
}

func (b *TagBuilder) ContactEmail(v string) *TagBuilder {
	setString(&b.tags.ContactEmail, v)
	return b
}

func (b *TagBuilder) OpeningHours(v string) *TagBuilder {
	setString(&b.tags.OpeningHours, v)
	return b
}

// RelatedURL кладёт URL под ключом его хоста; без хоста ключом служит сам URL
func (b *TagBuilder) RelatedURL(raw string) *TagBuilder {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return b
	}
	key := raw
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		key = u.Hostname()
	}
	if b.tags.RelatedURL == nil {
		b.tags.RelatedURL = make(map[string]string)
	}
	b.tags.RelatedURL[key] = raw
	return b
}

func (b *TagBuilder) FeatureImage(id int64) *TagBuilder {
	b.tags.FeatureImage = &id
	return b
}

func (b *TagBuilder) AppendGallery(id int64) *TagBuilder {
	b.tags.ImageGallery = append(b.tags.ImageGallery, id)
	return b
}

// URL - имя файла в blob-хранилище для media
func (b *TagBuilder) URL(v string) *TagBuilder {
	setString(&b.tags.URL, v)
	return b
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// NormalizeLocale приводит it_IT / IT к it
func NormalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, "_-"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}
