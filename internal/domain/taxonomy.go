package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// TaxonomyKind - вид таксономии в файле маппинга
type TaxonomyKind string

const (
	TaxonomyWebmappCategory TaxonomyKind = "webmapp_category"
	TaxonomyActivity        TaxonomyKind = "activity"
)

// TaxonomyMappingEntry - соответствие термина внешней таксономии каноническому идентификатору
type TaxonomyMappingEntry struct {
	SourceID          int64      `json:"source_id"`
	SourceTitle       LocaleText `json:"source_title"`
	SourceDescription LocaleText `json:"source_description"`
	GeohubIdentifier  string     `json:"geohub_identifier"`
}

// TaxonomyMappingGroup - элемент документа маппинга: {kind: [entries]}
type TaxonomyMappingGroup map[TaxonomyKind][]TaxonomyMappingEntry

// TaxonomyMappingDocument - содержимое файла маппинга
type TaxonomyMappingDocument []TaxonomyMappingGroup

// MappingFileName строит детерминированное имя файла по хосту endpoint.
// https://stelvio.wp.webmapp.it -> stelvio-wp-webmapp-it.json
func MappingFileName(endpoint string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return strings.ReplaceAll(host, ".", "-") + ".json", nil
}
