package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importRequest struct {
	Type     string `json:"type" validate:"required,feature_type"`
	Provider string `json:"provider" validate:"required,provider"`
	SourceID string `json:"source_id" validate:"required"`
}

func TestValidate_CustomTags(t *testing.T) {
	tests := []struct {
		name  string
		req   importRequest
		field string
	}{
		{"valid", importRequest{Type: "Track", Provider: "wp", SourceID: "1"}, ""},
		{"unknown provider", importRequest{Type: "poi", Provider: "osm", SourceID: "1"}, "provider"},
		{"unknown type", importRequest{Type: "route", Provider: "SICAI", SourceID: "1"}, "type"},
		{"missing id", importRequest{Type: "media", Provider: "StorageCSV"}, "source_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}
