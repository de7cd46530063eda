package errors

import "net/http"

var (
	ErrSourceNotFound = New(
		"SOURCE_RECORD_NOT_FOUND",
		"Source record not found",
		http.StatusNotFound,
	)

	ErrFeatureNotFound = New(
		"FEATURE_NOT_FOUND",
		"Out source feature not found",
		http.StatusNotFound,
	)

	ErrGeometryTransform = New(
		"GEOMETRY_TRANSFORM_FAILED",
		"Failed to extract geometry",
		http.StatusUnprocessableEntity,
	)

	ErrTagNormalization = New(
		"TAG_NORMALIZATION_FAILED",
		"Failed to normalize tags",
		http.StatusUnprocessableEntity,
	)

	ErrMediaFetch = New(
		"MEDIA_FETCH_FAILED",
		"Failed to fetch media",
		http.StatusBadGateway,
	)

	ErrSourceFetch = New(
		"SOURCE_FETCH_FAILED",
		"Failed to fetch source record",
		http.StatusBadGateway,
	)

	ErrTaxonomyFetch = New(
		"TAXONOMY_FETCH_FAILED",
		"Failed to fetch taxonomy terms",
		http.StatusBadGateway,
	)

	ErrUnsupportedProvider = New(
		"UNSUPPORTED_PROVIDER",
		"Unsupported provider",
		http.StatusBadRequest,
	)

	ErrUnsupportedType = New(
		"UNSUPPORTED_FEATURE_TYPE",
		"Unsupported feature type",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrStorageError = New(
		"STORAGE_ERROR",
		"Blob storage operation failed",
		http.StatusInternalServerError,
	)

	ErrObjectNotFound = New(
		"OBJECT_NOT_FOUND",
		"Object not found in blob storage",
		http.StatusNotFound,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
