package utils

import (
	"fmt"
	"strconv"
)

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// PointWKT строит WKT точки из долготы и широты
func PointWKT(lon, lat float64) (string, error) {
	if !ValidateCoordinates(lat, lon) {
		return "", fmt.Errorf("invalid coordinates lon=%v lat=%v", lon, lat)
	}
	return "POINT(" + strconv.FormatFloat(lon, 'f', -1, 64) + " " + strconv.FormatFloat(lat, 'f', -1, 64) + ")", nil
}
