package geometry

import "github.com/paulmach/orb"

// MergeLines склеивает MultiLineString в одну линию.
// Части стыкуются конец-в-начало, при необходимости разворачиваясь;
// если стыка нет, точки части просто добавляются по порядку.
// Остальные типы возвращаются без изменений.
func MergeLines(g orb.Geometry) orb.Geometry {
	mls, ok := g.(orb.MultiLineString)
	if !ok {
		return g
	}

	parts := make([]orb.LineString, 0, len(mls))
	for _, ls := range mls {
		if len(ls) > 0 {
			parts = append(parts, ls)
		}
	}
	if len(parts) == 0 {
		return orb.LineString{}
	}

	merged := append(orb.LineString{}, parts[0]...)
	for i, part := range parts[1:] {
		last := merged[len(merged)-1]

		switch {
		case last.Equal(part[0]):
			merged = append(merged, part[1:]...)
		case last.Equal(part[len(part)-1]):
			merged = append(merged, reversed(part)[1:]...)
		case i == 0 && merged[0].Equal(part[0]):
			// первая часть записана в обратном направлении
			merged = append(reversed(merged), part[1:]...)
		case i == 0 && merged[0].Equal(part[len(part)-1]):
			merged = append(append(orb.LineString{}, part...), merged[1:]...)
		default:
			merged = append(merged, part...)
		}
	}

	return merged
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}
