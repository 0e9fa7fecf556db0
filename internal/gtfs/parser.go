package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"vilniusbus/internal/storage"
)

// ParseStops reads stops.txt from a GTFS zip and converts boarding stops
// (location_type 0 or empty) into reference rows.
func ParseStops(path string) ([]storage.StopRow, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "stops.txt" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open stops.txt: %w", err)
		}
		defer rc.Close()

		stops, err := parseCSV[Stop](rc)
		if err != nil {
			return nil, fmt.Errorf("parsing stops.txt: %w", err)
		}
		return toStopRows(stops), nil
	}
	return nil, fmt.Errorf("stops.txt not found in %s", path)
}

func toStopRows(stops []Stop) []storage.StopRow {
	rows := make([]storage.StopRow, 0, len(stops))
	for _, s := range stops {
		if s.StopID == "" || (s.LocationType != "" && s.LocationType != "0") {
			continue
		}
		lat, _ := strconv.ParseFloat(s.StopLat, 64)
		lon, _ := strconv.ParseFloat(s.StopLon, 64)
		rows = append(rows, storage.StopRow{
			StopID:   s.StopID,
			StopCode: s.StopCode,
			Name:     s.StopName,
			Lat:      lat,
			Lon:      lon,
		})
	}
	return rows
}

// parseCSV decodes a CSV stream with a header row into a slice of T, matching
// columns to fields by their csv tag.
func parseCSV[T any](r io.Reader) ([]T, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	// Strip BOM from first field if present
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	fieldMap := buildFieldMap[T](header)

	var results []T
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		results = append(results, decodeRecord[T](record, fieldMap))
	}
	return results, nil
}

type fieldMapping struct {
	csvIndex   int
	fieldIndex int
}

// buildFieldMap creates a mapping from CSV column positions to struct field positions.
func buildFieldMap[T any](header []string) []fieldMapping {
	var t T
	typ := reflect.TypeOf(t)

	tagToField := make(map[string]int)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("csv"); tag != "" {
			tagToField[tag] = i
		}
	}

	var mappings []fieldMapping
	for csvIdx, colName := range header {
		if fieldIdx, ok := tagToField[strings.TrimSpace(colName)]; ok {
			mappings = append(mappings, fieldMapping{csvIndex: csvIdx, fieldIndex: fieldIdx})
		}
	}
	return mappings
}

func decodeRecord[T any](record []string, fieldMap []fieldMapping) T {
	var t T
	v := reflect.ValueOf(&t).Elem()
	for _, fm := range fieldMap {
		if fm.csvIndex < len(record) {
			v.Field(fm.fieldIndex).SetString(record[fm.csvIndex])
		}
	}
	return t
}
