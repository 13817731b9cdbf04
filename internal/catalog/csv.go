package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/mitate/internal/models"
)

// LoadCSV reads products from a CSV file with a header row. Column order is
// free; recognized headers are id, name, category, gender, color,
// description and image_url. Rows without an id are skipped.
func LoadCSV(path string) ([]*models.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open products csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, fmt.Errorf("products csv missing id column")
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var products []*models.Product
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		id := field(record, "id")
		if id == "" {
			continue
		}
		products = append(products, &models.Product{
			ID:          id,
			Name:        field(record, "name"),
			Category:    field(record, "category"),
			Gender:      field(record, "gender"),
			Color:       field(record, "color"),
			Description: field(record, "description"),
			ImageURL:    field(record, "image_url"),
		})
	}
	return products, nil
}
