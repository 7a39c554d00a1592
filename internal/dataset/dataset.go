// Package dataset reads the raw supplier and warehouse tables and persists
// the enriched snapshot the classifier trains on.
package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/atlas-supply/risk-cli/internal/model"
)

// ErrDatasetNotFound reports a missing input file. The pipeline treats it
// as fatal; callers match with eris.Is.
var ErrDatasetNotFound = eris.New("dataset not found")

// columnAliases maps source header names to canonical column names.
// Canonical names map to themselves so already-normalized files load too.
var columnAliases = map[string]string{
	"ProductName":        "Product",
	"Product ID":         "ProductID",
	"Supplier ID":        "SupplierID",
	"Supplier Name":      "SupplierName",
	"Product Category":   "Category",
	"Supplier Latitude":  "Latitude",
	"Supplier Longitude": "Longitude",
	"Supplier City":      "City",
	"Supplier Country":   "Country",
}

func canonicalColumn(name string) string {
	name = strings.TrimSpace(name)
	if canon, ok := columnAliases[name]; ok {
		return canon
	}
	return name
}

// LoadSuppliers reads the raw supplier dataset (CSV, or XLSX by
// extension), normalizing source column names to canonical ones.
func LoadSuppliers(path string) ([]model.SupplierRecord, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("dataset: %s has no data rows", path)
	}

	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[canonicalColumn(name)] = i
	}

	required := []string{
		"ProductID", "Product", "Category", "SupplierID", "SupplierName",
		"City", "Country", "Latitude", "Longitude",
		"LeadTimeDays", "PastReliability", "Capacity",
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("dataset: %s missing column %s", path, col)
		}
	}

	records := make([]model.SupplierRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec, err := parseSupplierRow(row, idx)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: %s row %d", path, n+2)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseSupplierRow(row []string, idx map[string]int) (model.SupplierRecord, error) {
	cell := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(col string) (float64, error) {
		v, err := strconv.ParseFloat(cell(col), 64)
		if err != nil {
			return 0, eris.Wrapf(err, "parse %s", col)
		}
		return v, nil
	}

	rec := model.SupplierRecord{
		ProductID:    cell("ProductID"),
		Product:      cell("Product"),
		Category:     cell("Category"),
		SupplierID:   cell("SupplierID"),
		SupplierName: cell("SupplierName"),
		City:         cell("City"),
		Country:      cell("Country"),
	}

	var err error
	if rec.Latitude, err = num("Latitude"); err != nil {
		return rec, err
	}
	if rec.Longitude, err = num("Longitude"); err != nil {
		return rec, err
	}
	if rec.LeadTimeDays, err = num("LeadTimeDays"); err != nil {
		return rec, err
	}
	if rec.PastReliability, err = num("PastReliability"); err != nil {
		return rec, err
	}
	if rec.Capacity, err = num("Capacity"); err != nil {
		return rec, err
	}

	return rec, nil
}

// readTable loads all rows of a CSV or XLSX file as string slices.
func readTable(path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrDatasetNotFound, "dataset: %s", path)
		}
		return nil, eris.Wrapf(err, "dataset: stat %s", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	return readCSV(path)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("dataset: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// LoadWarehouses reads the warehouse candidate table.
func LoadWarehouses(path string) ([]model.Warehouse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrDatasetNotFound, "dataset: %s", path)
		}
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var ws []model.Warehouse
	if err := csvutil.Unmarshal(data, &ws); err != nil {
		return nil, eris.Wrapf(err, "dataset: unmarshal %s", path)
	}
	return ws, nil
}

// FilterCountry returns the warehouses in the given country of operation.
func FilterCountry(ws []model.Warehouse, country string) []model.Warehouse {
	var out []model.Warehouse
	for _, w := range ws {
		if w.Country == country {
			out = append(out, w)
		}
	}
	return out
}

// WriteEnriched replaces the enriched-table snapshot wholesale. The write
// goes to a temp file in the same directory followed by a rename, so a
// concurrent reader never observes a partial table.
func WriteEnriched(path string, rows []model.SupplierRecord) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "dataset: marshal enriched table")
	}
	return atomicWrite(path, data)
}

// ReadEnriched loads the persisted enriched table.
func ReadEnriched(path string) ([]model.SupplierRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrDatasetNotFound, "dataset: %s", path)
		}
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var rows []model.SupplierRecord
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "dataset: unmarshal %s", path)
	}
	return rows, nil
}

// atomicWrite writes data to a temp file beside path and renames it over.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmpName)    //nolint:errcheck
		return eris.Wrapf(err, "dataset: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "dataset: close %s", tmpName)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "dataset: rename to %s", path)
	}
	return nil
}
