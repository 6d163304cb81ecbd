package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"porosity/internal"
)

// RawRowData represents a row of raw table data as header -> cell
type RawRowData map[string]string

// Data represents a complete measurement table
type Data struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Reader handles reading Excel and CSV measurement tables
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewReader creates a reader for a .csv or .xlsx file
func NewReader(filePath string) *Reader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	return &Reader{filePath: filePath, fileType: fileType, logger: internal.DefaultLogger.With("TableReader")}
}

// IsTableFile reports whether name has an extension the reader understands.
func IsTableFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadData reads the file into header-keyed rows
func (r *Reader) ReadData() (*Data, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the first sheet of a workbook
func (r *Reader) readExcelData() (*Data, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets: %s", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	r.logger.Debug("sheet %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// readCSVData reads a CSV file in UTF-8 or UTF-16
func (r *Reader) readCSVData() (*Data, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// ReadCSV decodes a CSV stream. Scanner exports are UTF-16 with a BOM; UTF-16LE
// without BOM is detected from a zero second byte. Anything else is UTF-8.
func ReadCSV(src io.Reader) ([][]string, error) {
	buffered := bufio.NewReader(src)
	head, _ := buffered.Peek(2)

	var decoded io.Reader
	switch {
	case len(head) == 2 && head[0] != 0 && head[1] == 0:
		decoded = transform.NewReader(buffered, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())
	default:
		decoded = transform.NewReader(buffered, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// processRows converts raw string rows into Data
func (r *Reader) processRows(rows [][]string) (*Data, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowData := make(RawRowData)
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Debug("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &Data{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeHeader folds case, whitespace and the two code points used for the
// micro sign so that "Volume (μm³)" matches "volume (µm³)".
func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "μ", "µ")
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// FindColumn returns the header matching name after normalization.
func (d *Data) FindColumn(name string) (string, bool) {
	want := normalizeHeader(name)
	for _, h := range d.Headers {
		if normalizeHeader(h) == want {
			return h, true
		}
	}
	return "", false
}
