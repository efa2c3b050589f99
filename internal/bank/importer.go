package bank

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath          string    // Path to the Excel or CSV file
	IDColumn          string    // Column with the question number
	SectionColumn     string    // Column with the section name
	QuestionColumn    string    // Column with the question text
	OptionColumns     [4]string // Columns with options a-d
	CorrectColumn     string    // Column with the correct label
	ExplanationColumn string    // Column with the explanation
	SheetName         string    // Name of the sheet to import
	StartRow          int       // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:          "A",
		SectionColumn:     "B",
		QuestionColumn:    "C",
		OptionColumns:     [4]string{"D", "E", "F", "G"},
		CorrectColumn:     "H",
		ExplanationColumn: "I",
		SheetName:         "Sheet1",
		StartRow:          2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Skipped        int
	Questions      []models.TestItem
	Errors         []string
}

// ImportQuestions imports questions from an Excel or CSV file
func ImportQuestions(config ImportConfig) (*ImportResult, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return importFromCSV(config)
	}
	return importFromExcel(config)
}

// importFromExcel imports questions from an Excel file
func importFromExcel(config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if !hasSheet(f.GetSheetList(), sheet) {
		// fall back to the first sheet
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		processRow(row, config, result, i+1)
	}
	return result, nil
}

// importFromCSV imports questions from a CSV file
func importFromCSV(config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		processRow(row, config, result, rowNum)
	}
	return result, nil
}

func processRow(row []string, config ImportConfig, result *ImportResult, rowNum int) {
	if isBlank(row) {
		result.Skipped++
		return
	}
	result.TotalProcessed++

	q, err := parseRow(row, config)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		return
	}
	result.Questions = append(result.Questions, q)
}

func parseRow(row []string, config ImportConfig) (models.TestItem, error) {
	cell := func(col string) string {
		idx := columnIndex(col)
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	id, err := strconv.Atoi(cell(config.IDColumn))
	if err != nil {
		return models.TestItem{}, fmt.Errorf("invalid id %q", cell(config.IDColumn))
	}

	q := models.TestItem{
		ID:            id,
		Section:       models.Section(strings.ToLower(cell(config.SectionColumn))),
		Question:      cell(config.QuestionColumn),
		CorrectAnswer: strings.ToLower(strings.TrimSuffix(cell(config.CorrectColumn), ")")),
		Explanation:   cell(config.ExplanationColumn),
	}
	if q.Question == "" {
		return q, fmt.Errorf("question text is empty")
	}

	labels := []string{"a", "b", "c", "d"}
	for i, col := range config.OptionColumns {
		opt := cell(col)
		if opt == "" {
			continue
		}
		if models.OptionLabel(opt) != labels[i] || !strings.HasPrefix(opt[1:], ")") {
			opt = labels[i] + ") " + opt
		}
		q.Options = append(q.Options, opt)
	}
	if len(q.Options) < 2 {
		return q, fmt.Errorf("at least two options are required")
	}
	return q, nil
}

// columnIndex converts a column letter such as "A" or "AB" to a 0-based index.
func columnIndex(col string) int {
	if col == "" {
		return -1
	}
	n, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return -1
	}
	return n - 1
}

func hasSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}
	return false
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
