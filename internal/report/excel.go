package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mwhitaker/amazon-uk-scraper/internal/models"
)

const resultsSheet = "Results"

// Row is one line of the batch workbook.
type Row struct {
	Number  int
	Record  models.ProductRecord
	Success bool
}

var workbookColumns = []string{
	"product_number",
	"url",
	"product_title",
	"regular_price",
	"subscribe_save_price",
	"scrape_success",
	"extraction_status",
	"timestamp",
	"error",
}

// Workbook persists batch progress to a single Excel file. The whole file is
// rewritten after every item so a crash loses at most the in-flight product.
type Workbook struct {
	path string
}

func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

func (wb *Workbook) Path() string {
	return wb.path
}

// Write replaces the workbook contents with the given rows.
func (wb *Workbook) Write(rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, name := range workbookColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(resultsSheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []string{
			strconv.Itoa(row.Number),
			row.Record.URL,
			row.Record.Title,
			row.Record.RegularPrice,
			row.Record.SubscribeSavePrice,
			strconv.FormatBool(row.Success),
			string(row.Record.Status),
			row.Record.Timestamp(),
			row.Record.Error,
		}

		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(resultsSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row.Number, err)
			}
		}
	}

	if err := f.SaveAs(wb.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return nil
}
