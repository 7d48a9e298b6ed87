// Package importer loads catalogue data from Excel workbooks.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/resource"
	"stockbook/internal/domain/sheet"
	"stockbook/pkg/logger"
)

// Result counts the rows of one import.
type Result struct {
	Imported int
	Skipped  int
}

// Products creates a product for every row of the first worksheet of r.
// The worksheet needs PRODUCT_CODE and PRODUCT_DESCRIPTION header cells, in
// column or field form (productCode) and in any column order. Rows without a code and codes that already exist are skipped.
func Products(ctx context.Context, d *resource.Dispatcher, r io.Reader) (Result, error) {
	var res Result

	f, err := excelize.OpenReader(r)
	if err != nil {
		return res, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return res, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return res, nil
	}

	codeCol, descCol := -1, -1
	for i, cell := range rows[0] {
		switch headerColumn(cell) {
		case sheet.ColProductCode:
			codeCol = i
		case sheet.ColProductDescription:
			descCol = i
		}
	}
	if codeCol < 0 || descCol < 0 {
		return res, fmt.Errorf("header must contain %s and %s", sheet.ColProductCode, sheet.ColProductDescription)
	}

	for n, row := range rows[1:] {
		code := strings.TrimSpace(cell(row, codeCol))
		if code == "" {
			res.Skipped++
			continue
		}
		payload, err := json.Marshal(map[string]string{
			sheet.ColumnToField(sheet.ColProductCode):        code,
			sheet.ColumnToField(sheet.ColProductDescription): strings.TrimSpace(cell(row, descCol)),
		})
		if err != nil {
			return res, err
		}

		_, err = d.Dispatch(ctx, resource.Request{
			Method:   http.MethodPost,
			Resource: "products",
			Payload:  payload,
		})
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
			logger.Debug(ctx, "product exists, skipped", "code", code, "row", n+2)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("row %d: %w", n+2, err)
		}
		res.Imported++
	}
	return res, nil
}

// headerColumn normalizes a header cell to its column name.
func headerColumn(cell string) string {
	cell = strings.TrimSpace(cell)
	if strings.ContainsRune(cell, '_') || strings.ToUpper(cell) == cell {
		return strings.ToUpper(cell)
	}
	return sheet.FieldToColumn(cell)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
