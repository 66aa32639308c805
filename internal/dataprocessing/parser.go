package dataprocessing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

// Sheet is one worksheet read without any header assumption: row 0 is the
// first row of the sheet.
type Sheet struct {
	Name string
	Rows [][]any
}

// WorkbookReader reads every sheet of a workbook file.
type WorkbookReader func(path string) ([]Sheet, error)

// readers maps a lower-case file extension to its parsing engine.
var readers = map[string]WorkbookReader{
	".xlsx": ReadXLSX,
	".xls":  ReadXLS,
}

// SupportedExtension reports whether a parsing engine exists for ext.
func SupportedExtension(ext string) bool {
	_, ok := readers[strings.ToLower(ext)]
	return ok
}

// ReadWorkbook dispatches on the file extension. An extension without an
// engine is an UNSUPPORTED_FORMAT error.
func ReadWorkbook(path string) ([]Sheet, error) {
	ext := strings.ToLower(filepath.Ext(path))
	read, ok := readers[ext]
	if !ok {
		return nil, apperrors.NewUnsupportedFormatError(path, ext)
	}
	return read(path)
}

// ReadXLSX reads a zipped-XML workbook. Cells are returned as their raw stored
// text, so dates arrive as Excel serial numbers and numbers unformatted.
func ReadXLSX(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("open workbook "+path, err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read sheet %q of %s", name, path), err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: stringRows(rows)})
	}
	return sheets, nil
}

// maxXLSColumns bounds the scan of a BIFF row that carries no ROW record and
// so no column extent.
const maxXLSColumns = 256

// ReadXLS reads a legacy BIFF workbook. Cells come back as the decoder's text:
// numbers and date serials unformatted, labels as written.
func ReadXLS(path string) (sheets []Sheet, err error) {
	// the BIFF decoder panics on some malformed records
	defer func() {
		if r := recover(); r != nil {
			sheets = nil
			err = apperrors.NewParsingError("decode workbook "+path, fmt.Errorf("%v", r))
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("open workbook "+path, err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, apperrors.NewParsingError("open workbook "+path, err)
	}
	if wb == nil {
		return nil, apperrors.NewParsingError("open workbook "+path, fmt.Errorf("no workbook stream"))
	}

	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		rows := make([][]any, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			rows = append(rows, xlsRow(ws, r))
		}
		sheets = append(sheets, Sheet{Name: ws.Name, Rows: trimTrailingEmpty(rows)})
	}
	return sheets, nil
}

// xlsRow returns the cells of row r, or nil when the sheet has no such row.
func xlsRow(ws *xls.WorkSheet, r int) (cells []any) {
	// WorkSheet.Row dereferences a missing row
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := ws.Row(r)
	// colMac in the ROW record is one past the last used column
	last := row.LastCol()
	if last == 0 {
		last = maxXLSColumns
	}
	cells = make([]any, 0, last)
	for c := 0; c < last; c++ {
		cells = append(cells, row.Col(c))
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

func stringRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = c
		}
		out[i] = cells
	}
	return out
}

func trimTrailingEmpty(rows [][]any) [][]any {
	end := len(rows)
	for end > 0 && rowIsEmpty(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func rowIsEmpty(row []any) bool {
	for _, c := range row {
		if strings.TrimSpace(ValueText(c)) != "" {
			return false
		}
	}
	return true
}
