package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/files"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/table"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/pkg/contracts/domain"
)

const (
	excelMaxRows  = 1048576
	salesSheet    = "sales"
	xlsxDateFmt   = "yyyy-mm-dd"
	xlsxCentsFmt  = "0.00"
	xlsxNumberFmt = "#,##0"
)

// WriteXLSX streams t into a single-sheet workbook at path.
func WriteXLSX(path string, t *table.Table) error {
	if t.Len()+1 > excelMaxRows {
		return apperrors.NewFatalIOError(fmt.Sprintf("%d rows exceed the xlsx row limit", t.Len()), nil)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()
	if err := file.SetSheetName(file.GetSheetName(0), salesSheet); err != nil {
		return apperrors.NewFatalIOError("name sheet", err)
	}

	stream, err := file.NewStreamWriter(salesSheet)
	if err != nil {
		return apperrors.NewFatalIOError("open sheet stream", err)
	}
	styles, err := newXLSXStyles(file)
	if err != nil {
		return apperrors.NewFatalIOError("create styles", err)
	}

	cols := t.Columns()
	headers := make([]interface{}, len(cols))
	for i, c := range cols {
		headers[i] = excelize.Cell{StyleID: styles.header, Value: c}
	}
	if err := stream.SetRow("A1", headers); err != nil {
		return apperrors.NewFatalIOError("write header row", err)
	}

	for i, r := range t.Rows() {
		cells := make([]interface{}, len(r))
		for j, v := range r {
			cells[j] = styles.cell(cols[j], v)
		}
		if err := stream.SetRow(fmt.Sprintf("A%d", i+2), cells); err != nil {
			return apperrors.NewFatalIOError(fmt.Sprintf("write row %d", i+2), err)
		}
	}
	if err := stream.Flush(); err != nil {
		return apperrors.NewFatalIOError("flush sheet", err)
	}

	return files.WriteAtomic(path, func(w io.Writer) error {
		_, err := file.WriteTo(w)
		return err
	})
}

type xlsxStyles struct {
	header int
	date   int
	cents  int
	number int
}

func newXLSXStyles(file *excelize.File) (*xlsxStyles, error) {
	header, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	date, err := customStyle(file, xlsxDateFmt)
	if err != nil {
		return nil, err
	}
	cents, err := customStyle(file, xlsxCentsFmt)
	if err != nil {
		return nil, err
	}
	number, err := customStyle(file, xlsxNumberFmt)
	if err != nil {
		return nil, err
	}
	return &xlsxStyles{header: header, date: date, cents: cents, number: number}, nil
}

func customStyle(file *excelize.File, format string) (int, error) {
	return file.NewStyle(&excelize.Style{CustomNumFmt: &format})
}

func (s *xlsxStyles) cell(column string, v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return excelize.Cell{StyleID: s.date, Value: x}
	case float64:
		if column == domain.FieldDollarPerSquareFoot {
			return excelize.Cell{StyleID: s.cents, Value: x}
		}
		return excelize.Cell{StyleID: s.number, Value: x}
	default:
		return x
	}
}
