// Package xlsx registers a spreadsheet writer with per-cell styling, merged
// ranges and automatic column widths.
package xlsx

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/manifest"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/xuri/excelize/v2"
	"github.com/zclconf/go-cty/cty"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the namespace.Module interface for this package.
type Module struct{}

// Register registers the module's functions with the namespace.
func (m *Module) Register(ns *namespace.Namespace) error {
	return manifest.RegisterSource(ns, "xlsx/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"write_xlsx": writeXLSX,
	})
}

// Palette holds the named background colours a design may refer to.
var Palette = map[string]string{
	"BlueAngel":  "B7CEEC",
	"MagicMint":  "AAF0D1",
	"CreamWhite": "FFFDD0",
	"PeachPink":  "F98B88",
	"PeriWinkle": "CCCCFF",
}

// Design is the look of a cell. Zero fields take the defaults of
// DefaultDesign.
type Design struct {
	BgColor  string  `mapstructure:"bgcolor"`
	HzAlign  string  `mapstructure:"hzalign"`
	Font     string  `mapstructure:"font"`
	FontSize float64 `mapstructure:"fontsize"`
	FontBold bool    `mapstructure:"fontbold"`
}

// DefaultDesign is used for cells without a design of their own.
var DefaultDesign = Design{BgColor: "BlueAngel", HzAlign: "left", Font: "Calibri", FontSize: 10}

func (d *Design) withDefaults(base Design) Design {
	if d == nil {
		return base
	}
	out := *d
	if out.BgColor == "" {
		out.BgColor = base.BgColor
	}
	if out.HzAlign == "" {
		out.HzAlign = base.HzAlign
	}
	if out.Font == "" {
		out.Font = base.Font
	}
	if out.FontSize == 0 {
		out.FontSize = base.FontSize
	}
	return out
}

// Cell is one value to write. EndRow and EndColumn, when set, merge the
// range starting at Row/Column.
type Cell struct {
	Row       int     `mapstructure:"row"`
	Column    int     `mapstructure:"column"`
	EndRow    int     `mapstructure:"end_row"`
	EndColumn int     `mapstructure:"end_column"`
	Value     any     `mapstructure:"value"`
	Fill      bool    `mapstructure:"fill"`
	Design    *Design `mapstructure:"design"`
}

// Sheet is a named worksheet and its cells.
type Sheet struct {
	Name   string  `mapstructure:"name"`
	Design *Design `mapstructure:"design"`
	Cells  []Cell  `mapstructure:"cells"`
}

// DecodeSheets converts the sheets argument into Sheet values. Unknown keys
// are rejected.
func DecodeSheets(v cty.Value) ([]Sheet, error) {
	native, err := ctyutil.ToNative(v)
	if err != nil {
		return nil, err
	}
	var sheets []Sheet
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &sheets,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(native); err != nil {
		return nil, fmt.Errorf("invalid sheets: %w", err)
	}
	return sheets, nil
}

// Write builds the workbook and saves it at path.
func Write(path string, sheets []Sheet, autoWidth bool) error {
	if len(sheets) == 0 {
		return errors.New("at least one sheet is required")
	}
	f := excelize.NewFile()
	defer f.Close()

	w := &writer{file: f, styles: make(map[styleKey]int)}
	seen := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		if sheet.Name == "" {
			return fmt.Errorf("sheet %d has no name", i+1)
		}
		if seen[sheet.Name] {
			return fmt.Errorf("duplicate sheet name %q", sheet.Name)
		}
		seen[sheet.Name] = true

		// A new file starts with one sheet; the first sheet takes it over.
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}
		if err := w.writeSheet(sheet, autoWidth); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	return f.SaveAs(path)
}

type styleKey struct {
	design Design
	fill   bool
}

type writer struct {
	file   *excelize.File
	styles map[styleKey]int
}

func (w *writer) writeSheet(sheet Sheet, autoWidth bool) error {
	base := sheet.Design.withDefaults(DefaultDesign)
	widths := make(map[int]float64)

	for _, c := range sheet.Cells {
		if c.Row < 1 || c.Column < 1 {
			return fmt.Errorf("cell (%d, %d): row and column start at 1", c.Row, c.Column)
		}
		switch c.Value.(type) {
		case nil, string, bool, int64, float64:
		default:
			return fmt.Errorf("cell (%d, %d): value must be a string, number or bool", c.Row, c.Column)
		}

		start, err := excelize.CoordinatesToCellName(c.Column, c.Row)
		if err != nil {
			return err
		}
		end := start
		if c.EndRow != 0 || c.EndColumn != 0 {
			endRow, endCol := max(c.EndRow, c.Row), max(c.EndColumn, c.Column)
			if end, err = excelize.CoordinatesToCellName(endCol, endRow); err != nil {
				return err
			}
		}

		if err := w.file.SetCellValue(sheet.Name, start, c.Value); err != nil {
			return err
		}
		style, err := w.style(c.Design.withDefaults(base), c.Fill)
		if err != nil {
			return err
		}
		if err := w.file.SetCellStyle(sheet.Name, start, end, style); err != nil {
			return err
		}
		if end != start {
			if err := w.file.MergeCell(sheet.Name, start, end); err != nil {
				return err
			}
		}

		if width := DisplayWidth(c.Value); width > widths[c.Column] {
			widths[c.Column] = width
		}
	}

	if !autoWidth {
		return nil
	}
	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(sheet.Name, name, name, width+2); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) style(d Design, fill bool) (int, error) {
	key := styleKey{design: d, fill: fill}
	if id, ok := w.styles[key]; ok {
		return id, nil
	}

	thin := func(side string) excelize.Border {
		return excelize.Border{Type: side, Color: "000000", Style: 1}
	}
	style := &excelize.Style{
		Border: []excelize.Border{thin("left"), thin("right"), thin("top"), thin("bottom")},
		Font:   &excelize.Font{Family: d.Font, Size: d.FontSize, Bold: d.FontBold},
		Alignment: &excelize.Alignment{
			Horizontal: d.HzAlign,
			Vertical:   "center",
		},
	}
	if fill {
		color := d.BgColor
		if named, ok := Palette[color]; ok {
			color = named
		}
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}

	id, err := w.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	w.styles[key] = id
	return id, nil
}

// DisplayWidth estimates the column width a value needs. Letters and digits
// count 1.1 and every other character 2.2.
func DisplayWidth(v any) float64 {
	if v == nil {
		return 0
	}
	width := 0.0
	for _, r := range fmt.Sprint(v) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			width += 1.1
		} else {
			width += 2.2
		}
	}
	return width
}

func writeXLSX(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	sheets, err := DecodeSheets(args.Value("sheets"))
	if err != nil {
		return cty.NilVal, err
	}
	name, err := args.String("xlsx_name")
	if err != nil {
		return cty.NilVal, err
	}
	dir, err := args.String("xlsx_path")
	if err != nil {
		return cty.NilVal, err
	}
	autoWidth, err := args.Bool("auto_width")
	if err != nil {
		return cty.NilVal, err
	}

	path := filepath.Join(dir, name+".xlsx")
	if err := Write(path, sheets, autoWidth); err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Info("Workbook written.", "path", path, "sheets", len(sheets))
	return cty.StringVal(path), nil
}
