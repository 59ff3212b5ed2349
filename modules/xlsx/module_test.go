package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/specialistvlad/dmutils/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/zclconf/go-cty/cty"
)

func sheetsVal(t *testing.T, sheets []any) cty.Value {
	t.Helper()
	v, err := ctyutil.FromNative(sheets)
	require.NoError(t, err)
	return v
}

func cell(row, col int64, value any, extra ...any) map[string]any {
	c := map[string]any{"row": row, "column": col, "value": value}
	for i := 0; i+1 < len(extra); i += 2 {
		c[extra[i].(string)] = extra[i+1]
	}
	return c
}

func TestWriteXLSX(t *testing.T) {
	ns := testutil.NewNamespace(t, &Module{})
	dir := t.TempDir()

	sheets := sheetsVal(t, []any{
		map[string]any{
			"name": "demo",
			"cells": []any{
				cell(1, 1, "demo1", "fill", true),
				cell(2, 1, "demo2"),
				cell(1, 2, int64(42)),
				cell(3, 1, "merged title", "end_column", int64(3), "design", map[string]any{"bgcolor": "MagicMint", "fontbold": true}, "fill", true),
			},
		},
		map[string]any{
			"name":   "second",
			"design": map[string]any{"hzalign": "center"},
			"cells":  []any{cell(1, 1, true)},
		},
	})

	got := testutil.Invoke(t, ns, "write_xlsx", namespace.NewCall(sheets, cty.StringVal("report"), cty.StringVal(dir)))
	path := filepath.Join(dir, "report.xlsx")
	require.Equal(t, path, got.AsString())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	if diff := cmp.Diff([]string{"demo", "second"}, f.GetSheetList()); diff != "" {
		t.Errorf("sheet list mismatch (-want +got):\n%s", diff)
	}

	for cellName, want := range map[string]string{"A1": "demo1", "A2": "demo2", "B1": "42", "A3": "merged title"} {
		v, err := f.GetCellValue("demo", cellName)
		require.NoError(t, err)
		assert.Equal(t, want, v, cellName)
	}
	v, err := f.GetCellValue("second", "A1")
	require.NoError(t, err)
	assert.Equal(t, "TRUE", v)

	merged, err := f.GetMergeCells("demo")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A3", merged[0].GetStartAxis())
	assert.Equal(t, "C3", merged[0].GetEndAxis())

	width, err := f.GetColWidth("demo", "A")
	require.NoError(t, err)
	assert.InDelta(t, DisplayWidth("merged title")+2, width, 0.01)

	styleID, err := f.GetCellStyle("demo", "A3")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotEmpty(t, style.Fill.Color)
	assert.Contains(t, style.Fill.Color[0], "AAF0D1")
	assert.True(t, style.Font.Bold)
}

func TestWriteXLSX_NoAutoWidth(t *testing.T) {
	ns := testutil.NewNamespace(t, &Module{})
	dir := t.TempDir()
	sheets := sheetsVal(t, []any{map[string]any{"name": "s", "cells": []any{cell(1, 1, "a very long value indeed")}}})

	testutil.Invoke(t, ns, "write_xlsx", namespace.NewCall(sheets, cty.StringVal("plain"), cty.StringVal(dir), cty.False))

	f, err := excelize.OpenFile(filepath.Join(dir, "plain.xlsx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	width, err := f.GetColWidth("s", "A")
	require.NoError(t, err)
	assert.Less(t, width, DisplayWidth("a very long value indeed"))
}

func TestWriteXLSX_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		sheets []any
		want   string
	}{
		{name: "no sheets", sheets: []any{}, want: "at least one sheet"},
		{name: "unnamed sheet", sheets: []any{map[string]any{"cells": []any{}}}, want: "has no name"},
		{
			name:   "duplicate sheet",
			sheets: []any{map[string]any{"name": "a"}, map[string]any{"name": "a"}},
			want:   `duplicate sheet name "a"`,
		},
		{
			name:   "zero row",
			sheets: []any{map[string]any{"name": "a", "cells": []any{cell(0, 1, "x")}}},
			want:   "row and column start at 1",
		},
		{
			name:   "nested value",
			sheets: []any{map[string]any{"name": "a", "cells": []any{cell(1, 1, []any{"x"})}}},
			want:   "value must be a string, number or bool",
		},
		{
			name:   "unknown key",
			sheets: []any{map[string]any{"name": "a", "colour": "red"}},
			want:   "invalid sheets",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ns := testutil.NewNamespace(t, &Module{})
			_, err := ns.Invoke(context.Background(), "write_xlsx", namespace.NewCall(
				sheetsVal(t, tc.sheets), cty.StringVal("bad"), cty.StringVal(t.TempDir()),
			))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestDisplayWidth(t *testing.T) {
	assert.InDelta(t, 5.5, DisplayWidth("demo1"), 0.001)
	assert.InDelta(t, 2.2+1.1, DisplayWidth("-1"), 0.001)
	assert.InDelta(t, 4.4, DisplayWidth("a b"), 0.001)
	assert.Zero(t, DisplayWidth(nil))
}
