package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"limi-configurator/internal/repository"
)

// ConfigExportHeader 规格单 unit 明细表头
var ConfigExportHeader = []string{
	"Position",
	"Design",
	"Shade",
	"Cable Size",
}

// GenerateConfigExport 生成一份存档的 Excel 规格单
// 上半部分是配置概要，下半部分是逐灯位明细
func GenerateConfigExport(cfg *repository.SavedConfig) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，出错路径手动 Close

	sheetName := "Configuration"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 概要区
	summary := [][2]any{
		{"Name", cfg.Name},
		{"Light Type", cfg.LightType},
	}
	if cfg.BaseType != "" {
		summary = append(summary, [2]any{"Base Type", cfg.BaseType})
	}
	summary = append(summary,
		[2]any{"Configuration", cfg.ConfigType},
	)
	if cfg.SystemType != "" {
		summary = append(summary, [2]any{"System", cfg.SystemType})
	}
	summary = append(summary,
		[2]any{"Base Color", cfg.BaseColor},
		[2]any{"Connector Color", cfg.ConnectorColor},
		[2]any{"Light Amount", cfg.LightAmount},
		[2]any{"Total Price", cfg.Price},
	)

	row := 1
	for _, kv := range summary {
		keyCell, _ := excelize.CoordinatesToCellName(1, row)
		valCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(sheetName, keyCell, kv[0]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set summary cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, valCell, kv[1]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set summary cell: %w", err)
		}
		if err := f.SetCellStyle(sheetName, keyCell, keyCell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set summary style: %w", err)
		}
		row++
	}

	// 明细区表头
	row++
	for col, header := range ConfigExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 逐灯位明细
	for i, design := range cfg.Designs {
		row++
		shade := ""
		if i < len(cfg.Shades) {
			shade = cfg.Shades[i]
		}
		cableSize := 0
		if i < len(cfg.CableSizes) {
			cableSize = cfg.CableSizes[i]
		}
		values := []any{i + 1, design, shade, cableSize}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	for col, width := range []float64{12, 24, 16, 12} {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheetName, name, name, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}
	return buf.Bytes(), nil
}
