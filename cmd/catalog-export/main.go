package main

import (
	"fmt"
	"log"
	"os"

	"github.com/xuri/excelize/v2"

	"limi-configurator/internal/catalog"
)

// 把产品目录导出为 Excel 价目表（给销售/运营用）

func main() {
	out := "catalog.xlsx"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writePendants(f); err != nil {
		log.Fatalf("Failed to write pendants sheet: %v", err)
	}
	if err := writeSystemBases(f); err != nil {
		log.Fatalf("Failed to write system bases sheet: %v", err)
	}
	if err := writeColors(f); err != nil {
		log.Fatalf("Failed to write colors sheet: %v", err)
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(out); err != nil {
		log.Fatalf("Failed to save %s: %v", out, err)
	}
	fmt.Printf("Catalog exported to %s\n", out)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func writePendants(f *excelize.File) error {
	sheet := "Pendants"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, []string{"ID", "Name", "Renderer Code", "Price"}); err != nil {
		return err
	}
	for i, d := range catalog.Pendants() {
		row := i + 2
		values := []any{d.ID, d.Name, d.RendererCode, d.Price}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSystemBases(f *excelize.File) error {
	sheet := "System Bases"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, []string{"ID", "Name", "System", "Renderer Code", "Price", "Shades"}); err != nil {
		return err
	}
	for i, d := range catalog.SystemBases() {
		shades := ""
		for j, s := range d.Shades {
			if j > 0 {
				shades += ", "
			}
			shades += s.Name
		}
		row := i + 2
		values := []any{d.ID, d.Name, d.System, d.RendererCode, d.Price, shades}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeColors(f *excelize.File) error {
	sheet := "Colors"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, []string{"ID", "Name", "Renderer Code"}); err != nil {
		return err
	}
	for i, c := range catalog.Colors() {
		row := i + 2
		values := []any{c.ID, c.Name, c.RendererCode}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
