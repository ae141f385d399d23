// Package export renders the current dashboard state into an xlsx workbook
// for sharing outside the terminal. One summary sheet, then one sheet per
// channel with the live exclusion flags at export time.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"platen/internal/ledger"
)

const summarySheet = "Summary"

// Channel is one channel's rows plus the readiness facts shown on the
// summary sheet. Orders carry the live exclusion flag, not the hydrated
// one, so an unsaved toggle shows up in the export.
type Channel struct {
	Source    string
	Label     string
	State     string
	Dirty     bool
	Completed bool
	Orders    []ledger.Order
}

// Snapshot is everything the workbook needs, assembled by the caller.
type Snapshot struct {
	Period   ledger.Period
	Channels []Channel
}

// DefaultFilename names the workbook after the period, e.g.
// platen-2026-03.xlsx.
func DefaultFilename(period ledger.Period) string {
	return fmt.Sprintf("platen-%s.xlsx", period)
}

// Save builds the workbook and writes it to path, creating parent
// directories as needed.
func Save(path string, snap Snapshot) error {
	f, err := Workbook(snap)
	if err != nil {
		return err
	}
	defer f.Close()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook renders snap into a new xlsx file. The caller owns closing it.
func Workbook(snap Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := fillSummary(f, snap, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	used := map[string]bool{summarySheet: true}
	for _, ch := range snap.Channels {
		if err := fillChannelSheet(f, ch, headerStyle, used); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func fillSummary(f *excelize.File, snap Snapshot, headerStyle int) error {
	headers := []string{
		"Channel", "Orders", "Excluded", "To print", "Amount to print (yen)",
		"Readiness", "Unsaved changes", "Completed",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summarySheet, cell, h)
	}
	f.SetRowStyle(summarySheet, 1, 1, headerStyle)

	f.SetCellValue(summarySheet, "A2", "Period")
	f.SetCellValue(summarySheet, "B2", string(snap.Period))

	var totalOrders, totalExcluded int
	var totalAmount int64
	row := 3
	for _, ch := range snap.Channels {
		excluded, amount := tally(ch.Orders)
		totalOrders += len(ch.Orders)
		totalExcluded += excluded
		totalAmount += amount

		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), displayLabel(ch))
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), len(ch.Orders))
		f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), excluded)
		f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), len(ch.Orders)-excluded)
		f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), amount)
		f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), ch.State)
		f.SetCellValue(summarySheet, fmt.Sprintf("G%d", row), yesNo(ch.Dirty))
		f.SetCellValue(summarySheet, fmt.Sprintf("H%d", row), yesNo(ch.Completed))
		row++
	}

	f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), totalOrders)
	f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), totalExcluded)
	f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), totalOrders-totalExcluded)
	f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), totalAmount)

	f.SetColWidth(summarySheet, "A", "A", 22)
	f.SetColWidth(summarySheet, "B", "E", 18)
	f.SetColWidth(summarySheet, "F", "H", 16)
	return nil
}

func fillChannelSheet(f *excelize.File, ch Channel, headerStyle int, used map[string]bool) error {
	name := sheetName(ch, used)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	headers := []string{"Order ID", "Title", "Amount (yen)", "Ordered", "Excluded"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(name, cell, h)
	}
	f.SetRowStyle(name, 1, 1, headerStyle)

	for i, order := range ch.Orders {
		row := i + 2
		f.SetCellValue(name, fmt.Sprintf("A%d", row), order.OrderID)
		f.SetCellValue(name, fmt.Sprintf("B%d", row), order.Title)
		f.SetCellValue(name, fmt.Sprintf("C%d", row), order.Amount)
		f.SetCellValue(name, fmt.Sprintf("D%d", row), order.OrderedAt)
		f.SetCellValue(name, fmt.Sprintf("E%d", row), yesNo(order.Excluded))
	}

	f.SetColWidth(name, "A", "A", 16)
	f.SetColWidth(name, "B", "B", 40)
	f.SetColWidth(name, "C", "E", 14)
	return nil
}

func tally(orders []ledger.Order) (excluded int, includedAmount int64) {
	for _, order := range orders {
		if order.Excluded {
			excluded++
			continue
		}
		includedAmount += order.Amount
	}
	return excluded, includedAmount
}

func displayLabel(ch Channel) string {
	if ch.Label != "" {
		return ch.Label
	}
	return ch.Source
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return ""
}

// sheetName makes the channel label safe for an xlsx sheet: the characters
// []:*?/\ are not allowed and names cap at 31 runes. Collisions fall back
// to the source id.
func sheetName(ch Channel, used map[string]bool) string {
	name := displayLabel(ch)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, name)
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	if name == "" || used[name] {
		name = ch.Source
	}
	for used[name] {
		name += "+"
		if runes := []rune(name); len(runes) > 31 {
			name = string(runes[len(runes)-31:])
		}
	}
	used[name] = true
	return name
}
