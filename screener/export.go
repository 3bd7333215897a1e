package screener

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// exportHeader matches the original report table column order.
var exportHeader = []string{
	"섹터", "종목코드", "종목명", "현재가", "등락율",
	"RSI", "MACD", "Signal", "매매신호", "거래량",
}

// utf8BOM keeps spreadsheet apps from mangling the Korean columns.
const utf8BOM = "\uFEFF"

func recordRow(mr MatchRecord) []string {
	return []string{
		mr.Sector,
		mr.Code,
		mr.Name,
		strconv.Itoa(int(mr.Price)),
		fmt.Sprintf("%.2f%%", mr.ChangePct),
		fmt.Sprintf("%.1f", mr.RSI),
		fmt.Sprintf("%.2f", mr.MACD),
		fmt.Sprintf("%.2f", mr.Signal),
		mr.SignalText(),
		strconv.Itoa(int(mr.Volume)),
	}
}

// WriteCSV exports match records as UTF-8 CSV with a byte-order marker.
func WriteCSV(w io.Writer, records []MatchRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, mr := range records {
		if err := cw.Write(recordRow(mr)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads back an exported match list. Numeric fields recover only
// the displayed precision.
func ParseCSV(r io.Reader) ([]MatchRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if len(header) != len(exportHeader) || header[0] != exportHeader[0] {
		return nil, fmt.Errorf("unrecognized export header: %v", header)
	}

	var records []MatchRecord
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) != len(exportHeader) {
			return nil, fmt.Errorf("row has %d fields, want %d", len(rec), len(exportHeader))
		}

		mr := MatchRecord{
			Sector: rec[0],
			Code:   rec[1],
			Name:   rec[2],
		}
		mr.Price, _ = strconv.ParseFloat(rec[3], 64)
		mr.ChangePct, _ = strconv.ParseFloat(strings.TrimSuffix(rec[4], "%"), 64)
		mr.RSI, _ = strconv.ParseFloat(rec[5], 64)
		mr.MACD, _ = strconv.ParseFloat(rec[6], 64)
		mr.Signal, _ = strconv.ParseFloat(rec[7], 64)
		if rec[8] != "-" {
			mr.Signals = strings.Split(rec[8], " | ")
		}
		mr.Volume, _ = strconv.ParseFloat(rec[9], 64)

		records = append(records, mr)
	}
	return records, nil
}

// ColumnWidths computes per-column display widths (East Asian wide runes
// counting double) for rendering the match table. Purely presentational.
func ColumnWidths(records []MatchRecord) []int {
	widths := make([]int, len(exportHeader))
	for i, h := range exportHeader {
		widths[i] = displayWidth(h)
	}
	for _, mr := range records {
		for i, cell := range recordRow(mr) {
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func displayWidth(s string) int {
	total := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			total += 2
		default:
			total++
		}
	}
	return total
}
