// Package pipeline parses and cleans user-supplied tabular data: offline
// OHLCV history substituting for a live fetch, and symbol-master lists.
package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"krscreener/market"
	"krscreener/symbols"
)

// MalformedUploadError reports required columns missing from an upload. The
// record is not accepted into the pipeline.
type MalformedUploadError struct {
	Missing []string
}

func (e *MalformedUploadError) Error() string {
	return fmt.Sprintf("upload missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Column header aliases. Each required field accepts both language variants.
var (
	dateAliases   = []string{"date", "날짜"}
	openAliases   = []string{"open", "시가"}
	closeAliases  = []string{"close", "종가"}
	volumeAliases = []string{"volume", "거래량"}

	nameAliases   = []string{"회사명", "name", "corp_name", "company", "companyname"}
	codeAliases   = []string{"종목코드", "code", "symbol", "ticker", "stock_code"}
	sectorAliases = []string{"섹터", "sector", "업종", "industry"}
)

func headerIndex(header []string, aliases []string) int {
	for _, a := range aliases {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), a) {
				return i
			}
		}
	}
	return -1
}

type ohlcvRow struct {
	date       time.Time
	open       float64
	hasOpen    bool
	close, vol float64
}

// ParseOHLCV reads an uploaded daily price CSV into a validated PriceSeries.
// close and volume columns are required (either header variant); date is
// used for sorting when present; open defaults to the previous close. Rows
// with unparseable or non-positive required fields are dropped; fewer than
// market.MinBars clean rows rejects the upload.
func ParseOHLCV(r io.Reader) (*market.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	stripBOM(header)

	closeIdx := headerIndex(header, closeAliases)
	volIdx := headerIndex(header, volumeAliases)
	dateIdx := headerIndex(header, dateAliases)
	openIdx := headerIndex(header, openAliases)

	var missing []string
	if closeIdx < 0 {
		missing = append(missing, "close/종가")
	}
	if volIdx < 0 {
		missing = append(missing, "volume/거래량")
	}
	if len(missing) > 0 {
		return nil, &MalformedUploadError{Missing: missing}
	}

	var rows []ohlcvRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row, ok := parseOHLCVRow(rec, dateIdx, openIdx, closeIdx, volIdx)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}

	// Sort by date when the column exists; otherwise trust file order.
	if dateIdx >= 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].date.Before(rows[j].date)
		})
	}

	if len(rows) < market.MinBars {
		return nil, fmt.Errorf("%d usable rows (need %d): %w",
			len(rows), market.MinBars, market.ErrInsufficientHistory)
	}

	closes := make([]float64, len(rows))
	vols := make([]float64, len(rows))
	for i, row := range rows {
		closes[i] = row.close
		vols[i] = row.vol
	}

	var open float64
	if last := rows[len(rows)-1]; last.hasOpen {
		open = last.open
	}
	return market.NewPriceSeries(closes, vols, open)
}

func parseOHLCVRow(rec []string, dateIdx, openIdx, closeIdx, volIdx int) (ohlcvRow, bool) {
	var row ohlcvRow

	get := func(idx int) (float64, bool) {
		if idx < 0 || idx >= len(rec) {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(rec[idx]), ",", ""), 64)
		if err != nil || v <= 0 {
			return 0, false
		}
		return v, true
	}

	var ok bool
	if row.close, ok = get(closeIdx); !ok {
		return row, false
	}
	if row.vol, ok = get(volIdx); !ok {
		return row, false
	}
	row.open, row.hasOpen = get(openIdx)

	if dateIdx >= 0 && dateIdx < len(rec) {
		if d, ok := parseDate(rec[dateIdx]); ok {
			row.date = d
		} else {
			return row, false // a dated file with an unparseable date row
		}
	}
	return row, true
}

var dateLayouts = []string{"2006-01-02", "2006.01.02", "2006/01/02", "20060102"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// ParseSymbolMaster reads an uploaded symbol-master CSV. Company name and
// code columns are required (several header aliases each); sector defaults
// to 기타. Codes are zero-padded to 6 digits and duplicates collapse to the
// first row.
func ParseSymbolMaster(r io.Reader) ([]market.Symbol, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	stripBOM(header)

	nameIdx := headerIndex(header, nameAliases)
	codeIdx := headerIndex(header, codeAliases)
	sectorIdx := headerIndex(header, sectorAliases)

	var missing []string
	if nameIdx < 0 {
		missing = append(missing, "회사명/name")
	}
	if codeIdx < 0 {
		missing = append(missing, "종목코드/code")
	}
	if len(missing) > 0 {
		return nil, &MalformedUploadError{Missing: missing}
	}

	seen := make(map[string]bool)
	var rows []market.Symbol
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) <= nameIdx || len(rec) <= codeIdx {
			continue
		}

		name := strings.TrimSpace(rec[nameIdx])
		if name == "" {
			continue
		}
		code := symbols.NormalizeCode(rec[codeIdx])
		if seen[code] {
			continue
		}
		seen[code] = true

		sector := market.DefaultSector
		if sectorIdx >= 0 && sectorIdx < len(rec) {
			if s := strings.TrimSpace(rec[sectorIdx]); s != "" {
				sector = s
			}
		}
		rows = append(rows, market.Symbol{Code: code, Name: name, Sector: sector})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("symbol master upload has no usable rows")
	}
	return rows, nil
}

// stripBOM removes a UTF-8 byte-order marker from the first header cell,
// common in spreadsheet-exported CSV.
func stripBOM(header []string) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
}
