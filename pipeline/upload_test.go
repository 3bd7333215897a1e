package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"krscreener/market"
)

func TestParseOHLCV(t *testing.T) {
	var b strings.Builder
	b.WriteString("날짜,시가,종가,거래량\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "2024-%02d-%02d,%d,%d,%d\n", i/28+1, i%28+1, 1000+i, 1010+i, 50000+i)
	}

	ps, err := ParseOHLCV(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ParseOHLCV failed: %v", err)
	}
	if ps.Len() != 40 {
		t.Errorf("want 40 bars, got %d", ps.Len())
	}
	if ps.Current != 1049 || ps.PrevClose != 1048 {
		t.Errorf("tail snapshot wrong: current=%f prev=%f", ps.Current, ps.PrevClose)
	}
	if ps.Open != 1039 {
		t.Errorf("open from last row expected 1039, got %f", ps.Open)
	}
}

func TestParseOHLCVInsufficientRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,close,volume\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,%d,%d\n", i+1, 1000+i, 50000)
	}

	_, err := ParseOHLCV(strings.NewReader(b.String()))
	if !errors.Is(err, market.ErrInsufficientHistory) {
		t.Errorf("want ErrInsufficientHistory, got %v", err)
	}
}

func TestParseOHLCVMissingColumns(t *testing.T) {
	csv := "date,open,close\n2024-01-01,100,101\n"

	_, err := ParseOHLCV(strings.NewReader(csv))
	var malformed *MalformedUploadError
	if !errors.As(err, &malformed) {
		t.Fatalf("want MalformedUploadError, got %v", err)
	}
	if len(malformed.Missing) != 1 || !strings.Contains(malformed.Missing[0], "volume") {
		t.Errorf("missing fields should name volume: %v", malformed.Missing)
	}
}

func TestParseOHLCVOpenDefaultsToPrevClose(t *testing.T) {
	var b strings.Builder
	b.WriteString("close,volume\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%d,%d\n", 1000+i, 50000)
	}

	ps, err := ParseOHLCV(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ParseOHLCV failed: %v", err)
	}
	if ps.Open != ps.PrevClose {
		t.Errorf("open should default to prev close: open=%f prev=%f", ps.Open, ps.PrevClose)
	}
}

func TestParseOHLCVDropsBadRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,close,volume\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "2024-%02d-%02d,%d,%d\n", i/28+1, i%28+1, 1000+i, 50000)
	}
	b.WriteString("2024-03-01,,50000\n")  // missing close
	b.WriteString("2024-03-02,1050,0\n")  // non-positive volume
	b.WriteString("notadate,1050,50000\n")

	ps, err := ParseOHLCV(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ParseOHLCV failed: %v", err)
	}
	if ps.Len() != 40 {
		t.Errorf("bad rows should be dropped: want 40 bars, got %d", ps.Len())
	}
}

func TestParseOHLCVSortsByDate(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,close,volume\n")
	// Write newest-first, like a portal export.
	for i := 39; i >= 0; i-- {
		fmt.Fprintf(&b, "2024-%02d-%02d,%d,%d\n", i/28+1, i%28+1, 1000+i, 50000)
	}

	ps, err := ParseOHLCV(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ParseOHLCV failed: %v", err)
	}
	if ps.Current != 1039 {
		t.Errorf("latest close should be 1039 after sorting, got %f", ps.Current)
	}
}

func TestParseSymbolMaster(t *testing.T) {
	csv := "\uFEFFname,code,sector\n" +
		"삼성전자,5930,반도체\n" +
		"카카오,035720,\n" +
		"삼성전자,005930,반도체\n" // duplicate code collapses

	rows, err := ParseSymbolMaster(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseSymbolMaster failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows after dedup, got %d", len(rows))
	}
	if rows[0].Code != "005930" {
		t.Errorf("code should be zero-padded: %q", rows[0].Code)
	}
	if rows[1].Sector != market.DefaultSector {
		t.Errorf("empty sector should default, got %q", rows[1].Sector)
	}
}

func TestParseSymbolMasterAliases(t *testing.T) {
	csv := "회사명,종목코드,업종\nNAVER,035420,서비스업\n"
	rows, err := ParseSymbolMaster(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseSymbolMaster failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "NAVER" || rows[0].Sector != "서비스업" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestParseSymbolMasterMissingColumns(t *testing.T) {
	csv := "sector\n반도체\n"
	_, err := ParseSymbolMaster(strings.NewReader(csv))
	var malformed *MalformedUploadError
	if !errors.As(err, &malformed) {
		t.Fatalf("want MalformedUploadError, got %v", err)
	}
	if len(malformed.Missing) != 2 {
		t.Errorf("both name and code should be reported missing: %v", malformed.Missing)
	}
}
