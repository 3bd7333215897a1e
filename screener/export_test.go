package screener

import (
	"bytes"
	"strings"
	"testing"
)

func sampleRecords() []MatchRecord {
	return []MatchRecord{
		{
			Sector: "반도체", Code: "005930", Name: "삼성전자",
			Price: 71500, ChangePct: -1.25, RSI: 28.4,
			MACD: -120.55, Signal: -98.21,
			Signals: []string{"RSI 과매도", "MACD 골든크로스"},
			Volume:  13250000,
		},
		{
			Sector: "기타", Code: "035420", Name: "NAVER",
			Price: 182000, ChangePct: 0.0, RSI: 55.0,
			MACD: 310.12, Signal: 280.4,
			Volume: 420000,
		},
	}
}

func TestExportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), utf8BOM) {
		t.Error("export must start with a UTF-8 BOM for spreadsheet apps")
	}

	got, err := ParseCSV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	want := sampleRecords()
	if len(got) != len(want) {
		t.Fatalf("round trip returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Code != want[i].Code {
			t.Errorf("record %d code = %q, want %q", i, got[i].Code, want[i].Code)
		}
		if got[i].Name != want[i].Name {
			t.Errorf("record %d name = %q, want %q", i, got[i].Name, want[i].Name)
		}
		if got[i].SignalText() != want[i].SignalText() {
			t.Errorf("record %d signals = %q, want %q", i, got[i].SignalText(), want[i].SignalText())
		}
	}
	if got[1].Signals != nil {
		t.Errorf("empty signal cell should parse to nil, got %v", got[1].Signals)
	}
}

func TestParseCSVRejectsForeignHeader(t *testing.T) {
	in := "date,open,close\n2024-01-02,100,101\n"
	if _, err := ParseCSV(strings.NewReader(in)); err == nil {
		t.Error("foreign header must be rejected")
	}
}

func TestSignalText(t *testing.T) {
	mr := MatchRecord{}
	if got := mr.SignalText(); got != "-" {
		t.Errorf("empty signals = %q, want -", got)
	}
	mr.Signals = []string{"갭하락 -6.0%", "거래량 급증"}
	if got := mr.SignalText(); got != "갭하락 -6.0% | 거래량 급증" {
		t.Errorf("joined signals = %q", got)
	}
}

func TestColumnWidthsCountWideRunes(t *testing.T) {
	widths := ColumnWidths(nil)
	// "섹터" is two wide runes.
	if widths[0] != 4 {
		t.Errorf("header 섹터 width = %d, want 4", widths[0])
	}

	widths = ColumnWidths([]MatchRecord{{Name: "삼성전자우"}})
	if widths[2] != 10 {
		t.Errorf("name 삼성전자우 width = %d, want 10", widths[2])
	}
}
