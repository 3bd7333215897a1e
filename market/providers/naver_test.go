package providers

import "testing"

const siseDaySample = `
<table class="type2">
<tr>
  <td align="center"><span class="tah p10 gray03">2024.01.05</span></td>
  <td class="num"><span class="tah p11">76,600</span></td>
  <td class="num"><img src="ico_down.gif" /><span class="tah p11 nv01">600</span></td>
  <td class="num"><span class="tah p11">76,700</span></td>
  <td class="num"><span class="tah p11">77,100</span></td>
  <td class="num"><span class="tah p11">76,400</span></td>
  <td class="num"><span class="tah p11">11,304,316</span></td>
</tr>
<tr>
  <td align="center"><span class="tah p10 gray03">2024.01.04</span></td>
  <td class="num"><span class="tah p11">77,200</span></td>
  <td class="num"><img src="ico_down.gif" /><span class="tah p11 nv01">300</span></td>
  <td class="num"><span class="tah p11">76,100</span></td>
  <td class="num"><span class="tah p11">77,300</span></td>
  <td class="num"><span class="tah p11">76,100</span></td>
  <td class="num"><span class="tah p11">15,324,439</span></td>
</tr>
</table>`

func TestParseSiseDay(t *testing.T) {
	bars, err := parseSiseDay(siseDaySample)
	if err != nil {
		t.Fatalf("parseSiseDay failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("want 2 bars, got %d", len(bars))
	}

	b := bars[0]
	if b.Date != "2024-01-05" {
		t.Errorf("date = %q", b.Date)
	}
	if b.Close != 76600 || b.Open != 76700 || b.High != 77100 || b.Low != 76400 {
		t.Errorf("unexpected prices: %+v", b)
	}
	if b.Volume != 11304316 {
		t.Errorf("volume = %f", b.Volume)
	}
}

func TestParseSiseDayEmptyPage(t *testing.T) {
	bars, err := parseSiseDay("<table class=\"type2\"></table>")
	if err != nil {
		t.Fatalf("parseSiseDay failed: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("empty page should yield no bars, got %d", len(bars))
	}
}

func TestParseKoreanNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"76,600", 76600},
		{" 1,234,567 ", 1234567},
		{"120", 120},
	}
	for _, tt := range tests {
		got, err := parseKoreanNumber(tt.in)
		if err != nil {
			t.Errorf("parseKoreanNumber(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseKoreanNumber(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
