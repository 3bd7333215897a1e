package providers

import (
	"context"
	"errors"
	"testing"

	"krscreener/market"
)

func TestManagerFallbackOrder(t *testing.T) {
	primary := &MockProvider{Err: errors.New("blocked")}
	fallback := &MockProvider{BasePrice: 10000}

	m := NewManager(nil)
	m.AddProvider(prioritized{primary, 5})
	m.AddProvider(prioritized{fallback, 1})

	ps, err := m.FetchHistory(context.Background(), "005930")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if primary.Calls != 1 {
		t.Errorf("primary should be attempted first, calls=%d", primary.Calls)
	}
	if fallback.Calls != 1 {
		t.Errorf("fallback should be attempted after primary failure, calls=%d", fallback.Calls)
	}
	if ps.Len() < market.MinBars {
		t.Errorf("series too short: %d", ps.Len())
	}
}

type prioritized struct {
	DataProvider
	prio int
}

func (p prioritized) Priority() int { return p.prio }

func TestManagerAllFailed(t *testing.T) {
	m := NewManager(nil)
	m.AddProvider(&MockProvider{Err: errors.New("down")})

	_, err := m.FetchHistory(context.Background(), "005930")
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if !IsUnavailable(err) {
		t.Errorf("provider failure should classify as unavailable: %v", err)
	}
}

func TestManagerInsufficientHistory(t *testing.T) {
	short := &MockProvider{Bars: GenerateBars(10000, 20)}

	m := NewManager(nil)
	m.AddProvider(short)

	_, err := m.FetchHistory(context.Background(), "005930")
	if !errors.Is(err, market.ErrInsufficientHistory) {
		t.Errorf("want ErrInsufficientHistory, got %v", err)
	}
}

func TestManagerMemoizesFetches(t *testing.T) {
	mp := NewMockProvider()
	m := NewManager(nil)
	m.AddProvider(mp)

	for i := 0; i < 3; i++ {
		if _, err := m.FetchHistory(context.Background(), "000660"); err != nil {
			t.Fatalf("FetchHistory failed: %v", err)
		}
	}
	if mp.Calls != 1 {
		t.Errorf("repeated fetches within TTL should hit the cache, calls=%d", mp.Calls)
	}

	m.InvalidateCache("000660")
	if _, err := m.FetchHistory(context.Background(), "000660"); err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if mp.Calls != 2 {
		t.Errorf("invalidated code should be refetched, calls=%d", mp.Calls)
	}
}

func TestManagerOfflinePrecedence(t *testing.T) {
	mp := NewMockProvider()
	m := NewManager(nil)
	m.AddProvider(mp)

	closes := make([]float64, market.MinBars)
	vols := make([]float64, market.MinBars)
	for i := range closes {
		closes[i] = float64(1000 + i)
		vols[i] = 500
	}
	uploaded, err := market.NewPriceSeries(closes, vols, 0)
	if err != nil {
		t.Fatal(err)
	}
	m.PutOffline("035420", uploaded)

	ps, err := m.FetchHistory(context.Background(), "035420")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if ps != uploaded {
		t.Error("offline series must take precedence over live fetch")
	}
	if mp.Calls != 0 {
		t.Errorf("no provider call expected for offline code, calls=%d", mp.Calls)
	}
	if !m.Offline("035420") {
		t.Error("Offline should report registered code")
	}
}

func TestBuildSeriesCleansRows(t *testing.T) {
	bars := GenerateBars(10000, 40)
	bars = append(bars, bars[len(bars)-1]) // duplicate date
	bars[3].Volume = 0                     // dropped row

	ps, err := buildSeries("005930", bars)
	if err != nil {
		t.Fatalf("buildSeries failed: %v", err)
	}
	if ps.Len() != 39 {
		t.Errorf("want 39 bars after dedup+drop, got %d", ps.Len())
	}
	for i := 1; i < ps.Len(); i++ {
		if ps.Closes[i] <= 0 {
			t.Fatalf("non-positive close survived cleaning at %d", i)
		}
	}
}
