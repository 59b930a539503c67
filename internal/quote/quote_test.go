package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lilnaht/excelfile-automation/internal/config"
)

func newTestClient(baseURL string, window int) *Client {
	return NewClient(config.QuoteConfig{
		BaseURL:     baseURL,
		MaxDaysBack: window,
		Timeout:     2 * time.Second,
	})
}

func TestLookup_FirstDaySuccess(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		fmt.Fprint(w, `{"value":[{"cotacaoCompra":5.4321,"dataHoraCotacao":"2026-08-28 13:09:02.993"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	ref := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	q, ok := c.Lookup(context.Background(), ref)
	if !ok {
		t.Fatal("expected a quote")
	}
	if got := q.Value.String(); got != "5.4321" {
		t.Errorf("expected rate 5.4321, got %s", got)
	}
	if q.AsOf.Day() != 28 {
		t.Errorf("unexpected as-of date: %v", q.AsOf)
	}
	if n := probes.Load(); n != 1 {
		t.Errorf("expected to stop after the first successful probe, made %d", n)
	}
}

func TestLookup_WalksBackward(t *testing.T) {
	// Empty payloads for the first three days, then a quote.
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if probes.Add(1) <= 3 {
			fmt.Fprint(w, `{"value":[]}`)
			return
		}
		fmt.Fprint(w, `{"value":[{"cotacaoCompra":5.1,"dataHoraCotacao":"2026-08-25 13:09:02.993"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	ref := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	q, ok := c.Lookup(context.Background(), ref)
	if !ok {
		t.Fatal("expected a quote")
	}
	if n := probes.Load(); n != 4 {
		t.Errorf("expected 4 probes, made %d", n)
	}
	if q.AsOf.Day() != 25 {
		t.Errorf("unexpected as-of date: %v", q.AsOf)
	}
}

func TestLookup_ExhaustedWindow(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 10)

	_, ok := c.Lookup(context.Background(), time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))
	if ok {
		t.Fatal("expected the unavailable sentinel")
	}
	if n := probes.Load(); n != 10 {
		t.Errorf("expected exactly 10 probe attempts, made %d", n)
	}
}

func TestLookup_RequestFailureSwallowed(t *testing.T) {
	// A closed server makes every request fail at the transport level.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(srv.URL, 3)

	if _, ok := c.Lookup(context.Background(), time.Now()); ok {
		t.Fatal("expected the unavailable sentinel when every request fails")
	}
}

func TestLookup_DateParameterFormat(t *testing.T) {
	var gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDate = r.URL.Query().Get("@dataCotacao")
		fmt.Fprint(w, `{"value":[{"cotacaoCompra":5.0,"dataHoraCotacao":"2026-02-03 13:00:00.000"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	c.Lookup(context.Background(), time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC))

	// The service takes unpadded M-D-YYYY wrapped in quotes.
	if gotDate != "'2-3-2026'" {
		t.Errorf("unexpected date parameter: %q", gotDate)
	}
}
