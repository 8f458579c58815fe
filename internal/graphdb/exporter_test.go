package graphdb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"subway-map/internal/subway"
)

const table = `1号线站点间距
车站A---车站B	2.5
车站B---车站C	1.0
2号线站点间距
车站D---车站B	0.8
`

func newNetwork(t *testing.T) *subway.Network {
	t.Helper()
	net, err := subway.Parse(strings.NewReader(table))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return net
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestExportWritesStationsAndSegments(t *testing.T) {
	client := NewMemoryClient()
	exp := NewExporter(client, discard())
	net := newNetwork(t)

	if err := exp.Export(context.Background(), net); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if got := client.Transactions(); got != 1 {
		t.Fatalf("expected one transaction, got %d", got)
	}
	calls := client.WriteCalls()
	if len(calls) != 3 {
		t.Fatalf("expected clear, stations and segments writes, got %d", len(calls))
	}
	if calls[0].Query != clearCypher {
		t.Fatalf("expected clear first, got %q", calls[0].Query)
	}

	stations := calls[1].Params["stations"].([]any)
	if len(stations) != 4 {
		t.Fatalf("expected 4 station rows, got %d", len(stations))
	}
	var transfer map[string]any
	for _, row := range stations {
		m := row.(map[string]any)
		if m["name"] == "车站B" {
			transfer = m
		}
	}
	if transfer == nil || transfer["transfer"] != true || len(transfer["lines"].([]string)) != 2 {
		t.Fatalf("unexpected row for 车站B: %v", transfer)
	}

	segments := calls[2].Params["segments"].([]any)
	if len(segments) != net.SegmentCount() {
		t.Fatalf("expected %d segment rows, got %d", net.SegmentCount(), len(segments))
	}
}

func TestExportBatches(t *testing.T) {
	client := NewMemoryClient()
	exp := NewExporter(client, discard())
	exp.batchSize = 4

	if err := exp.Export(context.Background(), newNetwork(t)); err != nil {
		t.Fatalf("Export: %v", err)
	}
	// clear + 1 station batch + 2 segment batches (6 segments / 4)
	if got := len(client.WriteCalls()); got != 4 {
		t.Fatalf("expected 4 writes, got %d", got)
	}
}

func TestExportPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	client := NewMemoryClient().WithError(boom)
	exp := NewExporter(client, discard())
	if err := exp.Export(context.Background(), newNetwork(t)); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls := client.WriteCalls(); len(calls) != 0 {
		t.Fatalf("failed export must not leave writes behind, got %d", len(calls))
	}
}

func TestVerify(t *testing.T) {
	net := newNetwork(t)
	client := NewMemoryClient()
	exp := NewExporter(client, discard())

	client.PushReadResult(Result{Records: []Record{{"stations": int64(4)}}})
	if err := exp.Verify(context.Background(), net); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	client.PushReadResult(Result{Records: []Record{{"stations": int64(3)}}})
	if err := exp.Verify(context.Background(), net); err == nil {
		t.Fatal("expected mismatch error")
	}

	if err := exp.Verify(context.Background(), net); err == nil {
		t.Fatal("expected error for empty result")
	}
	if got := len(client.ReadCalls()); got != 3 {
		t.Fatalf("expected 3 reads, got %d", got)
	}
}

func TestNewNeo4jClientRequiresURI(t *testing.T) {
	if _, err := NewNeo4jClient(context.Background(), Options{}); !errors.Is(err, ErrMissingURI) {
		t.Fatalf("expected ErrMissingURI, got %v", err)
	}
}
