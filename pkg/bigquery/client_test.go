package bigquery

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestConfiguredTablesTrimsAndSkipsBlank(t *testing.T) {
	tables := configuredTables(config.BigQueryConfig{OrderEventsTable: " order_events "})
	if len(tables) != 1 || tables[0] != "order_events" {
		t.Fatalf("expected [order_events], got %v", tables)
	}
	if tables := configuredTables(config.BigQueryConfig{OrderEventsTable: "  "}); len(tables) != 0 {
		t.Fatalf("expected no tables, got %v", tables)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "shop", OrderEventsTable: "order_events"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	gcp := config.GCPConfig{ProjectID: "shop-prod"}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{OrderEventsTable: "order_events"}, nil); err != errDatasetRequired {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{Dataset: "shop"}, nil); err != errTableNameRequired {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err != errClientNotInitialized {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.InsertRows(context.Background(), "order_events", []any{struct{}{}}); err != errClientNotInitialized {
		t.Fatalf("expected not initialized, got %v", err)
	}
}
