package duckdb

import (
	"testing"

	"github.com/relatadb/relata/backend"
)

func TestDialectCapabilities(t *testing.T) {
	d := Dialect()

	if d.Name != "duckdb" {
		t.Errorf("Expected dialect name duckdb, got %q", d.Name)
	}
	if d.Checkpoints || d.Serial {
		t.Errorf("Expected no savepoint or serial support, got %+v", d)
	}
	if !d.Returns || !d.ILike {
		t.Errorf("Expected RETURNING and ILIKE support, got %+v", d)
	}
	if d.EmitParam("param_0", 1) != "?" {
		t.Errorf("Expected ?, got %q", d.EmitParam("param_0", 1))
	}
}

func TestSchemeRegistration(t *testing.T) {
	c, err := backend.Open("duckdb:///var/data/analytics.db")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if c.DSN().Database != "var/data/analytics.db" {
		t.Errorf("Unexpected database path %q", c.DSN().Database)
	}
}
