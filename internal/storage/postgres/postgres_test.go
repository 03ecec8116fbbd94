package postgres

import (
	"strings"
	"testing"
)

func TestConnStringDefaults(t *testing.T) {
	for _, k := range []string{"PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGSSLMODE"} {
		t.Setenv(k, "")
	}

	got := ConnString("")
	want := "host=127.0.0.1 port=5432 user=gimelstudio dbname=gimelstudio sslmode=disable"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConnStringFromEnv(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGUSER", "studio")
	t.Setenv("PGDATABASE", "nodes")
	t.Setenv("PGSSLMODE", "require")

	got := ConnString("s3cret")
	for _, part := range []string{"host=db.internal", "port=6543", "user=studio", "password=s3cret", "dbname=nodes", "sslmode=require"} {
		if !strings.Contains(got, part) {
			t.Errorf("expected %q in %q", part, got)
		}
	}
}

func TestCloseNilDB(t *testing.T) {
	c := &Client{projectID: "demo"}
	if err := c.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if c.ProjectID() != "demo" {
		t.Errorf("expected project demo, got %s", c.ProjectID())
	}
}
