package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/normscout/normscout-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func writeDB(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadStampsSourceDatabase(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "norms.json", `{"norms":[{"id":"CE-01","name":"CE Marking"},{"id":"ROHS-01","name":"RoHS"}]}`)
	c := NewCatalog(testLogger(t), dir)

	norms, err := c.Load([]string{"norms.json"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(norms) != 2 {
		t.Fatalf("expected 2 norms, got %d", len(norms))
	}
	for _, n := range norms {
		if n.SourceDatabase != "norms.json" {
			t.Errorf("norm %s source_database = %q, want norms.json", n.ID, n.SourceDatabase)
		}
	}
}

func TestLoadDuplicateIDFirstWins(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "a.json", `{"norms":[{"id":"N-1","name":"from a"}]}`)
	writeDB(t, dir, "b.json", `{"norms":[{"id":"N-1","name":"from b"},{"id":"N-2","name":"only b"}]}`)
	c := NewCatalog(testLogger(t), dir)

	norms, err := c.Load([]string{"a.json", "b.json"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(norms) != 2 {
		t.Fatalf("expected 2 norms after dedupe, got %d", len(norms))
	}
	if norms[0].ID != "N-1" || norms[0].Name != "from a" {
		t.Errorf("expected first-loaded N-1 to win, got %+v", norms[0])
	}
}

func TestLoadDuplicateIDWithinOneFile(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "a.json", `{"norms":[{"id":"N-1","name":"first"},{"id":"N-1","name":"second"},{"id":"N-2","name":"other"}]}`)
	c := NewCatalog(testLogger(t), dir)

	norms, err := c.Load([]string{"a.json"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(norms) != 2 {
		t.Fatalf("expected 2 norms after dedupe, got %d", len(norms))
	}
	if norms[0].Name != "first" {
		t.Errorf("expected first occurrence to win, got %+v", norms[0])
	}
}

func TestLoadMissingFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "present.json", `{"norms":[{"id":"N-1","name":"n"}]}`)
	c := NewCatalog(testLogger(t), dir)

	norms, err := c.Load([]string{"missing.json", "present.json"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(norms) != 1 || norms[0].ID != "N-1" {
		t.Fatalf("expected only the present database's norm, got %+v", norms)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "bad.json", `{"norms": [`)
	c := NewCatalog(testLogger(t), dir)

	if _, err := c.Load([]string{"bad.json"}); err == nil {
		t.Fatal("expected error for malformed database file")
	}
	if err := c.Preload([]string{"bad.json"}); err == nil {
		t.Fatal("expected Preload error for malformed database file")
	}
}

func TestLoadCachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "norms.json", `{"norms":[{"id":"N-1","name":"v1"}]}`)
	c := NewCatalog(testLogger(t), dir)

	if _, err := c.Load([]string{"norms.json"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	writeDB(t, dir, "norms.json", `{"norms":[{"id":"N-1","name":"v2"}]}`)

	norms, err := c.Load([]string{"norms.json"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if norms[0].Name != "v1" {
		t.Errorf("expected cached v1, got %q", norms[0].Name)
	}

	c.Invalidate("norms.json")
	norms, err = c.Load([]string{"norms.json"})
	if err != nil {
		t.Fatalf("Load after invalidate: %v", err)
	}
	if norms[0].Name != "v2" {
		t.Errorf("expected reloaded v2, got %q", norms[0].Name)
	}
}

func TestNormIDs(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "norms.json", `{"norms":[{"id":"A"},{"id":"B"}]}`)
	c := NewCatalog(testLogger(t), dir)

	ids, err := c.NormIDs([]string{"norms.json"})
	if err != nil {
		t.Fatalf("NormIDs: %v", err)
	}
	for _, want := range []string{"A", "B"} {
		if _, ok := ids[want]; !ok {
			t.Errorf("missing id %s", want)
		}
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %d", len(ids))
	}
}

func TestGetStats(t *testing.T) {
	dir := t.TempDir()
	writeDB(t, dir, "a.json", `{"norms":[{"id":"A"}]}`)
	writeDB(t, dir, "b.json", `{"norms":[{"id":"B"},{"id":"C"}]}`)
	c := NewCatalog(testLogger(t), dir)

	if _, err := c.Load([]string{"a.json", "b.json"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	stats := c.GetStats()
	if stats.CachedDatabases != 2 {
		t.Errorf("cached databases = %d, want 2", stats.CachedDatabases)
	}
	if stats.TotalNorms != 3 {
		t.Errorf("total norms = %d, want 3", stats.TotalNorms)
	}
}
