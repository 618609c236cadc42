package skyline

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
)

func createSampleDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE series (id INTEGER PRIMARY KEY, step INTEGER)`,
		`CREATE TABLE series_tags (series_id INTEGER, key TEXT, value TEXT)`,
		`CREATE TABLE samples (series_id INTEGER, ts INTEGER, value REAL)`,
		`INSERT INTO series VALUES (1, 60000), (2, 60000)`,
		`INSERT INTO series_tags VALUES
			(1, 'name', 'sps'), (1, 'nf.cluster', 'east'),
			(2, 'name', 'sps'), (2, 'nf.cluster', 'west')`,
		`INSERT INTO samples VALUES
			(1, 0, 10), (1, 60000, 20), (1, 180000, 40),
			(2, 0, 1), (2, 60000, 2), (2, 120000, 3)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return path
}

func TestSQLiteIndexFind(t *testing.T) {
	idx, err := OpenSQLiteIndex(SQLiteIndexConfig{Path: createSampleDB(t)})
	if err != nil {
		t.Fatalf("OpenSQLiteIndex: %v", err)
	}
	defer idx.Close()

	series, err := idx.Find(EqualQuery{Key: "name", Value: "sps"}, 0, 4*60_000)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d series, want 2", len(series))
	}

	var east TimeSeries
	for _, s := range series {
		if s.Tags["nf.cluster"] == "east" {
			east = s
		}
	}
	if east.Data == nil {
		t.Fatal("east series missing")
	}
	// Gap at 120000 reads as NaN.
	want := []float64{10, 20, math.NaN(), 40}
	if !valuesEqual(east.Data.Values, want) {
		t.Errorf("east values = %v, want %v", east.Data.Values, want)
	}
}

func TestSQLiteIndexPredicateFiltering(t *testing.T) {
	idx, err := OpenSQLiteIndex(SQLiteIndexConfig{Path: createSampleDB(t)})
	if err != nil {
		t.Fatalf("OpenSQLiteIndex: %v", err)
	}
	defer idx.Close()

	series, err := idx.Find(EqualQuery{Key: "nf.cluster", Value: "west"}, 0, 4*60_000)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d series, want 1", len(series))
	}

	none, err := idx.Find(EqualQuery{Key: "nf.cluster", Value: "north"}, 0, 4*60_000)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d series for missing cluster, want 0", len(none))
	}
}

func TestSQLiteIndexAllTagKeys(t *testing.T) {
	idx, err := OpenSQLiteIndex(SQLiteIndexConfig{Path: createSampleDB(t)})
	if err != nil {
		t.Fatalf("OpenSQLiteIndex: %v", err)
	}
	defer idx.Close()

	keys := idx.AllTagKeys()
	if len(keys) != 2 || keys[0] != "name" || keys[1] != "nf.cluster" {
		t.Errorf("AllTagKeys = %v", keys)
	}
}
