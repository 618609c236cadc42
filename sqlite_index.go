package skyline

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// SQLiteIndexConfig configures the SQLite-backed tag index.
type SQLiteIndexConfig struct {
	// Path to the SQLite database file.
	Path string

	// BusyTimeout is the timeout for acquiring locks in milliseconds.
	BusyTimeout int
}

// SQLiteIndex is a TagIndex over a row-per-sample SQLite database. The schema
// is three tables:
//
//	series(id INTEGER PRIMARY KEY, step INTEGER)
//	series_tags(series_id INTEGER, key TEXT, value TEXT)
//	samples(series_id INTEGER, ts INTEGER, value REAL)
//
// Tag maps are loaded once at open; sample rows are fetched per query. The
// index is read-only and safe for concurrent use.
type SQLiteIndex struct {
	db     *sql.DB
	series []sqliteSeries
	keys   []string

	selectSamples *sql.Stmt
}

type sqliteSeries struct {
	id   int64
	step int64
	tags map[string]string
}

// OpenSQLiteIndex opens a sample database as a tag index.
func OpenSQLiteIndex(cfg SQLiteIndexConfig) (*SQLiteIndex, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite index: path required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5000
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite index: open %s: %w", cfg.Path, err)
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.loadSeries(); err != nil {
		db.Close()
		return nil, err
	}
	idx.selectSamples, err = db.Prepare(
		`SELECT ts, value FROM samples WHERE series_id = ? AND ts >= ? AND ts < ? ORDER BY ts`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite index: prepare: %w", err)
	}
	return idx, nil
}

// Close releases the underlying database handle.
func (idx *SQLiteIndex) Close() error {
	if idx.selectSamples != nil {
		idx.selectSamples.Close()
	}
	return idx.db.Close()
}

func (idx *SQLiteIndex) loadSeries() error {
	rows, err := idx.db.Query(`SELECT id, step FROM series ORDER BY id`)
	if err != nil {
		return fmt.Errorf("sqlite index: load series: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*sqliteSeries)
	for rows.Next() {
		var s sqliteSeries
		if err := rows.Scan(&s.id, &s.step); err != nil {
			return fmt.Errorf("sqlite index: scan series: %w", err)
		}
		s.tags = make(map[string]string)
		idx.series = append(idx.series, s)
		byID[s.id] = &idx.series[len(idx.series)-1]
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite index: load series: %w", err)
	}

	tagRows, err := idx.db.Query(`SELECT series_id, key, value FROM series_tags`)
	if err != nil {
		return fmt.Errorf("sqlite index: load tags: %w", err)
	}
	defer tagRows.Close()

	keySet := make(map[string]struct{})
	for tagRows.Next() {
		var id int64
		var k, v string
		if err := tagRows.Scan(&id, &k, &v); err != nil {
			return fmt.Errorf("sqlite index: scan tag: %w", err)
		}
		if s, ok := byID[id]; ok {
			s.tags[k] = v
			keySet[k] = struct{}{}
		}
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("sqlite index: load tags: %w", err)
	}

	idx.keys = make([]string, 0, len(keySet))
	for k := range keySet {
		idx.keys = append(idx.keys, k)
	}
	sort.Strings(idx.keys)
	return nil
}

// Find implements TagIndex. Sample rows off the series' step grid snap down
// to it; duplicate rows in one step keep the last value.
func (idx *SQLiteIndex) Find(q Query, start, end int64) ([]TimeSeries, error) {
	var out []TimeSeries
	for _, s := range idx.series {
		if !q.Matches(s.tags) {
			continue
		}
		seq, err := idx.fetchSamples(s, start, end)
		if err != nil {
			return nil, err
		}
		if seq == nil {
			continue
		}
		out = append(out, NewTimeSeries(copyTags(s.tags), seq))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (idx *SQLiteIndex) fetchSamples(s sqliteSeries, start, end int64) (*TimeSeq, error) {
	rows, err := idx.selectSamples.Query(s.id, start, end)
	if err != nil {
		return nil, fmt.Errorf("sqlite index: samples for series %d: %w", s.id, err)
	}
	defer rows.Close()

	seqStart := alignStart(start, s.step)
	n := int((end - seqStart + s.step - 1) / s.step)
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	any := false
	for rows.Next() {
		var ts int64
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("sqlite index: scan sample: %w", err)
		}
		i := int((alignStart(ts, s.step) - seqStart) / s.step)
		if i >= 0 && i < n {
			values[i] = v
			any = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite index: samples for series %d: %w", s.id, err)
	}
	if !any {
		return nil, nil
	}
	return &TimeSeq{Start: seqStart, Step: s.step, Values: values}, nil
}

// AllTagKeys implements TagIndex.
func (idx *SQLiteIndex) AllTagKeys() []string {
	return idx.keys
}
