package skyline

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Dataset is the JSON form of a series corpus, the interchange format used to
// feed an in-memory index from generated or exported data. Null samples read
// as NaN.
type Dataset struct {
	// Step is the default step for series that do not set their own.
	Step int64 `json:"step"`

	Series []DatasetSeries `json:"series"`
}

// DatasetSeries is one series of a dataset.
type DatasetSeries struct {
	Tags   map[string]string `json:"tags"`
	Start  int64             `json:"start"`
	Step   int64             `json:"step,omitempty"`
	Values seqValues         `json:"values"`
}

// LoadDataset parses a dataset and builds a memory index from it.
func LoadDataset(r io.Reader) (*MemoryIndex, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	series := make([]TimeSeries, 0, len(ds.Series))
	for i, s := range ds.Series {
		step := s.Step
		if step == 0 {
			step = ds.Step
		}
		seq, err := NewTimeSeq(s.Start, step, []float64(s.Values))
		if err != nil {
			return nil, fmt.Errorf("dataset: series %d: %w", i, err)
		}
		series = append(series, NewTimeSeries(s.Tags, seq))
	}
	return NewMemoryIndex(series), nil
}

// LoadDatasetFile reads a dataset file, transparently unwrapping gzip when the
// name ends in .gz.
func LoadDatasetFile(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if GzipPath(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return LoadDataset(r)
}
