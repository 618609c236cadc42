package skyline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// ChartSink receives finished render artifacts. Implementations must be
// atomic: a failed write leaves no partial artifact behind.
type ChartSink interface {
	// WritePNG stores the rasterised image under name.
	WritePNG(name string, data []byte) error
	// WriteGraphDef stores the V2 encoding under name, gzip-wrapped when the
	// name ends in .gz.
	WriteGraphDef(name string, gdef *GraphDef) error
}

// FileSink writes artifacts to the local filesystem. Writes go through a
// temporary file in the destination directory followed by a rename, so a
// crash or error mid-write never leaves a partial file under the final name.
type FileSink struct {
	// Dir is prepended to relative names. Empty means the process working
	// directory.
	Dir string
}

// WritePNG implements ChartSink.
func (s *FileSink) WritePNG(name string, data []byte) error {
	return s.writeAtomic(name, data)
}

// WriteGraphDef implements ChartSink.
func (s *FileSink) WriteGraphDef(name string, gdef *GraphDef) error {
	var buf bytes.Buffer
	if err := WriteGraphDef(&buf, gdef, GzipPath(name)); err != nil {
		return err
	}
	return s.writeAtomic(name, buf.Bytes())
}

func (s *FileSink) writeAtomic(name string, data []byte) error {
	path := name
	if s.Dir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(s.Dir, name)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// BufferSink collects artifacts in memory, primarily for tests and other
// in-process callers.
type BufferSink struct {
	PNGs      map[string][]byte
	GraphDefs map[string][]byte
}

// NewBufferSink creates an empty in-memory sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{PNGs: make(map[string][]byte), GraphDefs: make(map[string][]byte)}
}

// WritePNG implements ChartSink.
func (s *BufferSink) WritePNG(name string, data []byte) error {
	s.PNGs[name] = append([]byte(nil), data...)
	return nil
}

// WriteGraphDef implements ChartSink.
func (s *BufferSink) WriteGraphDef(name string, gdef *GraphDef) error {
	var buf bytes.Buffer
	if err := WriteGraphDef(&buf, gdef, GzipPath(name)); err != nil {
		return err
	}
	s.GraphDefs[name] = buf.Bytes()
	return nil
}
