package skyline

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// GraphDefVersion is the wire version of the structured graph encoding.
const GraphDefVersion = 2

// seqValues serialises samples with exact round-tripping: floats are emitted
// at full precision and NaN maps to JSON null in both directions.
type seqValues []float64

func (v seqValues) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		if math.IsNaN(f) {
			b.WriteString("null")
		} else if math.IsInf(f, 1) {
			b.WriteString(`"Inf"`)
		} else if math.IsInf(f, -1) {
			b.WriteString(`"-Inf"`)
		} else {
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func (v *seqValues) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(seqValues, len(raw))
	for i, e := range raw {
		switch t := e.(type) {
		case nil:
			out[i] = math.NaN()
		case float64:
			out[i] = t
		case string:
			switch t {
			case "Inf":
				out[i] = math.Inf(1)
			case "-Inf":
				out[i] = math.Inf(-1)
			default:
				return fmt.Errorf("bad sample %q", t)
			}
		default:
			return fmt.Errorf("bad sample of type %T", e)
		}
	}
	*v = out
	return nil
}

// Wire form of the V2 envelope. Field order is the emitted key order and must
// not change between releases.
type v2GraphDef struct {
	Version   int      `json:"version"`
	StartTime int64    `json:"startTime"`
	EndTime   int64    `json:"endTime"`
	Step      int64    `json:"step"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Theme     string   `json:"theme"`
	Layout    string   `json:"layout"`
	Title     string   `json:"title,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
	Legend    bool     `json:"legend"`
	Plots     []v2Plot `json:"plots"`
}

type v2Plot struct {
	AxisLabel string    `json:"axisLabel,omitempty"`
	Lines     []v2Line  `json:"lines"`
	VSpans    []v2VSpan `json:"vspans,omitempty"`
}

type v2Line struct {
	Style     string    `json:"style"`
	Color     string    `json:"color"`
	LineWidth int       `json:"lineWidth"`
	Alpha     int       `json:"alpha"`
	Label     string    `json:"label"`
	Axis      int       `json:"axis"`
	Start     int64     `json:"start"`
	Step      int64     `json:"step"`
	Values    seqValues `json:"values"`
}

type v2VSpan struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Color string `json:"color"`
	Alpha int    `json:"alpha"`
	Label string `json:"label"`
}

// EncodeGraphDef serialises a GraphDef to its V2 JSON form. The byte output
// is stable for identical input.
func EncodeGraphDef(gdef *GraphDef) ([]byte, error) {
	env := v2GraphDef{
		Version:   GraphDefVersion,
		StartTime: gdef.StartTime,
		EndTime:   gdef.EndTime,
		Step:      gdef.Step,
		Width:     gdef.Width,
		Height:    gdef.Height,
		Theme:     string(gdef.Theme),
		Layout:    string(gdef.Layout),
		Title:     gdef.Title,
		Timezone:  gdef.Timezone,
		Legend:    gdef.Legend,
		Plots:     make([]v2Plot, 0, len(gdef.Plots)),
	}
	for _, plot := range gdef.Plots {
		p := v2Plot{AxisLabel: plot.AxisLabel, Lines: make([]v2Line, 0, len(plot.Lines))}
		for _, ln := range plot.Lines {
			p.Lines = append(p.Lines, v2Line{
				Style:     ln.Style.String(),
				Color:     ln.Color,
				LineWidth: ln.LineWidth,
				Alpha:     ln.Alpha,
				Label:     ln.Label,
				Axis:      ln.Axis,
				Start:     ln.Data.Start,
				Step:      ln.Data.Step,
				Values:    seqValues(ln.Data.Values),
			})
		}
		for _, vs := range plot.VSpans {
			p.VSpans = append(p.VSpans, v2VSpan{
				Start: vs.Start,
				End:   vs.End,
				Color: vs.Color,
				Alpha: vs.Alpha,
				Label: vs.Label,
			})
		}
		env.Plots = append(env.Plots, p)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, newCodecError("encode failed", err)
	}
	return data, nil
}

// DecodeGraphDef parses the V2 JSON form back into a GraphDef. Structurally
// invalid input and version mismatches are rejected.
func DecodeGraphDef(data []byte) (*GraphDef, error) {
	var env v2GraphDef
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, newCodecError("invalid graph JSON", err)
	}
	if env.Version != GraphDefVersion {
		return nil, newCodecError(fmt.Sprintf("unsupported version %d", env.Version), nil)
	}
	gdef := &GraphDef{
		StartTime: env.StartTime,
		EndTime:   env.EndTime,
		Step:      env.Step,
		Width:     env.Width,
		Height:    env.Height,
		Theme:     Theme(env.Theme),
		Layout:    Layout(env.Layout),
		Title:     env.Title,
		Timezone:  env.Timezone,
		Legend:    env.Legend,
		Plots:     make([]Plot, 0, len(env.Plots)),
	}
	for _, p := range env.Plots {
		plot := Plot{AxisLabel: p.AxisLabel, Lines: make([]Line, 0, len(p.Lines))}
		for _, ln := range p.Lines {
			seq, err := NewTimeSeq(ln.Start, ln.Step, []float64(ln.Values))
			if err != nil {
				return nil, newCodecError("invalid line sequence", err)
			}
			plot.Lines = append(plot.Lines, Line{
				Data:      seq,
				Style:     parseLineStyle(ln.Style),
				Color:     ln.Color,
				LineWidth: ln.LineWidth,
				Alpha:     ln.Alpha,
				Label:     ln.Label,
				Axis:      ln.Axis,
			})
		}
		for _, vs := range p.VSpans {
			plot.VSpans = append(plot.VSpans, VSpan{
				Start: vs.Start,
				End:   vs.End,
				Color: vs.Color,
				Alpha: vs.Alpha,
				Label: vs.Label,
			})
		}
		gdef.Plots = append(gdef.Plots, plot)
	}
	return gdef, nil
}

// WriteGraphDef encodes gdef to w, gzip-wrapping when gzipped is set.
func WriteGraphDef(w io.Writer, gdef *GraphDef, gzipped bool) error {
	data, err := EncodeGraphDef(gdef)
	if err != nil {
		return err
	}
	if gzipped {
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(data); err != nil {
			return newCodecError("gzip write failed", err)
		}
		return gz.Close()
	}
	_, err = w.Write(data)
	return err
}

// ReadGraphDef decodes a GraphDef from r, transparently unwrapping gzip when
// gzipped is set.
func ReadGraphDef(r io.Reader, gzipped bool) (*GraphDef, error) {
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, newCodecError("gzip open failed", err)
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newCodecError("read failed", err)
	}
	return DecodeGraphDef(data)
}

// GzipPath reports whether a destination filename selects gzip wrapping.
func GzipPath(path string) bool {
	return strings.HasSuffix(path, ".gz")
}
