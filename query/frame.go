// query/frame.go
package query

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Frame is a result table with a fixed column order. It marshals to a JSON array of
// objects whose keys follow Columns.
type Frame struct {
	Columns []string
	Rows    [][]any
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

func (f *Frame) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	keys := make([][]byte, len(f.Columns))
	for i, c := range f.Columns {
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	for r, row := range f.Rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			b, err := json.Marshal(jsonValue(v))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Columns[i], err)
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// NaN and Inf cannot be encoded as JSON numbers.
func jsonValue(v any) any {
	if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
		return nil
	}
	return v
}

// cell renders one value for CSV output. Missing values are empty.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes frames as one table under the first frame's header. Frames after the
// first must share its columns.
func WriteCSV(w io.Writer, frames ...*Frame) error {
	cw := csv.NewWriter(w)
	header := false
	record := []string(nil)
	for _, f := range frames {
		if f == nil {
			continue
		}
		if !header {
			if err := cw.Write(f.Columns); err != nil {
				return err
			}
			header = true
		}
		for _, row := range f.Rows {
			record = record[:0]
			for _, v := range row {
				record = append(record, cell(v))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// MetricFrames holds one frame per metric in request order.
type MetricFrames struct {
	Order  []string
	Frames map[string]*Frame
}

func newMetricFrames() *MetricFrames {
	return &MetricFrames{Frames: make(map[string]*Frame)}
}

func (m *MetricFrames) add(metric string, f *Frame) {
	m.Order = append(m.Order, metric)
	m.Frames[metric] = f
}

// Len counts rows across all frames.
func (m *MetricFrames) Len() int {
	n := 0
	for _, f := range m.Frames {
		n += f.Len()
	}
	return n
}

func (m *MetricFrames) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := m.Frames[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Response is the body of a table route.
type Response struct {
	// Data is a *MetricFrames for /timeseries and a *Frame for /summary.
	Data    json.Marshaler
	Version string
	// IncludeVersion adds the version token to JSON output. CSV output never carries it.
	IncludeVersion bool
}

func (r *Response) MarshalJSON() ([]byte, error) {
	body := struct {
		Data    json.Marshaler `json:"data"`
		Version *string        `json:"version,omitempty"`
	}{Data: r.Data}
	if r.IncludeVersion {
		body.Version = &r.Version
	}
	return json.Marshal(body)
}

// WriteCSV writes the response's rows as a flat table.
func (r *Response) WriteCSV(w io.Writer) error {
	switch d := r.Data.(type) {
	case *Frame:
		return WriteCSV(w, d)
	case *MetricFrames:
		frames := make([]*Frame, 0, len(d.Order))
		for _, name := range d.Order {
			frames = append(frames, d.Frames[name])
		}
		return WriteCSV(w, frames...)
	default:
		return fmt.Errorf("unsupported response data %T", r.Data)
	}
}
