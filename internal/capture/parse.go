package capture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/mercury/pkg/core"
	"github.com/leapstack-labs/mercury/pkg/threshold"
)

const maxLineSize = 4 * 1024 * 1024

// document is the object form of a JSON or YAML capture.
type document struct {
	Name           string         `json:"name" yaml:"name"`
	Location       string         `json:"location" yaml:"location"`
	ResponseTimeMS any            `json:"response_time_ms" yaml:"response_time_ms"`
	Thresholds     map[string]any `json:"thresholds" yaml:"thresholds"`
	Queries        []record       `json:"queries" yaml:"queries"`
}

// record is one captured statement; Time is in seconds as a number or a
// numeric string.
type record struct {
	SQL  string `json:"sql" yaml:"sql"`
	Time any    `json:"time" yaml:"time"`
}

// Parse reads a capture in the given format. name labels the block and
// error messages.
func Parse(name string, format Format, r io.Reader) (*File, error) {
	file := &File{Name: name, Format: format}

	var err error
	switch format {
	case FormatJSON:
		err = parseJSON(file, r)
	case FormatJSONL:
		err = parseJSONL(file, r)
	case FormatYAML:
		err = parseYAML(file, r)
	case FormatLog:
		err = parseLog(file, r)
	case FormatSQL:
		err = parseSQL(file, r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &ParseError{Name: name, Err: err}
	}
	return file, nil
}

func parseJSON(file *File, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var records []record
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("invalid JSON capture: %w", err)
		}
		return file.addRecords(records)
	}

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON capture: %w", err)
	}
	return file.applyDocument(doc)
}

func parseJSONL(file *File, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return &ParseError{Name: file.Name, Line: line, Err: fmt.Errorf("invalid JSON: %w", err)}
		}
		if err := file.addRecord(rec); err != nil {
			return &ParseError{Name: file.Name, Line: line, Err: err}
		}
	}
	return scanner.Err()
}

func parseYAML(file *File, r io.Reader) error {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid YAML capture: %w", err)
	}
	if len(root.Content) == 0 {
		return nil
	}

	node := root.Content[0]
	if node.Kind == yaml.SequenceNode {
		var records []record
		if err := node.Decode(&records); err != nil {
			return fmt.Errorf("invalid YAML capture: %w", err)
		}
		return file.addRecords(records)
	}

	var doc document
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("invalid YAML capture: %w", err)
	}
	return file.applyDocument(doc)
}

func (f *File) applyDocument(doc document) error {
	if doc.Name != "" {
		f.Name = doc.Name
	}
	f.Location = doc.Location

	if doc.ResponseTimeMS != nil {
		ms, err := parseNumber(doc.ResponseTimeMS)
		if err != nil {
			return fmt.Errorf("response_time_ms: %w", err)
		}
		f.ResponseTime = toDuration(ms, time.Millisecond)
		f.HasResponseTime = true
	}

	if err := f.mergeThresholds(doc.Thresholds); err != nil {
		return err
	}
	return f.addRecords(doc.Queries)
}

func (f *File) mergeThresholds(raw map[string]any) error {
	layer, err := threshold.ParseLayer(raw)
	if err != nil {
		return err
	}
	if len(layer) == 0 {
		return nil
	}
	if f.Thresholds == nil {
		f.Thresholds = make(threshold.Layer, len(layer))
	}
	for k, v := range layer {
		f.Thresholds[k] = v
	}
	return nil
}

func (f *File) addRecords(records []record) error {
	for i, rec := range records {
		if err := f.addRecord(rec); err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
	}
	return nil
}

func (f *File) addRecord(rec record) error {
	if strings.TrimSpace(rec.SQL) == "" {
		return errors.New("missing sql")
	}
	var d time.Duration
	if rec.Time != nil {
		secs, err := parseNumber(rec.Time)
		if err != nil {
			return fmt.Errorf("time: %w", err)
		}
		d = toDuration(secs, time.Second)
	}
	f.add(rec.SQL, d)
	return nil
}

func (f *File) add(sql string, d time.Duration) {
	f.Queries = append(f.Queries, core.Query{SQL: sql, Index: len(f.Queries), Duration: d})
}

// parseNumber accepts decoded JSON or YAML numbers and numeric strings.
// An empty string is zero.
func parseNumber(v any) (float64, error) {
	var n float64
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", val)
		}
		n = f
	case float64:
		n = val
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case uint64:
		n = float64(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", val)
		}
		n = f
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%v is not a valid duration", n)
	}
	return n, nil
}

func toDuration(v float64, unit time.Duration) time.Duration {
	return time.Duration(math.Round(v * float64(unit)))
}
