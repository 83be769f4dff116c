package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// headerPattern matches "-- mercury: query_count=5 n_plus_one_threshold=off".
	headerPattern = regexp.MustCompile(`^\s*--\s*mercury:\s*(.*)$`)

	// frontmatterPattern matches a leading /*--- ... ---*/ YAML block.
	frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[mGKHfABCDsuJSTlh]|\x1b\][^\x07]*\x07|\x1b[>=]|\x1b\[?[\d;]*[a-zA-Z]`)

	// logFieldPattern finds where logfmt fields start after the statement.
	logFieldPattern = regexp.MustCompile(`\s+(?:db\.[\w.]+|duration(?:_ms)?|request_id|trace_id|span_id|gql\.\w+|location)=`)

	logDurationPattern = regexp.MustCompile(`(?:^|\s)duration(?:_ms)?="?([0-9]*\.?[0-9]+)`)
)

const sqlMarker = "[sql]:"

// frontmatter is the metadata block of a SQL capture. Unknown fields are
// rejected.
type frontmatter struct {
	Name           string         `yaml:"name"`
	Location       string         `yaml:"location"`
	ResponseTimeMS any            `yaml:"response_time_ms"`
	Thresholds     map[string]any `yaml:"thresholds"`
}

func (f *File) applyHeader(line int, fields string) error {
	raw := make(map[string]any)
	for _, kv := range strings.Fields(fields) {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return &ParseError{Name: f.Name, Line: line, Err: fmt.Errorf("malformed header field %q, want key=value", kv)}
		}
		raw[key] = value
	}
	if err := f.mergeThresholds(raw); err != nil {
		return &ParseError{Name: f.Name, Line: line, Err: err}
	}
	return nil
}

func (f *File) applyFrontmatter(content string) (string, error) {
	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) < 2 {
		return content, nil
	}

	dec := yaml.NewDecoder(strings.NewReader(matches[1]))
	dec.KnownFields(true)

	var fm frontmatter
	if err := dec.Decode(&fm); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("invalid frontmatter: %w", err)
	}

	err := f.applyDocument(document{
		Name:           fm.Name,
		Location:       fm.Location,
		ResponseTimeMS: fm.ResponseTimeMS,
		Thresholds:     fm.Thresholds,
	})
	if err != nil {
		return "", fmt.Errorf("invalid frontmatter: %w", err)
	}

	// Keep line numbers stable for later errors.
	blank := strings.Repeat("\n", strings.Count(matches[0], "\n"))
	return blank + content[len(matches[0]):], nil
}

// parseSQL splits a script into statements terminated by ';'. Comments are
// dropped; "-- mercury:" comments set file-level thresholds.
func parseSQL(file *File, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	content, err := file.applyFrontmatter(string(data))
	if err != nil {
		return err
	}

	sc := &sqlScanner{input: []rune(content), line: 1}
	var stmt strings.Builder
	flush := func() {
		if s := strings.TrimSpace(stmt.String()); s != "" {
			file.add(s, 0)
		}
		stmt.Reset()
	}

	for sc.pos < len(sc.input) {
		c := sc.input[sc.pos]
		switch {
		case c == '\'' || c == '"':
			stmt.WriteString(sc.readString())
		case c == '-' && sc.peek() == '-':
			line := sc.line
			if m := headerPattern.FindStringSubmatch(sc.collectLineComment()); m != nil {
				if err := file.applyHeader(line, m[1]); err != nil {
					return err
				}
			}
		case c == '/' && sc.peek() == '*':
			sc.collectBlockComment()
			stmt.WriteRune(' ')
		case c == ';':
			sc.advance()
			flush()
		default:
			stmt.WriteRune(sc.advance())
		}
	}
	flush()
	return nil
}

// sqlScanner walks a script rune by rune, tracking the line for errors.
type sqlScanner struct {
	input []rune
	pos   int
	line  int
}

func (s *sqlScanner) advance() rune {
	c := s.input[s.pos]
	if c == '\n' {
		s.line++
	}
	s.pos++
	return c
}

func (s *sqlScanner) peek() rune {
	if s.pos+1 < len(s.input) {
		return s.input[s.pos+1]
	}
	return 0
}

// readString reads a quoted literal including its quotes. A doubled quote
// is an escape. An unterminated literal runs to the end of the input.
func (s *sqlScanner) readString() string {
	start := s.pos
	quote := s.advance()
	for s.pos < len(s.input) {
		if s.advance() != quote {
			continue
		}
		if s.pos < len(s.input) && s.input[s.pos] == quote {
			s.advance()
			continue
		}
		break
	}
	return string(s.input[start:s.pos])
}

// collectLineComment consumes a -- comment up to, not including, the newline
// and returns it.
func (s *sqlScanner) collectLineComment() string {
	start := s.pos
	for s.pos < len(s.input) && s.input[s.pos] != '\n' {
		s.advance()
	}
	return string(s.input[start:s.pos])
}

// collectBlockComment consumes a /* */ comment. An unterminated comment runs
// to the end of the input.
func (s *sqlScanner) collectBlockComment() {
	s.advance()
	s.advance()
	for s.pos < len(s.input) {
		if s.input[s.pos] == '*' && s.peek() == '/' {
			s.advance()
			s.advance()
			return
		}
		s.advance()
	}
}

// parseLog extracts statements from application log lines of the form
// "... [sql]: SELECT ... db.rows=1 duration=21.69". duration is in
// milliseconds. Indented lines continue the previous statement.
func parseLog(file *File, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		pending  strings.Builder
		duration time.Duration
		open     bool
		closed   bool
	)
	flush := func() {
		if s := strings.TrimSpace(pending.String()); open && s != "" {
			file.add(s, duration)
		}
		pending.Reset()
		duration = 0
		open = false
		closed = false
	}
	consume := func(text string) {
		sqlText, fields := text, ""
		if loc := logFieldPattern.FindStringIndex(text); loc != nil {
			sqlText, fields = text[:loc[0]], text[loc[0]:]
			closed = true
		}
		pending.WriteString(sqlText)
		if m := logDurationPattern.FindStringSubmatch(fields); m != nil {
			if ms, err := strconv.ParseFloat(m[1], 64); err == nil {
				duration = toDuration(ms, time.Millisecond)
			}
		}
	}

	line := 0
	for scanner.Scan() {
		line++
		text := stripANSI(scanner.Text())

		if m := headerPattern.FindStringSubmatch(text); m != nil {
			flush()
			if err := file.applyHeader(line, m[1]); err != nil {
				return err
			}
			continue
		}

		if idx := strings.Index(text, sqlMarker); idx >= 0 {
			flush()
			open = true
			consume(text[idx+len(sqlMarker):])
			continue
		}

		if open && !closed && text != "" && (text[0] == ' ' || text[0] == '\t') {
			pending.WriteByte('\n')
			consume(text)
			continue
		}
		flush()
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	flush()
	return nil
}

func stripANSI(s string) string {
	cleaned := ansiPattern.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, cleaned)
}
