package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"nfe/internal/bundle"
	"nfe/internal/domain"
	"nfe/internal/schema"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidate delimiters, in tie-break order
var delimiters = []rune{';', ',', '\t', '|'}

// Loader reads delimited NF-e exports. Every cell is kept as a string so
// decimal-comma amounts and zero-padded numbers survive untouched.
type Loader struct {
	delimiter rune
	logger    *zap.Logger
}

// NewLoader returns a Loader. A zero delimiter is detected from each file's
// header line.
func NewLoader(delimiter rune, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{delimiter: delimiter, logger: logger}
}

// Load reads both source files into a Dataset.
func (l *Loader) Load(src bundle.SourceFiles) (*Dataset, error) {
	headers, err := l.LoadHeaders(src.Header)
	if err != nil {
		return nil, err
	}
	items, err := l.LoadItems(src.Items)
	if err != nil {
		return nil, err
	}
	return NewDataset(headers, items), nil
}

// LoadHeaders reads the header dataset and validates it against schema.Header.
func (l *Loader) LoadHeaders(path string) (*Table, error) {
	return l.load(path, schema.Header)
}

// LoadItems reads the item dataset and validates it against schema.Items.
func (l *Loader) LoadItems(path string) (*Table, error) {
	return l.load(path, schema.Items)
}

func (l *Loader) load(path string, s schema.Schema) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s file: %w", domain.ErrDataSource, s.Name, err)
	}
	t, err := l.parse(data, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	l.logger.Debug("loaded table",
		zap.String("file", path),
		zap.String("schema", s.Name),
		zap.Int("columns", len(t.Columns)),
		zap.Int("rows", t.Len()),
	)
	return t, nil
}

// Parse reads a delimited table from memory and resolves it against s.
func (l *Loader) Parse(data []byte, s schema.Schema) (*Table, error) {
	return l.parse(data, s)
}

func (l *Loader) parse(data []byte, s schema.Schema) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delim := l.delimiter
	if delim == 0 {
		delim = detectDelimiter(data)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	raw, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s file is empty", domain.ErrDataSource, s.Name)
		}
		return nil, fmt.Errorf("%w: %s file header: %w", domain.ErrDataSource, s.Name, err)
	}

	columns := make([]string, len(raw))
	seen := make(map[string]string, len(raw))
	for i, name := range raw {
		c := schema.Normalize(name)
		if prev, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %s file columns %q and %q both normalize to %s",
				domain.ErrDataSource, s.Name, prev, name, c)
		}
		seen[c] = name
		columns[i] = c
	}

	mapping, err := s.Resolve(columns)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s file: %w", domain.ErrDataSource, s.Name, err)
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, fit(rec, len(columns)))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s file has no data rows", domain.ErrDataSource, s.Name)
	}
	return &Table{Columns: columns, Rows: rows, Mapping: mapping}, nil
}

// detectDelimiter picks the candidate that occurs most often in the first line.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := delimiters[0], 0
	for _, d := range delimiters {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// fit pads or truncates a record to n cells.
func fit(rec []string, n int) []string {
	if len(rec) == n {
		return rec
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}
