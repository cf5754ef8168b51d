// Package transcode converts legacy-encoded export files to UTF-8.
package transcode

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"nfe/internal/domain"
)

// Supported source encodings.
const (
	Latin1      = "latin1"
	Windows1252 = "windows-1252"
	UTF8        = "utf-8"
)

// Transcoder rewrites source bytes into UTF-8.
type Transcoder struct {
	enc  encoding.Encoding
	name string
}

// New returns a Transcoder for the named source encoding. An empty name
// selects Latin-1, the encoding of the government export files.
func New(name string) (*Transcoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Latin1, "iso-8859-1", "iso8859-1":
		return &Transcoder{enc: charmap.ISO8859_1, name: Latin1}, nil
	case Windows1252, "cp1252":
		return &Transcoder{enc: charmap.Windows1252, name: Windows1252}, nil
	case UTF8, "utf8":
		return &Transcoder{name: UTF8}, nil
	default:
		return nil, fmt.Errorf("unknown source encoding %q", name)
	}
}

// Name returns the canonical name of the source encoding.
func (t *Transcoder) Name() string { return t.name }

// Bytes converts data to UTF-8. Input that is already valid UTF-8 is returned
// unchanged, which keeps repeated conversions of the same file harmless.
func (t *Transcoder) Bytes(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	if t.enc == nil {
		return nil, fmt.Errorf("%w: input is not valid %s", domain.ErrEncoding, t.name)
	}
	out, err := t.enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", domain.ErrEncoding, t.name, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return nil, fmt.Errorf("%w: bytes undefined in %s", domain.ErrEncoding, t.name)
	}
	return out, nil
}

// File converts the file at path to UTF-8 in place. The rewrite goes through
// a temporary file so a failure never leaves a half-converted source.
func (t *Transcoder) File(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", domain.ErrDataSource, path, err)
	}
	out, err := t.Bytes(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if bytes.Equal(out, data) {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEncoding, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: writing %s: %w", domain.ErrEncoding, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: writing %s: %w", domain.ErrEncoding, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: replacing %s: %w", domain.ErrEncoding, path, err)
	}
	return nil
}
