// Package bundle unpacks NF-e export archives and finds the two source files
// inside them.
package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nfe/internal/domain"
)

// Naming convention of the export files: <period>_NFs_Cabecalho.<ext> and
// <period>_NFs_Itens.<ext>.
const (
	HeaderSuffix = "_NFs_Cabecalho"
	ItemsSuffix  = "_NFs_Itens"
)

// SourceFiles are the absolute paths of the header and item datasets.
type SourceFiles struct {
	Header string
	Items  string
}

// Extract replaces the contents of targetDir with the entries of the zip
// archive at zipPath and returns the extracted file paths. The directory is
// cleared before extraction starts, so a failed run leaves it empty rather
// than mixed with a previous bundle.
func Extract(zipPath, targetDir string) ([]string, error) {
	if err := os.RemoveAll(targetDir); err != nil {
		return nil, fmt.Errorf("%w: clearing %s: %w", domain.ErrArchive, targetDir, err)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", domain.ErrArchive, targetDir, err)
	}

	files, err := extract(zipPath, targetDir)
	if err != nil {
		clearDir(targetDir)
		return nil, fmt.Errorf("%w: %w", domain.ErrArchive, err)
	}
	return files, nil
}

func extract(zipPath, targetDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return nil, fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer r.Close()

	root, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range r.File {
		dest := filepath.Join(root, filepath.FromSlash(f.Name))
		if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("entry %q escapes the extraction directory", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeEntry(f, dest); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		out = append(out, dest)
	}
	return out, nil
}

func writeEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	w, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}

// Locate returns the header and item files under dir. Explicit names are
// resolved relative to dir; empty names are discovered by the export naming
// convention.
func Locate(dir, headerName, itemsName string) (SourceFiles, error) {
	header, err := locate(dir, headerName, HeaderSuffix)
	if err != nil {
		return SourceFiles{}, err
	}
	items, err := locate(dir, itemsName, ItemsSuffix)
	if err != nil {
		return SourceFiles{}, err
	}
	return SourceFiles{Header: header, Items: items}, nil
}

func locate(dir, name, suffix string) (string, error) {
	if name != "" {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, name)
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: source file %s: %w", domain.ErrDataSource, p, err)
		}
		return p, nil
	}

	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.HasSuffix(strings.ToLower(stem), strings.ToLower(suffix)) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: extraction directory %s does not exist; ingest a bundle first", domain.ErrDataSource, dir)
		}
		return "", fmt.Errorf("%w: scanning %s: %w", domain.ErrDataSource, dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no *%s file in %s", domain.ErrDataSource, suffix, dir)
	}
	// several periods in one bundle: the latest period sorts last
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
