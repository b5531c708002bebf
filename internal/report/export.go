// Package report renders build results for people and GIS tools: JSON,
// XLSX and PDF validation reports, and GeoJSON previews of the draft
// geometry.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/core"
)

// Format selects an export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
	FormatPDF     Format = "pdf"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatXLSX, FormatPDF, FormatGeoJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json, xlsx, pdf or geojson)", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer report format from %q", path)
	}
	return ParseFormat(ext)
}

// Write encodes res in format f.
func Write(w io.Writer, f Format, res *core.BuildResult) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Response())
	case FormatXLSX:
		data, err := BuildXLSX(res.Response())
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatPDF:
		data, err := BuildPDF(res.Response())
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatGeoJSON:
		data, err := BuildGeoJSON(res.Draft)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// locate renders the position of a finding for tabular output.
func locate(m core.Message) string {
	var parts []string
	if m.Table != "" {
		parts = append(parts, m.Table)
	}
	if m.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", m.Line))
	}
	if m.Column != "" {
		parts = append(parts, m.Column)
	}
	if m.HoleID != "" {
		parts = append(parts, "hole "+m.HoleID)
	}
	return strings.Join(parts, ", ")
}
