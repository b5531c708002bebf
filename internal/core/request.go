package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultCRS is used when a request leaves crs empty.
const DefaultCRS = "unspecified"

// FileRoles maps logical table names to file paths. Nested interval
// tables are flattened to "intervals.<name>" keys, so
//
//	{"collar": "c.csv", "intervals": {"assay": "a.csv"}}
//
// decodes to {"collar": "c.csv", "intervals.assay": "a.csv"}.
type FileRoles map[string]string

// UnmarshalJSON accepts string values and one level of nested objects.
func (f *FileRoles) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid csv_files: %w", err)
	}

	out := make(FileRoles, len(raw))
	for role, val := range raw {
		val = bytes.TrimSpace(val)
		if len(val) > 0 && val[0] == '{' {
			var nested map[string]string
			if err := json.Unmarshal(val, &nested); err != nil {
				return fmt.Errorf("invalid csv_files entry %q: %w", role, err)
			}
			for name, path := range nested {
				out[role+"."+name] = path
			}
			continue
		}
		var path string
		if err := json.Unmarshal(val, &path); err != nil {
			return fmt.Errorf("invalid csv_files entry %q: must be a path or an object of paths", role)
		}
		out[role] = path
	}
	*f = out
	return nil
}

// BuildRequest carries the parameters of a single build.
type BuildRequest struct {
	ObjectType    ObjectType      `json:"object_type"`
	CSVFiles      FileRoles       `json:"csv_files"`
	ColumnMapping json.RawMessage `json:"column_mapping"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	CRS           string          `json:"crs,omitempty"`
	ObjectPath    string          `json:"object_path,omitempty"`
	DryRun        bool            `json:"dry_run"`
}

// Validate checks the request envelope. Column-level problems are left
// to the resolver.
func (r *BuildRequest) Validate() error {
	var errs []string
	if r.ObjectType == "" {
		errs = append(errs, "object_type is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if len(r.CSVFiles) == 0 {
		errs = append(errs, "csv_files must name at least one file")
	}
	if len(bytes.TrimSpace(r.ColumnMapping)) == 0 {
		errs = append(errs, "column_mapping is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(errs, "; "))
	}
	return nil
}

// crs returns the request CRS label or DefaultCRS.
func (r *BuildRequest) crs() string {
	if strings.TrimSpace(r.CRS) == "" {
		return DefaultCRS
	}
	return r.CRS
}

// objectPath returns the requested path, defaulting to /<name>.json.
func (r *BuildRequest) objectPath() string {
	if r.ObjectPath != "" {
		return r.ObjectPath
	}
	name := strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' {
			return '_'
		}
		return c
	}, strings.TrimSpace(r.Name))
	return "/" + name + ".json"
}
