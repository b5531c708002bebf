package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "file too large maps correctly",
			err:         malformed("points", 0, "", "%v", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "undecodable file maps correctly",
			err:         malformed("survey", 0, "", "cannot decode as delimited text: bare \" in non-quoted-field"),
			wantCode:    "FILE002",
			wantMessage: "File could not be read as delimited text",
		},
		{
			name:        "duplicate header wins over generic malformed input",
			err:         malformed("collar", 1, "HOLEID", "duplicate header %q", "HOLEID"),
			wantCode:    "FILE003",
			wantMessage: "A column header appears more than once",
		},
		{
			name:        "missing file maps correctly",
			err:         fmt.Errorf("open points file %q: %w", "p.csv", os.ErrNotExist),
			wantCode:    "FILE004",
			wantMessage: "Referenced file does not exist",
		},
		{
			name:        "missing column maps correctly",
			err:         &MissingColumnError{Table: "points", Role: "x", Column: "EAST"},
			wantCode:    "MAP001",
			wantMessage: "A mapped column is not present in the file header",
		},
		{
			name:        "unknown object type maps correctly",
			err:         fmt.Errorf("%w: %q", ErrUnknownObjectType, "surface"),
			wantCode:    "MAP003",
			wantMessage: "Unknown object type",
		},
		{
			name:        "non-numeric coordinate maps correctly",
			err:         malformed("points", 4, "X", "value %q is not a number", "abc"),
			wantCode:    "BLD001",
			wantMessage: "A numeric column contains a non-numeric value",
		},
		{
			name:        "persistence conflict maps to path exists",
			err:         &PersistenceError{Err: errors.New(`object "/a.json" already exists`)},
			wantCode:    "STO001",
			wantMessage: "An object already exists at this path",
		},
		{
			name:        "other persistence failure falls back",
			err:         &PersistenceError{Err: errors.New("disk quota")},
			wantCode:    "STO003",
			wantMessage: "The object could not be saved",
		},
		{
			name:        "disabled store",
			err:         errors.New("no object store configured"),
			wantCode:    "STO004",
			wantMessage: "Object storage is disabled on this server",
		},
		{
			name:        "busy limiter maps correctly",
			err:         ErrTooManyBuilds,
			wantCode:    "REQ001",
			wantMessage: "System is busy processing other builds",
		},
		{
			name:        "deadline maps correctly",
			err:         context.DeadlineExceeded,
			wantCode:    "REQ004",
			wantMessage: "Request timed out",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("ALREADY EXISTS"),
			wantCode:    "STO001",
			wantMessage: "An object already exists at this path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("object already exists")
	result := FormatUserError(err)

	expected := "An object already exists at this path (Code: STO001). Choose a different object_path"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrMissingColumn,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	if !errors.Is(malformed("t", 1, "c", "bad"), ErrMalformedInput) {
		t.Error("MalformedInputError should unwrap to ErrMalformedInput")
	}
	if !errors.Is(&MissingColumnError{Table: "t", Role: "x"}, ErrMissingColumn) {
		t.Error("MissingColumnError should unwrap to ErrMissingColumn")
	}

	cause := errors.New("boom")
	perr := &PersistenceError{Err: cause}
	if !errors.Is(perr, ErrPersistence) || !errors.Is(perr, cause) {
		t.Error("PersistenceError should unwrap to ErrPersistence and its cause")
	}

	var me *MalformedInputError
	if !errors.As(fmt.Errorf("wrap: %w", malformed("survey", 7, "DIP", "x")), &me) || me.Line != 7 {
		t.Errorf("errors.As MalformedInputError = %+v", me)
	}
}

func TestMalformedInputError_Message(t *testing.T) {
	err := malformed("points", 3, "X", "value %q is not a number", "abc")
	want := `malformed input in table "points" at line 3 column "X": value "abc" is not a number`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
