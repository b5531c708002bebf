package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// fakeMapping is a ColumnMapping with fixed bindings.
type fakeMapping []TableBinding

func (fakeMapping) ObjectType() ObjectType { return "fake" }
func (m fakeMapping) Bindings() []TableBinding { return m }

func fakeTables(t *testing.T) TableSet {
	t.Helper()
	pts, err := LoadTable(strings.NewReader("X,Y,Z,ROCK,AU\n1,2,3,granite,0.5\n4,5,6,,x\n"), "points", LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return TableSet{"points": pts}
}

func TestResolveMapping(t *testing.T) {
	m := fakeMapping{{
		Table:      "points",
		Required:   []RoleColumn{{"x", "X"}, {"y", "Y"}},
		Optional:   []RoleColumn{{"z", "Z"}, {"w", ""}},
		Attributes: []string{"ROCK"},
	}}

	rm, err := ResolveMapping(m, fakeTables(t))
	if err != nil {
		t.Fatalf("ResolveMapping() error = %v", err)
	}

	rt := rm.Table("points")
	if rt == nil || !rt.Has("x") || !rt.Has("z") || rt.Has("w") {
		t.Fatalf("resolved = %+v", rt)
	}
	if len(rm.Order) != 1 || rm.Order[0] != "points" {
		t.Errorf("order = %v", rm.Order)
	}

	if f, err := rt.Number(0, "x"); err != nil || f != 1 {
		t.Errorf("Number(0, x) = %v, %v", f, err)
	}
	if v := rt.Value(0, "w"); !v.IsNull() {
		t.Errorf("unbound role = %+v, want null", v)
	}
	attrs := rt.AttributeValues(1)
	if len(attrs) != 1 || !attrs["ROCK"].IsNull() {
		t.Errorf("attributes = %+v", attrs)
	}
	if rt.Line(1) != 3 {
		t.Errorf("Line(1) = %d, want 3", rt.Line(1))
	}
}

func TestResolveMapping_Failures(t *testing.T) {
	tests := []struct {
		name     string
		binding  TableBinding
		wantRole string
		wantText string
	}{
		{
			name:     "required column absent",
			binding:  TableBinding{Table: "points", Required: []RoleColumn{{"x", "EAST"}}},
			wantRole: "x",
			wantText: `references column "EAST"`,
		},
		{
			name:     "required role unmapped",
			binding:  TableBinding{Table: "points", Required: []RoleColumn{{"x", ""}}},
			wantRole: "x",
			wantText: "is required but not mapped",
		},
		{
			name:     "wrong case",
			binding:  TableBinding{Table: "points", Required: []RoleColumn{{"x", "x"}}},
			wantRole: "x",
			wantText: `references column "x"`,
		},
		{
			name:     "optional column absent",
			binding:  TableBinding{Table: "points", Optional: []RoleColumn{{"z", "ELEV"}}},
			wantRole: "z",
		},
		{
			name:     "attribute absent",
			binding:  TableBinding{Table: "points", Attributes: []string{"CU"}},
			wantRole: "attributes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveMapping(fakeMapping{tt.binding}, fakeTables(t))
			var mc *MissingColumnError
			if !errors.As(err, &mc) {
				t.Fatalf("error = %v, want *MissingColumnError", err)
			}
			if mc.Role != tt.wantRole || mc.Table != "points" {
				t.Errorf("error = %+v", mc)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantText)
			}
		})
	}
}

func TestResolveMapping_TableMismatch(t *testing.T) {
	t.Run("binding without file", func(t *testing.T) {
		m := fakeMapping{
			{Table: "points", Required: []RoleColumn{{"x", "X"}}},
			{Table: "segments", Required: []RoleColumn{{"start", "A"}}},
		}
		_, err := ResolveMapping(m, fakeTables(t))
		if !errors.Is(err, ErrMissingColumn) || !strings.Contains(err.Error(), "no file was supplied") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("file without binding", func(t *testing.T) {
		ts := fakeTables(t)
		ts["extra"] = ts["points"]
		_, err := ResolveMapping(fakeMapping{{Table: "points"}}, ts)
		if !errors.Is(err, ErrMissingColumn) || !strings.Contains(err.Error(), `"extra"`) {
			t.Errorf("error = %v", err)
		}
	})
}

func TestResolvedTable_Coercion(t *testing.T) {
	rm, err := ResolveMapping(fakeMapping{{
		Table:    "points",
		Required: []RoleColumn{{"x", "X"}, {"au", "AU"}, {"rock", "ROCK"}},
	}}, fakeTables(t))
	if err != nil {
		t.Fatal(err)
	}
	rt := rm.Table("points")

	_, err = rt.Number(1, "au")
	var me *MalformedInputError
	if !errors.As(err, &me) || me.Line != 3 || me.Column != "AU" {
		t.Errorf("Number on text = %v", err)
	}

	_, err = rt.Number(1, "rock")
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Errorf("Number on null = %v", err)
	}

	if n, err := rt.Integer(1, "x"); err != nil || n != 4 {
		t.Errorf("Integer = %v, %v", n, err)
	}
	if rt.Text(0, "rock") != "granite" || rt.Text(1, "rock") != "" {
		t.Errorf("Text = %q / %q", rt.Text(0, "rock"), rt.Text(1, "rock"))
	}
}

func TestDecodeStrict(t *testing.T) {
	var v struct {
		X string `json:"x"`
	}
	if err := DecodeStrict([]byte(`{"x":"EAST"}`), &v); err != nil || v.X != "EAST" {
		t.Errorf("DecodeStrict() = %v, %+v", err, v)
	}
	if err := DecodeStrict([]byte(`{"x":"EAST","xx":"typo"}`), &v); err == nil {
		t.Error("unknown field should fail")
	}
}

func TestDecodeMapping_Errors(t *testing.T) {
	if _, err := DecodeMapping("surface", json.RawMessage(`{}`)); !errors.Is(err, ErrUnknownObjectType) {
		t.Errorf("unknown type error = %v", err)
	}

	registerFake(t)
	if _, err := DecodeMapping(fakeType, json.RawMessage(`  `)); err == nil || MapError(err).Code != "MAP002" {
		t.Errorf("empty mapping error = %v", err)
	}
	if _, err := DecodeMapping(fakeType, json.RawMessage(`{"bogus":1}`)); err == nil || MapError(err).Code != "MAP002" {
		t.Errorf("bad mapping error = %v", err)
	}
}
