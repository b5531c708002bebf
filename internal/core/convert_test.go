package core

import (
	"math"
	"testing"
)

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		// Plain numbers
		{name: "integer", input: "42", want: 42, wantOK: true},
		{name: "negative decimal", input: "-3.25", want: -3.25, wantOK: true},
		{name: "explicit plus", input: "+7", want: 7, wantOK: true},
		{name: "leading dot", input: ".5", want: 0.5, wantOK: true},
		{name: "trailing dot", input: "5.", want: 5, wantOK: true},
		{name: "scientific notation", input: "1.5e3", want: 1500, wantOK: true},
		{name: "negative exponent", input: "2E-2", want: 0.02, wantOK: true},
		{name: "surrounding whitespace", input: "  12.5 ", want: 12.5, wantOK: true},

		// Thousands separators
		{name: "thousands grouping", input: "6,512,300.25", want: 6512300.25, wantOK: true},
		{name: "negative thousands", input: "-1,000", want: -1000, wantOK: true},
		{name: "comma decimal rejected", input: "1,5", wantOK: false},
		{name: "bad grouping rejected", input: "12,34", wantOK: false},

		// Rejections
		{name: "empty", input: "", wantOK: false},
		{name: "text", input: "granite", wantOK: false},
		{name: "hole id", input: "DH-001", wantOK: false},
		{name: "infinity", input: "Inf", wantOK: false},
		{name: "nan", input: "NaN", wantOK: false},
		{name: "hex", input: "0x10", wantOK: false},
		{name: "overflow", input: "1e400", wantOK: false},
		{name: "two dots", input: "1.2.3", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseBool / AsBool Tests
// ----------------------------------------------------------------------------

func TestParseBool(t *testing.T) {
	tests := []struct {
		input  string
		want   bool
		wantOK bool
	}{
		{"true", true, true},
		{"TRUE", true, true},
		{"Yes", true, true},
		{"y", true, true},
		{"1", true, true},
		{"false", false, true},
		{"No", false, true},
		{"f", false, true},
		{"0", false, true},
		{" t ", true, true},
		{"maybe", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBool(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseBool(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		name   string
		v      Value
		want   bool
		wantOK bool
	}{
		{"null is false", Null(), false, true},
		{"one", Number(1), true, true},
		{"zero", Number(0), false, true},
		{"two", Number(2), false, false},
		{"text yes", Text("yes"), true, true},
		{"text junk", Text("sometimes"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsBool(tt.v)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("AsBool(%+v) = (%v, %v), want (%v, %v)", tt.v, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// AsInteger / AsNumber Tests
// ----------------------------------------------------------------------------

func TestAsInteger(t *testing.T) {
	tests := []struct {
		name   string
		v      Value
		want   int
		wantOK bool
	}{
		{"whole number", Number(5), 5, true},
		{"negative", Number(-2), -2, true},
		{"whole float text", Text("3.0"), 3, true},
		{"fraction", Number(1.5), 0, false},
		{"text", Text("five"), 0, false},
		{"null", Null(), 0, false},
		{"too large", Number(1e12), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInteger(tt.v)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("AsInteger(%+v) = (%v, %v), want (%v, %v)", tt.v, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAsNumber(t *testing.T) {
	if f, ok := AsNumber(Number(2.5)); !ok || f != 2.5 {
		t.Errorf("AsNumber(Number) = (%v, %v)", f, ok)
	}
	if f, ok := AsNumber(Text("1,250")); !ok || f != 1250 {
		t.Errorf("AsNumber(Text) = (%v, %v)", f, ok)
	}
	if _, ok := AsNumber(Null()); ok {
		t.Error("AsNumber(Null) should fail")
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic cleaning
		{name: "simple string unchanged", input: "DH001", want: "DH001"},
		{name: "empty string", input: "", want: ""},

		// Whitespace trimming
		{name: "leading whitespace", input: "  DH001", want: "DH001"},
		{name: "trailing whitespace", input: "DH001  ", want: "DH001"},

		// Excel formula prefix handling
		{name: "Excel formula with quotes", input: `="DH001"`, want: "DH001"},
		{name: "Excel formula number as text", input: `="12345"`, want: "12345"},
		{name: "bare equals sign", input: "=SUM(A1)", want: "SUM(A1)"},

		// Quote handling
		{name: "double quotes removed", input: `"granite"`, want: "granite"},
		{name: "single quotes removed", input: "'granite'", want: "granite"},
		{name: "leading single quote (Excel text prefix)", input: "'0045", want: "0045"},

		// Combined cleaning
		{name: "excel formula with whitespace", input: `  ="test"  `, want: "test"},
		{name: "only quotes", input: `""`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Value Tests
// ----------------------------------------------------------------------------

func TestValueJSON(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{Number(1.5), "1.5"},
		{Number(-20), "-20"},
		{Text("granite"), `"granite"`},
		{Text("12"), `"12"`},
		{NumberCell(1000, "1e3"), "1e3"},
		{NumberCell(0.5, "0.50"), "0.50"},
		{NumberCell(7, "007"), `"007"`},
		{NumberCell(1250.5, "1,250.5"), `"1,250.5"`},
		{NumberCell(0.5, ".5"), `".5"`},
	}

	for _, tt := range tests {
		b, err := tt.v.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%+v): %v", tt.v, err)
		}
		if string(b) != tt.want {
			t.Errorf("MarshalJSON(%+v) = %s, want %s", tt.v, b, tt.want)
		}
	}
}

func TestValueStringKeepsSourceText(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(7), "7"},
		{NumberCell(7, "007"), "007"},
		{NumberCell(1000, "1e3"), "1e3"},
		{Null(), ""},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String(%+v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
