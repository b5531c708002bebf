package core

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkParseNumber benchmarks numeric cell parsing, the hot path of
// type inference and coordinate extraction.
func BenchmarkParseNumber(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"1.5e3",
		"  999.99  ",
		"6543210.125",
		"not a number",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseNumber(tc)
		}
	}
}

// BenchmarkCleanCell benchmarks cell cleaning.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"simple",
		"  padded  ",
		`="formula value"`,
		"\ufeffBOM prefixed",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// BenchmarkAsInteger benchmarks index conversion for segment and hole
// index columns.
func BenchmarkAsInteger(b *testing.B) {
	vals := []Value{Number(42), Number(42.5), Text("7"), Null()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, v := range vals {
			AsInteger(v)
		}
	}
}

// ============================================================================
// Loading Benchmarks
// ============================================================================

func generatePointsCSV(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("HOLEID,X,Y,Z,AU,LITH\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "DH%04d,%d.5,%d.25,%d,%0.3f,granite\n", i%500, 500000+i, 7000000+i, 300-i%50, float64(i%97)/10)
	}
	return buf.Bytes()
}

// BenchmarkLoadTable benchmarks a complete delimited-text load.
func BenchmarkLoadTable(b *testing.B) {
	data := generatePointsCSV(1000)
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadTable(bytes.NewReader(data), "points", LoadOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLoadTable_Large benchmarks loading with a size limit in place.
func BenchmarkLoadTable_Large(b *testing.B) {
	data := generatePointsCSV(50000)
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadTable(bytes.NewReader(data), "points", LoadOptions{MaxBytes: 1 << 30}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDetectDelimiter benchmarks delimiter sniffing on a header line.
func BenchmarkDetectDelimiter(b *testing.B) {
	data := []byte("HOLEID;FROM;TO;AU;CU;AG;LITH\nDH1;0;1;0.1;0.2;0.3;x\n")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detectDelimiter(data)
	}
}

// BenchmarkUTF8Sanitizer_LargeDataset benchmarks sanitizing mixed input.
func BenchmarkUTF8Sanitizer_LargeDataset(b *testing.B) {
	data := []byte(strings.Repeat("valid,\xff\xfe,data\n", 10000))
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out bytes.Buffer
		out.ReadFrom(newUTF8Sanitizer(bytes.NewReader(data)))
	}
}

// BenchmarkIsEmptyRow benchmarks blank-row detection.
func BenchmarkIsEmptyRow(b *testing.B) {
	rows := [][]string{
		{"", "", ""},
		{"  ", "\t", ""},
		{"", "", "data"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, row := range rows {
			isEmptyRow(row)
		}
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

// BenchmarkParseNumberParallel benchmarks parallel numeric parsing.
func BenchmarkParseNumberParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ParseNumber("6543210.125")
		}
	})
}

// BenchmarkLoadTableParallel benchmarks concurrent independent loads.
func BenchmarkLoadTableParallel(b *testing.B) {
	data := generatePointsCSV(1000)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			LoadTable(bytes.NewReader(data), "points", LoadOptions{})
		}
	})
}

// ============================================================================
// isEmptyRow
// ============================================================================

func TestIsEmptyRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{"empty slice", []string{}, true},
		{"single empty string", []string{""}, true},
		{"whitespace only cells", []string{"   ", "\t", "  \t  "}, true},
		{"newlines only", []string{"\n", "\r\n", "\r"}, true},
		{"single non-empty cell", []string{"data"}, false},
		{"non-empty with empties", []string{"", "data", ""}, false},
		{"zero is data", []string{"", "0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEmptyRow(tt.row); got != tt.want {
				t.Errorf("isEmptyRow(%q) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}
