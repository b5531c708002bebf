package core

// validation.go provides the ValidationReport and the checks shared by
// every object type.
//
// Validation never stops at the first problem: every check runs and every
// finding is recorded, in a deterministic order, so that identical inputs
// always produce identical reports. Findings never become Go errors; the
// report status alone decides whether a draft may be persisted.

import "fmt"

// Severity of a validation message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ReportStatus is the overall verdict of a ValidationReport.
type ReportStatus string

const (
	StatusValidated ReportStatus = "validated"
	StatusFailed    ReportStatus = "failed"
)

// Message codes emitted by the validator.
const (
	CodeIndexOutOfRange        = "index_out_of_range"
	CodeSelfReferentialSegment = "self_referential_segment"
	CodeDuplicateSegment       = "duplicate_segment"
	CodeOrphanedReference      = "orphaned_reference"
	CodeNonMonotonicDepth      = "non_monotonic_depth"
	CodeDepthOutOfRange        = "depth_out_of_range"
	CodeAzimuthOutOfRange      = "azimuth_out_of_range"
	CodeDipOutOfRange          = "dip_out_of_range"
	CodeInvalidInterval        = "invalid_interval"
	CodeOverlappingInterval    = "overlapping_interval"
	CodeMidOutsideSegment      = "mid_outside_segment"
	CodeEmptyAttribute         = "empty_attribute"
)

// Message is a single validation finding. Table, Row, Line, Column and
// HoleID are set where the finding points at specific data.
type Message struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Table    string   `json:"table,omitempty"`
	Row      *int     `json:"row,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   string   `json:"column,omitempty"`
	HoleID   string   `json:"hole_id,omitempty"`
}

// ValidationReport collects findings for one draft.
type ValidationReport struct {
	Status   ReportStatus `json:"status"`
	Messages []Message    `json:"messages"`
}

// NewReport returns an empty, validated report.
func NewReport() *ValidationReport {
	return &ValidationReport{Status: StatusValidated, Messages: []Message{}}
}

// Add appends a finding and downgrades the status on errors.
func (r *ValidationReport) Add(m Message) {
	if m.Severity == SeverityError {
		r.Status = StatusFailed
	}
	r.Messages = append(r.Messages, m)
}

// Errorf records an error-severity finding.
func (r *ValidationReport) Errorf(code string, ref Ref, format string, args ...any) {
	r.Add(ref.message(SeverityError, code, fmt.Sprintf(format, args...)))
}

// Warnf records a warning-severity finding.
func (r *ValidationReport) Warnf(code string, ref Ref, format string, args ...any) {
	r.Add(ref.message(SeverityWarning, code, fmt.Sprintf(format, args...)))
}

// Validated reports whether no error-severity finding exists.
func (r *ValidationReport) Validated() bool {
	return r.Status == StatusValidated
}

// Count returns the number of findings with the given severity.
func (r *ValidationReport) Count(sev Severity) int {
	n := 0
	for _, m := range r.Messages {
		if m.Severity == sev {
			n++
		}
	}
	return n
}

// ErrorMessages returns the error-severity findings in report order.
func (r *ValidationReport) ErrorMessages() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Severity == SeverityError {
			out = append(out, m)
		}
	}
	return out
}

// Ref locates a finding in the source data.
type Ref struct {
	Table  string
	Row    int // 0-based data row; negative when not row-specific
	Line   int
	Column string
	HoleID string
}

// NoRow is the Row value of a Ref that points at a whole table or hole.
const NoRow = -1

// RowRef builds a Ref to a row of a table.
func RowRef(table string, row, line int) Ref {
	return Ref{Table: table, Row: row, Line: line}
}

// TableRef builds a Ref to a whole table.
func TableRef(table string) Ref {
	return Ref{Table: table, Row: NoRow}
}

func (ref Ref) message(sev Severity, code, text string) Message {
	m := Message{
		Severity: sev,
		Code:     code,
		Message:  text,
		Table:    ref.Table,
		Line:     ref.Line,
		Column:   ref.Column,
		HoleID:   ref.HoleID,
	}
	if ref.Row >= 0 {
		row := ref.Row
		m.Row = &row
	}
	return m
}

// AttributeSet is one table's declared attribute columns together with
// the per-row values the builder copied.
type AttributeSet struct {
	Table   string
	Columns []string
	Rows    []map[string]Value
}

// CheckAttributes warns about declared attribute columns that are null in
// every row of their table. It never produces errors.
func CheckAttributes(r *ValidationReport, sets []AttributeSet) {
	for _, set := range sets {
		for _, col := range set.Columns {
			populated := false
			for _, row := range set.Rows {
				if v, ok := row[col]; ok && !v.IsNull() {
					populated = true
					break
				}
			}
			if !populated {
				ref := TableRef(set.Table)
				ref.Column = col
				r.Warnf(CodeEmptyAttribute, ref, "attribute column %q has no values in table %q", col, set.Table)
			}
		}
	}
}

// Validate runs the type-specific checks registered for the draft's
// object type followed by the shared attribute checks.
func Validate(d *ObjectDraft) *ValidationReport {
	report := NewReport()
	def, ok := Get(d.ObjectType)
	if !ok || d.Content == nil {
		report.Errorf("unknown_object_type", TableRef(""), "no validator for object type %q", d.ObjectType)
		return report
	}
	if def.Validate != nil {
		def.Validate(d.Content, report)
	}
	if withAttrs, ok := d.Content.(interface{ AttributeSets() []AttributeSet }); ok {
		CheckAttributes(report, withAttrs.AttributeSets())
	}
	return report
}
