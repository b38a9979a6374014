// Package ingest implements the Ingest & Validator (spec §4.6, component
// C6): parsing a tabular QC report, validating its schema, and
// converting each row into a SubjectInfo/Metrics pair.
package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// subjectIDColumns are the header names that can supply the subject
// identifier; at least one is required (spec §4.6).
var subjectIDColumns = []string{"bids_name", "subject_id"}

// optionalColumns are recognized non-metric columns.
var optionalColumns = map[string]bool{
	"age": true, "sex": true, "session": true, "scan_type": true,
	"acquisition_date": true, "site": true, "scanner": true,
}

// rowValidate is the shared validator instance for per-row SubjectInfo
// struct-tag checks, grounded on the teacher's chatValidate singleton
// idiom (one *validator.Validate per package, built once).
var rowValidate = validator.New()

// SchemaError is one header-level validation failure.
type SchemaError struct {
	Column string
	Reason string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
}

// MaxInputBytes is the default size ceiling enforced on an input stream
// before parsing begins (spec §4.6). Overridable via Options.MaxBytes.
const MaxInputBytes = 256 * 1024 * 1024

// Options configures a Parse call.
type Options struct {
	// MaxBytes caps the input stream size; 0 means MaxInputBytes.
	MaxBytes int64
}

// limitExceededError marks a fatal pre-parse size-ceiling violation.
type limitExceededError struct {
	limit int64
}

func (e limitExceededError) Error() string {
	return fmt.Sprintf("input exceeds configured size ceiling of %d bytes", e.limit)
}

// Parse reads header and rows from stream, enforcing the size ceiling
// while the stream is read: once more than the ceiling has been read,
// Parse stops with a fatal size error. A BOM on the first line is
// tolerated; non-UTF-8 encoding is a fatal error.
func Parse(stream io.Reader, opts Options) (header []string, rows [][]string, err error) {
	limit := opts.MaxBytes
	if limit <= 0 {
		limit = MaxInputBytes
	}

	limited := &countingReader{r: stream, limit: limit}
	br := bufio.NewReaderSize(limited, 64*1024)

	peek, _ := br.Peek(3)
	if string(peek) == "\xef\xbb\xbf" {
		br.Discard(3)
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if err != nil {
		if limited.exceeded {
			return nil, nil, limitExceededError{limit}
		}
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	if !utf8.ValidString(strings.Join(header, "")) {
		return nil, nil, fmt.Errorf("header is not valid UTF-8")
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if limited.exceeded {
				return header, rows, limitExceededError{limit}
			}
			return header, rows, fmt.Errorf("reading row %d: %w", len(rows)+1, err)
		}
		if !utf8.ValidString(strings.Join(record, "")) {
			return header, rows, fmt.Errorf("row %d is not valid UTF-8", len(rows)+1)
		}
		rows = append(rows, record)
	}
	if limited.exceeded {
		return header, rows, limitExceededError{limit}
	}

	return header, rows, nil
}

// countingReader enforces a byte ceiling on the underlying reader,
// marking itself exceeded rather than returning a misleading CSV parse
// error once the ceiling is crossed.
type countingReader struct {
	r        io.Reader
	read     int64
	limit    int64
	exceeded bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		c.exceeded = true
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

// ValidateSchema checks that header contains at least one subject-ID
// column and that every other column is either a recognized metric or a
// recognized optional demographic column. Unknown columns are reported
// but do not block parsing of recognized ones.
func ValidateSchema(header []string) []SchemaError {
	var errs []SchemaError

	hasSubjectID := false
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		col = strings.TrimSpace(col)
		if seen[col] {
			errs = append(errs, SchemaError{Column: col, Reason: "duplicate column"})
			continue
		}
		seen[col] = true

		isSubjectIDCol := false
		for _, c := range subjectIDColumns {
			if col == c {
				isSubjectIDCol = true
				hasSubjectID = true
			}
		}
		if isSubjectIDCol || optionalColumns[col] {
			continue
		}
		if _, ok := qctypes.ParseMetric(col); ok {
			continue
		}
		errs = append(errs, SchemaError{Column: col, Reason: "unrecognized column"})
	}

	if !hasSubjectID {
		errs = append(errs, SchemaError{Column: strings.Join(subjectIDColumns, "|"), Reason: "at least one subject identifier column is required"})
	}
	return errs
}

// ToSubject converts one parsed row into a SubjectInfo/Metrics pair
// using header for column lookup. Numeric cells that are empty map to ⊥
// (nil); non-numeric cells in a numeric column are an error. The PII
// guard runs on the resolved subject ID, before the struct-tag and
// metric sanity checks.
func ToSubject(row []string, header []string) (qctypes.SubjectInfo, qctypes.Metrics, error) {
	var info qctypes.SubjectInfo
	var metrics qctypes.Metrics

	cell := func(col string) (string, bool) {
		for i, h := range header {
			if h == col && i < len(row) {
				v := strings.TrimSpace(row[i])
				return v, v != ""
			}
		}
		return "", false
	}

	subjectID, ok := cell("subject_id")
	if !ok {
		subjectID, ok = cell("bids_name")
	}
	if !ok || subjectID == "" {
		return info, metrics, fmt.Errorf("missing subject identifier")
	}
	info.SubjectID = subjectID

	if v, ok := cell("age"); ok {
		age, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return info, metrics, fmt.Errorf("age: not numeric: %q", v)
		}
		if !qctypes.ValidAge(age) {
			return info, metrics, fmt.Errorf("age: %g out of acceptable range", age)
		}
		info.Age = &age
	}
	if v, ok := cell("sex"); ok {
		switch qctypes.Sex(v) {
		case qctypes.SexMale, qctypes.SexFemale, qctypes.SexOther, qctypes.SexUnknown:
			info.Sex = qctypes.Sex(v)
		default:
			return info, metrics, fmt.Errorf("sex: unrecognized value %q", v)
		}
	}
	if v, ok := cell("session"); ok {
		info.Session = v
	}
	if v, ok := cell("scan_type"); ok {
		switch qctypes.ScanType(v) {
		case qctypes.ScanT1w, qctypes.ScanT2w, qctypes.ScanBOLD, qctypes.ScanDWI, qctypes.ScanFLAIR:
			info.ScanType = qctypes.ScanType(v)
		default:
			return info, metrics, fmt.Errorf("scan_type: unrecognized value %q", v)
		}
	}
	if v, ok := cell("acquisition_date"); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			t, err = time.Parse("2006-01-02", v)
		}
		if err != nil {
			return info, metrics, fmt.Errorf("acquisition_date: not ISO-8601: %q", v)
		}
		info.AcquisitionDate = &t
	}
	if v, ok := cell("site"); ok {
		info.Site = v
	}
	if v, ok := cell("scanner"); ok {
		info.Scanner = v
	}

	for _, m := range qctypes.AllMetrics() {
		col := m.String()
		v, ok := cell(col)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return info, metrics, fmt.Errorf("%s: not numeric: %q", col, v)
		}
		metrics.Set(m, f)
	}

	if qctypes.RejectSubjectID(info.SubjectID) {
		return info, metrics, fmt.Errorf("subject_id is malformed or PII-shaped")
	}
	if err := rowValidate.Struct(info); err != nil {
		return info, metrics, err
	}
	if errs := metrics.Validate(); len(errs) > 0 {
		return info, metrics, errs[0]
	}

	return info, metrics, nil
}
