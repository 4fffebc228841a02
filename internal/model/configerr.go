package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	cue "cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
)

// Codes of CueErrorDetail.
const (
	CodeUnknownField = "unknown_field"
	CodeMissing      = "missing_required"
	CodeOutOfRange   = "out_of_range"
	CodeFormat       = "invalid_format"
	CodeInvalidValue = "invalid_value"
	CodeInvalid      = "validation_error"
)

// CueErrorDetail is a single validation failure of a config file.
type CueErrorDetail struct {
	Path    string // jobs.latency
	Code    string
	Message string
	Pos     CueErrorPosition
	Raw     string // cue error text
}

func (c CueErrorDetail) Attr(name string) slog.Attr {
	return slog.GroupAttrs(
		name,
		slog.String("code", c.Code),
		slog.String("path", c.Path),
		slog.String("message", c.Message),
		slog.String("file", c.Pos.Filename),
		slog.Int("line", c.Pos.Line),
		slog.Int("column", c.Pos.Column),
	)
}

type CueErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

// rules are checked in order, the first match wins.
var rules = []struct {
	re     *regexp.Regexp
	code   string
	format string
}{
	{regexp.MustCompile(`not allowed`), CodeUnknownField, "field %s is not allowed"},
	{regexp.MustCompile(`incomplete value`), CodeMissing, "field %s is required"},
	{regexp.MustCompile(`out of bound`), CodeOutOfRange, "field %s is out of range"},
	{regexp.MustCompile(`does not match`), CodeFormat, "field %s has invalid format"},
	{regexp.MustCompile(`conflicting values|empty disjunction|mismatched types`), CodeInvalidValue, "field %s has invalid value"},
}

// CueErrDetails turns a LoadConfig error into a list of human readable details.
// Errors without a position in the config file are skipped.
func CueErrDetails(err error) []CueErrorDetail {
	if err == nil {
		return nil
	}
	seen := make(map[CueErrorPosition]struct{})
	var out []CueErrorDetail
	for _, e := range cueerrors.Errors(err) {
		pos := position(e)
		if pos.Filename == "" {
			continue
		}
		if _, ok := seen[pos]; ok {
			continue
		}
		seen[pos] = struct{}{}

		format, args := e.Msg()
		raw := fmt.Sprintf(format, args...)
		d := CueErrorDetail{
			Path: pathOf(e.Path()),
			Code: CodeInvalid,
			Pos:  pos,
			Raw:  raw,
		}
		d.Message = raw
		for _, r := range rules {
			if r.re.MatchString(raw) {
				d.Code = r.code
				d.Message = fmt.Sprintf(r.format, field(d.Path))
				break
			}
		}
		if d.Code == CodeInvalidValue {
			d.Message += choices(d.Path)
		}
		out = append(out, d)
	}
	return out
}

// choices lists the allowed string values of an enum field of the schema.
func choices(path string) string {
	if path == "" {
		return ""
	}
	v := schema.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return ""
	}
	op, args := v.Expr()
	if op != cue.OrOp {
		return ""
	}
	var values []string
	for _, a := range args {
		if s, err := a.String(); err == nil && !slices.Contains(values, s) {
			values = append(values, s)
		}
	}
	if len(values) == 0 {
		return ""
	}
	hint := ": possible values (" + strings.Join(values, ",") + ")"
	if d, ok := v.Default(); ok {
		if s, err := d.String(); err == nil {
			hint += " (default " + s + ")"
		}
	}
	return hint
}

func position(err cueerrors.Error) CueErrorPosition {
	for _, p := range cueerrors.Positions(err) {
		if p.Filename() != "" {
			return CueErrorPosition{Filename: p.Filename(), Line: p.Line(), Column: p.Column()}
		}
	}
	return CueErrorPosition{}
}

// pathOf drops the leading #Config definition.
func pathOf(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func field(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
