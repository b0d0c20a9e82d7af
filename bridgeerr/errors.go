// Package bridgeerr defines the error taxonomy shared by every boundary operation.
// Codes are stable integers and are part of the foreign ABI.
package bridgeerr

import (
	"errors"
	"fmt"
)

// Code is a stable numeric error category. Values never change between releases.
type Code int32

const (
	OK                     Code = 0
	Unknown                Code = 1
	InvalidArgumentCode    Code = 2
	AbiMismatchCode        Code = 3
	PlanVersionUnsupported Code = 4
	PlanDecodeCode         Code = 5
	PlanSemanticCode       Code = 6
	ArrowImportCode        Code = 7
	ArrowExportCode        Code = 8
	ExecutionCode          Code = 9
	UnsupportedCode        Code = 10
	OomCode                Code = 11
)

var codeNames = map[Code]string{
	OK:                     "OK",
	Unknown:                "ERR_UNKNOWN",
	InvalidArgumentCode:    "ERR_INVALID_ARGUMENT",
	AbiMismatchCode:        "ERR_ABI_MISMATCH",
	PlanVersionUnsupported: "ERR_PLAN_VERSION_UNSUPPORTED",
	PlanDecodeCode:         "ERR_PLAN_DECODE",
	PlanSemanticCode:       "ERR_PLAN_SEMANTIC",
	ArrowImportCode:        "ERR_ARROW_IMPORT",
	ArrowExportCode:        "ERR_ARROW_EXPORT",
	ExecutionCode:          "ERR_EXECUTION",
	UnsupportedCode:        "ERR_UNSUPPORTED",
	OomCode:                "ERR_OOM",
}

// String returns the canonical ERR_* spelling used in last-error messages.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ERR_CODE_%d", int32(c))
}

// Codes returns every defined code in ascending order.
func Codes() []Code {
	out := make([]Code, 0, len(codeNames))
	for c := OK; c <= OomCode; c++ {
		out = append(out, c)
	}
	return out
}

// Error is a categorized failure. Message is the human-readable part
// and never includes the code prefix.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so callers can
// write errors.Is(err, bridgeerr.New(bridgeerr.ExecutionCode, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap categorizes cause under code. The message is "msg: cause".
func Wrap(code Code, cause error, msg string) *Error {
	if cause == nil {
		return New(code, msg)
	}
	if msg == "" {
		return &Error{Code: code, Message: cause.Error(), Err: cause}
	}
	return &Error{Code: code, Message: msg + ": " + cause.Error(), Err: cause}
}

func InvalidArgument(msg string) *Error { return New(InvalidArgumentCode, msg) }
func PlanDecode(msg string) *Error      { return New(PlanDecodeCode, msg) }
func PlanSemantic(msg string) *Error    { return New(PlanSemanticCode, msg) }
func ArrowImport(msg string) *Error     { return New(ArrowImportCode, msg) }
func ArrowExport(msg string) *Error     { return New(ArrowExportCode, msg) }
func Execution(msg string) *Error       { return New(ExecutionCode, msg) }
func Unsupported(msg string) *Error     { return New(UnsupportedCode, msg) }
func Oom(msg string) *Error             { return New(OomCode, msg) }

func InvalidArgumentf(format string, args ...any) *Error {
	return Newf(InvalidArgumentCode, format, args...)
}

func PlanDecodef(format string, args ...any) *Error {
	return Newf(PlanDecodeCode, format, args...)
}

func PlanSemanticf(format string, args ...any) *Error {
	return Newf(PlanSemanticCode, format, args...)
}

func ArrowImportf(format string, args ...any) *Error {
	return Newf(ArrowImportCode, format, args...)
}

func ArrowExportf(format string, args ...any) *Error {
	return Newf(ArrowExportCode, format, args...)
}

func Executionf(format string, args ...any) *Error {
	return Newf(ExecutionCode, format, args...)
}

func Unsupportedf(format string, args ...any) *Error {
	return Newf(UnsupportedCode, format, args...)
}

// AbiMismatch reports a caller compiled against a different ABI version.
func AbiMismatch(expected, got uint32) *Error {
	return Newf(AbiMismatchCode, "ABI version mismatch: expected %d, got %d", expected, got)
}

// VersionUnsupported reports a plan version outside the supported range.
func VersionUnsupported(version uint32) *Error {
	return Newf(PlanVersionUnsupported, "Unsupported plan version: %d", version)
}

// Panic converts a recovered panic value into an Unknown error.
func Panic(v any) *Error {
	var msg string
	switch x := v.(type) {
	case string:
		msg = x
	case error:
		msg = x.Error()
	default:
		msg = fmt.Sprintf("%v", x)
	}
	return &Error{Code: Unknown, Message: "Panic: " + msg}
}

// Classify maps any error onto the taxonomy. Categorized errors anywhere in
// the chain keep their code, everything else becomes Unknown.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return &Error{Code: Unknown, Message: err.Error(), Err: err}
}

// CodeOf returns the code of err, or OK for nil.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	return Classify(err).Code
}

// Format renders err the way the last-error slot stores it: "[ERR_X] message".
func Format(err error) string {
	if err == nil {
		return ""
	}
	be := Classify(err)
	return "[" + be.Code.String() + "] " + be.Message
}
