package types

import "fmt"

// Status is the agent-wide result code for every fallible operation.
// The taxonomy mirrors the original SMI/SDK return codes this agent was
// built against, trimmed to the set the core actually surfaces.
type Status int

const (
	OK Status = iota
	ERR
	InvalidArg
	InvalidOp
	EntryNotFound
	EntryExists
	InUse
	OOM
	OOB
	NoResource
	OpNotSupported
	NoDataErr
	UnexpectedDataErr
	UnexpectedDataSizeErr
	PermissionErr
	FileErr
	InitErr
	Interrupt
	RestartErr
	SettingUnavailableErr
	RefcountOverflowErr
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case ERR:
		return "ERR"
	case InvalidArg:
		return "INVALID_ARG"
	case InvalidOp:
		return "INVALID_OP"
	case EntryNotFound:
		return "ENTRY_NOT_FOUND"
	case EntryExists:
		return "ENTRY_EXISTS"
	case InUse:
		return "IN_USE"
	case OOM:
		return "OOM"
	case OOB:
		return "OOB"
	case NoResource:
		return "NO_RESOURCE"
	case OpNotSupported:
		return "OP_NOT_SUPPORTED"
	case NoDataErr:
		return "NO_DATA_ERR"
	case UnexpectedDataErr:
		return "UNEXPECTED_DATA_ERR"
	case UnexpectedDataSizeErr:
		return "UNEXPECTED_DATA_SIZE_ERR"
	case PermissionErr:
		return "PERMISSION_ERR"
	case FileErr:
		return "FILE_ERR"
	case InitErr:
		return "INIT_ERR"
	case Interrupt:
		return "INTERRUPT"
	case RestartErr:
		return "RESTART_ERR"
	case SettingUnavailableErr:
		return "SETTING_UNAVAILABLE_ERR"
	case RefcountOverflowErr:
		return "REFCOUNT_OVERFLOW_ERR"
	default:
		return "UNKNOWN"
	}
}

// Code is a fine-grained sub-reason attached to an Error, used by the
// boundary cases in spec §8 (e.g. OVERDRIVE_OUT_OF_RANGE).
type Code string

const (
	CodeNone                             Code = ""
	CodeOverdriveOutOfRange               Code = "OVERDRIVE_OUT_OF_RANGE"
	CodeNumClockFreqRangeExceeded          Code = "NUM_CLOCK_FREQ_RANGE_EXCEEDED"
	CodeDuplicateClockFreqRange            Code = "DUPLICATE_CLOCK_FREQ_RANGE"
	CodeClockFreqRangeInvalid              Code = "CLOCK_FREQ_RANGE_INVALID"
	CodeClockTypeFreqRangeUpdateNotSupported Code = "CLOCK_TYPE_FREQ_RANGE_UPDATE_NOT_SUPPORTED"
	CodePowerCapOutOfRange                 Code = "POWER_CAP_OUT_OF_RANGE"
)

// Error is the uniform error type returned by store/engine/entity
// operations. A nil *Error means OK.
type Error struct {
	Status Status
	Code   Code
	Msg    string
}

func (e *Error) Error() string {
	if e == nil {
		return "OK"
	}
	if e.Code != CodeNone {
		if e.Msg != "" {
			return fmt.Sprintf("%s/%s: %s", e.Status, e.Code, e.Msg)
		}
		return fmt.Sprintf("%s/%s", e.Status, e.Code)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Msg)
	}
	return e.Status.String()
}

// NewError constructs an *Error with no sub-code.
func NewError(s Status, msg string) *Error {
	return &Error{Status: s, Msg: msg}
}

// NewCodedError constructs an *Error with a sub-code.
func NewCodedError(s Status, c Code, msg string) *Error {
	return &Error{Status: s, Code: c, Msg: msg}
}

// StatusOf extracts the Status of err, or OK if err is nil, or ERR if
// err is a non-*Error error.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	if e, ok := err.(*Error); ok && e != nil {
		return e.Status
	}
	return ERR
}
