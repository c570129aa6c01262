package admission

// Status classifies a client IP for admission decisions.
type Status int8

// Admission statuses. The numeric value doubles as the storage code.
const (
	// StatusNone means the IP has no recorded status and the normal
	// security pipeline applies.
	StatusNone Status = -1

	// StatusTrusted means security checks may be bypassed for the IP.
	StatusTrusted Status = 0

	// StatusBlocked means requests from the IP are refused outright.
	StatusBlocked Status = 1
)

// FromCode maps a stored code to a Status. Unknown codes collapse to
// StatusNone, so a corrupt or future value never grants more than the
// default pipeline.
func FromCode(code int8) Status {
	switch code {
	case 0:
		return StatusTrusted
	case 1:
		return StatusBlocked
	default:
		return StatusNone
	}
}

// Code returns the storage code of the status.
func (s Status) Code() int8 {
	return int8(s)
}

// String implements fmt.Stringer. Values outside the known set print
// as none.
func (s Status) String() string {
	switch s {
	case StatusTrusted:
		return "trusted"
	case StatusBlocked:
		return "blocked"
	default:
		return "none"
	}
}
