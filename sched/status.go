package sched

// Status is the result code returned across the user-facing async boundary
// and from in-process admission/submission calls.
type Status int

const (
	StatusOK Status = iota
	StatusInval
	StatusNoBufs
	StatusNoMem
	StatusFault
	StatusCantMeetSLO
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInval:
		return "INVAL"
	case StatusNoBufs:
		return "NOBUFS"
	case StatusNoMem:
		return "NOMEM"
	case StatusFault:
		return "FAULT"
	case StatusCantMeetSLO:
		return "CANTMEETSLO"
	default:
		return "UNKNOWN"
	}
}
