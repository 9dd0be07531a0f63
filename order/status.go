package order

// Status is the order's position in the fulfilment flow.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the allowed forward edges. Any non-terminal status may
// additionally move to cancelled.
var transitions = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusCompleted,
}

// ValidTransition reports whether from may move to next.
func ValidTransition(from, next Status) bool {
	if from == next {
		return false
	}
	if next == StatusCancelled {
		return !IsTerminal(from)
	}
	return transitions[from] == next
}

// IsTerminal reports whether no further transition is allowed.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValidStatus reports whether s is a known status value.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}
