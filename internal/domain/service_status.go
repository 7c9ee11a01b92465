package domain

// ServiceStatus enumerates lifecycle states for service requests.
type ServiceStatus string

const (
	StatusAwaitingAnalysis ServiceStatus = "AWAITING_ANALYSIS"
	StatusCreated          ServiceStatus = "CREATED"
	StatusUrgentDispatch   ServiceStatus = "URGENT_DISPATCH"
	StatusPendingReview    ServiceStatus = "PENDING_REVIEW"
	StatusApproved         ServiceStatus = "APPROVED"
	StatusAssigned         ServiceStatus = "ASSIGNED"
	StatusInProgress       ServiceStatus = "IN_PROGRESS"
	StatusCompleted        ServiceStatus = "COMPLETED"
	StatusCancelled        ServiceStatus = "CANCELLED"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []ServiceStatus{
	StatusAwaitingAnalysis,
	StatusCreated,
	StatusUrgentDispatch,
	StatusPendingReview,
	StatusApproved,
	StatusAssigned,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// IsTerminal reports whether no further transition is possible.
func (s ServiceStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s ServiceStatus) Valid() bool {
	for _, candidate := range AllStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s ServiceStatus) String() string {
	return string(s)
}
