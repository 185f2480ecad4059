package domain

import "time"

// RequestType enumerates the facility request categories.
type RequestType string

const (
	RequestTypeTransport         RequestType = "TRANSPORT"
	RequestTypeForklift          RequestType = "FORKLIFT"
	RequestTypePackingHelp       RequestType = "PACKING_HELP"
	RequestTypeUrgentPurchase    RequestType = "URGENT_PURCHASE"
	RequestTypeMachineIssue      RequestType = "MACHINE_ISSUE"
	RequestTypeLabourRequirement RequestType = "LABOUR_REQUIREMENT"
	RequestTypeOther             RequestType = "OTHER"
)

// RequestTypes lists every category in display order.
var RequestTypes = []RequestType{
	RequestTypeTransport,
	RequestTypeForklift,
	RequestTypePackingHelp,
	RequestTypeUrgentPurchase,
	RequestTypeMachineIssue,
	RequestTypeLabourRequirement,
	RequestTypeOther,
}

// Valid reports whether t is a known category.
func (t RequestType) Valid() bool {
	for _, candidate := range RequestTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Urgency orders requests on the board. NOW is the most urgent.
type Urgency string

const (
	UrgencyNow   Urgency = "NOW"
	UrgencyToday Urgency = "TODAY"
	UrgencyLow   Urgency = "LOW"
)

// Urgencies lists urgency levels from most to least urgent; the index is the rank.
var Urgencies = []Urgency{UrgencyNow, UrgencyToday, UrgencyLow}

// Rank returns the board rank of u (0 is most urgent). Unknown values rank after LOW.
func (u Urgency) Rank() int {
	for i, candidate := range Urgencies {
		if candidate == u {
			return i
		}
	}
	return len(Urgencies)
}

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	return u.Rank() < len(Urgencies)
}

// RequestStatus enumerates lifecycle states for requests.
type RequestStatus string

const (
	RequestStatusNew        RequestStatus = "NEW"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusWaiting    RequestStatus = "WAITING"
	RequestStatusDone       RequestStatus = "DONE"
)

// RequestStatuses lists every status.
var RequestStatuses = []RequestStatus{
	RequestStatusNew,
	RequestStatusInProgress,
	RequestStatusWaiting,
	RequestStatusDone,
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	for _, candidate := range RequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusDone
}

// Request is the aggregate tracked on the board.
type Request struct {
	ID          string
	Type        RequestType
	Description string
	Urgency     Urgency
	Location    string
	RequestedBy string
	Status      RequestStatus
	OwnerID     string
	CreatedByID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
	// LastEventAt is the timestamp of the newest audit event for the request.
	LastEventAt time.Time
}

// RequestView is a request joined with its owner.
type RequestView struct {
	Request
	Owner UserRef
}
