package framework

type (
	Type        string
	StatusState string
)

const (
	// List of all services

	Ledger       Type = "ledger"
	Registry     Type = "registry"
	Group        Type = "group"
	Nullifier    Type = "nullifier"
	Verification Type = "verification"

	StatusReady    StatusState = "ready"
	StatusNotReady StatusState = "not_ready"
)

// Status is for services reporting on their status
type Status struct {
	Status  StatusState `json:"status,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (s Status) IsReady() bool {
	return s.Status == StatusReady
}

// Service is an interface each service must comply with to be registered and orchestrated by the server.
type Service interface {
	Type() Type
	Status() Status
}
