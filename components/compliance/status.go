package compliance

import "context"

// StatusState is the coarse state surfaced by the host's status indicator.
type StatusState string

const (
	StatusIdle    StatusState = "idle"
	StatusLoading StatusState = "loading"
	StatusReady   StatusState = "ready"
	StatusError   StatusState = "error"
)

// Status is the label/colour pair shown by the indicator.
type Status struct {
	State StatusState `json:"state"`
	Label string      `json:"label"`
	Color string      `json:"color"`
}

// StatusIndicator receives status transitions for a surface.
type StatusIndicator interface {
	SetStatus(ctx context.Context, status Status)
}

type noopStatusIndicator struct{}

func (noopStatusIndicator) SetStatus(context.Context, Status) {}

func defaultStatus(state StatusState) Status {
	switch state {
	case StatusLoading:
		return Status{State: state, Label: "Loading", Color: "orange"}
	case StatusReady:
		return Status{State: state, Label: "Ready", Color: "green"}
	case StatusError:
		return Status{State: state, Label: "Error", Color: "red"}
	default:
		return Status{State: StatusIdle, Label: "", Color: "grey"}
	}
}
