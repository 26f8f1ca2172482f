package tello

// Status is the outcome of one drone command.
type Status int

const (
	// Success means the reply carried the success marker.
	Success Status = iota
	// Timeout means nothing came back within the reply window.
	Timeout
	// Rejected means a reply came back without the success marker.
	Rejected
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is what Execute observed. Text is the raw reply, kept for display.
type Result struct {
	Status Status
	Text   string
}

func (r Result) OK() bool { return r.Status == Success }

// Display is the two-line operator readout: a verdict and the raw reply.
type Display struct {
	Connected bool      `json:"connected"`
	Lines     [2]string `json:"lines"`
}

// DisplayFor renders r for the operator.
func DisplayFor(r Result) Display {
	switch r.Status {
	case Success:
		return Display{Connected: true, Lines: [2]string{"Connected", r.Text}}
	case Timeout:
		return Display{Lines: [2]string{"Failed", "timeout"}}
	default:
		return Display{Lines: [2]string{"Failed", r.Text}}
	}
}
