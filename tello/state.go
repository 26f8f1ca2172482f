package tello

// Step is one stage of bringing up the modem-to-drone link, in issue order.
type Step int

const (
	StepReset Step = iota
	StepStationMode
	StepJoinWiFi
	StepOpenUDP
	StepActivateSDK

	stepCount
)

func (s Step) String() string {
	switch s {
	case StepReset:
		return "reset"
	case StepStationMode:
		return "station-mode"
	case StepJoinWiFi:
		return "join-wifi"
	case StepOpenUDP:
		return "open-udp"
	case StepActivateSDK:
		return "activate-sdk"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Steps lists every step in issue order.
func Steps() []Step {
	return []Step{StepReset, StepStationMode, StepJoinWiFi, StepOpenUDP, StepActivateSDK}
}

// ConnectionState records which connection steps have been issued. A flag
// means the command went out, not that the modem accepted it.
type ConnectionState struct {
	ModuleReady bool `json:"module_ready"`
	StationMode bool `json:"station_mode"`
	WiFiJoined  bool `json:"wifi_joined"`
	UDPOpen     bool `json:"udp_open"`
	SDKActive   bool `json:"sdk_active"`
}

func (s ConnectionState) flags() [stepCount]bool {
	return [stepCount]bool{s.ModuleReady, s.StationMode, s.WiFiJoined, s.UDPOpen, s.SDKActive}
}

// Next returns the first step not yet issued.
func (s ConnectionState) Next() (Step, bool) {
	for i, done := range s.flags() {
		if !done {
			return Step(i), true
		}
	}
	return 0, false
}

// Valid reports whether the issued steps form a prefix of the sequence.
func (s ConnectionState) Valid() bool {
	flags := s.flags()
	for i := 1; i < len(flags); i++ {
		if flags[i] && !flags[i-1] {
			return false
		}
	}
	return true
}

func (s ConnectionState) Complete() bool {
	_, pending := s.Next()
	return !pending
}

// Issued counts the steps already issued.
func (s ConnectionState) Issued() int {
	n := 0
	for _, done := range s.flags() {
		if done {
			n++
		}
	}
	return n
}

// With returns a copy of s with step marked as issued.
func (s ConnectionState) With(step Step) ConnectionState {
	switch step {
	case StepReset:
		s.ModuleReady = true
	case StepStationMode:
		s.StationMode = true
	case StepJoinWiFi:
		s.WiFiJoined = true
	case StepOpenUDP:
		s.UDPOpen = true
	case StepActivateSDK:
		s.SDKActive = true
	}
	return s
}
