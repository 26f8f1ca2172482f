package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "

	// Response Codes
	OK        = "OK"
	ERROR     = "ERROR"
	FAIL      = "FAIL"
	SendOK    = "SEND OK"
	SendFail  = "SEND FAIL"
	NoAP      = "No AP"
	BusyP     = "busy p..."
	BusyS     = "busy s..."
	Connected = "Connected"

	// URCs (Unsolicited Result Codes)
	UrcReady          = "ready"
	UrcWifiConnected  = "WIFI CONNECTED"
	UrcWifiGotIP      = "WIFI GOT IP"
	UrcWifiDisconnect = "WIFI DISCONNECT"
	UrcIPD            = "+IPD,"

	// Intermediate data
	DataCWJAP = "+CWJAP:"

	// Fixed commands
	CmdReset       = "AT+RST"
	CmdStationMode = "AT+CWMODE=1"
	CmdQueryAP     = "AT+CWJAP?"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR, SEND OK, busy
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CWJAP: ...)
	TypePrompt                     // CIPSEND input prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	case TypePrompt:
		return "prompt"
	default:
		return "unknown"
	}
}
