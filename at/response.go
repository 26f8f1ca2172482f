package at

import (
	"strconv"
	"strings"
)

// Classification is the coarse outcome read from a modem or drone reply.
type Classification int

const (
	Unrecognized Classification = iota
	Ok
	NoAccessPoint
)

func (c Classification) String() string {
	switch c {
	case Ok:
		return "ok"
	case NoAccessPoint:
		return "no access point"
	default:
		return "unrecognized"
	}
}

// ParseResponse classifies raw reply text by its markers. "No AP" wins over
// "OK" because the ESP8266 answers a status query with both when the
// station is not associated.
func ParseResponse(text string) Classification {
	switch {
	case strings.Contains(text, NoAP):
		return NoAccessPoint
	case strings.Contains(text, OK):
		return Ok
	default:
		return Unrecognized
	}
}

// ParseIPD extracts the payload of a "+IPD,<len>:<payload>" notification.
// The payload is cut to the announced length when the line carries more.
func ParseIPD(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, UrcIPD)
	if !ok {
		return "", false
	}
	size, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return "", false
	}
	n, err := strconv.Atoi(size)
	if err != nil || n < 0 {
		return "", false
	}
	if len(payload) > n {
		payload = payload[:n]
	}
	return payload, true
}
