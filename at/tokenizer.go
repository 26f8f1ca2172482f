package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings and also
// recognizes the CIPSEND input prompt ("> ").
//
// Important: This splitter assumes the modem does not echo payload bytes
// back after the prompt. Command echoes (ATE1, the ESP8266 default) show
// up as ordinary data lines.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match CIPSEND Prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// BoundedSplitter returns a Splitter that never yields a line longer than
// max bytes. Bytes past max are dropped until the next CRLF, the way a
// fixed-size UART receive buffer loses them. A non-positive max returns
// Splitter unchanged.
//
// The returned function keeps state between calls and must only be used by
// a single bufio.Scanner.
func BoundedSplitter(max int) bufio.SplitFunc {
	if max <= 0 {
		return Splitter
	}

	var (
		dropping bool
		kept     []byte
	)

	flush := func() []byte {
		tok := kept
		kept = nil
		dropping = false
		return tok
	}

	return func(data []byte, atEOF bool) (int, []byte, error) {
		if dropping {
			if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
				return i + len(CRLF), flush(), nil
			}
			if atEOF {
				return len(data), flush(), nil
			}
			// A trailing '\r' may be the first half of a CRLF.
			if n := len(data); n > 0 && data[n-1] == '\r' {
				return n - 1, nil, nil
			}
			return len(data), nil, nil
		}

		advance, token, err := Splitter(data, atEOF)
		if err != nil || advance > 0 {
			if len(token) > max {
				token = token[:max]
			}
			return advance, token, err
		}

		if len(data) > max {
			kept = append([]byte(nil), data[:max]...)
			dropping = true
			return max, nil, nil
		}
		return 0, nil, nil
	}
}

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt || line == ">" {
		return TypePrompt
	}

	// Direct matches
	switch line {
	case OK, ERROR, FAIL, SendOK, SendFail:
		return TypeFinal
	// The modem drops a command it receives while busy.
	case BusyP, BusyS:
		return TypeFinal
	case UrcReady, UrcWifiConnected, UrcWifiGotIP, UrcWifiDisconnect:
		return TypeURC
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, UrcIPD):
		return TypeURC
	default:
		return TypeData
	}
}
