package at

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const cmdSendPrefix = "AT+CIPSEND="

// ErrNotSendLength is returned by ParseSendLength for lines that are not a
// CIPSEND length directive.
var ErrNotSendLength = errors.New("not a CIPSEND length directive")

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `,`, `\,`)

// JoinAP builds the station join command for the given network. The ESP8266
// AT firmware requires '"', ',' and '\' to be escaped inside quoted
// parameters. An empty password joins an open network.
func JoinAP(ssid, password string) string {
	return fmt.Sprintf(`AT+CWJAP="%s","%s"`, quoteEscaper.Replace(ssid), quoteEscaper.Replace(password))
}

// StartUDP builds the command that opens a single UDP session to ip:port.
func StartUDP(ip string, port int) string {
	return fmt.Sprintf(`AT+CIPSTART="UDP","%s",%d`, ip, port)
}

// SendLength builds the directive announcing that the next n bytes written
// to the modem are payload for the open session.
func SendLength(n int) string {
	return cmdSendPrefix + strconv.Itoa(n)
}

// ParseSendLength returns the byte count announced by a SendLength
// directive.
func ParseSendLength(line string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), cmdSendPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotSendLength, line)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad length %q", ErrNotSendLength, rest)
	}
	return n, nil
}
