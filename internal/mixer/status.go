package mixer

import (
	"fmt"
	"net"
	"strconv"
)

// Status is the liveness of the outbound UDP socket as tracked by the Link.
// It is not a handshake state: UDP has no delivery acknowledgment, so
// Connected only means the local send path worked last time it was used.
//
// Transitions:
//
//	Disconnected -> Connected    (socket created)
//	Disconnected -> NoNetwork    (no endpoint host known)
//	Connected    -> Disconnected (probe or send failed)
//	any          -> Connecting   (reconnect started)
//	Connecting   -> Connected | Disconnected | NoNetwork
type Status uint32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusNoNetwork
)

var statusNames = [...]string{
	StatusDisconnected: "Disconnected",
	StatusConnecting:   "Connecting",
	StatusConnected:    "Connected",
	StatusNoNetwork:    "NoNetwork",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Endpoint is the mixer's network address.
type Endpoint struct {
	Host string `json:"host"`
	Port uint16 `json:"port"`
}

// IsSet reports whether a host is known.
func (e Endpoint) IsSet() bool { return e.Host != "" }

func (e Endpoint) String() string {
	if !e.IsSet() {
		return "<unset>"
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// resolve turns the endpoint into a UDP destination.
func (e Endpoint) resolve() (*net.UDPAddr, error) {
	if !e.IsSet() {
		return nil, ErrNoNetwork
	}
	addr, err := net.ResolveUDPAddr("udp", e.String())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", e, err)
	}
	return addr, nil
}
