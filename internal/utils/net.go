package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// FreeLocalAddr returns a loopback host:port that was free a moment ago.
func FreeLocalAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return l.Addr().String(), nil
}

// AddrToURL turns a listen address into the http URL clients dial. A missing
// host means all interfaces.
func AddrToURL(addr string) (string, error) {
	if addr == "" || strings.Contains(addr, "://") {
		return "", fmt.Errorf("invalid listen address %q", addr)
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid port in %q", addr)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
