package peers

import (
	"errors"
	"fmt"
	"strings"
)

const enodeScheme = "enode://"

var (
	// ErrNotEnode is returned when a string does not carry the enode scheme.
	ErrNotEnode = errors.New("not an enode URL")
	// ErrNoAddress is returned when an enode URL has no @host:port part.
	ErrNoAddress = errors.New("enode URL carries no address")
)

// TrimDiscovery drops the query suffix a node appends to its self-advertised
// enode (e.g. "?discport=0"). The suffix describes the UDP discovery port and
// is not accepted by the add-peer admin calls.
func TrimDiscovery(rawurl string) string {
	if i := strings.IndexByte(rawurl, '?'); i >= 0 {
		return rawurl[:i]
	}
	return rawurl
}

// RemapAddress replaces the host:port part of an enode URL with the given
// literal, keeping the node ID. Any discovery query suffix is dropped first.
func RemapAddress(rawurl, hostport string) (string, error) {
	if !strings.HasPrefix(rawurl, enodeScheme) {
		return "", fmt.Errorf("%w: %q", ErrNotEnode, rawurl)
	}
	trimmed := TrimDiscovery(rawurl)
	at := strings.LastIndexByte(trimmed, '@')
	if at < 0 {
		return "", fmt.Errorf("%w: %q", ErrNoAddress, rawurl)
	}
	return trimmed[:at+1] + hostport, nil
}

// PeerURL derives the connection URL other nodes should register for a node
// that advertised rawurl. When advertised is non-empty the self-reported
// address is replaced with it.
func PeerURL(rawurl, advertised string) (string, error) {
	if !strings.HasPrefix(rawurl, enodeScheme) {
		return "", fmt.Errorf("%w: %q", ErrNotEnode, rawurl)
	}
	if advertised == "" {
		return TrimDiscovery(rawurl), nil
	}
	return RemapAddress(rawurl, advertised)
}
