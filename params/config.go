package params

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	validator "gopkg.in/go-playground/validator.v9"
)

// Default timings for a freshly started devnet. HandshakeWait matches the
// time the devp2p handshake usually needs on a local machine before
// net_peerCount reports anything meaningful.
const (
	DefaultCallTimeoutSeconds   = 60
	DefaultHandshakeWaitSeconds = 30
)

// ErrUnknownNode is returned when a link references a node name that is not
// part of the cluster.
var ErrUnknownNode = fmt.Errorf("link references an unknown node")

// NodeEndpoint describes one already-running node of the cluster.
type NodeEndpoint struct {
	// Name identifies the node in PeerLink entries and in reported results.
	Name string `json:"name" validate:"required"`

	// RPCURL is the node's administrative JSON-RPC endpoint.
	RPCURL string `json:"rpcUrl" validate:"required,uri"`

	// AdvertisedAddress optionally replaces the host:port the node advertises
	// in its enode. Needed when the self-reported address is not reachable
	// from its peers, e.g. behind a port remap of the test harness.
	AdvertisedAddress string `json:"advertisedAddress,omitempty"`
}

// PeerLink instructs the From node to register the To node's enode.
type PeerLink struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`

	// Trusted selects admin_addTrustedPeer instead of admin_addPeer. Trusted
	// peers are always accepted, even above the node's peer limit.
	Trusted bool `json:"trusted,omitempty"`
}

// Config describes a whole bootstrap run: which nodes exist, who should peer
// with whom, and what happens after the links are issued.
type Config struct {
	// Nodes lists the cluster members in the order they are queried.
	Nodes []NodeEndpoint `json:"nodes" validate:"required,min=1,dive"`

	// Links lists the peerings to establish, issued in order.
	Links []PeerLink `json:"links" validate:"dive"`

	// HandshakeWait is how long to block after the last link before
	// verifying peer counts, in seconds. Zero skips the wait.
	HandshakeWait int `json:"handshakeWaitSeconds"`

	// VerifyPeerCount enables the final net_peerCount pass over all nodes.
	VerifyPeerCount bool `json:"verifyPeerCount"`

	// CallTimeout bounds every individual RPC call, in seconds.
	CallTimeout int `json:"callTimeoutSeconds"`
}

// DevnetConfig returns the cluster layout of the standard local three-node
// devnet: a miner, a passive member and a node that is shut down mid-test.
// The member node registers the other two, the miner additionally as a
// trusted peer so it survives peer-limit pressure.
func DevnetConfig() *Config {
	return &Config{
		Nodes: []NodeEndpoint{
			{Name: "miner", RPCURL: "http://127.0.0.1:9545"},
			{Name: "member", RPCURL: "http://127.0.0.1:9546"},
			{Name: "shutdown", RPCURL: "http://127.0.0.1:9547"},
		},
		Links: []PeerLink{
			{From: "member", To: "miner", Trusted: true},
			{From: "member", To: "miner"},
			{From: "member", To: "shutdown"},
		},
		HandshakeWait:   DefaultHandshakeWaitSeconds,
		VerifyPeerCount: true,
		CallTimeout:     DefaultCallTimeoutSeconds,
	}
}

// LoadConfig reads and validates a cluster description from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfigFromJSON(data)
}

// NewConfigFromJSON unmarshals and validates a cluster description.
func NewConfigFromJSON(data []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse cluster config: %w", err)
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = DefaultCallTimeoutSeconds
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks structural constraints. Every link must reference a
// configured node and node names must be unique.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(c.Nodes))
	for _, node := range c.Nodes {
		if _, ok := names[node.Name]; ok {
			return fmt.Errorf("duplicate node name %q", node.Name)
		}
		names[node.Name] = struct{}{}
	}
	for _, link := range c.Links {
		if _, ok := names[link.From]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, link.From)
		}
		if _, ok := names[link.To]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, link.To)
		}
	}
	return nil
}

// Node returns the endpoint with the given name.
func (c *Config) Node(name string) (*NodeEndpoint, bool) {
	for i := range c.Nodes {
		if c.Nodes[i].Name == name {
			return &c.Nodes[i], true
		}
	}
	return nil, false
}

// HandshakeWaitDuration returns HandshakeWait as a time.Duration.
func (c *Config) HandshakeWaitDuration() time.Duration {
	return time.Duration(c.HandshakeWait) * time.Second
}

// CallTimeoutDuration returns CallTimeout as a time.Duration.
func (c *Config) CallTimeoutDuration() time.Duration {
	return time.Duration(c.CallTimeout) * time.Second
}

// String dumps config object as nicely indented JSON
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "    ") // nolint: gas
	return string(data)
}
