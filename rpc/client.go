package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const (
	// DefaultCallTimeout is a default timeout for an RPC call
	DefaultCallTimeout = time.Minute
)

// ErrMissingEnode is returned when admin_nodeInfo replies without an enode,
// which happens when the node runs with p2p networking disabled.
var ErrMissingEnode = errors.New("node info carries no enode")

// NodeInfo is the typed result of admin_nodeInfo. Only the fields the
// bootstrap flow reads are decoded; the rest of the reply is dropped.
type NodeInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Enode string `json:"enode"`
	ENR   string `json:"enr"`
	IP    string `json:"ip"`
	Ports struct {
		Discovery int `json:"discovery"`
		Listener  int `json:"listener"`
	} `json:"ports"`
	ListenAddr string `json:"listenAddr"`
}

// Client is a typed client for the admin and net namespaces of a single node.
//
// Every call is bound by the configured per-call timeout. Transport errors,
// RPC errors and decode failures are returned as-is; there are no retries.
type Client struct {
	url   string
	local *gethrpc.Client

	callTimeout time.Duration
	log         log.Logger
}

// Dial connects to a node's administrative JSON-RPC endpoint.
func Dial(url string) (*Client, error) {
	return DialContext(context.Background(), url)
}

// DialContext connects to a node's administrative JSON-RPC endpoint.
func DialContext(ctx context.Context, url string) (*Client, error) {
	local, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{
		url:         url,
		local:       local,
		callTimeout: DefaultCallTimeout,
		log:         log.New("package", "peerlink/rpc.Client", "url", url),
	}, nil
}

// SetCallTimeout overrides the per-call timeout.
func (c *Client) SetCallTimeout(d time.Duration) {
	if d > 0 {
		c.callTimeout = d
	}
}

// URL returns the endpoint this client is connected to.
func (c *Client) URL() string {
	return c.url
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	c.local.Close()
}

// NodeInfo queries the node's identity via admin_nodeInfo. A reply without an
// enode is an error: nothing downstream can be derived from it.
func (c *Client) NodeInfo(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	if err := c.call(ctx, &info, "admin_nodeInfo"); err != nil {
		return nil, err
	}
	if info.Enode == "" {
		return nil, fmt.Errorf("%s: %w", c.url, ErrMissingEnode)
	}
	c.log.Debug("fetched node info", "name", info.Name, "enode", info.Enode)
	return &info, nil
}

// AddPeer registers url as a static peer via admin_addPeer.
func (c *Client) AddPeer(ctx context.Context, url string) (bool, error) {
	var accepted bool
	if err := c.call(ctx, &accepted, "admin_addPeer", url); err != nil {
		return false, err
	}
	return accepted, nil
}

// AddTrustedPeer registers url as a trusted peer via admin_addTrustedPeer.
// Trusted peers are exempt from the node's connection limits.
func (c *Client) AddTrustedPeer(ctx context.Context, url string) (bool, error) {
	var accepted bool
	if err := c.call(ctx, &accepted, "admin_addTrustedPeer", url); err != nil {
		return false, err
	}
	return accepted, nil
}

// PeerCount returns the number of connected peers via net_peerCount.
func (c *Client) PeerCount(ctx context.Context) (int, error) {
	var count hexutil.Uint
	if err := c.call(ctx, &count, "net_peerCount"); err != nil {
		return 0, err
	}
	return int(count), nil
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.local.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%s %s: %w", method, c.url, err)
	}
	return nil
}
