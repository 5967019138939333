package peers

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"go.uber.org/zap"

	"github.com/devnet-tools/peerlink/params"
	"github.com/devnet-tools/peerlink/rpc"
)

// AdminClient is the node-management surface the connector drives. It is
// satisfied by rpc.Client and by mocks in tests.
type AdminClient interface {
	NodeInfo(ctx context.Context) (*rpc.NodeInfo, error)
	AddPeer(ctx context.Context, url string) (bool, error)
	AddTrustedPeer(ctx context.Context, url string) (bool, error)
	PeerCount(ctx context.Context) (int, error)
	Close()
}

// Dialer opens an admin client for a node's RPC endpoint.
type Dialer func(ctx context.Context, url string) (AdminClient, error)

// Option configures a Connector.
type Option func(*Connector)

// WithDialer overrides how admin clients are opened.
func WithDialer(dial Dialer) Option {
	return func(c *Connector) { c.dial = dial }
}

// WithStrictValidation makes the connector reject derived peer URLs that do
// not parse as complete v4 enodes before registering them anywhere.
func WithStrictValidation(strict bool) Option {
	return func(c *Connector) { c.strict = strict }
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Connector) { c.logger = logger }
}

// Connector wires the members of a cluster together through their admin RPC
// endpoints. One Connect call performs one full bootstrap run; the first
// failing step aborts the run and nothing after it executes.
type Connector struct {
	config *params.Config
	dial   Dialer
	strict bool
	logger *zap.Logger
}

// NewConnector creates a Connector for the given cluster description. The
// config is expected to be validated.
func NewConnector(config *params.Config, opts ...Option) *Connector {
	c := &Connector{
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = func(ctx context.Context, url string) (AdminClient, error) {
			client, err := rpc.DialContext(ctx, url)
			if err != nil {
				return nil, err
			}
			client.SetCallTimeout(config.CallTimeoutDuration())
			return client, nil
		}
	}
	return c
}

// Connect runs the bootstrap sequence:
//
//  1. admin_nodeInfo against every node, in config order;
//  2. derive each node's peer URL from its enode;
//  3. issue the configured add-peer calls, in config order;
//  4. optionally wait for the handshakes to settle;
//  5. optionally query net_peerCount on every node.
//
// The returned map holds peer counts per node name, nil unless verification
// is enabled.
func (c *Connector) Connect(ctx context.Context) (map[string]int, error) {
	clients := make(map[string]AdminClient, len(c.config.Nodes))
	defer func() {
		for _, client := range clients {
			client.Close()
		}
	}()

	for _, node := range c.config.Nodes {
		client, err := c.dial(ctx, node.RPCURL)
		if err != nil {
			return nil, err
		}
		clients[node.Name] = client
	}

	peerURLs, err := c.collectPeerURLs(ctx, clients)
	if err != nil {
		return nil, err
	}

	for _, link := range c.config.Links {
		if err := c.establish(ctx, clients, peerURLs, link); err != nil {
			return nil, err
		}
	}

	if wait := c.config.HandshakeWaitDuration(); wait > 0 {
		c.logger.Info("waiting for handshakes", zap.Duration("wait", wait))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if !c.config.VerifyPeerCount {
		return nil, nil
	}
	return c.verify(ctx, clients)
}

// collectPeerURLs queries every node's identity and derives the connection
// URL its peers should register.
func (c *Connector) collectPeerURLs(ctx context.Context, clients map[string]AdminClient) (map[string]string, error) {
	peerURLs := make(map[string]string, len(c.config.Nodes))
	for _, node := range c.config.Nodes {
		info, err := clients[node.Name].NodeInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name, err)
		}

		peerURL, err := PeerURL(info.Enode, node.AdvertisedAddress)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name, err)
		}
		if c.strict {
			if _, err := enode.ParseV4(peerURL); err != nil {
				return nil, fmt.Errorf("node %s: derived peer URL %q: %w", node.Name, peerURL, err)
			}
		}

		peerURLs[node.Name] = peerURL
		c.logger.Info("derived peer URL",
			zap.String("node", node.Name),
			zap.String("enode", info.Enode),
			zap.String("peerURL", peerURL))
	}
	return peerURLs, nil
}

func (c *Connector) establish(ctx context.Context, clients map[string]AdminClient, peerURLs map[string]string, link params.PeerLink) error {
	from, ok := clients[link.From]
	if !ok {
		return fmt.Errorf("%w: %q", params.ErrUnknownNode, link.From)
	}
	peerURL, ok := peerURLs[link.To]
	if !ok {
		return fmt.Errorf("%w: %q", params.ErrUnknownNode, link.To)
	}

	var accepted bool
	var err error
	if link.Trusted {
		accepted, err = from.AddTrustedPeer(ctx, peerURL)
	} else {
		accepted, err = from.AddPeer(ctx, peerURL)
	}
	if err != nil {
		return fmt.Errorf("link %s -> %s: %w", link.From, link.To, err)
	}
	if !accepted {
		return fmt.Errorf("link %s -> %s: node rejected peer %s", link.From, link.To, peerURL)
	}

	c.logger.Info("peer registered",
		zap.String("from", link.From),
		zap.String("to", link.To),
		zap.Bool("trusted", link.Trusted))
	return nil
}

func (c *Connector) verify(ctx context.Context, clients map[string]AdminClient) (map[string]int, error) {
	counts := make(map[string]int, len(c.config.Nodes))
	for _, node := range c.config.Nodes {
		count, err := clients[node.Name].PeerCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name, err)
		}
		counts[node.Name] = count
		c.logger.Info("peer count", zap.String("node", node.Name), zap.Int("peers", count))
	}
	return counts, nil
}
