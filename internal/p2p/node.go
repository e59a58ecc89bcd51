// Package p2p adapts the teacher's libp2p networking layer into the event
// bus the pool's operations publish to and the scanner (C8) subscribes
// from — the in-pack stand-in for "the host's event index", a collaborator
// spec.md §1 names only by interface.
//
// Retargets internal/p2p/node.go's host/pubsub/topic/subscription plumbing
// from the teacher's block/transaction/task gossip onto
// ShieldTopic/TransferTopic/UnshieldTopic, dropping the DHT bootstrap and
// mDNS peer-discovery machinery (go-libp2p-kad-dht was never declared in
// go.mod — see DESIGN.md) since a pool event bus has no peer-routing
// concern of its own.
package p2p

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/multiformats/go-multiaddr"
)

// Topic names for the three pool event streams.
const (
	ProtocolID      = "/shieldpool/1.0.0"
	ShieldTopic     = "shieldpool/shield"
	TransferTopic   = "shieldpool/transfer"
	UnshieldTopic   = "shieldpool/unshield"
)

// MessageHandler processes one raw pubsub message payload.
type MessageHandler func(ctx context.Context, data []byte) error

// Config holds the node's libp2p configuration.
type Config struct {
	ListenAddrs []string
	PrivateKey  crypto.PrivKey
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddrs: []string{"/ip4/0.0.0.0/tcp/0"},
	}
}

// Node is a pubsub-only libp2p node publishing and subscribing to the
// pool's three event topics.
type Node struct {
	mu sync.RWMutex

	host   host.Host
	pubsub *pubsub.PubSub

	shieldTopic   *pubsub.Topic
	transferTopic *pubsub.Topic
	unshieldTopic *pubsub.Topic

	shieldSub   *pubsub.Subscription
	transferSub *pubsub.Subscription
	unshieldSub *pubsub.Subscription

	shieldHandler   MessageHandler
	transferHandler MessageHandler
	unshieldHandler MessageHandler

	ctx    context.Context
	cancel context.CancelFunc
}

// NewNode creates a pool event-bus node and joins its three topics.
func NewNode(ctx context.Context, cfg *Config) (*Node, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	nodeCtx, cancel := context.WithCancel(ctx)

	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Ed25519, -1, rand.Reader)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
	}

	listenAddrs := make([]multiaddr.Multiaddr, len(cfg.ListenAddrs))
	for i, addr := range cfg.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid listen address: %w", err)
		}
		listenAddrs[i] = ma
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrs(listenAddrs...),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(nodeCtx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	node := &Node{
		host:   h,
		pubsub: ps,
		ctx:    nodeCtx,
		cancel: cancel,
	}

	if err := node.joinTopics(); err != nil {
		node.Close()
		return nil, fmt.Errorf("failed to join topics: %w", err)
	}

	return node, nil
}

func (n *Node) joinTopics() error {
	var err error

	n.shieldTopic, err = n.pubsub.Join(ShieldTopic)
	if err != nil {
		return fmt.Errorf("failed to join shield topic: %w", err)
	}
	n.shieldSub, err = n.shieldTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to shield events: %w", err)
	}

	n.transferTopic, err = n.pubsub.Join(TransferTopic)
	if err != nil {
		return fmt.Errorf("failed to join transfer topic: %w", err)
	}
	n.transferSub, err = n.transferTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to transfer events: %w", err)
	}

	n.unshieldTopic, err = n.pubsub.Join(UnshieldTopic)
	if err != nil {
		return fmt.Errorf("failed to join unshield topic: %w", err)
	}
	n.unshieldSub, err = n.unshieldTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to unshield events: %w", err)
	}

	return nil
}

// Start begins dispatching received messages to the registered handlers.
func (n *Node) Start() {
	go n.processMessages(n.shieldSub, func() MessageHandler { return n.shieldHandler })
	go n.processMessages(n.transferSub, func() MessageHandler { return n.transferHandler })
	go n.processMessages(n.unshieldSub, func() MessageHandler { return n.unshieldHandler })
}

func (n *Node) processMessages(sub *pubsub.Subscription, handler func() MessageHandler) {
	for {
		msg, err := sub.Next(n.ctx)
		if err != nil {
			if n.ctx.Err() != nil {
				return
			}
			continue
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		if h := handler(); h != nil {
			_ = h(n.ctx, msg.Data)
		}
	}
}

// SetShieldHandler sets the handler invoked for incoming shield events.
func (n *Node) SetShieldHandler(h MessageHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shieldHandler = h
}

// SetTransferHandler sets the handler invoked for incoming transfer events.
func (n *Node) SetTransferHandler(h MessageHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transferHandler = h
}

// SetUnshieldHandler sets the handler invoked for incoming unshield events.
func (n *Node) SetUnshieldHandler(h MessageHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unshieldHandler = h
}

// PublishShield broadcasts a serialized ShieldEvent.
func (n *Node) PublishShield(data []byte) error {
	return n.shieldTopic.Publish(n.ctx, data)
}

// PublishTransfer broadcasts a serialized TransferEvent.
func (n *Node) PublishTransfer(data []byte) error {
	return n.transferTopic.Publish(n.ctx, data)
}

// PublishUnshield broadcasts a serialized UnshieldEvent.
func (n *Node) PublishUnshield(data []byte) error {
	return n.unshieldTopic.Publish(n.ctx, data)
}

// ID returns the node's host peer id as a string.
func (n *Node) ID() string {
	return n.host.ID().String()
}

// Close shuts the node down.
func (n *Node) Close() error {
	n.cancel()
	if n.shieldSub != nil {
		n.shieldSub.Cancel()
	}
	if n.transferSub != nil {
		n.transferSub.Cancel()
	}
	if n.unshieldSub != nil {
		n.unshieldSub.Cancel()
	}
	return n.host.Close()
}
