// PubsubEventSource adapts internal/p2p's topic/subscription plumbing into
// an EventSource, the wiring used by cmd/shieldpool-cli's scan command. Unlike a
// host's durable, replayable event index, gossip delivers only what a peer
// happens to be subscribed for while connected — FetchPage therefore
// drains an in-process buffer rather than replaying history, and cursors
// it hands out are local sequence numbers, not the host's true (block,
// index) pairs.
package scanner

import (
	"context"
	"sync"

	"github.com/veilpool/shieldpool/internal/p2p"
	"github.com/veilpool/shieldpool/pkg/types"
)

// PubsubEventSource buffers decoded pool events received over the three
// gossip topics internal/p2p.Node subscribes to.
type PubsubEventSource struct {
	mu  sync.Mutex
	buf []Event
	seq uint64
}

// NewPubsubEventSource registers decode-and-buffer handlers on node for
// all three event topics and returns the resulting source.
func NewPubsubEventSource(node *p2p.Node) *PubsubEventSource {
	s := &PubsubEventSource{}
	node.SetShieldHandler(s.onShield)
	node.SetTransferHandler(s.onTransfer)
	node.SetUnshieldHandler(s.onUnshield)
	return s
}

func (s *PubsubEventSource) onShield(ctx context.Context, data []byte) error {
	e, err := p2p.DecodeShieldEvent(data)
	if err != nil {
		return err
	}
	s.append(Event{Kind: KindShield, Shield: e})
	return nil
}

func (s *PubsubEventSource) onTransfer(ctx context.Context, data []byte) error {
	e, err := p2p.DecodeTransferEvent(data)
	if err != nil {
		return err
	}
	s.append(Event{Kind: KindTransfer, Transfer: e})
	return nil
}

func (s *PubsubEventSource) onUnshield(ctx context.Context, data []byte) error {
	e, err := p2p.DecodeUnshieldEvent(data)
	if err != nil {
		return err
	}
	s.append(Event{Kind: KindUnshield, Unshield: e})
	return nil
}

func (s *PubsubEventSource) append(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.Cursor = types.Cursor{Block: 0, Index: s.seq}
	s.buf = append(s.buf, e)
}

// FetchPage implements EventSource by returning buffered events whose
// cursor sorts strictly after 'after', oldest first, capped at limit.
func (s *PubsubEventSource) FetchPage(ctx context.Context, after types.Cursor, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, e := range s.buf {
		if !after.Less(e.Cursor) {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
