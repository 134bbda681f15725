package auction

import (
	"github.com/mcdev12/bidtable/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Broadcaster fans messages out to the players held by a Registry.
//
// Delivery is best effort per recipient. A failed recipient is handed to
// onFailure and never reported to the caller.
type Broadcaster struct {
	registry  *Registry
	onFailure func(identity string)
}

// NewBroadcaster creates a Broadcaster over registry.
func NewBroadcaster(registry *Registry, onFailure func(identity string)) *Broadcaster {
	if onFailure == nil {
		onFailure = func(string) {}
	}
	return &Broadcaster{registry: registry, onFailure: onFailure}
}

// Broadcast sends msg to every registered player.
func (b *Broadcaster) Broadcast(msg protocol.Message) {
	recipients := b.registry.members()
	for _, m := range recipients {
		b.deliver(m.Identity, m.out, msg)
	}

	log.Debug().
		Str("kind", string(msg.Kind)).
		Int("recipients", len(recipients)).
		Msg("message broadcasted")
}

// Notify sends msg to a single player.
func (b *Broadcaster) Notify(identity string, msg protocol.Message) {
	out, ok := b.registry.outbound(identity)
	if !ok {
		log.Debug().Str("player", identity).Msg("notify target not registered")
		return
	}
	b.deliver(identity, out, msg)
}

func (b *Broadcaster) deliver(identity string, out Outbound, msg protocol.Message) {
	if err := out.Deliver(msg); err != nil {
		log.Warn().
			Err(err).
			Str("player", identity).
			Str("kind", string(msg.Kind)).
			Msg("delivery failed, scheduling removal")
		b.onFailure(identity)
	}
}
