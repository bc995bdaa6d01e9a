// Package observer holds the side channels fed by marketplace events: log
// lines, Redis counters and placed-order records. None of them can slow the
// marketplace down or change its results.
package observer

import (
	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/port"
	"github.com/rl1809/marketplace/pkg/logger"
)

// Fanout forwards each event to every observer in order.
type Fanout []port.EventObserver

func (f Fanout) Observe(ev domain.Event) {
	for _, o := range f {
		if o != nil {
			o.Observe(ev)
		}
	}
}

type LogObserver struct {
	log *logger.Logger
}

func NewLogObserver(log *logger.Logger) *LogObserver {
	return &LogObserver{log: log.Named("marketplace")}
}

// Observe logs successful transitions at debug and retry signals at trace.
func (o *LogObserver) Observe(ev domain.Event) {
	e := o.log.Debug()
	if !ev.OK {
		e = o.log.Trace()
	}

	e = e.Str("event", string(ev.Kind)).Bool("ok", ev.OK).Time("at", ev.At)
	if ev.Producer != "" {
		e = e.Str("producer", string(ev.Producer))
	}
	switch ev.Kind {
	case domain.EventProducerRegistered, domain.EventPublished:
	default:
		e = e.Uint32("cart", uint32(ev.Cart))
	}
	if ev.Item.Category != "" {
		e = e.Stringer("item", ev.Item)
	}
	if ev.Kind == domain.EventOrderPlaced {
		e = e.Int("lines", len(ev.Lines))
	}
	e.Msg("marketplace event")
}
