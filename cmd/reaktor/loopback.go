package main

import (
	"log/slog"

	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

// loopback is the stream factory of the standalone binary. Every stream it
// opens answers its own frames, which is enough to exercise route resolution
// end to end without a data plane.
type loopback struct {
	kind   route.Kind
	logger *slog.Logger
}

func loopbackBuilder(kind route.Kind, logger *slog.Logger) nukleus.StreamFactoryBuilder {
	return nukleus.StreamFactoryBuilderFunc(func(nukleus.RouteManager) (nukleus.StreamFactory, error) {
		return &loopback{kind: kind, logger: logger}, nil
	})
}

func (l *loopback) NewStream(rt route.Record, msgTypeID int32, begin []byte, reply nukleus.MessageConsumer) nukleus.MessageConsumer {
	l.logger.Debug("stream opened", "kind", l.kind, "route", rt)
	reply(msgTypeID, begin)
	return reply
}
