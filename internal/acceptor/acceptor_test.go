package acceptor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rmacdonaldsmith/reaktor-go/internal/logging"
	"github.com/rmacdonaldsmith/reaktor-go/internal/router"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

type reply struct {
	typeID        int32
	correlationID int64
	sourceRef     int64
}

type recordingConductor struct {
	replies []reply
}

func (c *recordingConductor) OnRouted(correlationID, sourceRef int64) {
	c.replies = append(c.replies, reply{route.RoutedTypeID, correlationID, sourceRef})
}

func (c *recordingConductor) OnUnrouted(correlationID int64) {
	c.replies = append(c.replies, reply{route.UnroutedTypeID, correlationID, 0})
}

func (c *recordingConductor) OnError(correlationID int64) {
	c.replies = append(c.replies, reply{route.ErrorTypeID, correlationID, 0})
}

func (c *recordingConductor) last() reply {
	return c.replies[len(c.replies)-1]
}

// echoFactory answers every begin frame on the reply consumer.
type echoFactory struct {
	opened []route.Record
}

func (f *echoFactory) NewStream(rt route.Record, msgTypeID int32, begin []byte, reply nukleus.MessageConsumer) nukleus.MessageConsumer {
	f.opened = append(f.opened, rt)
	reply(msgTypeID, begin)
	return func(int32, []byte) {}
}

type fixture struct {
	acceptor  *Acceptor
	conductor *recordingConductor
	table     *router.Router
	factory   *echoFactory
	builds    int
	registry  *prometheus.Registry
}

func newFixture(t *testing.T, kinds ...route.Kind) *fixture {
	t.Helper()

	f := &fixture{
		conductor: &recordingConductor{},
		table:     router.New(),
		factory:   &echoFactory{},
		registry:  prometheus.NewRegistry(),
	}

	a, err := New(&Config{
		Name:       "test",
		Logger:     logging.Discard(),
		Registerer: f.registry,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	builder := nukleus.StreamFactoryBuilderFunc(func(rm nukleus.RouteManager) (nukleus.StreamFactory, error) {
		f.builds++
		return f.factory, nil
	})
	a.SetConductor(f.conductor)
	a.SetRouter(f.table)
	a.SetStreamFactoryBuilder(func(kind route.Kind) (nukleus.StreamFactoryBuilder, bool) {
		for _, k := range kinds {
			if k == kind {
				return builder, true
			}
		}
		return nil, false
	})

	f.acceptor = a
	return f
}

func encode(t *testing.T, rec route.Record) []byte {
	t.Helper()
	buf, err := rec.Encode()
	require.NoError(t, err)
	return buf
}

func TestNew_RequiresName(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

func TestAcceptor_DoRoute_AssignsSourceRef(t *testing.T) {
	f := newFixture(t, route.Server)

	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "http"}))
	f.acceptor.DoRoute(2, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "ws"}))

	require.Len(t, f.conductor.replies, 2)
	assert.Equal(t, reply{route.RoutedTypeID, 1, 1}, f.conductor.replies[0])
	assert.Equal(t, reply{route.RoutedTypeID, 2, 2}, f.conductor.replies[1])

	routes := f.acceptor.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, int64(1), routes[0].SourceRef)
	assert.Equal(t, int64(2), routes[1].SourceRef)
	assert.Equal(t, 1, f.builds, "stream factory is built once per kind")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.acceptor.metrics.table))
}

func TestAcceptor_DoRoute_KeepsExplicitSourceRef(t *testing.T) {
	f := newFixture(t, route.Client)

	f.acceptor.DoRoute(5, encode(t, route.Record{Kind: route.Client, Source: "http", SourceRef: 4000, Target: "tcp"}))

	assert.Equal(t, reply{route.RoutedTypeID, 5, 4000}, f.conductor.last())
}

func TestAcceptor_DoRoute_AssignedSourceRefSkipsHeldRefs(t *testing.T) {
	f := newFixture(t, route.Server)

	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Server, Source: "tcp", SourceRef: 1, Target: "http"}))
	f.acceptor.DoRoute(2, encode(t, route.Record{Kind: route.Server, Source: "tcp", SourceRef: 2, Target: "ws"}))
	f.acceptor.DoRoute(3, encode(t, route.Record{Kind: route.Server, Source: "udp", Target: "http"}))

	assert.Equal(t, reply{route.RoutedTypeID, 3, 3}, f.conductor.last())
}

func TestAcceptor_DoRoute_RefusedRouteKeepsSourceRef(t *testing.T) {
	f := newFixture(t, route.Server)

	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Proxy, Source: "tcp", Target: "http"}))
	require.Equal(t, route.ErrorTypeID, f.conductor.last().typeID)

	f.acceptor.DoRoute(2, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "http"}))
	assert.Equal(t, reply{route.RoutedTypeID, 2, 1}, f.conductor.last())
}

func TestAcceptor_DoRoute_UnregisteredKind(t *testing.T) {
	f := newFixture(t, route.Server)

	f.acceptor.DoRoute(3, encode(t, route.Record{Kind: route.Proxy, Source: "tcp", Target: "http"}))

	assert.Equal(t, reply{route.ErrorTypeID, 3, 0}, f.conductor.last())
	assert.Empty(t, f.acceptor.Routes())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.acceptor.metrics.routes.WithLabelValues(resultRejected)))
}

func TestAcceptor_DoRoute_BuilderFailure(t *testing.T) {
	f := newFixture(t)
	f.acceptor.SetStreamFactoryBuilder(func(route.Kind) (nukleus.StreamFactoryBuilder, bool) {
		return nukleus.StreamFactoryBuilderFunc(func(nukleus.RouteManager) (nukleus.StreamFactory, error) {
			return nil, errors.New("no capacity")
		}), true
	})

	f.acceptor.DoRoute(8, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "http"}))

	assert.Equal(t, route.ErrorTypeID, f.conductor.last().typeID)
	assert.Empty(t, f.acceptor.Routes())
}

func TestAcceptor_DoRoute_Duplicate(t *testing.T) {
	f := newFixture(t, route.Server)
	rec := route.Record{Kind: route.Server, Source: "tcp", SourceRef: 7, Target: "http"}

	f.acceptor.DoRoute(1, encode(t, rec))
	f.acceptor.DoRoute(2, encode(t, rec))

	assert.Equal(t, reply{route.RoutedTypeID, 1, 7}, f.conductor.replies[0])
	assert.Equal(t, reply{route.ErrorTypeID, 2, 0}, f.conductor.replies[1])
	assert.Len(t, f.acceptor.Routes(), 1)
}

func TestAcceptor_DoRoute_Malformed(t *testing.T) {
	f := newFixture(t, route.Server)

	f.acceptor.DoRoute(4, []byte{byte(route.Server), 9})

	assert.Equal(t, reply{route.ErrorTypeID, 4, 0}, f.conductor.last())
}

func TestAcceptor_DoUnroute(t *testing.T) {
	f := newFixture(t, route.Server)
	rec := route.Record{Kind: route.Server, Source: "tcp", SourceRef: 7, Target: "http", TargetRef: 9}
	f.acceptor.DoRoute(1, encode(t, rec))

	f.acceptor.DoUnroute(2, encode(t, route.Record{Kind: route.Server, SourceRef: 7, TargetRef: 9}))
	assert.Equal(t, reply{route.UnroutedTypeID, 2, 0}, f.conductor.last())
	assert.Empty(t, f.acceptor.Routes())

	f.acceptor.DoUnroute(3, encode(t, rec))
	assert.Equal(t, reply{route.ErrorTypeID, 3, 0}, f.conductor.last())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.acceptor.metrics.table))
}

func TestAcceptor_NewStream(t *testing.T) {
	f := newFixture(t, route.Server)
	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Server, Source: "tcp", SourceRef: 80, Target: "http", Authorization: 0x2}))

	var replied []byte
	stream, ok := f.acceptor.NewStream(0x3, "tcp", 80, 0x1, []byte("begin"), func(_ int32, frame []byte) {
		replied = frame
	})
	require.True(t, ok)
	assert.NotNil(t, stream)
	assert.Equal(t, []byte("begin"), replied)
	require.Len(t, f.factory.opened, 1)
	assert.Equal(t, "http", f.factory.opened[0].Target)

	_, ok = f.acceptor.NewStream(0x1, "tcp", 80, 0x1, nil, func(int32, []byte) {})
	assert.False(t, ok, "authorization lacks required bit")

	_, ok = f.acceptor.NewStream(0x3, "tcp", 81, 0x1, nil, func(int32, []byte) {})
	assert.False(t, ok, "no route for source reference")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.acceptor.metrics.resolves.WithLabelValues(resultHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.acceptor.metrics.resolves.WithLabelValues(resultMiss)))
}

func TestAcceptor_Resolve(t *testing.T) {
	f := newFixture(t, route.Server, route.Client)
	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "http"}))
	f.acceptor.DoRoute(2, encode(t, route.Record{Kind: route.Client, Source: "http", Target: "tcp"}))

	rec, ok := f.acceptor.Resolve(0, router.KindFilter(route.Client))
	require.True(t, ok)
	assert.Equal(t, "http", rec.Source)

	_, ok = f.acceptor.Resolve(0, router.KindFilter(route.Proxy))
	assert.False(t, ok)
}

func TestAcceptor_OnSourceRemovedDropsRoutes(t *testing.T) {
	f := newFixture(t, route.Server)
	f.acceptor.OnSourceAdded("tcp")
	f.acceptor.OnSourceAdded("udp")
	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "http"}))
	f.acceptor.DoRoute(2, encode(t, route.Record{Kind: route.Server, Source: "udp", Target: "http"}))
	f.acceptor.DoRoute(3, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "ws"}))

	assert.Equal(t, []string{"tcp", "udp"}, f.acceptor.Sources())

	f.acceptor.OnSourceRemoved("tcp")

	routes := f.acceptor.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "udp", routes[0].Source)
	assert.Equal(t, []string{"udp"}, f.acceptor.Sources())

	resp, err := f.acceptor.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "tcp"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	resp, err = f.acceptor.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "udp"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestAcceptor_HealthService(t *testing.T) {
	a, err := New(&Config{Name: "test", HealthAddress: "127.0.0.1:0", Logger: logging.Discard()})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	a.OnSourceAdded("tcp")

	conn, err := grpc.NewClient(a.HealthAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(checkCtx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = client.Check(checkCtx, &healthpb.HealthCheckRequest{Service: "tcp"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestAcceptor_ClosedRefusesCommands(t *testing.T) {
	f := newFixture(t, route.Server)
	require.NoError(t, f.acceptor.Close())
	require.NoError(t, f.acceptor.Close())

	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "http"}))

	assert.Equal(t, reply{route.ErrorTypeID, 1, 0}, f.conductor.last())
	assert.Empty(t, f.acceptor.Routes())
}

func TestAcceptor_RouteTableClose(t *testing.T) {
	f := newFixture(t, route.Server)
	f.acceptor.DoRoute(1, encode(t, route.Record{Kind: route.Server, Source: "tcp", SourceRef: 80, Target: "http"}))

	table := f.acceptor.RouteTable()
	assert.Equal(t, "router", table.Name())
	require.NoError(t, table.Close())
	require.NoError(t, table.Close())

	assert.Zero(t, f.table.Len())
	assert.Empty(t, f.acceptor.Routes())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.acceptor.metrics.table))

	_, ok := f.acceptor.NewStream(0, "tcp", 80, 1, nil, func(int32, []byte) {})
	assert.False(t, ok)
	_, ok = f.acceptor.Resolve(0, nukleus.AcceptAll)
	assert.False(t, ok)

	f.acceptor.DoRoute(2, encode(t, route.Record{Kind: route.Server, Source: "tcp", Target: "http"}))
	assert.Equal(t, reply{route.ErrorTypeID, 2, 0}, f.conductor.last())
}
