// Package api implements the tourhub procedure catalogue on top of the record stores.
package api

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"github.com/perpetuallyhorni/tourhub/pkg/storage"
	"go.uber.org/zap"
)

// Options tunes a Router. Zero values select production behaviour.
type Options struct {
	Clock  tourhub.Clock
	Logger *zap.Logger
	// Rand drives slot availability.
	Rand *rand.Rand
	// LatencyScale multiplies the simulated processing delays of the
	// command-center mutations. Zero disables them.
	LatencyScale float64
}

// Router serves the downloads, social and command-center procedures.
type Router struct {
	store  storage.Storer
	clock  tourhub.Clock
	logger *zap.Logger
	scale  float64

	rmu  sync.Mutex
	rand *rand.Rand
}

// NewRouter creates a Router backed by store.
func NewRouter(store storage.Storer, opts Options) *Router {
	r := &Router{
		store:  store,
		clock:  opts.Clock,
		logger: opts.Logger,
		scale:  opts.LatencyScale,
		rand:   opts.Rand,
	}
	if r.clock == nil {
		r.clock = tourhub.RealClock{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.rand == nil {
		seed := uint64(time.Now().UnixNano())
		r.rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return r
}

// Procedures returns the full catalogue.
func (r *Router) Procedures() []rpc.Procedure {
	return []rpc.Procedure{
		rpc.Query("example.hi", r.hi),

		rpc.Query("downloads.getAll", r.getAll),
		rpc.Mutation("downloads.addUrl", r.addURL),
		rpc.Mutation("downloads.removeUrl", r.removeURL),

		rpc.Query("social.getInteractions", r.getInteractions),
		rpc.Mutation("social.likePost", r.likePost),
		rpc.Mutation("social.unlikePost", r.unlikePost),
		rpc.Mutation("social.addComment", r.addComment),

		rpc.Query("commandCenter.getNotifications", r.getNotifications),
		rpc.Query("commandCenter.getAvailability", r.getAvailability),
		rpc.Mutation("commandCenter.bookMeeting", r.bookMeeting),
		rpc.Mutation("commandCenter.updateProfile", r.updateProfile),
		rpc.Mutation("commandCenter.resetPassword", r.resetPassword),
		rpc.Mutation("commandCenter.submitOrder", r.submitOrder),
	}
}

// Register adds the catalogue to srv.
func (r *Router) Register(srv *rpc.Server) {
	srv.Register(r.Procedures()...)
}

func (r *Router) hi(_ context.Context, in tourhub.GreetingInput) (tourhub.Greeting, error) {
	name := in.Name
	if name == "" {
		name = "world"
	}
	return tourhub.Greeting{Hello: name, Date: r.clock.Now()}, nil
}

// simulate waits for base scaled by the configured latency, or until ctx ends.
func (r *Router) simulate(ctx context.Context, base time.Duration) error {
	d := time.Duration(float64(base) * r.scale)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) float64() float64 {
	r.rmu.Lock()
	defer r.rmu.Unlock()
	return r.rand.Float64()
}

// Handler builds the HTTP engine serving the catalogue.
func (r *Router) Handler(opts rpc.EngineOptions) *gin.Engine {
	srv := rpc.NewServer(r.logger)
	r.Register(srv)
	return rpc.NewEngine(srv, r.logger, opts)
}
