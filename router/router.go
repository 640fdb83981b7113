package router

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/streamline-rt/streamline/client"
	"github.com/streamline-rt/streamline/envelope"
)

// Common errors.
var (
	ErrUnknownService    = errors.New("no client registered for service")
	ErrAlreadyRegistered = errors.New("client already registered for service")
	ErrNilHandler        = errors.New("handler is required")
)

// Handler receives every inbound envelope for a service the consumer
// subscribed to. Handlers run synchronously on the dispatch path and must
// not block.
type Handler func(*envelope.Envelope)

// Factory constructs a client for a service on first subscription when no
// client was pre-registered.
type Factory func(service string) (*client.Client, error)

// Config configures a Router.
type Config struct {
	// Factory for lazy client construction. Optional; without it every
	// service must be registered up front.
	Factory Factory

	// Logger for router events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// Stats is a snapshot of subscription counts for introspection.
type Stats struct {
	// TotalSubscriptions across all services.
	TotalSubscriptions int `json:"total_subscriptions"`

	// PerService maps service name to active subscription count.
	PerService map[string]int `json:"per_service"`
}

// subscription ties a handler to its owner for introspection.
type subscription struct {
	handlerID string
	handler   Handler
}

// Router fans inbound envelopes out to in-process subscribers while keeping
// exactly one client and one installed dispatcher per service.
type Router struct {
	factory Factory
	log     zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*client.Client
	subs    map[string]map[string]*subscription // service -> subID -> sub
}

// New creates a router.
func New(cfg Config) *Router {
	return &Router{
		factory: cfg.Factory,
		log:     cfg.Logger.With().Str("component", "router").Logger(),
		clients: make(map[string]*client.Client),
		subs:    make(map[string]map[string]*subscription),
	}
}

// Register wires a pre-built client for a service. Must happen before the
// first Subscribe for that service; registering a service twice is an error.
func (r *Router) Register(service string, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[service]; ok {
		return ErrAlreadyRegistered
	}
	r.clients[service] = c
	return nil
}

// Client returns the client for a service, if one exists yet.
func (r *Router) Client(service string) (*client.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[service]
	return c, ok
}

// Subscribe attaches a handler for a service and returns its unsubscribe
// function. The first subscriber for a service installs the single fan-out
// dispatcher on the underlying client and connects it; later subscribers
// share the same connection.
func (r *Router) Subscribe(service, handlerID string, h Handler) (func(), error) {
	if h == nil {
		return nil, ErrNilHandler
	}

	r.mu.Lock()
	c, ok := r.clients[service]
	if !ok {
		if r.factory == nil {
			r.mu.Unlock()
			return nil, ErrUnknownService
		}
		var err error
		c, err = r.factory(service)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.clients[service] = c
	}

	first := len(r.subs[service]) == 0
	if r.subs[service] == nil {
		r.subs[service] = make(map[string]*subscription)
	}

	subID := handlerID + ":" + uuid.NewString()
	r.subs[service][subID] = &subscription{handlerID: handlerID, handler: h}
	r.mu.Unlock()

	if first {
		c.SetDispatcher(r.dispatcherFor(service))
		c.Connect()
	}

	r.log.Debug().Str("service", service).Str("handler", handlerID).Msg("subscribed")

	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(service, subID) })
	}, nil
}

// Stats returns subscription counts for debugging.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{PerService: make(map[string]int, len(r.subs))}
	for service, subs := range r.subs {
		if len(subs) == 0 {
			continue
		}
		s.PerService[service] = len(subs)
		s.TotalSubscriptions += len(subs)
	}
	return s
}

// HealthMetrics returns the health composite of every known client.
func (r *Router) HealthMetrics() map[string]client.HealthMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]client.HealthMetrics, len(r.clients))
	for service, c := range r.clients {
		out[service] = c.HealthMetrics()
	}
	return out
}

// DisconnectAll explicitly tears down every client connection. Subscriptions
// survive; a later Subscribe or Connect starts fresh.
func (r *Router) DisconnectAll() {
	r.mu.RLock()
	clients := make([]*client.Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		c.Disconnect()
	}
}

// dispatcherFor builds the single per-service dispatcher that fans one
// envelope out to every registered handler in order.
func (r *Router) dispatcherFor(service string) client.Dispatcher {
	return func(env *envelope.Envelope) {
		r.mu.RLock()
		handlers := make([]Handler, 0, len(r.subs[service]))
		for _, sub := range r.subs[service] {
			handlers = append(handlers, sub.handler)
		}
		r.mu.RUnlock()

		for _, h := range handlers {
			h(env)
		}
	}
}

// unsubscribe detaches one subscription. The last one for a service clears
// the client's dispatcher but leaves the connection open: connection
// teardown and interest teardown are independent concerns.
func (r *Router) unsubscribe(service, subID string) {
	r.mu.Lock()
	subs := r.subs[service]
	if subs == nil {
		r.mu.Unlock()
		return
	}
	delete(subs, subID)
	last := len(subs) == 0
	c := r.clients[service]
	r.mu.Unlock()

	if last && c != nil {
		c.ClearDispatcher()
	}

	r.log.Debug().Str("service", service).Msg("unsubscribed")
}
