package relay

import "go.uber.org/zap"

// Relay fans each inbound message out to every other open connection in its
// registry. It implements Handler.
type Relay struct {
	registry *Registry
	logger   *zap.Logger
}

var _ Handler = (*Relay)(nil)

// New returns a Relay that broadcasts over registry. A nil logger disables
// logging.
func New(registry *Registry, logger *zap.Logger) *Relay {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{registry: registry, logger: logger}
}

// Registry returns the registry the relay broadcasts over.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// OnConnect makes c eligible for broadcasts sent from now on.
func (r *Relay) OnConnect(c Conn) {
	if r.registry.Add(c) {
		r.logger.Debug("connection registered",
			zap.String("client_id", c.ID()),
			zap.Int("clients", r.registry.Len()))
	}
}

// OnDisconnect removes c so it receives nothing further.
func (r *Relay) OnDisconnect(c Conn) {
	if r.registry.Remove(c) {
		r.logger.Debug("connection unregistered",
			zap.String("client_id", c.ID()),
			zap.Int("clients", r.registry.Len()))
	}
}

// OnMessage forwards msg to every open connection other than sender.
func (r *Relay) OnMessage(sender Conn, msg []byte) {
	delivered := r.Broadcast(msg, ExcludeSender(sender))

	if ce := r.logger.Check(zap.DebugLevel, "message relayed"); ce != nil {
		fields := []zap.Field{zap.Int("bytes", len(msg)), zap.Int("recipients", delivered)}
		if sender != nil {
			fields = append(fields, zap.String("client_id", sender.ID()))
		}
		ce.Write(fields...)
	}
}

// Broadcast sends msg to each open member of a fresh snapshot accepted by
// filter and returns how many sends succeeded. A failed send drops that
// recipient from the registry and delivery to the rest continues.
func (r *Relay) Broadcast(msg []byte, filter Filter) int {
	delivered := 0
	for _, c := range r.registry.Snapshot() {
		if filter != nil && !filter(c) {
			continue
		}
		if !c.IsOpen() {
			continue
		}
		if err := c.Send(msg); err != nil {
			r.logger.Debug("dropping recipient after failed send",
				zap.String("client_id", c.ID()),
				zap.Error(err))
			r.registry.Remove(c)
			continue
		}
		delivered++
	}
	return delivered
}
