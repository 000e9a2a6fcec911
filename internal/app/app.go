// Path: internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"tictactoe/internal/bus"
	"tictactoe/internal/config"
	"tictactoe/internal/consumer"
	"tictactoe/internal/delivery/rest"
	"tictactoe/internal/delivery/ws"
	"tictactoe/internal/domain"
	"tictactoe/internal/events"
	"tictactoe/internal/gameclient"
	"tictactoe/internal/service"
	"tictactoe/internal/storage"
)

const realtimeService = "realtime-service"

// Option customizes a Runtime.
type Option func(*options)

type options struct {
	session []service.SessionOption
}

// WithSessionOptions passes options to the session engine.
func WithSessionOptions(opts ...service.SessionOption) Option {
	return func(o *options) { o.session = append(o.session, opts...) }
}

// Runtime owns every connection and component of one process.
type Runtime struct {
	cfg   *config.Config
	role  Role
	log   *zap.Logger
	retry bus.RetryPolicy
	opts  options

	mongo  *mongo.Client
	db     *mongo.Database
	bus    bus.Bus
	broker *events.Broker

	sessions  *service.SessionEngine
	servers   map[Role]*rest.Server
	consumers []*consumer.Consumer
	sweepers  []*service.Sweeper
	sockets   *ws.Handlers

	wg   sync.WaitGroup
	errs chan error
}

// New connects to the configured stores and bus and wires the services of role.
func New(ctx context.Context, cfg *config.Config, role Role, log *zap.Logger, opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		cfg:  cfg,
		role: role,
		log:  log,
		retry: bus.RetryPolicy{
			InitialInterval: cfg.Bus.Retry.InitialInterval,
			MaxInterval:     cfg.Bus.Retry.MaxInterval,
			MaxAttempts:     cfg.Bus.Retry.MaxAttempts,
		},
		broker:  events.NewBroker(cfg.Realtime.BufferSize, log.Named("broker")),
		servers: make(map[Role]*rest.Server),
		errs:    make(chan error, 1),
	}
	for _, opt := range opts {
		opt(&rt.opts)
	}

	if err := rt.open(ctx); err != nil {
		rt.close(context.WithoutCancel(ctx))
		return nil, err
	}
	if err := rt.wire(ctx); err != nil {
		rt.close(context.WithoutCancel(ctx))
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) open(ctx context.Context) error {
	if rt.cfg.Database.Driver == config.DriverMongo {
		rt.log.Info("Connecting to MongoDB...")
		client, err := storage.Connect(ctx, rt.cfg.Database.URI)
		if err != nil {
			return err
		}
		rt.mongo = client
		rt.db = client.Database(rt.cfg.Database.Name)
	}

	blog := rt.log.Named("bus")
	switch rt.cfg.Bus.Driver {
	case config.DriverKafka:
		b, err := bus.NewKafkaBus(bus.KafkaConfig{Brokers: rt.cfg.Bus.Brokers, ClientID: rt.cfg.Bus.ClientID}, rt.retry, blog)
		if err != nil {
			return err
		}
		rt.bus = b
	case config.DriverRedis:
		b, err := bus.NewRedisBus(ctx, rt.cfg.Bus.RedisURL, rt.cfg.Bus.ConsumerName, rt.retry, blog)
		if err != nil {
			return err
		}
		rt.bus = b
	case config.DriverMemory:
		rt.bus = bus.NewMemoryBus(rt.retry, blog)
	default:
		return fmt.Errorf("unknown bus driver %q", rt.cfg.Bus.Driver)
	}
	return nil
}

// wire builds the game role first so the others can call it in-process.
func (rt *Runtime) wire(ctx context.Context) error {
	if rt.role.runs(RoleGame) {
		rt.wireGame()
	}
	if rt.role.runs(RolePlayer) {
		rt.wirePlayer()
	}
	if rt.role.runs(RoleRequest) {
		if err := rt.wireRequest(ctx); err != nil {
			return err
		}
	}
	if rt.role.runs(RoleRealtime) {
		rt.wireRealtime()
	}
	return nil
}

func (rt *Runtime) emitter(log *zap.Logger) *service.Emitter {
	return service.NewEmitter(rt.bus, rt.retry, log)
}

func (rt *Runtime) addServer(role Role, name, port string, routes ...rest.Routes) {
	rt.servers[role] = rest.NewServer(name, port, rt.cfg.Server.RateLimit, rt.log.Named("http").With(zap.String("service", name)), routes...)
}

func (rt *Runtime) wirePlayer() {
	log := rt.log.Named(domain.SourcePlayerService)
	var store service.PlayerStorage = storage.NewMemoryPlayerStorage()
	if rt.db != nil {
		store = storage.NewMongoPlayerStorage(rt.db, rt.cfg.Database.PlayersCollection)
	}

	dir := service.NewPlayerDirectory(store, rt.emitter(log), log)
	rt.addServer(RolePlayer, domain.SourcePlayerService, rt.cfg.Server.PlayerPort, rest.NewPlayerHandlers(dir, log))
	rt.consumers = append(rt.consumers,
		consumer.New(rt.bus, service.GroupPlayerService, log).Route(domain.TopicPlayerEvents, dir.Dispatcher()))
}

func (rt *Runtime) wireGame() {
	log := rt.log.Named(domain.SourceGameService)
	var store service.GameStorage = storage.NewMemoryGameStorage()
	if rt.db != nil {
		store = storage.NewMongoGameStorage(rt.db, rt.cfg.Database.GamesCollection)
	}

	rt.sessions = service.NewSessionEngine(store, rt.emitter(log), log, rt.opts.session...)
	rt.addServer(RoleGame, domain.SourceGameService, rt.cfg.Server.GamePort, rest.NewGameHandlers(rt.sessions, log))
	rt.consumers = append(rt.consumers,
		consumer.New(rt.bus, service.GroupGameService, log).Route(domain.TopicGameEvents, rt.sessions.Dispatcher()))

	if every := rt.cfg.Games.AnnounceInterval; every > 0 {
		rt.sweepers = append(rt.sweepers, service.NewAnnounceSweeper(rt.sessions, every, every, log.Named("announce")))
	}
}

func (rt *Runtime) wireRequest(ctx context.Context) error {
	log := rt.log.Named(domain.SourceRequestService)
	var store service.RequestStorage = storage.NewMemoryRequestStorage()
	if rt.db != nil {
		ms := storage.NewMongoRequestStorage(rt.db, rt.cfg.Database.RequestsCollection)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return err
		}
		store = ms
	}

	var creator service.SessionCreator
	if rt.sessions != nil {
		creator = rt.sessions
	} else {
		creator = gameclient.NewClient(rt.cfg.Services)
	}

	broker := service.NewRequestBroker(store, creator, rt.emitter(log), log)
	rt.addServer(RoleRequest, domain.SourceRequestService, rt.cfg.Server.RequestPort, rest.NewRequestHandlers(broker, log))
	rt.consumers = append(rt.consumers,
		consumer.New(rt.bus, service.GroupRequestService, log).Route(domain.TopicRequestEvents, broker.Dispatcher()))

	if rt.cfg.Requests.TTL > 0 {
		rt.sweepers = append(rt.sweepers, service.NewExpirySweeper(broker, rt.cfg.Requests.TTL, rt.cfg.Requests.SweepInterval, log.Named("expiry")))
	}
	return nil
}

func (rt *Runtime) wireRealtime() {
	log := rt.log.Named(realtimeService)
	var reader service.GameReader
	if rt.sessions != nil {
		reader = rt.sessions
	} else {
		reader = gameclient.NewClient(rt.cfg.Services)
	}

	relay := service.NewRelay(rt.broker, reader, log)
	c := consumer.New(rt.bus, service.GroupRealtime, log)
	for topic, d := range relay.Dispatchers() {
		c.Route(topic, d)
	}
	rt.consumers = append(rt.consumers, c)

	rt.sockets = ws.NewHandlers(rt.broker, log)
	rt.addServer(RoleRealtime, realtimeService, rt.cfg.Server.RealtimePort, rt.sockets)
}

// Handler returns the HTTP handler of role, or nil when this process does not run it.
func (rt *Runtime) Handler(role Role) http.Handler {
	s, ok := rt.servers[role]
	if !ok {
		return nil
	}
	return s.Handler()
}

// Start launches the sweepers, the consumers and the HTTP servers.
// They run until ctx is cancelled; fatal failures arrive on Errors.
func (rt *Runtime) Start(ctx context.Context) error {
	for _, sw := range rt.sweepers {
		if err := sw.Start(ctx); err != nil {
			return err
		}
	}

	for _, c := range rt.consumers {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				rt.fail(fmt.Errorf("consumer stopped: %w", err))
			}
		}()
	}

	for role, s := range rt.servers {
		go func() {
			if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.fail(fmt.Errorf("%s server failed: %w", role, err))
			}
		}()
	}
	return nil
}

// Errors reports the first fatal failure of a background loop.
func (rt *Runtime) Errors() <-chan error {
	return rt.errs
}

func (rt *Runtime) fail(err error) {
	select {
	case rt.errs <- err:
	default:
		rt.log.Error("Background failure", zap.Error(err))
	}
}

// Stop shuts the servers down and waits for the consumers, which exit once
// the context given to Start is cancelled. It then closes the bus and store.
func (rt *Runtime) Stop(ctx context.Context) error {
	var errs []error

	if rt.sockets != nil {
		rt.sockets.Close()
	}
	for role, s := range rt.servers {
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s server: %w", role, err))
		}
	}
	for _, sw := range rt.sweepers {
		if err := sw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("sweeper: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("consumers did not stop: %w", ctx.Err()))
	}

	if err := rt.close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (rt *Runtime) close(ctx context.Context) error {
	var errs []error
	if rt.bus != nil {
		if err := rt.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close bus: %w", err))
		}
	}
	if rt.mongo != nil {
		if err := rt.mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect from MongoDB: %w", err))
		}
	}
	return errors.Join(errs...)
}
