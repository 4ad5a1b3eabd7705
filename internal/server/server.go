// Package server exposes the tracker controller to a local browser front end
// over HTTP and a websocket push channel.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/magefree/mage-tracker-go/internal/catalog"
	"github.com/magefree/mage-tracker-go/internal/config"
	"github.com/magefree/mage-tracker-go/internal/events"
	"github.com/magefree/mage-tracker-go/internal/random"
	"github.com/magefree/mage-tracker-go/internal/tracker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the presentation bridge for one tracker session.
type Server struct {
	cfg        config.ServerConfig
	randomizer config.RandomizerConfig
	controller *tracker.Controller
	bus        *events.EventBus
	busHandle  events.SubscriptionID
	hub        *Hub
	sequencer  *random.Sequencer
	cosmetic   *random.Roller
	router     *chi.Mux
	httpServer *http.Server
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	// randomizerMu makes the roll log order and the animation start order
	// the same, so the live animation settles on the newest logged result.
	randomizerMu sync.Mutex
}

// New wires the bridge to controller and starts the websocket hub. State
// pushes are driven by bus, which must be the bus the controller publishes on.
func New(cfg config.ServerConfig, rnd config.RandomizerConfig, controller *tracker.Controller, bus *events.EventBus, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:        cfg,
		randomizer: rnd,
		controller: controller,
		bus:        bus,
		sequencer:  random.NewSequencer(logger),
		cosmetic:   random.NewRoller(nil),
		router:     chi.NewRouter(),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		limiters:   make(map[string]*rate.Limiter),
	}
	s.hub = NewHub(cfg.AllowedOrigins, cfg.IntentRate, cfg.IntentBurst, s.dispatch, logger)
	s.hub.onConnect = func(c *Client) {
		s.hub.SendTo(c, Message{Type: "state", Data: s.controller.State()})
	}
	go s.hub.Run()

	if bus != nil {
		s.busHandle = bus.Subscribe(func(evt events.Event) {
			s.hub.Broadcast(Message{Type: "state", Data: evt.State})
		}, events.EventStateChanged)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler for the bridge.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	if len(s.cfg.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/catalog", s.handleCatalog)
		r.Post("/intents", s.handleIntent)
	})
	s.router.Get("/ws", s.hub.ServeWs)
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.State())
}

type colorView struct {
	Symbol catalog.Color `json:"symbol"`
	Name   string        `json:"name"`
}

type catalogView struct {
	Formats []catalog.Format `json:"formats"`
	Themes  []catalog.Theme  `json:"themes"`
	Colors  []colorView      `json:"colors"`
	Dice    []int            `json:"dice"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	colors := make([]colorView, len(catalog.Colors))
	for i, c := range catalog.Colors {
		colors[i] = colorView{Symbol: c, Name: c.Name()}
	}
	writeJSON(w, http.StatusOK, catalogView{
		Formats: catalog.Formats(),
		Themes:  catalog.Themes(),
		Colors:  colors,
		Dice:    random.DieFaces,
	})
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	if !s.limiterFor(clientKey(r)).Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limited")
		return
	}

	in, err := decodeIntent(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed intent")
		return
	}

	res, err := s.dispatch(in)
	switch {
	case errors.Is(err, ErrUnknownIntent):
		writeJSON(w, http.StatusBadRequest, res)
	case errors.Is(err, tracker.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.logger.Error("intent failed", zap.String("intent", in.Type), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "intent failed")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) limiterFor(key string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.IntentRate), s.cfg.IntentBurst)
		s.limiters[key] = l
	}
	return l
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("starting tracker bridge", zap.String("address", s.cfg.Address))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops animations, detaches from the bus and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.sequencer.Stop()
	if s.bus != nil && s.busHandle != 0 {
		s.bus.Unsubscribe(s.busHandle)
	}

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.hub.Stop()
	return err
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
