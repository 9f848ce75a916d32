// Package httpapi serves workflow generation and the configuration resolvers
// over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"

	"github.com/dusk-indust/simflow/internal/config"
	"github.com/dusk-indust/simflow/internal/graph"
	"github.com/dusk-indust/simflow/internal/workflow"
)

// BuildResponse is the body of a successful POST /workflows.
type BuildResponse struct {
	ID         string              `json:"id"`
	Background string              `json:"background"`
	Advisories []workflow.Advisory `json:"advisories"`
	Workflow   *workflow.Workflow  `json:"workflow"`
}

// DefaultRetention is how many built workflows a Server keeps by default.
const DefaultRetention = 256

// Server keeps the most recently built workflows, keyed by id. Once the
// retention limit is reached the oldest workflow is evicted and its id
// answers 404. When a graph store is attached every built workflow is also
// ingested into it.
type Server struct {
	app       *fiber.App
	logger    *slog.Logger
	store     graph.Store
	retention int

	mu    sync.RWMutex
	built map[uuid.UUID]*workflow.Result
	order []uuid.UUID // oldest first
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithGraphStore ingests every built workflow into store.
func WithGraphStore(store graph.Store) Option { return func(s *Server) { s.store = store } }

// WithRetention sets how many built workflows are kept. Values below one
// are ignored.
func WithRetention(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.retention = n
		}
	}
}

// New creates a Server with its routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		logger:    slog.New(slog.DiscardHandler),
		retention: DefaultRetention,
		built:     make(map[uuid.UUID]*workflow.Result),
	}
	for _, o := range opts {
		o(s)
	}

	s.app = fiber.New(fiber.Config{AppName: "simflow"})
	s.app.Use(recover.New())

	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Post("/workflows", s.createWorkflow)
	s.app.Get("/workflows/:id", s.getWorkflow)
	s.app.Get("/workflows/:id/impact", s.workflowImpact)

	s.app.Get("/pthat", s.resolvePtHat)
	s.app.Get("/collision", s.resolveCollision)
	s.app.Get("/interaction-rate", s.interactionRate)

	return s
}

// App exposes the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.logger.Info("http api listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithContext(context.Background()); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) createWorkflow(c fiber.Ctx) error {
	p, err := config.ParseJSON(c.Body())
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	res, err := workflow.Build(p)
	if errors.Is(err, workflow.ErrConfig) {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	for _, a := range res.Advisories {
		s.logger.Info("advisory", "id", res.ID, "level", a.Level, "message", a.Message)
	}

	if s.store != nil {
		if err := graph.Ingest(c.Context(), s.store, res.Workflow); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": fmt.Sprintf("ingest: %v", err)})
		}
	}

	s.remember(res)
	s.logger.Info("workflow built", "id", res.ID, "stages", res.Workflow.Len(), "background", res.Background)

	c.Set(fiber.HeaderLocation, "/workflows/"+res.ID.String())
	return c.Status(201).JSON(BuildResponse{
		ID:         res.ID.String(),
		Background: res.Background.String(),
		Advisories: append([]workflow.Advisory{}, res.Advisories...),
		Workflow:   res.Workflow,
	})
}

func (s *Server) remember(res *workflow.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.built[res.ID]; !ok {
		s.order = append(s.order, res.ID)
	}
	s.built[res.ID] = res
	for len(s.order) > s.retention {
		delete(s.built, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) lookup(c fiber.Ctx) (*workflow.Result, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(400).JSON(fiber.Map{"error": "invalid workflow id"})
	}
	s.mu.RLock()
	res := s.built[id]
	s.mu.RUnlock()
	if res == nil {
		return nil, c.Status(404).JSON(fiber.Map{"error": "workflow not found"})
	}
	return res, nil
}

func (s *Server) getWorkflow(c fiber.Ctx) error {
	res, err := s.lookup(c)
	if res == nil {
		return err
	}
	return c.JSON(res.Workflow)
}

func (s *Server) workflowImpact(c fiber.Ctx) error {
	res, err := s.lookup(c)
	if res == nil {
		return err
	}
	var failed []string
	for _, f := range strings.Split(c.Query("failed"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			failed = append(failed, f)
		}
	}
	if len(failed) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "failed is required"})
	}
	for _, f := range failed {
		if res.Workflow.Stage(f) == nil {
			return c.Status(404).JSON(fiber.Map{"error": fmt.Sprintf("unknown stage %q", f)})
		}
	}

	mem, err := graph.FromWorkflow(c.Context(), res.Workflow)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	impact, err := mem.AssessImpact(c.Context(), failed)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(impact)
}

func (s *Server) resolvePtHat(c fiber.Ctx) error {
	def := workflow.DefaultParameters()
	bin, err := queryInt(c, "bin", def.PtHatBin)
	if err != nil {
		return badQuery(c, err)
	}
	trig, err := queryFloat(c, "ptTrigMin", def.PtTrigMin)
	if err != nil {
		return badQuery(c, err)
	}
	lo, err := queryInt(c, "ptHatMin", def.PtHatMin)
	if err != nil {
		return badQuery(c, err)
	}
	hi, err := queryInt(c, "ptHatMax", def.PtHatMax)
	if err != nil {
		return badQuery(c, err)
	}

	r, err := workflow.ResolvePtHat(bin, c.Query("process"), trig, lo, hi)
	if err != nil {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(r)
}

func (s *Server) resolveCollision(c fiber.Ctx) error {
	def := workflow.DefaultParameters()
	system := c.Query("system", def.CollisionSystem)
	var e [3]float64
	for i, q := range []struct {
		key string
		def float64
	}{{"eCM", def.ECM}, {"eA", def.EA}, {"eB", def.EB}} {
		v, err := queryFloat(c, q.key, q.def)
		if err != nil {
			return badQuery(c, err)
		}
		e[i] = v
	}

	beams, notes, err := workflow.ResolveCollision(system, e[0], e[1], e[2])
	if err != nil {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"beams":      beams,
		"advisories": append([]workflow.Advisory{}, notes...),
	})
}

func (s *Server) interactionRate(c fiber.Ctx) error {
	def := workflow.DefaultParameters()
	system := c.Query("system", def.CollisionSystem)
	rate, err := queryInt(c, "rate", def.InteractionRate)
	if err != nil {
		return badQuery(c, err)
	}
	return c.JSON(fiber.Map{
		"system":          system,
		"interactionRate": workflow.ResolveInteractionRate(system, rate),
	})
}

func badQuery(c fiber.Ctx, err error) error {
	return c.Status(400).JSON(fiber.Map{"error": err.Error()})
}

func queryInt(c fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query %s: %q is not an integer", key, raw)
	}
	return v, nil
}

func queryFloat(c fiber.Ctx, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query %s: %q is not a number", key, raw)
	}
	return v, nil
}
