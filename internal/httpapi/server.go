package httpapi

import (
	"context"
	"net"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/usecase"
)

type Deps struct {
	Log       logrus.FieldLogger
	Segmenter ports.Segmenter
}

type Server struct {
	app      *fiber.App
	log      logrus.FieldLogger
	seg      ports.Segmenter
	uc       usecase.Usecase
	store    *store
	validate *validator.Validate

	// base is the parent of every background generation.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		log:      log,
		seg:      d.Segmenter,
		uc:       usecase.New(usecase.Deps{Segmenter: d.Segmenter}),
		store:    newStore(),
		validate: validator.New(),
		base:     base,
		cancel:   cancel,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "clipmark",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(RequestLogger(log))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "clipmark is healthy",
		})
	})

	s.app.Post("/api/generate-clips", s.generateClips)

	v1 := s.app.Group("/api/v1")
	v1.Post("/sessions", s.createSession)

	sess := v1.Group("/sessions/:id")
	sess.Get("", s.getSession)
	sess.Delete("", s.deleteSession)
	sess.Post("/generate", s.startGeneration)
	sess.Post("/reset", s.resetSession)
	sess.Post("/release", s.releaseHandles)
	sess.Put("/volume", s.setVolume)
	sess.Post("/mute", s.toggleMute)

	seg := sess.Group("/segments/:idx")
	seg.Patch("/phrases", s.commitPhrases)
	seg.Post("/handles/move", s.moveHandle)
	seg.Post("/handles/:handle/press", s.pressHandle)
	seg.Post("/play", s.play)
	seg.Post("/pause", s.pause)
	seg.Post("/toggle", s.toggle)
	seg.Post("/seek", s.seek)
	seg.Post("/position", s.position)
}

// App exposes the fiber app for tests and embedding.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.WithField("addr", addr).Info("listening")
	return s.app.Listen(addr)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.WithField("addr", ln.Addr().String()).Info("listening")
	return s.app.Listener(ln)
}

// Shutdown stops accepting requests, cancels background generations and
// waits for them to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.cancel()
	s.store.closeAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Wait blocks until every background generation has been applied.
func (s *Server) Wait() { s.wg.Wait() }
