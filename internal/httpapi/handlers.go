package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/clipmark/internal/domain/trim"
	"github.com/forPelevin/clipmark/internal/session"
	"github.com/forPelevin/clipmark/internal/types"
	"github.com/forPelevin/clipmark/internal/usecase"
)

type generateClipsRequest struct {
	Transcript string `json:"transcript"`
}

type createSessionRequest struct {
	Duration float64 `json:"duration" validate:"required,gt=0"`
}

type startGenerationRequest struct {
	Transcript string `json:"transcript"`
}

type phrasesRequest struct {
	StartPhrase string `json:"startPhrase"`
	EndPhrase   string `json:"endPhrase"`
}

type ratioRequest struct {
	Ratio *float64 `json:"ratio" validate:"required"`
}

type positionRequest struct {
	Position *float64 `json:"position" validate:"required,gte=0"`
	Playing  *bool    `json:"playing"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume" validate:"required,gte=0,lte=1"`
}

type sessionView struct {
	ID string `json:"id"`
	session.View
}

type cardResult struct {
	Changed bool `json:"changed"`
	session.CardView
}

// reporter is implemented by players that mirror a remote playhead.
type reporter interface {
	Report(position float64, playing bool)
}

// generateClips is the stateless endpoint: transcript in, candidates out.
func (s *Server) generateClips(c *fiber.Ctx) error {
	var req generateClipsRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Transcript) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Transcript is required"})
	}

	cands, err := s.seg.Generate(c.UserContext(), req.Transcript)
	if err != nil {
		s.log.WithField("request_id", requestID(c)).WithError(err).Error("generate clips")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to generate clips from transcript.",
			"details": err.Error(),
		})
	}
	if cands == nil {
		cands = []types.SegmentCandidate{}
	}
	return c.Status(fiber.StatusOK).JSON(cands)
}

func (s *Server) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	id, e := s.store.create(req.Duration)
	return respondJSON(c, fiber.StatusCreated, sessionView{ID: id.String(), View: e.sess.View()})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	id, e, err := s.lookup(c)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return respondJSON(c, fiber.StatusOK, sessionView{ID: id.String(), View: e.sess.View()})
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	e, ok := s.store.remove(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	e.mu.Lock()
	e.stopGeneration()
	e.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

// startGeneration enters the processing phase and runs the usecase in the
// background. GET the session to observe the outcome.
func (s *Server) startGeneration(c *fiber.Ctx) error {
	id, e, err := s.lookup(c)
	if err != nil {
		return err
	}
	var req startGenerationRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ticket, err := e.sess.Begin(req.Transcript)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, session.UserMessage(err))
	}
	e.stopGeneration()
	ctx, cancel := context.WithCancel(s.base)
	e.cancel = cancel

	log := s.log.WithFields(logrus.Fields{"session_id": id.String(), "request_id": requestID(c)})
	in := usecase.Input{Transcript: req.Transcript, Duration: e.sess.Duration(), Source: "session/" + id.String()}

	s.wg.Add(1)
	go s.runGeneration(ctx, cancel, e, ticket, in, log)

	return respondJSON(c, fiber.StatusAccepted, sessionView{ID: id.String(), View: e.sess.View()})
}

func (s *Server) runGeneration(ctx context.Context, cancel context.CancelFunc, e *entry, t session.Ticket, in usecase.Input, log logrus.FieldLogger) {
	defer s.wg.Done()
	defer cancel()

	res, genErr := s.uc.Generate(ctx, in)

	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.sess.Complete(t, res.Segments, genErr)
	switch {
	case errors.Is(err, session.ErrStale):
		log.Debug("dropped stale generation result")
	case err != nil:
		log.WithError(err).Warn("generation failed")
	default:
		log.WithField("segments", len(res.Segments)).Info("generation complete")
	}
}

func (s *Server) resetSession(c *fiber.Ctx) error {
	id, e, err := s.lookup(c)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopGeneration()
	e.sess.Reset()
	return respondJSON(c, fiber.StatusOK, sessionView{ID: id.String(), View: e.sess.View()})
}

func (s *Server) releaseHandles(c *fiber.Ctx) error {
	id, e, err := s.lookup(c)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.ReleaseHandles()
	return respondJSON(c, fiber.StatusOK, sessionView{ID: id.String(), View: e.sess.View()})
}

func (s *Server) setVolume(c *fiber.Ctx) error {
	id, e, err := s.lookup(c)
	if err != nil {
		return err
	}
	var req volumeRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.SetVolume(*req.Volume)
	return respondJSON(c, fiber.StatusOK, sessionView{ID: id.String(), View: e.sess.View()})
}

func (s *Server) toggleMute(c *fiber.Ctx) error {
	id, e, err := s.lookup(c)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.ToggleMute()
	return respondJSON(c, fiber.StatusOK, sessionView{ID: id.String(), View: e.sess.View()})
}

func (s *Server) commitPhrases(c *fiber.Ctx) error {
	var req phrasesRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		return sess.CommitPhrases(i, req.StartPhrase, req.EndPhrase)
	})
}

func (s *Server) pressHandle(c *fiber.Ctx) error {
	h, ok := trim.ParseHandle(c.Params("handle"))
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Handle must be 'start' or 'end'")
	}
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		return true, sess.PressHandle(i, h)
	})
}

func (s *Server) moveHandle(c *fiber.Ctx) error {
	var req ratioRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		return sess.MoveHandle(i, *req.Ratio)
	})
}

func (s *Server) play(c *fiber.Ctx) error {
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		return true, sess.Play(i)
	})
}

func (s *Server) pause(c *fiber.Ctx) error {
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		return true, sess.Pause(i)
	})
}

func (s *Server) toggle(c *fiber.Ctx) error {
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		return true, sess.TogglePlay(i)
	})
}

func (s *Server) seek(c *fiber.Ctx) error {
	var req ratioRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		return sess.SeekRatio(i, *req.Ratio)
	})
}

// position mirrors a playhead report from the client and applies the hard
// stop at the trim end.
func (s *Server) position(c *fiber.Ctx) error {
	var req positionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	return s.withCard(c, func(sess *session.Session, i int) (bool, error) {
		p, err := sess.Player(i)
		if err != nil {
			return false, err
		}
		r, ok := p.(reporter)
		if !ok {
			return false, fiber.NewError(fiber.StatusConflict, "Player does not accept position reports")
		}
		playing := p.Playing()
		if req.Playing != nil {
			playing = *req.Playing
		}
		r.Report(*req.Position, playing)
		return true, sess.OnPosition(i)
	})
}

func (s *Server) withCard(c *fiber.Ctx, fn func(sess *session.Session, i int) (bool, error)) error {
	_, e, err := s.lookup(c)
	if err != nil {
		return err
	}
	idx, err := c.ParamsInt("idx")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid segment index")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	changed, err := fn(e.sess, idx)
	if err != nil {
		if errors.Is(err, session.ErrNoSegment) {
			return fiber.NewError(fiber.StatusNotFound, "Segment not found")
		}
		return err
	}
	cv, err := e.sess.CardView(idx)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Segment not found")
	}
	return respondJSON(c, fiber.StatusOK, cardResult{Changed: changed, CardView: cv})
}

func (s *Server) lookup(c *fiber.Ctx) (uuid.UUID, *entry, error) {
	id, err := parseID(c)
	if err != nil {
		return uuid.Nil, nil, err
	}
	e, ok := s.store.get(id)
	if !ok {
		return uuid.Nil, nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return id, e, nil
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session ID format")
	}
	return id, nil
}

// bind parses the JSON body into dst and validates it.
func (s *Server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON body")
	}
	if err := s.validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, strings.Join(formatValidationErrors(err), "; "))
	}
	return nil
}
