package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/mystic-pawn/internal/board"
	"github.com/park285/mystic-pawn/internal/clock"
	"github.com/park285/mystic-pawn/internal/render"
	"github.com/park285/mystic-pawn/internal/trainer"
)

const defaultCallTimeout = 2 * time.Second

var errBadRequest = errors.New("bad request")

// API exposes one session over fasthttp. Every session call runs on loop.
type API struct {
	loop     *clock.Loop
	session  *trainer.Session
	renderer render.BoardRenderer
	logger   *zap.Logger
	timeout  time.Duration
}

type APIOption func(*API)

func WithCallTimeout(d time.Duration) APIOption {
	return func(a *API) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) APIOption {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAPI(loop *clock.Loop, session *trainer.Session, renderer render.BoardRenderer, opts ...APIOption) *API {
	if renderer == nil {
		renderer = render.NewBoardRenderer(render.DefaultSquareSize)
	}
	a := &API{
		loop:     loop,
		session:  session,
		renderer: renderer,
		logger:   zap.NewNop(),
		timeout:  defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type durationRequest struct {
	Duration int `json:"duration"`
}

type textRequest struct {
	Text string `json:"text"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type queenRequest struct {
	Position string `json:"position"`
}

type scoresResponse struct {
	Mode   string                `json:"mode,omitempty"`
	Scores []trainer.ScoreRecord `json:"scores"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// sessionCommand mutates the session from a decoded request. Returning an
// error rejects the request before the session is touched.
type sessionCommand func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error)

func (a *API) routes() map[string]sessionCommand {
	return map[string]sessionCommand{
		"/game/start": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req durationRequest
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			if req.Duration <= 0 {
				return nil, fmt.Errorf("%w: duration must be positive", errBadRequest)
			}
			return func(s *trainer.Session) { s.StartGame(req.Duration) }, nil
		},
		"/game/restart": noBody((*trainer.Session).RestartGame),
		"/game/end":     noBody((*trainer.Session).EndGame),
		"/answer/square": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req board.Position
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			pos, ok := board.New(req.File, req.Rank)
			if !ok {
				return nil, fmt.Errorf("%w: square out of range", errBadRequest)
			}
			return func(s *trainer.Session) { s.SubmitAnswer(pos) }, nil
		},
		"/answer/coordinates": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req textRequest
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			// Text that is not a square is ignored by the session, as with /input/submit.
			return func(s *trainer.Session) { s.SubmitCoordinateAnswer(req.Text) }, nil
		},
		"/input": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req textRequest
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			return func(s *trainer.Session) { s.SetUserInput(req.Text) }, nil
		},
		"/input/submit": noBody((*trainer.Session).SubmitUserInput),
		"/scores": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req nameRequest
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			if strings.TrimSpace(req.Name) == "" {
				return nil, fmt.Errorf("%w: name is required", errBadRequest)
			}
			return func(s *trainer.Session) { s.SaveScore(req.Name) }, nil
		},
		"/settings/theme": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req themeRequest
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			t, ok := trainer.ParseTheme(req.Theme)
			if !ok {
				return nil, fmt.Errorf("%w: unknown theme %q", errBadRequest, req.Theme)
			}
			return func(s *trainer.Session) { s.SetTheme(t) }, nil
		},
		"/settings/speech": noBody((*trainer.Session).ToggleSpeech),
		"/settings/voice":  noBody((*trainer.Session).ToggleVoiceGender),
		"/settings/sound":  noBody((*trainer.Session).ToggleSound),
		"/settings/mode": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req modeRequest
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			m, ok := trainer.ParseGameMode(req.Mode)
			if !ok {
				return nil, fmt.Errorf("%w: unknown mode %q", errBadRequest, req.Mode)
			}
			return func(s *trainer.Session) { s.SetGameMode(m) }, nil
		},
		"/settings/queen": func(ctx *fasthttp.RequestCtx) (func(*trainer.Session), error) {
			var req queenRequest
			if err := decodeBody(ctx, &req); err != nil {
				return nil, err
			}
			q, ok := trainer.ParseQueenPosition(req.Position)
			if !ok {
				return nil, fmt.Errorf("%w: unknown queen position %q", errBadRequest, req.Position)
			}
			return func(s *trainer.Session) { s.SetQueenPosition(q) }, nil
		},
	}
}

func noBody(fn func(*trainer.Session)) sessionCommand {
	return func(*fasthttp.RequestCtx) (func(*trainer.Session), error) { return fn, nil }
}

// Handler routes requests. POST routes answer with the resulting snapshot.
func (a *API) Handler() fasthttp.RequestHandler {
	commands := a.routes()
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		switch {
		case ctx.IsGet() && path == "/state":
			a.handleState(ctx)
		case ctx.IsGet() && path == "/scores":
			a.handleScores(ctx)
		case ctx.IsGet() && path == "/board.png":
			a.handleBoard(ctx)
		case ctx.IsPost():
			cmd, ok := commands[path]
			if !ok {
				writeError(ctx, fasthttp.StatusNotFound, "not found")
				return
			}
			a.handleCommand(ctx, cmd)
		default:
			if _, ok := commands[path]; ok {
				writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
				return
			}
			writeError(ctx, fasthttp.StatusNotFound, "not found")
		}
	}
}

// call runs fn on the loop and returns the snapshot taken right after it.
func (a *API) call(fn func(*trainer.Session)) (trainer.Snapshot, error) {
	c, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	var snap trainer.Snapshot
	err := a.loop.Do(c, func() {
		if fn != nil {
			fn(a.session)
		}
		snap = a.session.Snapshot()
	})
	return snap, err
}

func (a *API) handleCommand(ctx *fasthttp.RequestCtx, cmd sessionCommand) {
	fn, err := cmd(ctx)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	snap, err := a.call(fn)
	if err != nil {
		a.unavailable(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, snap)
}

func (a *API) handleState(ctx *fasthttp.RequestCtx) {
	snap, err := a.call(nil)
	if err != nil {
		a.unavailable(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, snap)
}

func (a *API) handleScores(ctx *fasthttp.RequestCtx) {
	raw := strings.TrimSpace(string(ctx.QueryArgs().Peek("mode")))
	var mode trainer.GameMode
	if raw != "" {
		m, ok := trainer.ParseGameMode(raw)
		if !ok {
			writeError(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("unknown mode %q", raw))
			return
		}
		mode = m
	}
	var scores []trainer.ScoreRecord
	c, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	err := a.loop.Do(c, func() {
		if mode == "" {
			scores = a.session.HighScores()
		} else {
			scores = a.session.HighScoresFor(mode)
		}
	})
	if err != nil {
		a.unavailable(ctx, err)
		return
	}
	if scores == nil {
		scores = []trainer.ScoreRecord{}
	}
	writeJSON(ctx, fasthttp.StatusOK, scoresResponse{Mode: string(mode), Scores: scores})
}

func (a *API) handleBoard(ctx *fasthttp.RequestCtx) {
	snap, err := a.call(nil)
	if err != nil {
		a.unavailable(ctx, err)
		return
	}
	c, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	png, err := a.renderer.RenderPNG(c, render.OptionsFromSnapshot(snap))
	if err != nil {
		a.logger.Error("board_render_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "render failed")
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set(fasthttp.HeaderCacheControl, "no-store")
	ctx.SetBody(png)
}

func (a *API) unavailable(ctx *fasthttp.RequestCtx, err error) {
	a.logger.Warn("session_call_failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	writeError(ctx, fasthttp.StatusServiceUnavailable, "session unavailable")
}

func decodeBody(ctx *fasthttp.RequestCtx, out any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg})
}
