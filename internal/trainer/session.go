package trainer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/mystic-pawn/internal/board"
	"github.com/park285/mystic-pawn/internal/clock"
	"github.com/park285/mystic-pawn/internal/msgcat"
	"github.com/park285/mystic-pawn/internal/prefs"
)

const (
	countdownStart       = 3
	tickInterval         = time.Second
	defaultDuration      = 40
	defaultFeedbackDelay = 200 * time.Millisecond
	defaultStoreTimeout  = 2 * time.Second
)

type Config struct {
	// DefaultDuration is used by RestartGame before any StartGame.
	DefaultDuration int
	// FeedbackDelay is how long answer feedback stays up before it is cleared.
	FeedbackDelay time.Duration
	// StoreTimeout bounds every preference read and write.
	StoreTimeout time.Duration
}

type Option func(*Session)

func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		if rng != nil {
			s.rng = rng
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithMessages(c *msgcat.Catalog) Option {
	return func(s *Session) {
		if c != nil {
			s.msgs = c
		}
	}
}

type observerEntry struct {
	id int
	fn func(Snapshot)
}

// Session is the state of one player's trainer. It is not safe for concurrent
// use: every method, and every scheduler callback, must run on the single
// execution context that owns the session (see clock.Loop).
type Session struct {
	sched    clock.Scheduler
	store    prefs.Store
	notifier Notifier
	recorder Recorder
	msgs     *msgcat.Catalog
	rng      *rand.Rand
	cfg      Config
	logger   *zap.Logger

	target          board.Position
	score           int
	timeRemaining   int
	sessionDuration int
	active          bool
	countingDown    bool
	countdownValue  int
	ended           bool
	whiteQueenOnTop bool
	// generation increments on every start so deferred callbacks can tell
	// whether they still belong to the running session.
	generation int

	feedback   Feedback
	message    string
	userInput  string
	lastAnswer *board.Position

	needsName      bool
	lastPlayerName string

	settings   Settings
	highScores []ScoreRecord

	countdownTimer clock.Handle
	playTimer      clock.Handle

	observers []observerEntry
	nextObsID int
}

// NewSession loads persisted settings and high scores from store and returns an idle session.
func NewSession(sched clock.Scheduler, store prefs.Store, notifier Notifier, cfg Config, logger *zap.Logger, opts ...Option) *Session {
	if store == nil {
		store = prefs.NewMemoryStore()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaultDuration
	}
	if cfg.FeedbackDelay <= 0 {
		cfg.FeedbackDelay = defaultFeedbackDelay
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	s := &Session{
		sched:           sched,
		store:           store,
		notifier:        notifier,
		recorder:        nopRecorder{},
		msgs:            msgcat.Default(),
		rng:             rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().Unix()))),
		cfg:             cfg,
		logger:          logger,
		sessionDuration: cfg.DefaultDuration,
		timeRemaining:   cfg.DefaultDuration,
		countdownValue:  countdownStart,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	s.target = board.Random(s.rng)
	s.resolveOrientation()
	return s
}

func (s *Session) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
}

func (s *Session) load() {
	ctx, cancel := s.storeCtx()
	defer cancel()

	def := DefaultSettings()
	st := Settings{
		SpeechEnabled:  prefs.Bool(ctx, s.store, prefs.KeySpeechEnabled, def.SpeechEnabled),
		UseFemaleVoice: prefs.Bool(ctx, s.store, prefs.KeyFemaleVoice, def.UseFemaleVoice),
		SoundEnabled:   prefs.Bool(ctx, s.store, prefs.KeySoundEnabled, def.SoundEnabled),
		Theme:          def.Theme,
		GameMode:       def.GameMode,
		QueenPosition:  def.QueenPosition,
	}
	if t, ok := ParseTheme(prefs.String(ctx, s.store, prefs.KeyTheme, "")); ok {
		st.Theme = t
	}
	if m, ok := ParseGameMode(prefs.String(ctx, s.store, prefs.KeyGameMode, "")); ok {
		st.GameMode = m
	}
	if q, ok := ParseQueenPosition(prefs.String(ctx, s.store, prefs.KeyQueenPosition, "")); ok {
		st.QueenPosition = q
	}
	s.settings = st
	s.lastPlayerName = prefs.String(ctx, s.store, prefs.KeyLastPlayerName, "")

	var scores []ScoreRecord
	if _, err := prefs.JSON(ctx, s.store, prefs.KeyHighScores, &scores); err != nil {
		s.logger.Warn("high_scores_load_error", zap.Error(err))
		scores = nil
	}
	s.highScores = trimScores(scores, MaxScoresPerMode)
}

// StartGame begins the 3-2-1 countdown for a session of duration seconds.
// Any running timer is cancelled first. Non-positive durations are ignored.
func (s *Session) StartGame(duration int) {
	if duration <= 0 {
		s.logger.Warn("session_start_ignored", zap.Int("duration", duration))
		return
	}
	if s.active || s.countingDown {
		s.recorder.SessionEnded(s.score, true)
	}
	s.stopTimers()

	s.generation++
	s.sessionDuration = duration
	s.score = 0
	s.timeRemaining = duration
	s.ended = false
	s.active = false
	s.countingDown = true
	s.countdownValue = countdownStart
	s.needsName = false
	s.feedback = FeedbackNone
	s.message = ""
	s.userInput = ""
	s.lastAnswer = nil

	s.recorder.SessionStarted(duration, s.settings.GameMode)
	s.logger.Info("session_start",
		zap.Int("duration", duration),
		zap.String("mode", string(s.settings.GameMode)),
		zap.String("queen_position", string(s.settings.QueenPosition)),
	)
	s.announceCountdown()
	s.countdownTimer = s.sched.Every(tickInterval, s.countdownTick)
	s.publish()
}

// RestartGame starts again with the last configured duration.
func (s *Session) RestartGame() {
	s.StartGame(s.sessionDuration)
}

// EndGame aborts a running session. Timers are cancelled before it returns.
func (s *Session) EndGame() {
	if !s.active && !s.countingDown {
		return
	}
	s.finish(true)
}

func (s *Session) countdownTick() {
	if s.countdownValue > 1 {
		s.countdownValue--
		s.announceCountdown()
		s.publish()
		return
	}
	stopHandle(&s.countdownTimer)
	s.countingDown = false
	s.beginRound()
}

func (s *Session) beginRound() {
	s.active = true
	s.timeRemaining = s.sessionDuration
	s.nextTarget()
	s.playTimer = s.sched.Every(tickInterval, s.playTick)
	s.logger.Debug("round_begin", zap.Int("time_remaining", s.timeRemaining))
	s.publish()
}

// nextTarget draws a new target, re-resolves orientation and announces the square.
func (s *Session) nextTarget() {
	s.target = board.Random(s.rng)
	s.resolveOrientation()
	if s.settings.GameMode != ModeCoordinates {
		s.announce(s.msgs.Text(msgcat.AnnounceTarget, map[string]any{
			"File": s.target.Notation()[:1],
			"Rank": s.target.Rank + 1,
		}, s.target.Notation()))
	}
}

func (s *Session) resolveOrientation() {
	switch s.settings.QueenPosition {
	case QueenWhiteOnBottom:
		s.whiteQueenOnTop = false
	case QueenBlackOnBottom:
		s.whiteQueenOnTop = true
	default:
		s.whiteQueenOnTop = s.rng.IntN(2) == 1
	}
}

func (s *Session) playTick() {
	if !s.active {
		return
	}
	s.timeRemaining--
	if s.timeRemaining <= 0 {
		s.timeRemaining = 0
		s.finish(false)
		return
	}
	s.publish()
}

func (s *Session) finish(aborted bool) {
	s.stopTimers()
	s.active = false
	s.countingDown = false
	s.ended = true
	s.needsName = s.score > 0

	s.recorder.SessionEnded(s.score, aborted)
	s.logger.Info("session_end",
		zap.Int("score", s.score),
		zap.Int("duration", s.sessionDuration),
		zap.Bool("aborted", aborted),
	)
	s.publish()
}

func (s *Session) stopTimers() {
	stopHandle(&s.countdownTimer)
	stopHandle(&s.playTimer)
}

func stopHandle(h *clock.Handle) {
	if *h != nil {
		(*h).Stop()
		*h = nil
	}
}

// SubmitAnswer checks a tapped square, given in the frame of the displayed board.
func (s *Session) SubmitAnswer(candidate board.Position) {
	if !s.active || !candidate.Valid() {
		return
	}
	s.answer(candidate)
}

// SubmitCoordinateAnswer checks typed notation. Unparsable input is ignored.
func (s *Session) SubmitCoordinateAnswer(text string) {
	if !s.active {
		return
	}
	pos, ok := board.Parse(strings.TrimSpace(text))
	if !ok {
		return
	}
	s.answer(pos)
}

// SetUserInput replaces the coordinates-mode input buffer.
func (s *Session) SetUserInput(text string) {
	s.userInput = text
	s.publish()
}

// SubmitUserInput submits and clears the input buffer.
func (s *Session) SubmitUserInput() {
	text := s.userInput
	s.userInput = ""
	s.SubmitCoordinateAnswer(text)
	s.publish()
}

// answer scores a candidate given in the displayed frame.
func (s *Session) answer(candidate board.Position) {
	correct := candidate.Oriented(s.whiteQueenOnTop) == s.target
	s.lastAnswer = &candidate
	mode := s.settings.GameMode
	s.recorder.Answer(correct, mode)
	gen := s.generation
	if correct {
		s.score++
		s.timeRemaining++
		s.feedback = FeedbackCorrect
		s.message = s.msgs.Text(msgcat.FeedbackCorrect, nil, "Correct!")
		s.cue(CueSuccess)
		s.sched.After(s.cfg.FeedbackDelay, func() {
			if gen != s.generation {
				return
			}
			s.clearFeedback()
			if s.active {
				s.nextTarget()
			}
			s.publish()
		})
	} else {
		s.score--
		s.feedback = FeedbackIncorrect
		s.message = s.msgs.Text(msgcat.FeedbackIncorrect, nil, "Try again!")
		s.cue(CueFailure)
		s.sched.After(s.cfg.FeedbackDelay, func() {
			if gen != s.generation {
				return
			}
			s.clearFeedback()
			s.publish()
		})
	}
	s.logger.Debug("answer",
		zap.Bool("correct", correct),
		zap.String("target", s.target.Notation()),
		zap.Int("score", s.score),
	)
	s.publish()
}

func (s *Session) clearFeedback() {
	s.feedback = FeedbackNone
	s.message = ""
	s.lastAnswer = nil
}

// SaveScore records the finished session's score under name. It only applies
// while the name prompt is open, so a session is saved at most once.
// Blank names are ignored.
func (s *Session) SaveScore(name string) {
	name = strings.TrimSpace(name)
	if !s.needsName || name == "" {
		return
	}
	rec := ScoreRecord{
		ID:              uuid.NewString(),
		PlayerName:      name,
		Score:           s.score,
		Timestamp:       s.sched.Now(),
		DurationSeconds: s.sessionDuration,
		GameMode:        string(s.settings.GameMode),
	}
	s.highScores = trimScores(append(s.highScores, rec), MaxScoresPerMode)
	s.lastPlayerName = name
	s.needsName = false

	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := prefs.SetJSON(ctx, s.store, prefs.KeyHighScores, s.highScores); err != nil {
		s.logger.Warn("prefs_write_error", zap.String("key", prefs.KeyHighScores), zap.Error(err))
	}
	if err := s.store.Set(ctx, prefs.KeyLastPlayerName, name); err != nil {
		s.logger.Warn("prefs_write_error", zap.String("key", prefs.KeyLastPlayerName), zap.Error(err))
	}
	s.logger.Info("score_saved",
		zap.String("id", rec.ID),
		zap.Int("score", rec.Score),
		zap.String("mode", rec.GameMode),
	)
	s.publish()
}

func (s *Session) SetTheme(t Theme) {
	if _, ok := ParseTheme(string(t)); !ok {
		return
	}
	s.settings.Theme = t
	s.saveSettings()
}

func (s *Session) ToggleSpeech() {
	s.settings.SpeechEnabled = !s.settings.SpeechEnabled
	s.saveSettings()
}

func (s *Session) ToggleVoiceGender() {
	s.settings.UseFemaleVoice = !s.settings.UseFemaleVoice
	s.saveSettings()
}

func (s *Session) ToggleSound() {
	s.settings.SoundEnabled = !s.settings.SoundEnabled
	s.saveSettings()
}

func (s *Session) SetGameMode(m GameMode) {
	if _, ok := ParseGameMode(string(m)); !ok {
		return
	}
	s.settings.GameMode = m
	s.saveSettings()
}

// SetQueenPosition applies a fixed orientation immediately, even mid-round.
// Random takes effect at the next target draw.
func (s *Session) SetQueenPosition(q QueenPosition) {
	if _, ok := ParseQueenPosition(string(q)); !ok {
		return
	}
	s.settings.QueenPosition = q
	switch q {
	case QueenWhiteOnBottom:
		s.whiteQueenOnTop = false
	case QueenBlackOnBottom:
		s.whiteQueenOnTop = true
	}
	s.saveSettings()
}

func (s *Session) saveSettings() {
	ctx, cancel := s.storeCtx()
	defer cancel()
	st := s.settings
	flags := []struct {
		key string
		val bool
	}{
		{prefs.KeySpeechEnabled, st.SpeechEnabled},
		{prefs.KeyFemaleVoice, st.UseFemaleVoice},
		{prefs.KeySoundEnabled, st.SoundEnabled},
	}
	for _, f := range flags {
		if err := prefs.SetBool(ctx, s.store, f.key, f.val); err != nil {
			s.logger.Warn("prefs_write_error", zap.String("key", f.key), zap.Error(err))
		}
	}
	values := []struct {
		key string
		val string
	}{
		{prefs.KeyTheme, string(st.Theme)},
		{prefs.KeyGameMode, string(st.GameMode)},
		{prefs.KeyQueenPosition, string(st.QueenPosition)},
	}
	for _, v := range values {
		if err := s.store.Set(ctx, v.key, v.val); err != nil {
			s.logger.Warn("prefs_write_error", zap.String("key", v.key), zap.Error(err))
		}
	}
	s.publish()
}

func (s *Session) announceCountdown() {
	s.announce(s.msgs.Text(msgcat.AnnounceCountdown, map[string]any{"Value": s.countdownValue}, ""))
}

func (s *Session) announce(text string) {
	if !s.settings.SpeechEnabled || strings.TrimSpace(text) == "" {
		return
	}
	voice := VoiceMale
	if s.settings.UseFemaleVoice {
		voice = VoiceFemale
	}
	s.notifier.Announce(text, voice)
}

func (s *Session) cue(c Cue) {
	if !s.settings.SoundEnabled {
		return
	}
	s.notifier.PlayCue(c)
}

// Subscribe registers fn to receive a snapshot after every state change.
func (s *Session) Subscribe(fn func(Snapshot)) int {
	s.nextObsID++
	s.observers = append(s.observers, observerEntry{id: s.nextObsID, fn: fn})
	return s.nextObsID
}

func (s *Session) Unsubscribe(id int) {
	for i, o := range s.observers {
		if o.id == id {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Session) publish() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, o := range append([]observerEntry(nil), s.observers...) {
		o.fn(snap)
	}
}

func (s *Session) Phase() Phase {
	switch {
	case s.countingDown:
		return PhaseCountingDown
	case s.active:
		return PhaseActive
	case s.ended:
		return PhaseEnded
	}
	return PhaseIdle
}

func (s *Session) Target() board.Position { return s.target }
func (s *Session) Score() int             { return s.score }
func (s *Session) TimeRemaining() int     { return s.timeRemaining }
func (s *Session) SessionDuration() int   { return s.sessionDuration }
func (s *Session) WhiteQueenOnTop() bool  { return s.whiteQueenOnTop }
func (s *Session) Settings() Settings     { return s.settings }

// DisplayNotation is the target as labelled on the displayed board.
func (s *Session) DisplayNotation() string {
	return s.target.Oriented(s.whiteQueenOnTop).Notation()
}

// HighScores returns all saved records, best first.
func (s *Session) HighScores() []ScoreRecord {
	return append([]ScoreRecord(nil), s.highScores...)
}

// HighScoresFor returns the records of one game mode, best first.
func (s *Session) HighScoresFor(mode GameMode) []ScoreRecord {
	return filterScores(s.highScores, mode)
}

func (s *Session) Snapshot() Snapshot {
	prefill, prompt, gameOver := "", "", ""
	if s.needsName {
		prefill = s.lastPlayerName
		prompt = s.msgs.Text(msgcat.NamePrompt, nil, "Save your score")
	}
	if s.ended {
		gameOver = s.msgs.Text(msgcat.GameOver, map[string]any{"Score": s.score},
			fmt.Sprintf("Game over! Final score: %d", s.score))
	}
	var last *board.Position
	if s.lastAnswer != nil {
		p := *s.lastAnswer
		last = &p
	}
	return Snapshot{
		Phase:             s.Phase(),
		Target:            s.target,
		TargetNotation:    s.target.Notation(),
		DisplayNotation:   s.DisplayNotation(),
		Score:             s.score,
		TimeRemaining:     s.timeRemaining,
		SessionDuration:   s.sessionDuration,
		IsActive:          s.active,
		IsCountingDown:    s.countingDown,
		CountdownValue:    s.countdownValue,
		HasEnded:          s.ended,
		WhiteQueenOnTop:   s.whiteQueenOnTop,
		Feedback:          s.feedback,
		Message:           s.message,
		UserInput:         s.userInput,
		LastAnswer:        last,
		GameOverMessage:   gameOver,
		NeedsPlayerName:   s.needsName,
		NamePrompt:        prompt,
		PlayerNamePrefill: prefill,
		Settings:          s.settings,
		HighScores:        s.HighScores(),
	}
}
