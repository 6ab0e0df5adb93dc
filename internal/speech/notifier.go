package speech

import (
	"go.uber.org/zap"

	"github.com/park285/mystic-pawn/internal/trainer"
)

// LogNotifier writes speech and sound requests to the log. Used when no speech bridge is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Announce(text string, voice trainer.Voice) {
	n.logger.Info("speech_announce", zap.String("text", text), zap.String("voice", string(voice)))
}

func (n *LogNotifier) PlayCue(cue trainer.Cue) {
	n.logger.Info("speech_cue", zap.String("cue", string(cue)))
}

// Multi fans requests out to every notifier in order.
type Multi []trainer.Notifier

func (m Multi) Announce(text string, voice trainer.Voice) {
	for _, n := range m {
		n.Announce(text, voice)
	}
}

func (m Multi) PlayCue(cue trainer.Cue) {
	for _, n := range m {
		n.PlayCue(cue)
	}
}
