package trainer

// Voice is the preferred speech voice.
type Voice string

const (
	VoiceFemale Voice = "female"
	VoiceMale   Voice = "male"
)

// Cue is an answer outcome sound.
type Cue string

const (
	CueSuccess Cue = "success"
	CueFailure Cue = "failure"
)

// Notifier receives fire-and-forget speech and sound requests.
type Notifier interface {
	Announce(text string, voice Voice)
	PlayCue(cue Cue)
}

// Recorder observes gameplay events, e.g. for metrics.
type Recorder interface {
	SessionStarted(duration int, mode GameMode)
	Answer(correct bool, mode GameMode)
	SessionEnded(score int, aborted bool)
}

type nopNotifier struct{}

func (nopNotifier) Announce(string, Voice) {}
func (nopNotifier) PlayCue(Cue)            {}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(int, GameMode) {}
func (nopRecorder) Answer(bool, GameMode)        {}
func (nopRecorder) SessionEnded(int, bool)       {}
