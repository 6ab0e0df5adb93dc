package speech

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/mystic-pawn/internal/trainer"
)

// Request is the JSON body posted to the speech bridge.
type Request struct {
	Type  string `json:"type"` // "announce" or "cue"
	Text  string `json:"text,omitempty"`
	Voice string `json:"voice,omitempty"`
	Cue   string `json:"cue,omitempty"`
}

// HTTPNotifier posts requests to an external speech/audio bridge.
// Requests are queued and sent by one worker; when the queue is full they are dropped.
type HTTPNotifier struct {
	endpoint string
	http     *fasthttp.Client
	timeout  time.Duration
	logger   *zap.Logger

	queue    chan Request
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*HTTPNotifier)

func WithTimeout(d time.Duration) Option {
	return func(n *HTTPNotifier) { n.timeout = d }
}

func WithQueueSize(size int) Option {
	return func(n *HTTPNotifier) {
		if size > 0 {
			n.queue = make(chan Request, size)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(n *HTTPNotifier) {
		if l != nil {
			n.logger = l
		}
	}
}

func NewHTTPNotifier(endpoint string, opts ...Option) *HTTPNotifier {
	n := &HTTPNotifier{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 4},
		timeout:  3 * time.Second,
		logger:   zap.NewNop(),
		queue:    make(chan Request, 32),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *HTTPNotifier) Announce(text string, voice trainer.Voice) {
	n.enqueue(Request{Type: "announce", Text: text, Voice: string(voice)})
}

func (n *HTTPNotifier) PlayCue(cue trainer.Cue) {
	n.enqueue(Request{Type: "cue", Cue: string(cue)})
}

func (n *HTTPNotifier) enqueue(req Request) {
	select {
	case <-n.stopCh:
		return
	default:
	}
	select {
	case n.queue <- req:
	default:
		n.logger.Warn("speech_queue_full", zap.String("type", req.Type))
	}
}

func (n *HTTPNotifier) run() {
	defer n.wg.Done()
	for {
		select {
		case req := <-n.queue:
			if err := n.post(req); err != nil {
				n.logger.Warn("speech_post_error", zap.String("type", req.Type), zap.Error(err))
			}
		case <-n.stopCh:
			return
		}
	}
}

func (n *HTTPNotifier) post(in Request) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(n.endpoint)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := n.http.DoTimeout(req, resp, n.timeout); err != nil {
		return err
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("speech bridge status %d", code)
	}
	return nil
}

// Close stops the worker. Queued requests are discarded.
func (n *HTTPNotifier) Close() {
	n.stopOnce.Do(func() { close(n.stopCh) })
	n.wg.Wait()
}
