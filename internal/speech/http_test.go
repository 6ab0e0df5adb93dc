package speech

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/mystic-pawn/internal/trainer"
)

func startBridge(t *testing.T, got chan<- Request) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		var r Request
		if err := json.Unmarshal(ctx.PostBody(), &r); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		got <- r
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return "http://" + ln.Addr().String() + "/speak"
}

func TestHTTPNotifierPosts(t *testing.T) {
	got := make(chan Request, 4)
	n := NewHTTPNotifier(startBridge(t, got))
	t.Cleanup(n.Close)

	n.Announce("E 4", trainer.VoiceFemale)
	n.PlayCue(trainer.CueSuccess)

	want := []Request{
		{Type: "announce", Text: "E 4", Voice: "female"},
		{Type: "cue", Cue: "success"},
	}
	for _, w := range want {
		select {
		case r := <-got:
			if r != w {
				t.Fatalf("got %+v, want %+v", r, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %+v", w)
		}
	}
}

func TestHTTPNotifierAfterClose(t *testing.T) {
	n := NewHTTPNotifier("http://127.0.0.1:1/unused")
	n.Close()
	// must not block or panic
	n.Announce("x", trainer.VoiceMale)
	n.PlayCue(trainer.CueFailure)
}

type recorder struct{ calls []string }

func (r *recorder) Announce(text string, _ trainer.Voice) { r.calls = append(r.calls, "a:"+text) }
func (r *recorder) PlayCue(c trainer.Cue)                 { r.calls = append(r.calls, "c:"+string(c)) }

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b, NewLogNotifier(nil)}
	m.Announce("hi", trainer.VoiceFemale)
	m.PlayCue(trainer.CueFailure)
	for _, r := range []*recorder{a, b} {
		if len(r.calls) != 2 || r.calls[0] != "a:hi" || r.calls[1] != "c:failure" {
			t.Fatalf("unexpected calls: %v", r.calls)
		}
	}
}
