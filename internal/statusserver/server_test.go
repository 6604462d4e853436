package statusserver

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reelworks/reel/internal/audio"
	"github.com/reelworks/reel/internal/capture"
	"github.com/reelworks/reel/internal/config"
	"github.com/reelworks/reel/internal/health"
	"github.com/reelworks/reel/internal/session"
	"github.com/reelworks/reel/internal/sink"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := config.Default()
	cfg.Recording.CountdownSeconds = 0
	s, err := session.New(session.Options{
		Config:      cfg,
		Capturer:    capture.NewSyntheticCapturer(32, 32, 30),
		SystemAudio: audio.NewSyntheticCapturer(440, audio.TargetSampleRate, audio.TargetChannels),
		MicAudio:    audio.NewSyntheticCapturer(220, audio.TargetSampleRate, audio.TargetChannels),
		Sink:        sink.NewMemory(),
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return s
}

func TestStatusEndpoint(t *testing.T) {
	sess := newTestSession(t)
	hm := health.NewMonitor()
	hm.Update(health.ComponentCapture, health.Healthy, "")

	srv := New(sess, hm)
	addr, err := srv.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	if err := sess.Start(); err != nil {
		t.Fatalf("session start: %v", err)
	}
	defer func() {
		sess.Stop()
		sess.Wait()
	}()
	time.Sleep(200 * time.Millisecond)

	resp, err := http.Get("http://" + addr + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var p statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Session.ID != sess.ID() {
		t.Fatalf("session id = %q, want %q", p.Session.ID, sess.ID())
	}
	if p.Session.State != session.StateRecording {
		t.Fatalf("state = %s, want recording", p.Session.State)
	}
	if p.Health == nil {
		t.Fatal("no health summary in payload")
	}
}

func TestWebsocketCommands(t *testing.T) {
	sess := newTestSession(t)
	srv := New(sess, nil)
	addr, err := srv.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	if err := sess.Start(); err != nil {
		t.Fatalf("session start: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Command{Type: "pause"}); err != nil {
		t.Fatalf("write pause: %v", err)
	}
	waitForAck(t, conn, "pause")
	if got := sess.State(); got != session.StatePaused {
		t.Fatalf("state after pause = %s, want paused", got)
	}

	if err := conn.WriteJSON(Command{Type: "resume"}); err != nil {
		t.Fatalf("write resume: %v", err)
	}
	waitForAck(t, conn, "resume")

	if err := conn.WriteJSON(Command{Type: "stop"}); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	waitForAck(t, conn, "stop")
	if err := sess.Wait(); err != nil {
		t.Fatalf("session wait: %v", err)
	}
}

func TestWebsocketRejectsUnknownCommand(t *testing.T) {
	sess := newTestSession(t)
	srv := New(sess, nil)
	addr, err := srv.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()
	defer func() {
		sess.Stop()
		sess.Wait()
	}()
	if err := sess.Start(); err != nil {
		t.Fatalf("session start: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Command{Type: "reboot"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := waitForAck(t, conn, "reboot")
	if res.OK {
		t.Fatal("unknown command acknowledged as ok")
	}
}

// waitForAck reads frames until the matching command ack arrives, skipping
// interleaved status pushes.
func waitForAck(t *testing.T, conn *websocket.Conn, cmdType string) CommandResult {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var res CommandResult
		if err := json.Unmarshal(data, &res); err == nil && res.Type == cmdType {
			return res
		}
	}
}
