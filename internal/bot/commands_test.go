package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/EgorLis/statusbot/internal/status"
	"github.com/EgorLis/statusbot/internal/tracker"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a b  c", []string{"a", "b", "c"}},
		{`msg "дом рейдят" now`, []string{"msg", "дом рейдят", "now"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitArgs(tt.in)); diff != "" {
			t.Errorf("splitArgs(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestHelpListsCommandsSorted(t *testing.T) {
	c := NewCommands(nullLog())
	c.Register("tell_off", "ask the bot to leave", HandlerFunc(tellOffCommand))
	c.Register("Status", "current status", HandlerFunc(tellOffCommand))

	if diff := cmp.Diff([]string{"help", "status", "tell_off"}, c.Keywords()); diff != "" {
		t.Fatalf("keywords mismatch (-want +got):\n%s", diff)
	}

	reply, ok := c.Dispatch(context.Background(), Request{Platform: "telegram", Command: "HELP"})
	if !ok {
		t.Fatal("help not dispatched")
	}
	want := "/help - list commands\n/status - current status\n/tell_off - ask the bot to leave"
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	reply, _ = c.Dispatch(context.Background(), Request{Platform: "rustplus", Command: "help"})
	if !strings.HasPrefix(reply, "!help - ") {
		t.Fatalf("rustplus help = %q", reply)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	c := NewCommands(nullLog())
	if reply, ok := c.Dispatch(context.Background(), Request{Command: "deploy"}); ok || reply != "" {
		t.Fatalf("Dispatch(deploy) = %q, %v", reply, ok)
	}
}

func TestDispatchHandlerErrorIsLoggedNotLeaked(t *testing.T) {
	log, hook := test.NewNullLogger()
	c := NewCommands(log)
	c.Register("boom", "", HandlerFunc(func(context.Context, Request) (string, error) {
		return "", errors.New("token=secret exploded")
	}))

	reply, ok := c.Dispatch(context.Background(), Request{Platform: "telegram", Command: "boom"})
	if !ok || strings.Contains(reply, "secret") {
		t.Fatalf("reply = %q, ok = %v", reply, ok)
	}
	e := hook.LastEntry()
	if e == nil || e.Data["command"] != "boom" || e.Data["platform"] != "telegram" {
		t.Fatalf("log entry = %+v", e)
	}
}

func TestTellOff(t *testing.T) {
	reply, err := tellOffCommand(context.Background(), Request{})
	if err != nil || reply != "Leave me in peace, spammers." {
		t.Fatalf("tell_off = %q, %v", reply, err)
	}
}

func TestStatusCommandDoesNotTouchScheduler(t *testing.T) {
	players := &fakeFetcher{}
	n := &recordingNotifier{}
	s := newScheduler(players, nil, n, time.Minute, false, nullLog())

	players.set(nil, "Alice", "offline")
	s.RunCycle(context.Background())

	players.set(nil, "Alice", "online")
	now := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	reply, err := statusCommand(players, nil, now).Handle(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Alice: online" {
		t.Fatalf("reply = %q", reply)
	}

	got := s.Snapshot(status.Players)
	if got.Version != 1 || got.StatusOf("Alice") != status.Offline {
		t.Fatalf("scheduler snapshot changed: %+v", got)
	}
	if len(n.messages()) != 0 {
		t.Fatalf("status command notified: %q", n.messages())
	}

	// следующий цикл всё ещё видит переход
	s.RunCycle(context.Background())
	if msgs := n.messages(); len(msgs) != 1 || msgs[0] != "Alice is online" {
		t.Fatalf("messages = %q", msgs)
	}
}

func TestStatusCommandSections(t *testing.T) {
	players := &fakeFetcher{}
	servers := &fakeFetcher{}
	players.set(nil, "Alice", "in-game")
	servers.set(tracker.ErrNoData)

	reply, err := statusCommand(players, servers, time.Now).Handle(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	want := "Players:\nAlice: in-game\n\nServers:\nstatus unavailable, try again later"
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestStatusCommandPropagatesOtherErrors(t *testing.T) {
	players := &fakeFetcher{}
	players.set(context.Canceled)
	if _, err := statusCommand(players, nil, time.Now).Handle(context.Background(), Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestStatusCommandNamedEntities(t *testing.T) {
	players := &fakeFetcher{}
	servers := &fakeFetcher{}
	players.set(nil, "Alice", "offline", "Bob", "online")
	servers.set(nil, "R6S", "up", "Rust EU", "down")
	h := statusCommand(players, servers, time.Now)

	reply, err := h.Handle(context.Background(), Request{Args: splitArgs(`bob "rust eu"`)})
	if err != nil {
		t.Fatal(err)
	}
	if want := "Players:\nBob: online\n\nServers:\nRust EU: down"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	reply, _ = h.Handle(context.Background(), Request{Args: []string{"r6s"}})
	if want := "Servers:\nR6S: up"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	reply, _ = h.Handle(context.Background(), Request{Args: []string{"zed"}})
	if reply != "nothing matches: zed" {
		t.Fatalf("reply = %q", reply)
	}
}
