package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/EgorLis/statusbot/internal/status"
)

type fakePlayers struct {
	platform string
	entries  map[string]status.Entry
	err      error
	calls    atomic.Int32
}

func (f *fakePlayers) Platform() string { return f.platform }

func (f *fakePlayers) Players(ctx context.Context, ids []string) (map[string]status.Entry, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]status.Entry)
	for _, id := range ids {
		if e, ok := f.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

type fakeServer map[string]status.Entry

func (f fakeServer) ServerStatus(ctx context.Context, id string) (status.Entry, error) {
	e, ok := f[id]
	if !ok {
		return status.Entry{}, errors.New("lookup failed")
	}
	return e, nil
}

func nullLog() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

var roster = []Player{
	{Name: "Alice", IDs: map[string]string{"steam": "a", "battlemetrics": "1"}},
	{Name: "Bob", IDs: map[string]string{"steam": "b"}},
	{Name: "Carol", IDs: map[string]string{"battlemetrics": "3"}},
}

func TestPlayersFetchResolvesByPriority(t *testing.T) {
	steam := &fakePlayers{platform: "steam", entries: map[string]status.Entry{
		"a": {Status: status.Online, Detail: "Away"},
		"b": {Status: status.Offline},
	}}
	bm := &fakePlayers{platform: "battlemetrics", entries: map[string]status.Entry{
		"1": {Status: status.InGame, Detail: "Rust EU"},
		"3": {Status: status.Offline},
	}}

	p := NewPlayers(roster, []string{"steam", "battlemetrics"}, time.Second, nullLog(), steam, bm)
	snap, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if steam.calls.Load() != 1 || bm.calls.Load() != 1 {
		t.Fatalf("each platform must be queried once, got steam=%d bm=%d", steam.calls.Load(), bm.calls.Load())
	}

	if diff := cmp.Diff([]string{"Alice", "Bob", "Carol"}, snap.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	want := map[string]status.Entry{
		"Alice": {Status: status.Online, Detail: "Away"},
		"Bob":   {Status: status.Offline},
		"Carol": {Status: status.Offline},
	}
	if diff := cmp.Diff(want, snap.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestPlayersFetchPartialFailure(t *testing.T) {
	steam := &fakePlayers{platform: "steam", err: errors.New("steam is down")}
	bm := &fakePlayers{platform: "battlemetrics", entries: map[string]status.Entry{
		"1": {Status: status.Offline},
		"3": {Status: status.InGame},
	}}

	log, hook := test.NewNullLogger()
	p := NewPlayers(roster, []string{"steam", "battlemetrics"}, time.Second, log, steam, bm)
	snap, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := snap.StatusOf("Bob"); got != status.Unknown {
		t.Errorf("Bob = %s, want unknown (steam failed)", got)
	}
	if got := snap.StatusOf("Alice"); got != status.Offline {
		t.Errorf("Alice = %s, want offline from battlemetrics", got)
	}
	if got := snap.StatusOf("Carol"); got != status.InGame {
		t.Errorf("Carol = %s, want in-game", got)
	}
	if e := hook.LastEntry(); e == nil || e.Data["platform"] != "steam" {
		t.Fatalf("steam failure not logged: %+v", e)
	}
}

func TestPlayersFetchMissingIDIsUnknown(t *testing.T) {
	steam := &fakePlayers{platform: "steam", entries: map[string]status.Entry{
		"a": {Status: status.Online},
	}}
	p := NewPlayers(roster[:2], []string{"steam"}, time.Second, nullLog(), steam)
	snap, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := snap.StatusOf("Bob"); got != status.Unknown {
		t.Fatalf("Bob = %s, want unknown", got)
	}
}

func TestPlayersFetchTotalFailure(t *testing.T) {
	steam := &fakePlayers{platform: "steam", err: errors.New("timeout")}
	bm := &fakePlayers{platform: "battlemetrics", err: errors.New("429")}
	p := NewPlayers(roster, []string{"steam", "battlemetrics"}, time.Second, nullLog(), steam, bm)
	if _, err := p.Fetch(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestPlayersFetchAppliesTimeout(t *testing.T) {
	slow := &slowSource{}
	p := NewPlayers(roster[:1], []string{"steam"}, 10*time.Millisecond, nullLog(), slow)
	start := time.Now()
	if _, err := p.Fetch(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("per-call timeout not applied")
	}
}

type slowSource struct{}

func (slowSource) Platform() string { return "steam" }

func (slowSource) Players(ctx context.Context, ids []string) (map[string]status.Entry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolve(t *testing.T) {
	seen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prio := []string{"steam", "battlemetrics"}

	tests := []struct {
		name    string
		answers map[string]status.Entry
		want    status.Entry
	}{
		{
			name: "first present wins",
			answers: map[string]status.Entry{
				"steam":         {Status: status.Online},
				"battlemetrics": {Status: status.InGame},
			},
			want: status.Entry{Status: status.Online},
		},
		{
			name: "offline loses to lower priority presence",
			answers: map[string]status.Entry{
				"steam":         {Status: status.Offline},
				"battlemetrics": {Status: status.InGame, Detail: "Rust"},
			},
			want: status.Entry{Status: status.InGame, Detail: "Rust"},
		},
		{
			name: "unknown and offline give offline",
			answers: map[string]status.Entry{
				"steam":         {Status: status.Unknown},
				"battlemetrics": {Status: status.Offline},
			},
			want: status.Entry{Status: status.Offline},
		},
		{
			name: "offline keeps last seen",
			answers: map[string]status.Entry{
				"steam":         {Status: status.Offline, LastSeen: seen},
				"battlemetrics": {Status: status.Offline},
			},
			want: status.Entry{Status: status.Offline, LastSeen: seen},
		},
		{
			name:    "nothing known",
			answers: map[string]status.Entry{"steam": {Status: status.Unknown}},
			want:    status.Entry{Status: status.Unknown},
		},
		{
			name:    "no answers",
			answers: nil,
			want:    status.Entry{Status: status.Unknown},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Resolve(prio, tt.answers)); diff != "" {
				t.Fatalf("Resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServersFetch(t *testing.T) {
	servers := []Server{
		{Name: "R6S", Platform: "ubisoft", ID: "r6s"},
		{Name: "Rust EU", Platform: "battlemetrics", ID: "42"},
		{Name: "Broken", Platform: "ubisoft", ID: "missing"},
	}
	sources := map[string]ServerSource{
		"ubisoft":       fakeServer{"r6s": {Status: status.Up}},
		"battlemetrics": fakeServer{"42": {Status: status.Down, Detail: "dead"}},
	}
	s := NewServers(servers, sources, time.Second, nullLog())
	snap, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := map[string]status.Entry{
		"R6S":     {Status: status.Up},
		"Rust EU": {Status: status.Down, Detail: "dead"},
		"Broken":  {Status: status.Unknown},
	}
	if diff := cmp.Diff(want, snap.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"R6S", "Rust EU", "Broken"}, snap.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestServersFetchTotalFailure(t *testing.T) {
	s := NewServers([]Server{{Name: "R6S", Platform: "ubisoft", ID: "x"}},
		map[string]ServerSource{"ubisoft": fakeServer{}}, time.Second, nullLog())
	if _, err := s.Fetch(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestPlayersFetchNothingToQuery(t *testing.T) {
	// у Carol id только на battlemetrics, а в приоритете одна steam
	bm := &fakePlayers{platform: "battlemetrics", entries: map[string]status.Entry{"3": {Status: status.Online}}}
	p := NewPlayers(roster[2:], []string{"steam"}, time.Second, nullLog(), bm)
	if _, err := p.Fetch(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if bm.calls.Load() != 0 {
		t.Fatalf("platform outside priority queried %d times", bm.calls.Load())
	}
}
