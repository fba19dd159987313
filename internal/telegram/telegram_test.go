package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	err     error
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func newTestClient(api *fakeAPI) *Client {
	log, _ := test.NewNullLogger()
	return &Client{api: api, token: "123:secret", log: log}
}

func TestSendChatAndChannel(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(api)

	if err := c.Send(context.Background(), "-100500", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.Send(context.Background(), "@squad", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.Send(context.Background(), "squad", "x"); err == nil {
		t.Fatal("expected error for malformed chat id")
	}

	got := api.messages()
	if len(got) != 2 {
		t.Fatalf("sent %d messages, want 2", len(got))
	}
	if got[0].ChatID != -100500 || got[0].Text != "hi" {
		t.Errorf("first message = %+v", got[0])
	}
	if got[1].ChannelUsername != "@squad" || got[1].Text != "hello" {
		t.Errorf("second message = %+v", got[1])
	}
}

func TestSendScrubsToken(t *testing.T) {
	api := &fakeAPI{err: errors.New(`Post "https://api.telegram.org/bot123:secret/sendMessage": timeout`)}
	c := newTestClient(api)
	err := c.Send(context.Background(), "1", "hi")
	if err == nil || strings.Contains(err.Error(), "123:secret") {
		t.Fatalf("err = %v", err)
	}
}

func TestSplit(t *testing.T) {
	if got := Split("short", MaxMessageLength); len(got) != 1 || got[0] != "short" {
		t.Fatalf("Split(short) = %q", got)
	}

	line := strings.Repeat("я", 99) + "\n" // 100 символов
	text := strings.Repeat(line, 100)      // 10000 символов
	parts := Split(text, MaxMessageLength)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	total := 0
	for i, p := range parts {
		n := utf8.RuneCountInString(p)
		if n > MaxMessageLength {
			t.Fatalf("part of %d runes exceeds limit", n)
		}
		if i < len(parts)-1 && strings.HasSuffix(p, "\n") {
			t.Fatalf("part %d ends with newline", i)
		}
		total += strings.Count(p, "я")
	}
	if total != 9900 {
		t.Fatalf("lost characters: %d", total)
	}

	// без переводов строк режем ровно по лимиту
	parts = Split(strings.Repeat("a", 5000), MaxMessageLength)
	if len(parts) != 2 || len(parts[0]) != MaxMessageLength || len(parts[1]) != 904 {
		t.Fatalf("hard split = %d parts", len(parts))
	}
}

func TestRunDispatchesCommands(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 3)}
	c := newTestClient(api)

	command := func(text string) tgbotapi.Update {
		return tgbotapi.Update{Message: &tgbotapi.Message{
			Text:     text,
			Chat:     &tgbotapi.Chat{ID: 7},
			From:     &tgbotapi.User{UserName: "alice"},
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}},
		}}
	}
	api.updates <- command("/status")
	api.updates <- command("/nope")
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "just chatting", Chat: &tgbotapi.Chat{ID: 7}}}

	var mu sync.Mutex
	var seen []string
	handle := func(ctx context.Context, chatID, user, cmd, args string) (string, bool) {
		mu.Lock()
		seen = append(seen, cmd)
		mu.Unlock()
		if cmd == "status" {
			return "all good", true
		}
		return "", false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, handle) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	// дать обработать последнее (не командное) обновление
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := api.messages()
	if len(got) != 1 || got[0].ChatID != 7 || got[0].Text != "all good" {
		t.Fatalf("replies = %+v, want one reply to /status", got)
	}
	api.mu.Lock()
	stopped := api.stopped
	api.mu.Unlock()
	if !stopped {
		t.Fatal("updates not stopped on exit")
	}
}

func TestRunIgnoresCommandsForOtherBots(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 3)}
	c := newTestClient(api)
	c.self = "StatusBot"

	command := func(text string) tgbotapi.Update {
		return tgbotapi.Update{Message: &tgbotapi.Message{
			Text:     text,
			Chat:     &tgbotapi.Chat{ID: -42},
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		}}
	}
	api.updates <- command("/status@OtherBot")
	api.updates <- command("/status@statusbot")
	api.updates <- command("/status")

	var mu sync.Mutex
	calls := 0
	handle := func(ctx context.Context, chatID, user, cmd, args string) (string, bool) {
		mu.Lock()
		calls++
		mu.Unlock()
		return "ok", true
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, handle) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(api.messages()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 || len(api.messages()) != 2 {
		t.Fatalf("handled %d, replied %d; want 2 and 2 (the @OtherBot command skipped)", calls, len(api.messages()))
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestHTTPClientSplitsPollingFromSends(t *testing.T) {
	c := newHTTPClient(5 * time.Second)
	if c.send.Timeout != 5*time.Second {
		t.Fatalf("send timeout = %v, want 5s", c.send.Timeout)
	}
	if c.poll.Timeout <= pollTimeout*time.Second {
		t.Fatalf("poll timeout = %v, must exceed long polling", c.poll.Timeout)
	}

	var used []string
	transport := func(name string) http.RoundTripper {
		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			used = append(used, name)
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
		})
	}
	c.poll.Transport = transport("poll")
	c.send.Transport = transport("send")

	for _, method := range []string{"getUpdates", "sendMessage", "getMe"} {
		req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/"+method, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := c.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		resp.Body.Close()
	}
	if want := []string{"poll", "send", "send"}; strings.Join(used, ",") != strings.Join(want, ",") {
		t.Fatalf("clients used = %v, want %v", used, want)
	}
}
