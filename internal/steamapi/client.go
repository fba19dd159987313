// Package steamapi — клиент Steam Web API (ISteamUser/GetPlayerSummaries)
// и перевод ответа в общие статусы бота.
package steamapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound — Steam не вернул игрока (профиль удалён или id неверный).
var ErrNotFound = errors.New("steam: player not found")

const (
	DefaultBaseURL = "https://api.steampowered.com"
	// MaxBatch — сколько steamids принимает один запрос GetPlayerSummaries.
	MaxBatch = 100
)

type Client struct {
	http    *http.Client
	key     string
	BaseURL string

	games  []string // пусто — любая игра считается "in-game"
	labels []string // подписи personastate
}

// Summary — поля GetPlayerSummaries, которые нам нужны.
type Summary struct {
	SteamID       string `json:"steamid"`
	PersonaName   string `json:"personaname"`
	PersonaState  int    `json:"personastate"`
	GameID        string `json:"gameid"`
	GameExtraInfo string `json:"gameextrainfo"`
	LastLogoff    int64  `json:"lastlogoff"`
}

type summariesResponse struct {
	Response struct {
		Players []Summary `json:"players"`
	} `json:"response"`
}

// NewClient создаёт клиент. games — фильтр игр, labels — подписи
// personastate (nil — DefaultPersonaStates).
func NewClient(key string, timeout time.Duration, games, labels []string) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if len(labels) == 0 {
		labels = DefaultPersonaStates
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		key:     key,
		BaseURL: DefaultBaseURL,
		games:   games,
		labels:  labels,
	}
}

// GetPlayerSummaries возвращает сводки по steam64 id. Список бьётся на
// пачки по MaxBatch; игроки, которых Steam не вернул, в карте отсутствуют.
func (c *Client) GetPlayerSummaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	out := make(map[string]Summary, len(ids))
	for start := 0; start < len(ids); start += MaxBatch {
		end := min(start+MaxBatch, len(ids))
		players, err := c.fetch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			out[p.SteamID] = p
		}
	}
	return out, nil
}

// Summary возвращает сводку одного игрока.
func (c *Client) Summary(ctx context.Context, id string) (Summary, error) {
	m, err := c.GetPlayerSummaries(ctx, []string{id})
	if err != nil {
		return Summary{}, err
	}
	s, ok := m[id]
	if !ok {
		return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (c *Client) fetch(ctx context.Context, ids []string) ([]Summary, error) {
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("steamids", strings.Join(ids, ","))
	reqURL := c.BaseURL + "/ISteamUser/GetPlayerSummaries/v0002/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("steam: build request: %w", c.redact(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("steam: request: %w", c.redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("steam: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr summariesResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("steam: decode: %w", err)
	}
	return sr.Response.Players, nil
}

// redact убирает ключ API из URL в ошибках net/http, чтобы он не попал в лог.
func (c *Client) redact(err error) error {
	var ue *url.Error
	if c.key != "" && errors.As(err, &ue) {
		ue.URL = strings.ReplaceAll(ue.URL, url.QueryEscape(c.key), "REDACTED")
		ue.URL = strings.ReplaceAll(ue.URL, c.key, "REDACTED")
	}
	return err
}
