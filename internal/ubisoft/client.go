// Package ubisoft опрашивает game-status-api.ubisoft.com (статус серверов Uplay).
package ubisoft

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

	"github.com/EgorLis/statusbot/internal/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultBaseURL = "https://game-status-api.ubisoft.com"

// RainbowSixSiege — app id R6S; в конфиге можно писать просто "r6s".
const RainbowSixSiege = "e3d5ea9e-50bd-43b7-88bf-39794f4e3d40"

var aliases = map[string]string{
	"r6s":               RainbowSixSiege,
	"rainbow six siege": RainbowSixSiege,
}

// ErrNoInstances — API вернул пустой список инстансов.
var ErrNoInstances = errors.New("ubisoft: no instances")

// Instance — один инстанс игры (платформа).
type Instance struct {
	AppID    string `json:"AppID"`
	Name     string `json:"Name"`
	Platform string `json:"Platform"`
	Status   string `json:"Status"` // Online, Degraded, Interrupted, Maintenance
}

type Client struct {
	http    *http.Client
	BaseURL string
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}, BaseURL: DefaultBaseURL}
}

// ResolveAppID раскрывает известные псевдонимы игр.
func ResolveAppID(id string) string {
	if v, ok := aliases[strings.ToLower(strings.TrimSpace(id))]; ok {
		return v
	}
	return id
}

// Instances возвращает инстансы игры appID.
func (c *Client) Instances(ctx context.Context, appID string) ([]Instance, error) {
	q := url.Values{}
	q.Set("appIds", ResolveAppID(appID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/instances?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ubisoft: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ubisoft: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ubisoft: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out []Instance
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ubisoft: decode: %w", err)
	}
	return out, nil
}

// ServerStatus — статус первого инстанса: Online/Degraded -> up, иначе down.
func (c *Client) ServerStatus(ctx context.Context, appID string) (status.Entry, error) {
	inst, err := c.Instances(ctx, appID)
	if err != nil {
		return status.Entry{}, err
	}
	if len(inst) == 0 {
		return status.Entry{}, fmt.Errorf("%w: %s", ErrNoInstances, appID)
	}
	return Normalize(inst[0]), nil
}

// Normalize переводит статус инстанса в up/down; исходное значение
// остаётся в Detail.
func Normalize(in Instance) status.Entry {
	switch strings.ToLower(in.Status) {
	case "online", "degraded":
		e := status.Entry{Status: status.Up}
		if !strings.EqualFold(in.Status, "online") {
			e.Detail = in.Status
		}
		return e
	}
	return status.Entry{Status: status.Down, Detail: in.Status}
}
