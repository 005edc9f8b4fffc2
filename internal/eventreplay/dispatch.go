package eventreplay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/upskill/internal/app"
	"github.com/okian/upskill/internal/domain/types"
)

// ReplayedHeader marks HTTP responses served from an idempotency record.
const ReplayedHeader = "Idempotent-Replayed"

// Outcome is what one dispatched event produced.
type Outcome struct {
	Code     types.Code
	Replayed bool
}

// Dispatcher delivers one raw event to a supervisor.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw []byte) (Outcome, error)
}

// Supervisor dispatches to an in-process service.
type Supervisor struct {
	Service *service.Service
}

// Dispatch implements Dispatcher.
func (d Supervisor) Dispatch(ctx context.Context, raw []byte) (Outcome, error) {
	res := d.Service.HandleEvent(ctx, raw)
	return Outcome{Code: res.Code(), Replayed: res.Replayed}, nil
}

// HTTP posts events to a running server's /events endpoint.
type HTTP struct {
	client *http.Client
	url    string
}

// NewHTTP creates an HTTP dispatcher for baseURL.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(baseURL, "/") + "/events",
	}
}

// Dispatch implements Dispatcher.
func (d *HTTP) Dispatch(ctx context.Context, raw []byte) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(raw))
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	out := Outcome{Replayed: resp.Header.Get(ReplayedHeader) == "true"}
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return out, nil
	}

	var env struct {
		Error *types.Error `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return Outcome{}, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	out.Code = env.Error.Code
	return out, nil
}
