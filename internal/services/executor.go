package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

// maxErrorBody caps how much of a failed response body is carried into the error.
const maxErrorBody = 512

// Refresher renews a user's access token. Implemented by [TokenManager].
type Refresher interface {
	Refresh(ctx context.Context, user *models.User) (*models.User, error)
}

// Request describes a Web API call. Body is JSON-encoded when non-nil.
type Request struct {
	Method string
	URL    string
	Body   any
	Query  url.Values
}

func (r Request) op() string {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	if u, err := url.Parse(r.URL); err == nil {
		return method + " " + u.Path
	}
	return method + " " + r.URL
}

type callState int

const (
	stateIssued callState = iota
	stateRefreshing
	stateReissued
	stateSucceeded
	stateFailed
)

func (s callState) String() string {
	switch s {
	case stateIssued:
		return "issued"
	case stateRefreshing:
		return "refreshing"
	case stateReissued:
		return "reissued"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Executor issues bearer-authorized requests for a user, refreshing once on 401.
type Executor struct {
	client *http.Client
	tokens Refresher
	logger *log.Logger
}

// NewExecutor creates an [Executor]. A nil client gets [DefaultTimeout].
func NewExecutor(client *http.Client, tokens Refresher, logger *log.Logger) *Executor {
	if client == nil {
		client = NewHTTPClient(0)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{client: client, tokens: tokens, logger: logger}
}

// call tracks one pass through the executor's state machine.
type call struct {
	op     string
	state  callState
	logger *log.Logger
}

func (c *call) transition(next callState, kv ...any) {
	c.logger.Debug("spotify call", append([]any{"op", c.op, "from", c.state, "to", next}, kv...)...)
	c.state = next
}

func (c *call) fail(status int, err error) error {
	c.transition(stateFailed, "status", status, "err", err)
	if shared.IsProviderError(err) {
		return err
	}
	return shared.NewProviderError(c.op, status, err)
}

// Call performs req with user's access token and decodes a 2xx body into out when out is non-nil.
//
// A 401 triggers exactly one [Refresher.Refresh] and one reissue of the identical request. A second 401,
// a failed refresh, any other non-2xx status, a transport error, a timeout, or an undecodable body
// is returned as a [shared.ProviderError].
func (e *Executor) Call(ctx context.Context, user *models.User, req Request, out any) error {
	c := &call{op: req.op(), state: stateIssued, logger: e.logger}

	body, err := encodeBody(req.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	c.logger.Debug("spotify call", "op", c.op, "state", c.state, "user", user.ID())
	status, data, err := e.send(ctx, user.AccessToken(), req, body)
	if err != nil {
		return c.fail(0, err)
	}

	if status == http.StatusUnauthorized {
		c.transition(stateRefreshing, "status", status)
		if _, err := e.tokens.Refresh(ctx, user); err != nil {
			return c.fail(http.StatusUnauthorized, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err))
		}

		c.transition(stateReissued)
		status, data, err = e.send(ctx, user.AccessToken(), req, body)
		if err != nil {
			return c.fail(0, err)
		}
		if status == http.StatusUnauthorized {
			return c.fail(status, shared.ErrTokenExpired)
		}
	}

	if err := decodeResponse(status, data, out); err != nil {
		return c.fail(status, err)
	}

	c.transition(stateSucceeded, "status", status)
	return nil
}

// Once performs a single bearer request with accessToken, without refreshing on 401.
//
// Used when there is no stored user to refresh yet, as right after the authorization code exchange.
func (e *Executor) Once(ctx context.Context, accessToken string, req Request, out any) error {
	body, err := encodeBody(req.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	status, data, err := e.send(ctx, accessToken, req, body)
	if err != nil {
		return shared.NewProviderError(req.op(), 0, err)
	}
	if err := decodeResponse(status, data, out); err != nil {
		return shared.NewProviderError(req.op(), status, err)
	}
	return nil
}

// send issues one attempt. The body is rebuilt from bytes on every attempt so it can be replayed.
func (e *Executor) send(ctx context.Context, accessToken string, req Request, body []byte) (int, []byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := url.Parse(req.URL)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return 0, nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, data, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(body)
}

func decodeResponse(status int, data []byte, out any) error {
	if status < 200 || status >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			return shared.ErrAPIRequest
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	return nil
}

func transportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
}
