package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"

	"github.com/templui/doin/internal/model"
)

const (
	procList      = "participations.listByEvent"
	procCreate    = "participations.create"
	procDelete    = "participations.delete"
	procChallenge = "events.getById"
)

type ClientConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// Client talks to the remote store over tRPC-style HTTP.
type Client struct {
	http    *resty.Client
	metrics *Metrics
}

func NewClient(cfg ClientConfig, metrics *Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	r := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	r.JSONMarshal = json.Marshal
	r.JSONUnmarshal = json.Unmarshal
	if cfg.AuthToken != "" {
		r.SetAuthToken(cfg.AuthToken)
	}

	return &Client{http: r, metrics: metrics}
}

type envelope[T any] struct {
	Result *struct {
		Data struct {
			JSON T `json:"json"`
		} `json:"data"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

type rpcError struct {
	JSON struct {
		Message string `json:"message"`
		Data    struct {
			Code       string `json:"code"`
			HTTPStatus int    `json:"httpStatus"`
		} `json:"data"`
	} `json:"json"`
}

type wrapped struct {
	JSON any `json:"json"`
}

func query[T any](ctx context.Context, c *Client, proc string, input any) (T, error) {
	var zero T
	b, err := json.Marshal(wrapped{JSON: input})
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s input: %w", proc, err)
	}

	var env envelope[T]
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("input", string(b)).
		SetResult(&env).
		SetError(&env).
		Get("/api/trpc/" + proc)
	return decode(c, proc, start, resp, err, &env)
}

func mutate[T any](ctx context.Context, c *Client, proc string, input any) (T, error) {
	var env envelope[T]
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(wrapped{JSON: input}).
		SetResult(&env).
		SetError(&env).
		Post("/api/trpc/" + proc)
	return decode(c, proc, start, resp, err, &env)
}

func decode[T any](c *Client, proc string, start time.Time, resp *resty.Response, err error, env *envelope[T]) (T, error) {
	var zero T
	if err == nil && resp.IsError() {
		err = rejection(proc, resp.StatusCode(), env.Error)
	}
	if err == nil && env.Result == nil {
		err = fmt.Errorf("%s: empty result", proc)
	}
	c.metrics.observe(proc, err, time.Since(start))
	if err != nil {
		return zero, err
	}
	return env.Result.Data.JSON, nil
}

func rejection(proc string, status int, e *rpcError) *RequestError {
	msg := http.StatusText(status)
	if e != nil && e.JSON.Message != "" {
		msg = e.JSON.Message
	}
	return &RequestError{Procedure: proc, Status: status, Message: msg}
}

func (c *Client) List(ctx context.Context, challengeID int64) ([]model.Participation, error) {
	list, err := query[[]model.Participation](ctx, c, procList, map[string]int64{"eventId": challengeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	return list, nil
}

func (c *Client) Challenge(ctx context.Context, id int64) (*model.Challenge, error) {
	ch, err := query[*model.Challenge](ctx, c, procChallenge, map[string]int64{"id": id})
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if ch == nil {
		return nil, ErrChallengeNotFound
	}
	return ch, nil
}

type createInput struct {
	EventID        int64                    `json:"eventId"`
	Message        string                   `json:"message,omitempty"`
	Contribution   int                      `json:"contribution"`
	CompanionCount int                      `json:"companionCount"`
	Prefecture     string                   `json:"prefecture"`
	Gender         model.Gender             `json:"gender"`
	TwitterID      string                   `json:"twitterId"`
	DisplayName    string                   `json:"displayName"`
	Username       string                   `json:"username,omitempty"`
	ProfileImage   string                   `json:"profileImage,omitempty"`
	FollowersCount int                      `json:"followersCount"`
	Companions     []model.CompanionPayload `json:"companions"`
	AllowVideoUse  bool                     `json:"allowVideoUse"`
}

func (c *Client) Submit(ctx context.Context, s *model.Submission) (model.SubmitResult, error) {
	companions := s.Companions
	if companions == nil {
		companions = []model.CompanionPayload{}
	}
	in := createInput{
		EventID:        s.ChallengeID,
		Message:        s.Message,
		Contribution:   s.Contribution,
		CompanionCount: s.CompanionCount,
		Prefecture:     s.Prefecture,
		Gender:         s.Gender,
		TwitterID:      s.TwitterID,
		DisplayName:    s.DisplayName,
		Username:       s.Username,
		ProfileImage:   s.ProfileImage,
		FollowersCount: s.FollowersCount,
		Companions:     companions,
		AllowVideoUse:  s.AllowVideoUse,
	}

	result, err := mutate[model.SubmitResult](ctx, c, procCreate, in)
	if err != nil {
		return model.SubmitResult{}, submissionError(err)
	}
	return result, nil
}

func (c *Client) Delete(ctx context.Context, participationID int64) error {
	if _, err := mutate[json.RawMessage](ctx, c, procDelete, map[string]int64{"id": participationID}); err != nil {
		return fmt.Errorf("failed to delete participation: %w", err)
	}
	return nil
}

// submissionError turns a transport or server failure into the message the
// user sees.
func submissionError(err error) *SubmissionError {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return &SubmissionError{Message: "Could not reach the server. Check your connection and try again.", Err: err}
	}

	msg := reqErr.Message
	lower := strings.ToLower(msg)
	switch {
	case reqErr.Status == http.StatusConflict,
		strings.Contains(lower, "already"),
		strings.Contains(lower, "duplicate"):
		msg = "You have already joined this challenge."
	case reqErr.Status == http.StatusUnauthorized:
		msg = "Please log in again."
	case reqErr.Status >= 500:
		msg = "The server had a problem. Please try again later."
	}
	return &SubmissionError{Message: msg, Status: reqErr.Status, Err: err}
}
