package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/templui/doin/internal/companion"
	"github.com/templui/doin/internal/model"
)

type TwitterConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// TwitterResolver looks up profiles with an app-only bearer token.
type TwitterResolver struct {
	http    *resty.Client
	metrics *Metrics
}

func NewTwitterResolver(cfg TwitterConfig, metrics *Metrics) *TwitterResolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twitter.com"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://api.twitter.com/oauth2/token"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	r := resty.NewWithClient(cc.Client(context.Background())).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	r.JSONMarshal = json.Marshal
	r.JSONUnmarshal = json.Unmarshal

	return &TwitterResolver{http: r, metrics: metrics}
}

type twitterUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

type twitterUserResponse struct {
	Data   *twitterUser `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// Resolve implements companion.ProfileResolver.
func (t *TwitterResolver) Resolve(ctx context.Context, handle string) (model.Profile, error) {
	var out twitterUserResponse
	start := time.Now()
	resp, err := t.http.R().
		SetContext(ctx).
		SetQueryParam("user.fields", "profile_image_url").
		SetResult(&out).
		Get("/2/users/by/username/" + url.PathEscape(handle))
	p, err := twitterProfile(resp, &out, err)
	t.metrics.observe("twitter.userByUsername", err, time.Since(start))
	return p, err
}

func twitterProfile(resp *resty.Response, out *twitterUserResponse, err error) (model.Profile, error) {
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to fetch twitter user: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return model.Profile{}, companion.ErrProfileNotFound
	case resp.IsError():
		return model.Profile{}, fmt.Errorf("twitter user lookup returned %d", resp.StatusCode())
	case out.Data == nil:
		// the v2 API answers 200 with an errors array for unknown users
		return model.Profile{}, companion.ErrProfileNotFound
	}

	return model.Profile{
		ID:        out.Data.ID,
		Name:      out.Data.Name,
		Handle:    out.Data.Username,
		AvatarURL: out.Data.ProfileImageURL,
	}, nil
}

// BackendResolver resolves profiles through the store's own proxy endpoint,
// used when no Twitter credentials are configured.
type BackendResolver struct {
	client *Client
}

func NewBackendResolver(c *Client) *BackendResolver {
	return &BackendResolver{client: c}
}

func (b *BackendResolver) Resolve(ctx context.Context, handle string) (model.Profile, error) {
	var p model.Profile
	start := time.Now()
	resp, err := b.client.http.R().
		SetContext(ctx).
		SetResult(&p).
		Get("/api/twitter/user/" + url.PathEscape(handle))
	switch {
	case err != nil:
		err = fmt.Errorf("failed to fetch profile: %w", err)
	case resp.StatusCode() == http.StatusNotFound:
		err = companion.ErrProfileNotFound
	case resp.IsError():
		err = fmt.Errorf("profile lookup returned %d", resp.StatusCode())
	}
	b.client.metrics.observe("twitter.proxy", err, time.Since(start))
	if err != nil {
		return model.Profile{}, err
	}
	if p.Handle == "" {
		p.Handle = handle
	}
	return p, nil
}
