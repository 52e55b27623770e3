// Package reddit implements the monitor.SourceClient boundary against the
// Reddit JSON API. It is a thin wrapper: authentication, pagination and
// response normalization, nothing else.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

const (
	publicBaseURL = "https://www.reddit.com"
	oauthBaseURL  = "https://oauth.reddit.com"
	tokenURL      = "https://www.reddit.com/api/v1/access_token"

	defaultUserAgent = "redditwatch/0.1"
)

// Config holds Reddit API credentials. With empty credentials the client
// falls back to the unauthenticated public JSON endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	// BaseURL and TokenURL override the live endpoints, primarily for tests.
	BaseURL  string
	TokenURL string
	Timeout  time.Duration
}

// Client talks to the Reddit API and returns normalized posts.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	token       string
	tokenExpiry time.Time
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = tokenURL
	}
	if cfg.BaseURL == "" {
		if cfg.authenticated() {
			cfg.BaseURL = oauthBaseURL
		} else {
			cfg.BaseURL = publicBaseURL
		}
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c Config) authenticated() bool {
	return c.ClientID != "" && c.Username != ""
}

// FetchPosts returns up to limit posts from the subreddit in the given sort
// order. Unknown subreddits map to monitor.ErrSourceNotFound and private
// ones to monitor.ErrAccessDenied.
func (c *Client) FetchPosts(ctx context.Context, subreddit string, limit int, sort string) ([]monitor.Post, error) {
	if limit <= 0 {
		limit = 25
	}
	switch sort {
	case monitor.SortNew, monitor.SortHot, monitor.SortTop, monitor.SortRising, monitor.SortControversial:
	default:
		sort = monitor.SortNew
	}

	query := url.Values{"limit": {strconv.Itoa(limit)}, "raw_json": {"1"}}
	if sort == monitor.SortTop || sort == monitor.SortControversial {
		query.Set("t", "day")
	}
	path := fmt.Sprintf("/r/%s/%s.json", url.PathEscape(subreddit), sort)

	var listing listingEnvelope
	if err := c.getJSON(ctx, path, query, &listing); err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}

	posts := listing.normalize(subreddit, c.logger)
	c.logger.Info("fetched posts", zap.String("subreddit", subreddit), zap.Int("count", len(posts)))
	return posts, nil
}

// SearchPosts queries Reddit's search endpoint, optionally restricted to a
// single subreddit.
func (c *Client) SearchPosts(ctx context.Context, q, subreddit string, limit int, sort string) ([]monitor.Post, error) {
	if limit <= 0 {
		limit = 25
	}
	if sort == "" {
		sort = "relevance"
	}

	query := url.Values{
		"q":        {q},
		"limit":    {strconv.Itoa(limit)},
		"sort":     {sort},
		"raw_json": {"1"},
	}
	path := "/search.json"
	if subreddit != "" {
		path = fmt.Sprintf("/r/%s/search.json", url.PathEscape(subreddit))
		query.Set("restrict_sr", "1")
	}

	var listing listingEnvelope
	if err := c.getJSON(ctx, path, query, &listing); err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	return listing.normalize("", c.logger), nil
}

// Identity describes the authenticated account, used by the test command.
type Identity struct {
	Username     string
	LinkKarma    int
	CommentKarma int
	CreatedUTC   float64
}

// Me verifies credentials by fetching the authenticated user's identity.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	if !c.cfg.authenticated() {
		return Identity{}, fmt.Errorf("reddit credentials are not configured")
	}
	var raw struct {
		Name         string  `json:"name"`
		LinkKarma    int     `json:"link_karma"`
		CommentKarma int     `json:"comment_karma"`
		CreatedUTC   float64 `json:"created_utc"`
	}
	if err := c.getJSON(ctx, "/api/v1/me", url.Values{"raw_json": {"1"}}, &raw); err != nil {
		return Identity{}, fmt.Errorf("verify connection: %w", err)
	}
	return Identity{
		Username:     raw.Name,
		LinkKarma:    raw.LinkKarma,
		CommentKarma: raw.CommentKarma,
		CreatedUTC:   raw.CreatedUTC,
	}, nil
}

// UserProfile is the public summary of a Reddit account.
type UserProfile struct {
	Username     string
	LinkKarma    int
	CommentKarma int
	IsGold       bool
	CreatedUTC   float64
}

// AboutUser fetches a user's public profile. Unknown users map to
// monitor.ErrSourceNotFound, suspended ones to monitor.ErrAccessDenied.
func (c *Client) AboutUser(ctx context.Context, username string) (UserProfile, error) {
	var raw struct {
		Data struct {
			Name         string  `json:"name"`
			LinkKarma    int     `json:"link_karma"`
			CommentKarma int     `json:"comment_karma"`
			IsGold       bool    `json:"is_gold"`
			CreatedUTC   float64 `json:"created_utc"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/user/%s/about.json", url.PathEscape(username))
	if err := c.getJSON(ctx, path, url.Values{"raw_json": {"1"}}, &raw); err != nil {
		return UserProfile{}, fmt.Errorf("about u/%s: %w", username, err)
	}
	return UserProfile{
		Username:     raw.Data.Name,
		LinkKarma:    raw.Data.LinkKarma,
		CommentKarma: raw.Data.CommentKarma,
		IsGold:       raw.Data.IsGold,
		CreatedUTC:   raw.Data.CreatedUTC,
	}, nil
}

// SubredditInfo is the about-page summary of a subreddit.
type SubredditInfo struct {
	Name        string
	Subscribers int64
	Description string
	Type        string
	CreatedUTC  float64
}

// AboutSubreddit fetches a subreddit's about record.
func (c *Client) AboutSubreddit(ctx context.Context, name string) (SubredditInfo, error) {
	var raw struct {
		Data struct {
			DisplayName       string  `json:"display_name"`
			Subscribers       int64   `json:"subscribers"`
			PublicDescription string  `json:"public_description"`
			SubredditType     string  `json:"subreddit_type"`
			CreatedUTC        float64 `json:"created_utc"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/r/%s/about.json", url.PathEscape(name))
	if err := c.getJSON(ctx, path, url.Values{"raw_json": {"1"}}, &raw); err != nil {
		return SubredditInfo{}, fmt.Errorf("about r/%s: %w", name, err)
	}
	return SubredditInfo{
		Name:        raw.Data.DisplayName,
		Subscribers: raw.Data.Subscribers,
		Description: raw.Data.PublicDescription,
		Type:        raw.Data.SubredditType,
		CreatedUTC:  raw.Data.CreatedUTC,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	if c.cfg.authenticated() {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close response body", zap.Error(cerr))
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return monitor.ErrSourceNotFound
	case http.StatusForbidden:
		return monitor.ErrAccessDenied
	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// accessToken returns a cached bearer token, refreshing it via the password
// grant when missing or close to expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.cfg.Username},
		"password":   {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close token response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.token, nil
}
