// internal/backend/remote/remote.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kor4soft/teamsync/internal/backend"
)

// Provider talks to a syncd server over HTTP JSON, with a websocket change
// feed for subscriptions.
type Provider struct {
	baseURL string
	http    *http.Client

	mu           sync.RWMutex
	token        string
	refreshToken string
	expiresAt    time.Time
	identity     *backend.Identity

	feed *feed
}

func New(baseURL string) *Provider {
	p := &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	p.feed = newFeed(p)
	return p
}

// ============================================
// Queries
// ============================================

func (p *Provider) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	var resp struct {
		Data []backend.Row `json:"data"`
	}
	path := "/api/tables/" + table + encodeQuery(q)
	if err := p.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (p *Provider) Count(ctx context.Context, table string, q backend.Query) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	path := "/api/tables/" + table + "/count" + encodeQuery(q)
	if err := p.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ============================================
// Mutations
// ============================================

func (p *Provider) Insert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	var resp struct {
		Data backend.Row `json:"data"`
	}
	if err := p.do(ctx, http.MethodPost, "/api/tables/"+table, row, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (p *Provider) Update(ctx context.Context, table string, id string, patch backend.Row) (backend.Row, error) {
	var resp struct {
		Data backend.Row `json:"data"`
	}
	path := "/api/tables/" + table + "/" + url.PathEscape(id)
	if err := p.do(ctx, http.MethodPatch, path, patch, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (p *Provider) Delete(ctx context.Context, table string, id string) error {
	path := "/api/tables/" + table + "/" + url.PathEscape(id)
	return p.do(ctx, http.MethodDelete, path, nil, nil)
}

// ============================================
// Change feed
// ============================================

func (p *Provider) Subscribe(ctx context.Context, table string, events []backend.EventType, filter backend.Filter, h backend.Handler) (backend.StopFunc, error) {
	return p.feed.subscribe(ctx, table, events, filter, h)
}

// ============================================
// Identity
// ============================================

type authResponse struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refresh_token"`
	User         *backend.Identity `json:"user"`
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*backend.Identity, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := p.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		if errors.Is(err, backend.ErrNotSignedIn) {
			return nil, backend.ErrInvalidLogin
		}
		return nil, err
	}
	p.setSession(resp)
	return resp.User, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password, fullName string) (*backend.Identity, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password, "full_name": fullName}
	if err := p.do(ctx, http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		if isStatus(err, http.StatusConflict) {
			return nil, backend.ErrEmailTaken
		}
		return nil, err
	}
	p.setSession(resp)
	return resp.User, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.RLock()
	refresh := p.refreshToken
	p.mu.RUnlock()

	var err error
	if refresh != "" {
		err = p.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": refresh}, nil)
	}

	p.feed.close()
	p.mu.Lock()
	p.token, p.refreshToken, p.identity = "", "", nil
	p.expiresAt = time.Time{}
	p.mu.Unlock()
	return err
}

// Resume validates a stored token against the server and re-adopts it.
// Locally expired tokens are rejected without a round trip.
func (p *Provider) Resume(ctx context.Context, token string) (*backend.Identity, error) {
	if exp, ok := tokenExpiry(token); ok && time.Now().After(exp) {
		return nil, backend.ErrInvalidLogin
	}

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()

	var resp struct {
		User *backend.Identity `json:"user"`
	}
	if err := p.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		p.mu.Lock()
		p.token = ""
		p.mu.Unlock()
		return nil, backend.ErrInvalidLogin
	}

	p.mu.Lock()
	p.identity = resp.User
	if exp, ok := tokenExpiry(token); ok {
		p.expiresAt = exp
	}
	p.mu.Unlock()
	return resp.User, nil
}

func (p *Provider) CurrentIdentity() *backend.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.identity != nil && !p.expiresAt.IsZero() && time.Now().After(p.expiresAt) {
		return nil
	}
	return p.identity
}

func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

func (p *Provider) setSession(resp authResponse) {
	p.mu.Lock()
	p.token = resp.Token
	p.refreshToken = resp.RefreshToken
	p.identity = resp.User
	if exp, ok := tokenExpiry(resp.Token); ok {
		p.expiresAt = exp
	}
	p.mu.Unlock()
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server remains the authority, this only avoids sending dead tokens.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ============================================
// Storage
// ============================================

func (p *Provider) Upload(ctx context.Context, bucket, key string, data []byte) (string, error) {
	path := fmt.Sprintf("%s/api/storage/%s?key=%s", p.baseURL, url.PathEscape(bucket), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if t := p.Token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpError(resp)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// ============================================
// Transport helpers
// ============================================

func (p *Provider) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := p.Token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return httpError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError carries the status of a non-2xx response that has no sentinel
// mapping of its own.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("server: %s", e.msg)
	}
	return fmt.Sprintf("server: unexpected status %d", e.status)
}

func httpError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return backend.ErrNotFound
	case http.StatusUnauthorized:
		return backend.ErrNotSignedIn
	}
	return &apiError{status: resp.StatusCode, msg: body.Error}
}

func isStatus(err error, status int) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.status == status
}

// encodeQuery renders a Query as the syncd query-string dialect:
// col=v, col__neq=v, col__gt=v, col__contains=v, search=col:term,
// order, desc, limit.
func encodeQuery(q backend.Query) string {
	values := url.Values{}
	for _, c := range q.Conds {
		key := c.Column
		switch c.Op {
		case backend.OpNeq:
			key += "__neq"
		case backend.OpGt:
			key += "__gt"
		case backend.OpContains:
			key += "__contains"
		}
		values.Set(key, condValue(c.Value))
	}
	if q.SearchColumn != "" && q.SearchTerm != "" {
		values.Set("search", q.SearchColumn+":"+q.SearchTerm)
	}
	if q.OrderBy != "" {
		values.Set("order", q.OrderBy)
		if q.Desc {
			values.Set("desc", "true")
		}
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

func condValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", x)
	}
}
