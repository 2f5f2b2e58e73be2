// Package searchclient is the polite client for the upstream article
// search API. It owns request signing with a session token, per-request
// rate-limit delay, response parsing, and failure classification; it
// knows nothing about tasks or embeddings.
package searchclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
	"github.com/longlongyang/wechat-article-insight/pkg/sessiontoken"
)

const (
	searchBizURL   = "https://mp.weixin.qq.com/cgi-bin/searchbiz"
	articleListURL = "https://mp.weixin.qq.com/cgi-bin/appmsgpublish"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxAccountsPerKeyword = 20
	articlesPerPage       = 20
	maxRateLimitRetries   = 3
	maxTransientRetries   = 1
)

// Candidate is a single search-returned article, not yet filtered or
// ranked.
type Candidate struct {
	Title         string
	URL           string
	AccountName   string
	AccountFakeID string
	PublishTime   time.Time
}

// Scope restricts search to a single upstream account, skipping the
// account-discovery hop.
type Scope struct {
	AccountFakeID string
	AccountName   string
}

// Result is one page of candidates plus pagination state.
type Result struct {
	Candidates []Candidate
	NextCursor string
	Total      int
}

// cursorState is the opaque pagination state threaded through
// Search(keyword, cursor, scope) calls. Marshaled to a base64 string so
// the pipeline only ever handles an opaque cursor, never this struct,
// keeping the account-discovery/per-account-fan-out detail invisible
// to it.
type cursorState struct {
	Accounts   []AccountInfo `json:"accounts"`
	AccountIdx int           `json:"account_idx"`
	Offset     int           `json:"offset"`
}

func encodeCursor(s cursorState) string {
	b, _ := json.Marshal(s)
	return base64.URLEncoding.EncodeToString(b)
}

func decodeCursor(cursor string) (cursorState, error) {
	var s cursorState
	if cursor == "" {
		return s, nil
	}
	b, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return s, fmt.Errorf("decode cursor: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("unmarshal cursor: %w", err)
	}
	return s, nil
}

// Client is the stateful search client. The session token is held
// outside this component (sessiontoken.Store) and re-read on every call
// so an externally-refreshed token is always picked up.
type Client struct {
	httpClient  *http.Client
	tokens      sessiontoken.Store
	accountKey  string        // which cached token/cookie this client authenticates as
	backoffUnit time.Duration // base retry backoff, shrunk in tests
}

func New(tokens sessiontoken.Store, accountKey string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		tokens:      tokens,
		accountKey:  accountKey,
		backoffUnit: 500 * time.Millisecond,
	}
}

func sleepForSpeed(ctx context.Context, speed entity.SpeedTier) {
	var min, max int
	switch speed {
	case entity.SpeedTierHigh:
		min, max = 500, 500
	case entity.SpeedTierMedium:
		min, max = 1000, 2000
	default: // SpeedTierLow and any unrecognized value default to the most conservative tier
		min, max = 2000, 3000
	}
	delay := min
	if max > min {
		delay += rand.Intn(max - min + 1)
	}
	select {
	case <-time.After(time.Duration(delay) * time.Millisecond):
	case <-ctx.Done():
	}
}

// Search retrieves one page of candidates for keyword. Input
// constraints: keyword non-empty and <= 64 characters; cursor is
// monotonic and opaque (returned by a prior call, or "" for the first
// page); scope restricts to a single account's article list, skipping
// discovery.
func (c *Client) Search(ctx context.Context, keyword, cursor string, scope *Scope, speed entity.SpeedTier) (*Result, error) {
	if keyword == "" {
		return nil, fmt.Errorf("keyword must not be empty")
	}
	if utf8.RuneCountInString(keyword) > 64 {
		return nil, fmt.Errorf("keyword exceeds 64 characters")
	}

	state, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	if len(state.Accounts) == 0 {
		if scope != nil && scope.AccountFakeID != "" {
			state.Accounts = []AccountInfo{{FakeID: scope.AccountFakeID, Nickname: scope.AccountName}}
		} else {
			sleepForSpeed(ctx, speed)
			accounts, err := c.discoverAccounts(ctx, keyword)
			if err != nil {
				return nil, err
			}
			state.Accounts = accounts
		}
		state.AccountIdx = 0
		state.Offset = 0
	}

	for state.AccountIdx < len(state.Accounts) {
		account := state.Accounts[state.AccountIdx]

		sleepForSpeed(ctx, speed)
		candidates, total, err := c.fetchAccountArticlesWithRetry(ctx, account, state.Offset)
		if err != nil {
			if apperr.IsFatal(apperr.KindOf(err)) {
				return nil, err
			}
			// Per-account fetch exhausted its retries: skip this
			// account non-fatally, the keyword is not abandoned.
			state.AccountIdx++
			state.Offset = 0
			continue
		}

		if len(candidates) < articlesPerPage {
			// This account is exhausted; advance to the next one on
			// the caller's next call.
			state.AccountIdx++
			state.Offset = 0
		} else {
			state.Offset += articlesPerPage
		}

		next := ""
		if state.AccountIdx < len(state.Accounts) {
			next = encodeCursor(state)
		}
		return &Result{Candidates: candidates, NextCursor: next, Total: total}, nil
	}

	// All accounts for this keyword are exhausted.
	return &Result{Candidates: nil, NextCursor: "", Total: 0}, nil
}

func (c *Client) discoverAccounts(ctx context.Context, keyword string) ([]AccountInfo, error) {
	token, err := c.tokens.Token(ctx, c.accountKey)
	if err != nil {
		return nil, fmt.Errorf("read session token: %w", err)
	}
	if token == "" {
		return nil, apperr.New(apperr.KindSessionExpired, SessionExpiredMessage, fmt.Errorf("no cached session token for %s", c.accountKey))
	}

	q := url.Values{
		"action": {"search_biz"},
		"begin":  {"0"},
		"count":  {strconv.Itoa(maxAccountsPerKeyword)},
		"query":  {keyword},
		"token":  {token},
		"lang":   {"zh_CN"},
		"f":      {"json"},
		"ajax":   {"1"},
	}

	body, err := c.doGet(ctx, searchBizURL, q)
	if err != nil {
		return nil, err
	}
	return parseAccountSearch(body)
}

// fetchAccountArticlesWithRetry retries with a separate budget per
// failure kind: rate-limit codes back off exponentially with jitter up
// to maxRateLimitRetries, transport/transient errors retry once, and
// everything else surfaces immediately.
func (c *Client) fetchAccountArticlesWithRetry(ctx context.Context, account AccountInfo, offset int) ([]Candidate, int, error) {
	rateLimitRetries := 0
	transientRetries := 0
	for {
		candidates, total, err := c.fetchAccountArticles(ctx, account, offset)
		if err == nil {
			return candidates, total, nil
		}

		var delay time.Duration
		switch kind := apperr.KindOf(err); kind {
		case apperr.KindRateLimited:
			if rateLimitRetries >= maxRateLimitRetries {
				return nil, 0, err
			}
			backoff := time.Duration(1<<rateLimitRetries) * c.backoffUnit
			jitter := time.Duration(rand.Int63n(int64(c.backoffUnit) / 2))
			delay = backoff + jitter
			rateLimitRetries++
		case apperr.KindTransient, apperr.KindTimeout:
			if transientRetries >= maxTransientRetries {
				return nil, 0, err
			}
			delay = c.backoffUnit
			transientRetries++
		default:
			return nil, 0, err
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
}

func (c *Client) fetchAccountArticles(ctx context.Context, account AccountInfo, offset int) ([]Candidate, int, error) {
	token, err := c.tokens.Token(ctx, c.accountKey)
	if err != nil {
		return nil, 0, fmt.Errorf("read session token: %w", err)
	}
	if token == "" {
		return nil, 0, apperr.New(apperr.KindSessionExpired, SessionExpiredMessage, fmt.Errorf("no cached session token for %s", c.accountKey))
	}

	q := url.Values{
		"action": {"list_ex"},
		"begin":  {strconv.Itoa(offset)},
		"count":  {strconv.Itoa(articlesPerPage)},
		"fakeid": {account.FakeID},
		"token":  {token},
		"lang":   {"zh_CN"},
		"f":      {"json"},
		"ajax":   {"1"},
	}

	body, err := c.doGet(ctx, articleListURL, q)
	if err != nil {
		return nil, 0, err
	}

	candidates, err := parseArticleList(body, account.Nickname, account.FakeID)
	if err != nil {
		return nil, 0, err
	}
	return candidates, len(candidates), nil
}

func (c *Client) doGet(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors retry once at the caller's discretion; here we
		// surface as transient so fetchAccountArticlesWithRetry's bounded
		// loop covers it.
		return nil, apperr.New(apperr.KindTransient, "search transport error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New(apperr.KindTransient, "read search response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindTransient, "search http error", fmt.Errorf("status %d", resp.StatusCode))
	}
	return body, nil
}
