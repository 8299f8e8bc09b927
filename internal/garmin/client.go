package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	defaultSSOURL = "https://sso.garmin.com"
	defaultAPIURL = "https://connectapi.garmin.com"

	signinPath   = "/sso/signin"
	mfaPath      = "/sso/verifyMFA/loginToken"
	exchangePath = "/oauth-service/oauth/exchange"
	profilePath  = "/userprofile-service/socialProfile"
)

var (
	// csrfRe extracts the CSRF token from the SSO sign-in form.
	csrfRe = regexp.MustCompile(`name="_csrf"\s+value="([^"]+)"`)

	// ticketRe extracts the service ticket embedded in a successful SSO response.
	ticketRe = regexp.MustCompile(`ticket=([^"&]+)`)
)

// Session is the authenticated state for one sync run. It is created at run
// start (or restored from the state store) and discarded at run end.
type Session struct {
	AccessToken string    `json:"access_token"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the session token can still be presented.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && time.Now().Before(s.ExpiresAt)
}

// Client talks to Garmin Connect. One client serves one account for one run;
// concurrent runs against the same credentials are not supported.
type Client struct {
	ssoURL string
	apiURL string

	email    string
	password string

	httpClient *http.Client
	session    *Session
	log        *slog.Logger
}

// NewClient creates a Garmin Connect client for the given credentials.
func NewClient(email, password string, log *slog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		ssoURL:   defaultSSOURL,
		apiURL:   defaultAPIURL,
		email:    email,
		password: password,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// SetBaseURLs overrides the SSO and API endpoints. Used by tests.
func (c *Client) SetBaseURLs(sso, api string) {
	c.ssoURL = strings.TrimRight(sso, "/")
	c.apiURL = strings.TrimRight(api, "/")
}

// Session returns the current session, or nil before login.
func (c *Client) Session() *Session { return c.session }

// RestoreSession installs a previously persisted session, skipping the SSO
// handshake when the token is still valid.
func (c *Client) RestoreSession(s *Session) { c.session = s }

// Login performs the SSO handshake. It returns *MFARequiredError when the
// account needs a one-time code (complete via ResumeLogin), *AuthError when
// the credentials are rejected.
func (c *Client) Login(ctx context.Context) error {
	csrf, err := c.fetchSigninCSRF(ctx)
	if err != nil {
		return &AuthError{Reason: "loading sign-in form", Err: err}
	}

	form := url.Values{
		"username": {c.email},
		"password": {c.password},
		"embed":    {"false"},
		"_csrf":    {csrf},
	}
	body, status, err := c.postForm(ctx, c.ssoURL+signinPath, form)
	if err != nil {
		return &AuthError{Reason: "submitting credentials", Err: err}
	}

	if m := ticketRe.FindStringSubmatch(body); m != nil {
		return c.completeLogin(ctx, m[1])
	}
	if strings.Contains(body, "MFA") {
		// The next CSRF token doubles as the continuation ticket for
		// the code-submission round trip.
		ticket := csrf
		if m := csrfRe.FindStringSubmatch(body); m != nil {
			ticket = m[1]
		}
		return &MFARequiredError{Ticket: ticket}
	}
	if status == http.StatusForbidden || status == http.StatusUnauthorized || strings.Contains(body, "Invalid") {
		return &AuthError{Reason: "credentials rejected"}
	}
	return &AuthError{Reason: fmt.Sprintf("unexpected sign-in response (status %d)", status)}
}

// ResumeLogin completes an MFA-interrupted sign-in with the one-time code.
func (c *Client) ResumeLogin(ctx context.Context, ticket, code string) error {
	form := url.Values{
		"mfa-code": {code},
		"embed":    {"false"},
		"_csrf":    {ticket},
	}
	body, status, err := c.postForm(ctx, c.ssoURL+mfaPath, form)
	if err != nil {
		return &AuthError{Reason: "submitting MFA code", Err: err}
	}
	if status == http.StatusTooManyRequests {
		return &AuthError{Reason: "rate limited; wait a few minutes before retrying"}
	}

	m := ticketRe.FindStringSubmatch(body)
	if m == nil {
		return &AuthError{Reason: "MFA code rejected"}
	}
	return c.completeLogin(ctx, m[1])
}

// Authenticate validates the current session against the profile endpoint and
// fills in the display name used by per-day endpoints. It is cheap enough for
// the orchestrator to call once at the start of every run.
func (c *Client) Authenticate(ctx context.Context) error {
	if !c.session.Valid() {
		return &AuthError{Reason: "no valid session; sign in first"}
	}
	var profile struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.getJSON(ctx, c.apiURL+profilePath, &profile); err != nil {
		return &AuthError{Reason: "session validation", Err: err}
	}
	if profile.DisplayName == "" {
		return &AuthError{Reason: "profile has no display name"}
	}
	c.session.DisplayName = profile.DisplayName
	return nil
}

// completeLogin exchanges an SSO service ticket for an API bearer token.
func (c *Client) completeLogin(ctx context.Context, ticket string) error {
	form := url.Values{"ticket": {ticket}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+exchangePath, strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Reason: "building exchange request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Reason: "exchanging ticket", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &AuthError{Reason: fmt.Sprintf("ticket exchange failed (status %d): %s", resp.StatusCode, body)}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return &AuthError{Reason: "decoding token response", Err: err}
	}
	c.session = &Session{
		AccessToken: tok.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	return c.Authenticate(ctx)
}

// FetchDay retrieves the six per-day payloads concurrently and joins before
// returning: normalization must not start until every request has resolved to
// either a value or an absence. A failed or empty endpoint leaves its payload
// nil; only cancellation is an error.
func (c *Client) FetchDay(ctx context.Context, day time.Time) (*DayPayloads, error) {
	date := day.Format("2006-01-02")
	name := url.PathEscape(c.session.DisplayName)

	p := &DayPayloads{}
	var wg sync.WaitGroup
	wg.Add(6)

	go func() {
		defer wg.Done()
		var v Stats
		if c.fetchPayload(ctx, "stats", date,
			fmt.Sprintf("%s/usersummary-service/stats/daily/%s", c.apiURL, date), &v) {
			p.Stats = &v
		}
	}()
	go func() {
		defer wg.Done()
		var v SleepData
		if c.fetchPayload(ctx, "sleep", date,
			fmt.Sprintf("%s/wellness-service/wellness/dailySleepData/%s?date=%s", c.apiURL, name, date), &v) {
			p.Sleep = &v
		}
	}()
	go func() {
		defer wg.Done()
		var v []Activity
		if c.fetchPayload(ctx, "activities", date,
			fmt.Sprintf("%s/activitylist-service/activities/search/activities?startDate=%s&endDate=%s&limit=100&start=0", c.apiURL, date, date), &v) {
			p.Activities = v
		}
	}()
	go func() {
		defer wg.Done()
		var v DailySummary
		if c.fetchPayload(ctx, "summary", date,
			fmt.Sprintf("%s/usersummary-service/usersummary/daily/%s?calendarDate=%s", c.apiURL, name, date), &v) {
			p.Summary = &v
		}
	}()
	go func() {
		defer wg.Done()
		var v TrainingStatus
		if c.fetchPayload(ctx, "training_status", date,
			fmt.Sprintf("%s/metrics-service/metrics/trainingstatus/aggregated/%s", c.apiURL, date), &v) {
			p.TrainingStatus = &v
		}
	}()
	go func() {
		defer wg.Done()
		var v HRVData
		if c.fetchPayload(ctx, "hrv", date,
			fmt.Sprintf("%s/hrv-service/hrv/%s", c.apiURL, date), &v) {
			p.HRV = &v
		}
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// fetchPayload GETs one endpoint and decodes into v. It reports false for any
// absence: 204/404, a non-2xx status, a transport error, or a body that does
// not decode. Absences are logged and never escalate past the day.
func (c *Client) fetchPayload(ctx context.Context, kind, date, rawURL string, v any) bool {
	err := c.getJSON(ctx, rawURL, v)
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	c.log.Warn("payload unavailable", "kind", kind, "date", date, "error", err)
	return false
}

var errNoContent = fmt.Errorf("no content")

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return errNoContent
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 || string(body) == "null" {
		return errNoContent
	}
	return json.Unmarshal(body, v)
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

// fetchSigninCSRF loads the sign-in form and extracts its CSRF token.
func (c *Client) fetchSigninCSRF(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ssoURL+signinPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	m := csrfRe.FindStringSubmatch(string(body))
	if m == nil {
		return "", fmt.Errorf("sign-in form has no CSRF token")
	}
	return m[1], nil
}
