package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/daysync/internal/models"
)

const defaultSheetsBaseURL = "https://sheets.googleapis.com"

// SheetsSink stores rows in one tab of a Google spreadsheet via the Sheets
// values API. The HTTP client must already carry OAuth credentials.
type SheetsSink struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	sheetName     string
	log           *slog.Logger
}

// NewSheetsSink creates a sink for one tab of one spreadsheet.
func NewSheetsSink(hc *http.Client, spreadsheetID, sheetName string, log *slog.Logger) *SheetsSink {
	return &SheetsSink{
		httpClient:    hc,
		baseURL:       defaultSheetsBaseURL,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}
}

// SetBaseURL overrides the Sheets API endpoint. Used by tests.
func (s *SheetsSink) SetBaseURL(u string) { s.baseURL = strings.TrimRight(u, "/") }

// EnsureSheet creates the tab and its header row when either is missing, so a
// fresh spreadsheet works without manual setup.
func (s *SheetsSink) EnsureSheet(ctx context.Context) error {
	var meta struct {
		Sheets []struct {
			Properties struct {
				Title string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := s.call(ctx, http.MethodGet,
		fmt.Sprintf("/v4/spreadsheets/%s?fields=sheets.properties.title", s.spreadsheetID), nil, &meta); err != nil {
		return fmt.Errorf("loading spreadsheet metadata: %w", err)
	}

	found := false
	for _, sh := range meta.Sheets {
		if sh.Properties.Title == s.sheetName {
			found = true
			break
		}
	}
	if !found {
		s.log.Info("creating sheet tab", "sheet", s.sheetName)
		req := map[string]any{
			"requests": []any{
				map[string]any{
					"addSheet": map[string]any{
						"properties": map[string]any{"title": s.sheetName},
					},
				},
			},
		}
		if err := s.call(ctx, http.MethodPost,
			fmt.Sprintf("/v4/spreadsheets/%s:batchUpdate", s.spreadsheetID), req, nil); err != nil {
			return fmt.Errorf("creating tab %q: %w", s.sheetName, err)
		}
	}

	var head struct {
		Values [][]string `json:"values"`
	}
	if err := s.call(ctx, http.MethodGet, s.valuesPath("1:1"), nil, &head); err != nil {
		return fmt.Errorf("reading header row: %w", err)
	}
	if len(head.Values) == 0 || len(head.Values[0]) == 0 {
		s.log.Info("writing header row", "sheet", s.sheetName)
		body := map[string]any{"values": [][]string{models.Headers()}}
		if err := s.call(ctx, http.MethodPut,
			s.valuesPath("A1")+"?valueInputOption=RAW", body, nil); err != nil {
			return fmt.Errorf("writing header row: %w", err)
		}
	}
	return nil
}

func (s *SheetsSink) ListRows(ctx context.Context) ([]KeyedRow, error) {
	var col struct {
		Values [][]string `json:"values"`
	}
	if err := s.call(ctx, http.MethodGet, s.valuesPath("A:A"), nil, &col); err != nil {
		return nil, fmt.Errorf("listing date column: %w", err)
	}

	var rows []KeyedRow
	for i, v := range col.Values {
		if len(v) == 0 || v[0] == "" {
			continue
		}
		rows = append(rows, KeyedRow{Date: v[0], Position: i + 1})
	}
	return rows, nil
}

func (s *SheetsSink) WriteRows(ctx context.Context, updates []RowUpdate, appends [][]string) error {
	if len(updates) > 0 {
		data := make([]map[string]any, 0, len(updates))
		for _, u := range updates {
			data = append(data, map[string]any{
				"range":  fmt.Sprintf("'%s'!A%d", s.sheetName, u.Position),
				"values": [][]string{u.Cells},
			})
		}
		body := map[string]any{
			"valueInputOption": "USER_ENTERED",
			"data":             data,
		}
		path := fmt.Sprintf("/v4/spreadsheets/%s/values:batchUpdate", s.spreadsheetID)
		if err := s.call(ctx, http.MethodPost, path, body, nil); err != nil {
			return fmt.Errorf("updating %d rows: %w", len(updates), err)
		}
	}

	if len(appends) > 0 {
		body := map[string]any{"values": appends}
		path := s.valuesPath("A1") + ":append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS"
		if err := s.call(ctx, http.MethodPost, path, body, nil); err != nil {
			return fmt.Errorf("appending %d rows: %w", len(appends), err)
		}
	}
	return nil
}

func (s *SheetsSink) valuesPath(rangeRef string) string {
	ref := url.PathEscape(fmt.Sprintf("'%s'!%s", s.sheetName, rangeRef))
	return fmt.Sprintf("/v4/spreadsheets/%s/values/%s", s.spreadsheetID, ref)
}

// call performs one Sheets API request, retrying up to 3 times with
// exponential backoff on transport errors, rate limits and 5xx. 401 and 403
// map to *CredentialError so callers can tell a stale token apart from other
// failures; those never retry.
func (s *SheetsSink) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retryable, err := s.doCall(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (s *SheetsSink) doCall(ctx context.Context, method, path string, payload []byte, out any) (retryable bool, err error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rdr)
	if err != nil {
		return false, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, &CredentialError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return true, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return false, nil
}
