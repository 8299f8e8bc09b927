package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newSheetsBackend fakes the two values endpoints the sink writes through and
// the column listing it reads.
func newSheetsBackend(t *testing.T) (*httptest.Server, *struct {
	batchUpdateBody map[string]any
	appendBody      map[string]any
}) {
	t.Helper()
	captured := &struct {
		batchUpdateBody map[string]any
		appendBody      map[string]any
	}{}

	// The range reference is part of the path segment, so route by suffix
	// rather than mux patterns.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "values:batchUpdate"):
			json.NewDecoder(r.Body).Decode(&captured.batchUpdateBody)
			w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
			json.NewDecoder(r.Body).Decode(&captured.appendBody)
			w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
			w.Write([]byte(`{"values":[["Date"],["2024-01-01"],["2024-01-02"]]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestSheetsSinkListRows(t *testing.T) {
	srv, _ := newSheetsBackend(t)
	s := NewSheetsSink(srv.Client(), "sheet-123", "Raw Data", testLogger())
	s.SetBaseURL(srv.URL)

	rows, err := s.ListRows(context.Background())
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Date != "Date" || rows[0].Position != 1 {
		t.Errorf("header row = %+v", rows[0])
	}
	if rows[2].Date != "2024-01-02" || rows[2].Position != 3 {
		t.Errorf("rows[2] = %+v", rows[2])
	}
}

func TestSheetsSinkWriteRows(t *testing.T) {
	srv, captured := newSheetsBackend(t)
	s := NewSheetsSink(srv.Client(), "sheet-123", "Raw Data", testLogger())
	s.SetBaseURL(srv.URL)

	updates := []RowUpdate{{Position: 2, Cells: row("2024-01-01")}}
	appends := [][]string{row("2024-01-03")}
	if err := s.WriteRows(context.Background(), updates, appends); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	if captured.batchUpdateBody == nil {
		t.Fatal("no batchUpdate request sent")
	}
	data, _ := captured.batchUpdateBody["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("batchUpdate data entries = %d, want 1", len(data))
	}
	entry := data[0].(map[string]any)
	if entry["range"] != "'Raw Data'!A2" {
		t.Errorf("update range = %v, want 'Raw Data'!A2", entry["range"])
	}

	if captured.appendBody == nil {
		t.Fatal("no append request sent")
	}
	values, _ := captured.appendBody["values"].([]any)
	if len(values) != 1 {
		t.Errorf("append values = %d rows, want 1", len(values))
	}
}

func TestSheetsSinkSkipsEmptyWrites(t *testing.T) {
	srv, captured := newSheetsBackend(t)
	s := NewSheetsSink(srv.Client(), "sheet-123", "Raw Data", testLogger())
	s.SetBaseURL(srv.URL)

	if err := s.WriteRows(context.Background(), nil, nil); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if captured.batchUpdateBody != nil || captured.appendBody != nil {
		t.Error("empty write still hit the API")
	}
}

func TestSheetsSinkCredentialError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	s := NewSheetsSink(srv.Client(), "sheet-123", "Raw Data", testLogger())
	s.SetBaseURL(srv.URL)

	_, err := s.ListRows(context.Background())
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Errorf("error = %v, want *CredentialError", err)
	}
}
