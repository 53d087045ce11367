package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type journalRequest struct {
	Path          string
	Authorization string
	Body          struct {
		Title       string   `json:"title"`
		Content     string   `json:"content"`
		Tags        []string `json:"tags"`
		ContextType string   `json:"context_type"`
		ContextID   string   `json:"context_id"`
		ContextURL  string   `json:"context_url"`
	}
}

func TestJournalReporterReport(t *testing.T) {
	var received []journalRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req journalRequest
		req.Path = r.Method + " " + r.URL.Path
		req.Authorization = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&req.Body)
		received = append(received, req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	t.Setenv("BUGOUT_SPIRE_URL", ts.URL)
	previousToken := BUGOUT_ACCESS_TOKEN
	BUGOUT_ACCESS_TOKEN = "journal-token"
	defer func() { BUGOUT_ACCESS_TOKEN = previousToken }()

	reporter, err := InitJournalReporter("j1")
	require.NoError(t, err)

	locator := Locator{Network: "test", ScriptHash: testScriptHash, Version: "1.3.0"}
	entry := NewEntry(locator, Submission{Code: "contract"}, true)
	entry.ID = 7
	require.NoError(t, reporter.Report(context.Background(), entry))

	require.Len(t, received, 1)
	req := received[0]
	require.Equal(t, "POST /journals/j1/entries", req.Path)
	require.Equal(t, "Bearer journal-token", req.Authorization)
	require.Equal(t, "scrypt-verifier entry: "+testScriptHash, req.Body.Title)
	require.Equal(t, []string{
		"type:entry",
		"network:test",
		"version:1.3.0",
		"verified:true",
		"scrypt_verifier_version:" + SCRYPT_VERIFIER_VERSION,
	}, req.Body.Tags)
	require.Equal(t, "scrypt-verifier", req.Body.ContextType)
	require.Equal(t, "7", req.Body.ContextID)
	require.Equal(t, "/test/"+testScriptHash, req.Body.ContextURL)
	require.Contains(t, req.Body.Content, "Source files: 1")
}

func TestInitJournalReporterRequiresToken(t *testing.T) {
	previousToken := BUGOUT_ACCESS_TOKEN
	BUGOUT_ACCESS_TOKEN = ""
	defer func() { BUGOUT_ACCESS_TOKEN = previousToken }()

	_, err := InitJournalReporter("j1")
	require.Error(t, err)
}
