package verifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryLatestVersion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/scrypt-ts/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"scrypt-ts","version":"1.3.4","description":"..."}`))
	}))
	defer ts.Close()

	client := &RegistryClient{BaseURL: ts.URL, HTTPClient: ts.Client()}
	version, err := client.LatestVersion(context.Background(), SCRYPT_TS_PACKAGE)
	require.NoError(t, err)
	require.Equal(t, "1.3.4", version)
}

func TestRegistryUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer ts.Close()

	client := &RegistryClient{BaseURL: ts.URL, HTTPClient: ts.Client()}
	_, err := client.LatestVersion(context.Background(), "missing-package")
	require.EqualError(t, err, "unexpected status code: 404 -- response body: not found\n")
}

func TestRegistryMissingVersion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"scrypt-ts"}`))
	}))
	defer ts.Close()

	client := &RegistryClient{BaseURL: ts.URL, HTTPClient: ts.Client()}
	_, err := client.LatestVersion(context.Background(), SCRYPT_TS_PACKAGE)
	require.Error(t, err)
}
