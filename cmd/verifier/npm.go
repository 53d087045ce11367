package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const SCRYPT_TS_PACKAGE = "scrypt-ts"

type VersionResolver interface {
	LatestVersion(ctx context.Context, pkg string) (string, error)
}

type PackageVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RegistryClient talks to an npm compatible package registry.
type RegistryClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func RegistryClientFromEnv() (*RegistryClient, error) {
	if NPM_REGISTRY_URL == "" {
		NPM_REGISTRY_URL = "https://registry.npmjs.org"
	}
	timeout, timeoutErr := TimeoutFromSetting(NPM_REGISTRY_TIMEOUT_SECONDS, 10)
	if timeoutErr != nil {
		return nil, timeoutErr
	}
	httpClient := http.Client{Timeout: timeout}

	return &RegistryClient{
		BaseURL:    strings.TrimSuffix(NPM_REGISTRY_URL, "/"),
		HTTPClient: &httpClient,
	}, nil
}

func (client *RegistryClient) LatestVersion(ctx context.Context, pkg string) (string, error) {
	request, requestCreationErr := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/%s/latest", client.BaseURL, url.PathEscape(pkg)), nil)
	if requestCreationErr != nil {
		return "", requestCreationErr
	}
	request.Header.Add("Accept", "application/json")

	response, responseErr := client.HTTPClient.Do(request)
	if responseErr != nil {
		return "", responseErr
	}
	defer response.Body.Close()

	responseBody, responseBodyErr := io.ReadAll(response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		if responseBodyErr != nil {
			return "", fmt.Errorf("unexpected status code: %d -- could not read response body: %s", response.StatusCode, responseBodyErr.Error())
		}
		return "", fmt.Errorf("unexpected status code: %d -- response body: %s", response.StatusCode, string(responseBody))
	}

	if responseBodyErr != nil {
		return "", fmt.Errorf("could not read response body: %s", responseBodyErr.Error())
	}

	var latest PackageVersion
	if unmarshalErr := json.Unmarshal(responseBody, &latest); unmarshalErr != nil {
		return "", fmt.Errorf("could not parse response body: %s", unmarshalErr.Error())
	}
	if latest.Version == "" {
		return "", fmt.Errorf("registry returned no version for %s", pkg)
	}

	return latest.Version, nil
}
