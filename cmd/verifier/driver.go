package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response holds the raw outcome of a single request. The driver never
// interprets it.
type Response struct {
	StatusCode int
	Text       string
}

// Driver sends contract submissions to a verification server and prints the
// raw responses to Out.
type Driver struct {
	HTTPClient *http.Client
	Out        io.Writer
}

func DriverFromEnv(out io.Writer) (*Driver, error) {
	timeout, timeoutErr := TimeoutFromSetting(SCRYPT_VERIFIER_API_TIMEOUT_SECONDS, 30)
	if timeoutErr != nil {
		return nil, timeoutErr
	}
	httpClient := http.Client{Timeout: timeout}

	return &Driver{
		HTTPClient: &httpClient,
		Out:        out,
	}, nil
}

func (driver *Driver) do(ctx context.Context, method, url string, body io.Reader) (Response, error) {
	var result Response

	request, requestCreationErr := http.NewRequestWithContext(ctx, method, url, body)
	if requestCreationErr != nil {
		return result, requestCreationErr
	}
	request.Header.Add("Content-Type", "application/json")

	response, responseErr := driver.HTTPClient.Do(request)
	if responseErr != nil {
		return result, responseErr
	}
	defer response.Body.Close()

	result.StatusCode = response.StatusCode
	responseBody, responseBodyErr := io.ReadAll(response.Body)
	if responseBodyErr != nil {
		return result, fmt.Errorf("could not read response body: %s", responseBodyErr.Error())
	}
	result.Text = string(responseBody)

	return result, nil
}

// Submit POSTs the submission to the locator URL.
func (driver *Driver) Submit(ctx context.Context, locator Locator, submission Submission) (Response, error) {
	requestBodyBytes, requestBodyBytesErr := json.Marshal(submission)
	if requestBodyBytesErr != nil {
		return Response{}, requestBodyBytesErr
	}
	return driver.do(ctx, http.MethodPost, locator.URL(), bytes.NewBuffer(requestBodyBytes))
}

// Query GETs the previously computed result for the locator.
func (driver *Driver) Query(ctx context.Context, locator Locator) (Response, error) {
	return driver.do(ctx, http.MethodGet, locator.URL(), nil)
}

func (driver *Driver) print(method string, response Response) {
	fmt.Fprintf(driver.Out, "%s response status code: %d\n", method, response.StatusCode)
	fmt.Fprintf(driver.Out, "%s response text: %s\n", method, response.Text)
}

// Run submits the code, waits for delay and then queries the same URL,
// printing status and body of both responses. Any status is printed as is;
// only transport failures are returned.
func (driver *Driver) Run(ctx context.Context, locator Locator, submission Submission, delay time.Duration, query bool) error {
	postResponse, postErr := driver.Submit(ctx, locator, submission)
	if postErr != nil {
		return postErr
	}
	driver.print(http.MethodPost, postResponse)

	if !query {
		return nil
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	getResponse, getErr := driver.Query(ctx, locator)
	if getErr != nil {
		return getErr
	}
	driver.print(http.MethodGet, getResponse)

	return nil
}
