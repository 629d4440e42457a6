package lib

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultClientTimeout = 15 * time.Second

var DefaultHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConnsPerHost: 10,
	},
	Timeout: defaultClientTimeout,
}

var BuildVersion = "dev"

var DriftnetUserAgentString = "Driftnet/" + BuildVersion + " +https://github.com/driftnetio/driftnet"

type requestDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// DecodeJSONFromRequest performs the request and unmarshals a JSON body.
// Non-200 responses are returned as errors carrying a truncated body.
func DecodeJSONFromRequest[T any](client requestDoer, request *http.Request) (T, error) {
	var result T

	if request.Header.Get("User-Agent") == "" {
		request.Header.Set("User-Agent", DriftnetUserAgentString)
	}

	response, err := client.Do(request)
	if err != nil {
		return result, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return result, err
	}

	if response.StatusCode != http.StatusOK {
		return result, statusError(response.StatusCode, request, body)
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, err
	}

	return result, nil
}

// FetchBodyFromRequest performs the request and returns the raw body, for
// payloads that are not JSON (RSS and Atom feeds).
func FetchBodyFromRequest(client requestDoer, request *http.Request) ([]byte, error) {
	if request.Header.Get("User-Agent") == "" {
		request.Header.Set("User-Agent", DriftnetUserAgentString)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		return nil, statusError(response.StatusCode, request, body)
	}

	return body, nil
}

// statusError marks server-side failures as transient so the retry layer
// backs off instead of giving up.
func statusError(code int, request *http.Request, body []byte) error {
	err := fmt.Errorf(
		"unexpected status code %d from %s, response: %s",
		code,
		request.URL,
		truncate(string(body), 256),
	)
	if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
