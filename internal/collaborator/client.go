// Package collaborator holds the HTTP clients for the user, product and
// review services. Every call is a single GET; failures are classified as
// not-found or transport errors from pkg/errors.
package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
	"github.com/utafrali/wishlist-service/pkg/httpclient"
)

// maxBodyBytes caps how much of a collaborator response is read.
const maxBodyBytes = 1 << 20

// HTTPGetter is the subset of httpclient.Client the collaborator clients need.
type HTTPGetter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// endpoint joins a base URL with escaped path segments.
func endpoint(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// fetch performs the GET and returns the payload. found is false when the
// collaborator answered 404 or with an empty or null body.
func fetch(ctx context.Context, client HTTPGetter, service, target string) (payload []byte, found bool, err error) {
	resp, err := client.Get(ctx, target)
	if err != nil {
		return nil, false, apperrors.Transport(service, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
		return nil, false, nil
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, false, httpclient.ParseResponseError(resp, service)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, false, apperrors.Transport(service, fmt.Errorf("read body: %w", err))
	}

	payload = unwrapEnvelope(bytes.TrimSpace(body))
	if isEmpty(payload) {
		return nil, false, nil
	}
	return payload, true, nil
}

// unwrapEnvelope returns the "data" member when the body uses the
// {"data": ...} response envelope, and the body itself otherwise.
func unwrapEnvelope(body []byte) []byte {
	if len(body) == 0 || body[0] != '{' {
		return body
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	data, ok := env["data"]
	if !ok {
		return body
	}
	return bytes.TrimSpace(data)
}

func isEmpty(payload []byte) bool {
	return len(payload) == 0 || bytes.Equal(payload, []byte("null"))
}

// decode unmarshals payload, reporting failures as transport errors.
func decode(service string, payload []byte, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return apperrors.Transport(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
