package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
)

// DownstreamErrorResponse mirrors the httputil error envelope. It is used to
// pull a readable message out of a collaborator's error body when one exists.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. A 404 becomes a not-found error for serviceName; any
// other status is a transport failure.
//
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return apperrors.TransportStatus(serviceName, resp.StatusCode,
			fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	detail := strings.TrimSpace(string(bodyBytes))
	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		detail = downstream.Error.Message
	}

	if resp.StatusCode == http.StatusNotFound {
		id := detail
		if resp.Request != nil && resp.Request.URL != nil {
			id = resp.Request.URL.Path
		}
		return apperrors.NotFound(serviceName, id)
	}

	if detail == "" {
		return apperrors.TransportStatus(serviceName, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}
	return apperrors.TransportStatus(serviceName, resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, detail))
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
