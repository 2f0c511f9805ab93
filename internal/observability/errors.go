package observability

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/baxromumarov/jobscout/internal/render"
)

const (
	ErrorNetwork    = "network"
	ErrorParsing    = "parsing"
	ErrorInvalidURL = "invalid_url"
	ErrorRateLimit  = "rate_limit"
	ErrorConfig     = "config"
	ErrorUnknown    = "unknown"
)

func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var fe *render.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Status == http.StatusTooManyRequests:
			return ErrorRateLimit
		case fe.Status >= 500:
			return ErrorNetwork
		default:
			return ErrorNetwork
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorNetwork
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
		return ErrorParsing
	}
	return ErrorUnknown
}
