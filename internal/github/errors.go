package github

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	prerrors "prrebase.dev/prrebase/internal/errors"
)

// classifyAPIError maps a go-github error to an error kind. ctx is the
// caller's context: a deadline that is not the caller's is a timed-out request.
func classifyAPIError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return prerrors.New(prerrors.KindCanceled, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return prerrors.New(prerrors.KindFetchFailure, op, err)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return prerrors.NewRateLimited(op, time.Until(rateErr.Rate.Reset.Time), err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return prerrors.NewRateLimited(op, abuseErr.GetRetryAfter(), err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return prerrors.New(prerrors.KindAuthFailure, op, err)
		case status == http.StatusNotFound:
			return prerrors.New(prerrors.KindNotFound, op, err)
		case status == http.StatusTooManyRequests:
			return prerrors.NewRateLimited(op, parseRetryAfter(respErr.Response.Header.Get("Retry-After")), err)
		case status >= 500:
			return prerrors.New(prerrors.KindFetchFailure, op, err)
		}
		return prerrors.New(prerrors.KindUnknownFailure, op, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return prerrors.New(prerrors.KindFetchFailure, op, err)
	}

	return prerrors.New(prerrors.KindUnknownFailure, op, err)
}

// parseRetryAfter accepts delay-seconds or an HTTP date
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
