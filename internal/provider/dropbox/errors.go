package dropbox

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
	"golang.org/x/oauth2"
)

// wrapError converts SDK failures into *domain.ProviderError.
// The SDK returns its typed errors by value; pointers are accepted too.
func wrapError(op string, err error) error {
	perr := &domain.ProviderError{
		Provider: string(models.ProviderDropbox),
		Op:       op,
		Err:      err,
	}

	var (
		rateLimit    auth.RateLimitAPIError
		rateLimitPtr *auth.RateLimitAPIError
		authErr      auth.AuthAPIError
		authErrPtr   *auth.AuthAPIError
		internal     dropbox.SDKInternalError
		retrieve     *oauth2.RetrieveError
	)

	switch {
	case errors.As(err, &rateLimit):
		perr.Status = http.StatusTooManyRequests
		perr.RetryAfter = retryAfter(rateLimit.RateLimitError)
	case errors.As(err, &rateLimitPtr):
		perr.Status = http.StatusTooManyRequests
		perr.RetryAfter = retryAfter(rateLimitPtr.RateLimitError)
	case errors.As(err, &authErr), errors.As(err, &authErrPtr), errors.As(err, &retrieve):
		perr.Status = http.StatusUnauthorized
	case errors.As(err, &internal):
		perr.Status = internal.StatusCode
	case strings.Contains(err.Error(), "not_found"):
		// Endpoint errors (409) carry the reason only in the summary
		perr.Status = http.StatusNotFound
	}
	return perr
}

func retryAfter(rl *auth.RateLimitError) time.Duration {
	if rl == nil {
		return 0
	}
	return time.Duration(rl.RetryAfter) * time.Second
}
