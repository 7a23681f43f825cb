package google

import (
	"errors"
	"net/http"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/provider"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// wrapError converts Drive and OAuth failures into *domain.ProviderError.
// Drive reports some throttling as 403 with a rate-limit reason; those are
// normalised to 429.
func wrapError(op string, err error) error {
	perr := &domain.ProviderError{
		Provider: string(models.ProviderGoogle),
		Op:       op,
		Err:      err,
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		perr.Status = gerr.Code
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				perr.Status = http.StatusTooManyRequests
			}
		}
		if perr.Status == http.StatusTooManyRequests {
			perr.RetryAfter = provider.ParseRetryAfter(gerr.Header.Get("Retry-After"))
		}
		return perr
	}

	// A refresh that fails means the grant is gone
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		perr.Status = http.StatusUnauthorized
	}
	return perr
}
