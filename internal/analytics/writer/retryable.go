package writer

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var retryableHTTP = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var retryableGRPC = map[codes.Code]bool{
	codes.Aborted:           true,
	codes.DeadlineExceeded:  true,
	codes.Internal:          true,
	codes.ResourceExhausted: true,
	codes.Unavailable:       true,
}

// isRetryableBigQueryError reports whether retrying the same insert could
// succeed. Aggregated errors are retryable only if every member is.
func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi *cbigquery.MultiError
	if errors.As(err, &multi) && multi != nil {
		return allRetryable(*multi)
	}
	var putErr *cbigquery.PutMultiError
	if errors.As(err, &putErr) && putErr != nil {
		var inner []error
		for _, rowErr := range *putErr {
			inner = append(inner, rowErr.Errors...)
		}
		return allRetryable(inner)
	}
	var rowErr *cbigquery.RowInsertionError
	if errors.As(err, &rowErr) && rowErr != nil {
		return allRetryable(rowErr.Errors)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableHTTP[apiErr.Code]
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return retryableGRPC[st.Code()]
	}
	return false
}

func allRetryable[E ~[]error](errs E) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !isRetryableBigQueryError(e) {
			return false
		}
	}
	return true
}
