package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/ndajr/tinyurl-go/internal/core"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrInternal    = errors.New("internal error")
	ErrUnavailable = errors.New("storage temporarily unavailable, please try again")
)

// httpError is the custom error structure for HTTP responses.
type httpError struct {
	Message string `json:"message"`
}

// toStatus maps domain errors onto gRPC codes so that HTTP statuses come from
// the gateway's code table. Details of internal failures are not exposed.
func toStatus(err error) *status.Status {
	switch {
	case errors.Is(err, core.ErrInvalidURL), errors.Is(err, core.ErrInvalidCodeShape):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUserNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, core.ErrUserExists):
		return status.New(codes.AlreadyExists, err.Error())
	case errors.Is(err, core.ErrSpaceExhausted):
		return status.New(codes.Internal, core.ErrSpaceExhausted.Error())
	case errors.Is(err, core.ErrMalformedPayload):
		return status.New(codes.DataLoss, ErrInternal.Error())
	case errors.Is(err, core.ErrStorageFailure):
		return status.New(codes.Unavailable, ErrUnavailable.Error())
	default:
		if st, ok := status.FromError(err); ok {
			return st
		}
		return status.New(codes.Internal, ErrInternal.Error())
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	writeStatus(w, logger, toStatus(err))
}

func writeStatus(w http.ResponseWriter, logger *slog.Logger, st *status.Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(runtime.HTTPStatusFromCode(st.Code()))

	buf, marshalErr := json.Marshal(httpError{Message: st.Message()})
	if marshalErr != nil {
		logger.Error("failed to marshal http error response body", "error", marshalErr)
		return
	}

	if _, writeErr := w.Write(buf); writeErr != nil {
		logger.Error("failed to write http error response", "error", writeErr)
	}
}

// NewCustomHTTPErrorHandler renders gateway errors (e.g. unmatched routes) with
// the same body as handler errors.
func NewCustomHTTPErrorHandler(logger *slog.Logger) runtime.ErrorHandlerFunc {
	return func(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, err error) {
		writeStatus(w, logger, status.Convert(err))
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write http response", "error", err)
	}
}
