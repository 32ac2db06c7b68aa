package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
	kithttp "github.com/go-kit/kit/transport/http"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType = "application/json"

	MaxLimitSize = 100
)

// Response is the contract every HTTP response type in this service
// implements so the encoder can derive status code and headers from it.
type Response interface {
	Code() int
	Headers() map[string]string
	Empty() bool
}

type errorRes struct {
	Err string `json:"error"`
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, pkgerrors.ErrUnsupportedContentType):
		w.WriteHeader(http.StatusUnsupportedMediaType)
	case errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrValidation),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, pkgerrors.ErrInvalidQueryParams),
		errors.Is(err, pkgerrors.ErrMissingModel),
		errors.Is(err, pkgerrors.ErrUnterminatedQuote):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrNotFound),
		errors.Is(err, pkgerrors.ErrModelFileMissing):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, pkgerrors.ErrEntityExists),
		errors.Is(err, pkgerrors.ErrServerNotRunning):
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, pkgerrors.ErrNoModelSelected):
		w.WriteHeader(http.StatusPreconditionFailed)
	case errors.Is(err, pkgerrors.ErrLaunch):
		w.WriteHeader(http.StatusBadGateway)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(errorRes{Err: err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// LoggingErrorEncoder logs validation failures before delegating to enc.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if errors.Is(err, pkgerrors.ErrValidation) {
			logger.Error(err.Error())
		}
		enc(ctx, err, w)
	}
}

// ReadNumQuery reads a numeric query parameter, returning def when absent.
func ReadNumQuery[N uint64 | int64 | int](r *http.Request, key string, def N) (N, error) {
	vals := r.URL.Query()[key]
	if len(vals) == 0 {
		return def, nil
	}
	if len(vals) > 1 {
		return def, pkgerrors.ErrInvalidQueryParams
	}

	v, err := strconv.ParseInt(vals[0], 10, 64)
	if err != nil {
		return def, errors.Join(pkgerrors.ErrInvalidQueryParams, err)
	}

	return N(v), nil
}

// ReadStringQuery reads a string query parameter, returning def when absent.
func ReadStringQuery(r *http.Request, key, def string) (string, error) {
	vals := r.URL.Query()[key]
	if len(vals) == 0 {
		return def, nil
	}
	if len(vals) > 1 {
		return def, pkgerrors.ErrInvalidQueryParams
	}

	return vals[0], nil
}
