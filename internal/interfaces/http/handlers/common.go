// Package handlers holds the HTTP handlers of the NeedsFine API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to a status through its AppError code. Errors
// without a code, and every 5xx, are masked.
func writeAppError(w http.ResponseWriter, logger logging.Logger, err error) {
	var ae *errors.AppError
	if !errors.As(err, &ae) {
		ae = errors.Internal("internal server error")
	}
	status := errors.HTTPStatus(ae.Code)
	resp := ErrorResponse{Code: string(ae.Code), Message: ae.Message, Detail: ae.Detail}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logging.Err(err))
		resp.Message = errors.DefaultMessage(ae.Code)
		resp.Detail = ""
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads r's body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New(errors.ErrCodeEngineInputTooLarge, "request body too large")
		}
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid JSON body")
	}
	return nil
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidParam(name + " must be a non-negative integer")
	}
	return n, nil
}
