package server

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/httputil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errorBody is the JSON error payload of every endpoint and "error" event.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func newErrorBody(err error) errorBody {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errorBody{Code: code, Message: errors.UserMessage(err)}
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidTranscript, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidDirection, errors.ErrCodeInvalidFilename, errors.ErrCodeInvalidNote:
		return http.StatusBadRequest
	case errors.ErrCodeTooDeep:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeDocumentNotFound, errors.ErrCodeKeyPointNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeModel, errors.ErrCodeModelSchema, errors.ErrCodeUnauthorized, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeModelUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]errorBody{"error": newErrorBody(err)})
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}

// sendEvent marshals v and writes it as one event.
func sendEvent(ew *httputil.EventWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ew.Send(name, data)
}

// sendError reports err on an event stream that has already started.
func sendError(ew *httputil.EventWriter, err error) {
	_ = sendEvent(ew, "error", newErrorBody(err))
}
