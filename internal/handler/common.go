package handler

import (
	"encoding/json"
	"net/http"

	"algo-transfers/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	writeResponse(w, statusCode, Response{Data: data})
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	writeResponse(w, appErr.HTTPStatus(), Response{Error: toError(appErr)})
}

// writeResult answers with both the data and the error, for outcomes such as a
// submitted but unrecorded transaction where the caller needs the id.
func writeResult(w http.ResponseWriter, data interface{}, appErr *errors.AppError) {
	writeResponse(w, appErr.HTTPStatus(), Response{Data: data, Error: toError(appErr)})
}

// writeServiceError maps any error to the envelope, hiding non-AppErrors behind InternalError.
func writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok {
		writeError(w, appErr)
		return
	}
	writeError(w, errors.Wrap(errors.InternalError, "an unexpected error occurred", err))
}

func toError(appErr *errors.AppError) *Error {
	return &Error{
		Code:     string(appErr.Code),
		Category: string(appErr.Category),
		Message:  appErr.Message,
		Details:  appErr.Details,
	}
}

func writeResponse(w http.ResponseWriter, statusCode int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
