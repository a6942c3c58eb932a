package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"legalgen/internal/util"
	"legalgen/services/api/internal/app"
)

const msgInternalError = "An error occurred while processing your request."

// envelope is the body of every API response.
type envelope struct {
	Message    string `json:"message"`
	Data       any    `json:"data"`
	StatusCode int    `json:"statusCode"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Message: message, Data: data, StatusCode: status})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeData(w, status, msg, nil)
}

// writeAppError maps application errors onto HTTP statuses. Unclassified
// errors are logged and reported with a generic message.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeData(w, http.StatusBadRequest, verr.Error(), verr.Problems)
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrResearchBookNotFound),
		errors.Is(err, app.ErrLegalInformationNotFound),
		errors.Is(err, app.ErrDocumentNotFound),
		errors.Is(err, app.ErrInvalidResetToken):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrStorageDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}
