package api

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"girinhas/domain/entities"
)

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: message, Code: code})
}

// writeDomainError maps a domain error kind onto an HTTP status. Expected
// outcomes keep their user-facing message; infrastructure faults are logged
// and hidden behind a generic 503.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := entities.KindOf(err)

	var status int
	switch kind {
	case entities.ErrorKindInsufficientFunds, entities.ErrorKindSelfClaim, entities.ErrorKindPriceMismatch:
		status = http.StatusUnprocessableEntity
	case entities.ErrorKindInvalidCode:
		status = http.StatusForbidden
	case entities.ErrorKindStaleState:
		status = http.StatusConflict
	case entities.ErrorKindNotFound:
		status = http.StatusNotFound
	default:
		log.WithError(err).Error("Request failed")
		writeError(w, http.StatusServiceUnavailable, string(entities.ErrorKindUnavailable), "service temporarily unavailable")
		return
	}

	writeError(w, status, string(kind), err.Error())
}
