package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/internal/logger"
	"github.com/ruralpay/corebank/internal/services"
)

const maxBodyBytes = 1_048_576

var errEmptyBody = errors.New("empty body")

// decodeJSON reads exactly one JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must only contain a single JSON object")
	}
	return nil
}

// decodeAndValidate answers 400 itself and returns false when the body is
// unusable.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := v.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError logs engine failures that are not plain business rejections
// and writes the mapped response.
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	var event *zerolog.Event
	switch {
	case errors.Is(err, services.ErrStoreFault):
		event = log.Error()
	case errors.Is(err, services.ErrBusy):
		event = log.Warn()
	default:
		event = log.Debug()
	}
	event.Err(err).Str("code", services.ErrorCode(err)).Msg("Request rejected")
	services.SendEngineError(w, err)
}
