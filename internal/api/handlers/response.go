package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an error to its status code
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, "Not found")
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, messageOf(err))
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, messageOf(err))
	default:
		observability.LoggerFromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func messageOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func respondWithEntity(w http.ResponseWriter, r *http.Request, statusCode int, e entities.Entity) {
	body, err := entities.PublicMap(e)
	if err != nil {
		respondWithAppError(w, r, apperrors.NewInternalError("failed to render entity", err))
		return
	}
	respondWithJSON(w, statusCode, body)
}

func respondWithEntities(w http.ResponseWriter, r *http.Request, list []entities.Entity) {
	body := make([]map[string]any, 0, len(list))
	for _, e := range list {
		m, err := entities.PublicMap(e)
		if err != nil {
			respondWithAppError(w, r, apperrors.NewInternalError("failed to render entity", err))
			return
		}
		body = append(body, m)
	}
	respondWithJSON(w, http.StatusOK, body)
}

// decodeInput reads a JSON object body into the payload type of kind.
// Anything but a non-empty JSON object is "Not a JSON"; a field of the wrong
// type is "Invalid <field>". Unknown keys are ignored.
func decodeInput(r *http.Request, kind entities.Kind) (entities.Input, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewValidationError("Not a JSON")
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil || len(object) == 0 {
		return nil, apperrors.NewValidationError("Not a JSON")
	}

	in := kind.NewInput()
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, apperrors.NewValidationError("Invalid " + typeErr.Field)
		}
		return nil, apperrors.NewValidationError("Not a JSON")
	}
	return in, nil
}
