// Package handlers implementa los endpoints HTTP de la API.
// Cada handler es un struct con sus dependencias que expone
// Register(r chi.Router).
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperr "github.com/dropDatabas3/authkit/internal/http/errors"
)

const maxJSONBody = 64 << 10 // 64KB

// readStrictJSON decodifica el body con reglas estrictas: content type
// JSON, tamaño acotado, sin campos desconocidos, sin datos extra.
// Escribe el error y retorna false si algo falla.
func readStrictJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(ct, "application/json") {
		apperr.Write(w, apperr.ErrBadRequest.WithDetail("se requiere Content-Type: application/json"))
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			apperr.Write(w, apperr.ErrInvalidJSON.WithDetail("body vacío"))
		} else {
			apperr.Write(w, apperr.ErrInvalidJSON)
		}
		return false
	}
	if dec.More() {
		apperr.Write(w, apperr.ErrInvalidJSON.WithDetail("sobran datos en el body"))
		return false
	}
	return true
}

// writeJSON serializa una respuesta exitosa.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
