package apierr

import (
	"encoding/json"
	"net/http"
)

type body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Write renders err as a JSON error body. Server errors never echo the
// underlying cause.
func Write(w http.ResponseWriter, err error) {
	ae := As(err)
	msg := ae.Error()
	if ae.Status >= 500 {
		msg = http.StatusText(ae.Status)
	}
	code := ae.Code
	if code == "" {
		code = http.StatusText(ae.Status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(body{Error: code, Message: msg})
}
