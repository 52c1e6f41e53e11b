package services

import (
	"encoding/json"
	"net/http"
)

// Message codes surfaced by the HTTP endpoints.
const (
	MsgSuccess             = "SUCCESS"
	MsgInvalidInput        = "INVALID_INPUT"
	MsgTypeError           = "TYPE_ERROR"
	MsgKeyError            = "KEY_ERROR"
	MsgOutOfRange          = "OUT_OF_RANGE"
	MsgWrongRequest        = "WRONG_REQUEST"
	MsgInvalidInvestmentID = "INVALID_INVESTMENT_ID"
	MsgInvalidToken        = "INVALID_TOKEN"
	MsgInvalidUser         = "INVALID_USER"
)

// SendMessage writes a {"message": code} JSON body with the given status.
func SendMessage(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// SendJSON writes an arbitrary JSON body with the given status.
func SendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
