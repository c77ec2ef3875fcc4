/*
Package server implements msgpack IPC for symptom prediction services.

The server reads a stream of msgpack maps from stdin and writes one msgpack map per request to stdout.
Messages are processed synchronously with timing info included in responses.
Logs never go to stdout.

# IPC

Right after start the server writes a ready message:

	{"status": "ready"}

Every request carries an "id" and an "op". A missing id is replaced with a generated UUID so responses can still be correlated.

Prediction requests:

	{"id": "req_001", "op": "predict", "symptoms": ["itching", "skin rash"], "top_n": 3, "threshold": 0.3}

The server responds with ranked diseases, the symptoms behind them and a status of ok, no_match or below_confidence:

	{"id": "req_001", "status": "ok", "predictions": [{"disease": "Fungal infection", "probability": 0.91, ...}], "matched": [...], "c": 1, "t": 412}

Suggestion requests complete partially typed symptoms:

	{"id": "req_002", "op": "suggest", "partial": "skin", "limit": 5}
	{"id": "req_002", "s": [{"w": "skin rash", "r": 1}, {"w": "skin peeling", "r": 2}], "c": 2, "t": 95}

"health" answers with {"status": "ok"} and "info" reports vocabulary sizes, active matching stages and the request count.

Failures use a small error message with an HTTP-like code: 400 for invalid requests, 500 when prediction fails.

	{"id": "req_003", "e": "Missing 'symptoms' parameter", "c": 400}

Times are in microseconds.
*/
package server

import (
	"github.com/bastiangx/symptoserve/pkg/match"
	"github.com/bastiangx/symptoserve/pkg/predict"
)

const (
	OpPredict = "predict"
	OpSuggest = "suggest"
	OpHealth  = "health"
	OpInfo    = "info"
)

// Request is the union of every operation's fields.
type Request struct {
	ID        string   `msgpack:"id"`
	Op        string   `msgpack:"op"`
	Symptoms  []string `msgpack:"symptoms,omitempty"`
	TopN      int      `msgpack:"top_n,omitempty"`
	Threshold *float64 `msgpack:"threshold,omitempty"`
	Partial   string   `msgpack:"partial,omitempty"`
	Limit     int      `msgpack:"limit,omitempty"`
}

// PredictResponse - prediction response
type PredictResponse struct {
	ID          string               `msgpack:"id"`
	Status      string               `msgpack:"status"`
	Predictions []predict.Prediction `msgpack:"predictions"`
	Matched     []match.Match        `msgpack:"matched"`
	Count       int                  `msgpack:"c"`
	TimeTaken   int64                `msgpack:"t"`
}

// SymptomSuggestion - minimal suggestion response
type SymptomSuggestion struct {
	Symptom string `msgpack:"w"`
	Rank    uint16 `msgpack:"r"`
}

// SuggestResponse - suggestion response
type SuggestResponse struct {
	ID          string              `msgpack:"id"`
	Suggestions []SymptomSuggestion `msgpack:"s"`
	Count       int                 `msgpack:"c"`
	TimeTaken   int64               `msgpack:"t"`
}

// StatusResponse answers health checks and signals readiness.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// InfoResponse describes the loaded model.
type InfoResponse struct {
	ID         string   `msgpack:"id"`
	Symptoms   int      `msgpack:"symptoms"`
	Diseases   int      `msgpack:"diseases"`
	Strategies []string `msgpack:"strategies"`
	Requests   int      `msgpack:"requests"`
}

// ErrorResponse holds basic error information for any request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
