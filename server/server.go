// Package server contains the JSON payload primitives shared by the HTTP layer.
package server

import (
	"encoding/json"
	"go/types"
	"net/http"
)

// StrT is a struct with a single Str field, used for JSON bodies like {"str": "foo"}
type StrT struct {
	Str string `json:"str"`
}

// IntT is a struct with a single Int field, used for JSON bodies like {"int": 1}
type IntT struct {
	Int int `json:"int"`
}

// FloatT is a struct with a single F64 field, used for JSON bodies like {"f64": 3.14}
type FloatT struct {
	F64 float64 `json:"f64"`
}

// BoolT is a struct with a single Bool field, used for JSON bodies like {"bool": true}
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct containing the basic types to be encoded and sent
// to a client.  T tags which member is live.
type HumanPayload struct {
	// T holds the type of data actually contained in the payload
	T types.BasicKind

	// Bool holds a binary value
	Bool bool

	// Int holds an int
	Int int

	// Float holds a float64
	Float float64

	// String holds a string
	String string
}

// EncodeAndRespond converts the payload to JSON and writes it to w.
// Errors are written to w as HTTP 500s.
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	default:
		http.Error(w, "server: unknown payload type", http.StatusInternalServerError)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
