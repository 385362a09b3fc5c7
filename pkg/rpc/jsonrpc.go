package rpc

import (
	"encoding/json"

	"github.com/google/uuid"
)

const jsonRPCVersion = "2.0"

const methodSubscribe = "subscribe"

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type queryParams struct {
	Query string `json:"query"`
}

func newRequest(method string, params interface{}) request {
	return request{
		JSONRPC: jsonRPCVersion,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

// response is the envelope of every message the node sends. Subscription
// events reuse the id of the subscribe request that created them.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// idString normalizes the id to the string form used for routing. Nodes echo
// ids verbatim, but numeric ids are accepted for robustness.
func (r response) idString() string {
	var s string
	if err := json.Unmarshal(r.ID, &s); err == nil {
		return s
	}
	return string(r.ID)
}

// emptyResult reports whether the result is an acknowledgement ({} or null)
// rather than an event.
func (r response) emptyResult() bool {
	switch string(r.Result) {
	case "", "{}", "null":
		return true
	}
	return false
}
