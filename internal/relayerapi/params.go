package relayerapi

import (
	"encoding/json"
	"errors"
)

// ErrMissingParameter is returned when a positional parameter a method
// requires was not supplied.
var ErrMissingParameter = errors.New("relayerapi: missing parameter")

// decodeArg unmarshals the i-th element of a JSON-RPC positional params
// array into arg.
func decodeArg(params json.RawMessage, i int, arg interface{}) error {
	var args []json.RawMessage
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return err
		}
	}
	if i >= len(args) {
		return ErrMissingParameter
	}
	return json.Unmarshal(args[i], arg)
}
