// Package vmoutput models the output of a smart contract execution as
// reported by the debug server and decodes its base64 encoded fields.
package vmoutput

import (
	"encoding/json"
	"math/big"
)

// VMOutput is the result of one deploy or run call.
//
// ReturnData holds base64 encoded values. The ReturnDataHex,
// ReturnDataDecimal and ReturnDataString sequences are only filled in by
// Decode and are parallel to ReturnData: index i of each of them
// corresponds to ReturnData[i].
type VMOutput struct {
	ReturnData     []string
	OutputAccounts []*OutputAccount

	ReturnDataHex     []string
	ReturnDataDecimal []*big.Int
	ReturnDataString  []string

	// Extra holds the members of the JSON object not modeled above
	// (ReturnCode, GasRemaining, Logs...), they are emitted back unchanged.
	Extra map[string]json.RawMessage `json:"-"`

	decoded bool
}

// OutputAccount is an account touched by the execution.
// Address is base64 encoded until decoded, hex encoded afterwards.
type OutputAccount struct {
	Address        string
	StorageUpdates []*StorageUpdate

	Extra map[string]json.RawMessage `json:"-"`
}

// StorageUpdate is a single write to the persistent storage of an account.
// Offset is base64 encoded until decoded, hex encoded afterwards.
type StorageUpdate struct {
	Offset string
	Data   string

	DataHex string
	// DataDecimal is nil when DataHex is empty, i.e. there is no number
	// to report. That is a valid outcome, not an error.
	DataDecimal *big.Int

	Extra map[string]json.RawMessage `json:"-"`

	decoded bool
}

// Decoded reports whether the derived fields have been computed, either
// by Decode or because they were present in the JSON the value was read
// from.
func (out *VMOutput) Decoded() bool {
	return out.decoded
}
