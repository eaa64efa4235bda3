package vmoutput

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// ErrAlreadyDecoded is returned by Decode for a value, or one of its
// storage updates, that was decoded before. Decoding twice would read hex
// strings as base64.
var ErrAlreadyDecoded = errors.New("vm output already decoded")

// DecodeError is returned when a field does not hold valid base64.
type DecodeError struct {
	// Field is the path of the offending field, for example
	// "OutputAccounts[0].StorageUpdates[1].Data".
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode returns a copy of out with every base64 field decoded:
//   - for each ReturnData entry the hex, decimal and string forms are
//     appended to ReturnDataHex, ReturnDataDecimal and ReturnDataString;
//   - the Address of each output account is replaced by its hex form;
//   - for each storage update DataHex and DataDecimal are set and Offset is
//     replaced by its hex form.
//
// Missing ReturnData or OutputAccounts are treated as empty. The input is
// not modified. Decode must be applied once per raw output, a second call
// returns ErrAlreadyDecoded.
func Decode(out *VMOutput) (*VMOutput, error) {
	if out == nil {
		out = &VMOutput{}
	}
	if out.decoded {
		return nil, ErrAlreadyDecoded
	}

	r := &VMOutput{
		ReturnData:        append([]string(nil), out.ReturnData...),
		ReturnDataHex:     make([]string, 0, len(out.ReturnData)),
		ReturnDataDecimal: make([]*big.Int, 0, len(out.ReturnData)),
		ReturnDataString:  make([]string, 0, len(out.ReturnData)),
		Extra:             copyExtra(out.Extra),
		decoded:           true,
	}

	for i, data := range out.ReturnData {
		b, err := decodeBase64(data)
		if err != nil {
			return nil, &DecodeError{Field: fmt.Sprintf("ReturnData[%d]", i), Value: data, Err: err}
		}
		dataHex := hex.EncodeToString(b)
		r.ReturnDataHex = append(r.ReturnDataHex, dataHex)
		r.ReturnDataDecimal = append(r.ReturnDataDecimal, parseHex(dataHex))
		r.ReturnDataString = append(r.ReturnDataString, utf8String(b))
	}

	if out.OutputAccounts != nil {
		r.OutputAccounts = make([]*OutputAccount, 0, len(out.OutputAccounts))
	}
	for i, account := range out.OutputAccounts {
		if account == nil {
			r.OutputAccounts = append(r.OutputAccounts, nil)
			continue
		}
		field := fmt.Sprintf("OutputAccounts[%d]", i)
		decodedAccount, err := decodeAccount(field, account)
		if err != nil {
			return nil, err
		}
		r.OutputAccounts = append(r.OutputAccounts, decodedAccount)
	}

	return r, nil
}

func decodeAccount(field string, account *OutputAccount) (*OutputAccount, error) {
	address, err := base64ToHex(account.Address)
	if err != nil {
		return nil, &DecodeError{Field: field + ".Address", Value: account.Address, Err: err}
	}
	r := &OutputAccount{Address: address, Extra: copyExtra(account.Extra)}
	if account.StorageUpdates != nil {
		r.StorageUpdates = make([]*StorageUpdate, 0, len(account.StorageUpdates))
	}
	for j, update := range account.StorageUpdates {
		if update == nil {
			r.StorageUpdates = append(r.StorageUpdates, nil)
			continue
		}
		if update.decoded {
			return nil, ErrAlreadyDecoded
		}
		updateField := fmt.Sprintf("%s.StorageUpdates[%d]", field, j)
		dataHex, err := base64ToHex(update.Data)
		if err != nil {
			return nil, &DecodeError{Field: updateField + ".Data", Value: update.Data, Err: err}
		}
		offset, err := base64ToHex(update.Offset)
		if err != nil {
			return nil, &DecodeError{Field: updateField + ".Offset", Value: update.Offset, Err: err}
		}
		r.StorageUpdates = append(r.StorageUpdates, &StorageUpdate{
			Offset:      offset,
			Data:        update.Data,
			DataHex:     dataHex,
			DataDecimal: parseHex(dataHex),
			Extra:       copyExtra(update.Extra),
			decoded:     true,
		})
	}
	return r, nil
}

func copyExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	r := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		r[k] = append(json.RawMessage(nil), v...)
	}
	return r
}

// decodeBase64 accepts standard base64 with or without padding.
func decodeBase64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") || len(s)%4 == 0 {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func base64ToHex(s string) (string, error) {
	b, err := decodeBase64(s)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// parseHex reads s as an unsigned big-endian integer. An empty string has
// no value and yields nil.
func parseHex(s string) *big.Int {
	if s == "" {
		return nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil
	}
	return n
}

// utf8String interprets b as UTF-8 text, invalid sequences become U+FFFD.
func utf8String(b []byte) string {
	s, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(s)
}
