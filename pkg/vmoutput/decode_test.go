package vmoutput

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestDecodeReturnData(t *testing.T) {
	in := &VMOutput{ReturnData: []string{"AQ==", "aGVsbG8=", "", "AAE="}}

	out, err := Decode(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tgtHex := []string{"01", "68656c6c6f", "", "0001"}
	tgtString := []string{"\x01", "hello", "", "\x00\x01"}
	tgtDecimal := []*big.Int{big.NewInt(1), big.NewInt(0x68656c6c6f), nil, big.NewInt(1)}

	if len(out.ReturnDataHex) != len(tgtHex) || len(out.ReturnDataString) != len(tgtString) || len(out.ReturnDataDecimal) != len(tgtDecimal) {
		t.Fatalf("derived sequences do not match ReturnData: %#v %#v %#v", out.ReturnDataHex, out.ReturnDataString, out.ReturnDataDecimal)
	}
	for i := range tgtHex {
		if out.ReturnDataHex[i] != tgtHex[i] {
			t.Errorf("ReturnDataHex[%d]: expected %q, got %q", i, tgtHex[i], out.ReturnDataHex[i])
		}
		if out.ReturnDataString[i] != tgtString[i] {
			t.Errorf("ReturnDataString[%d]: expected %q, got %q", i, tgtString[i], out.ReturnDataString[i])
		}
		switch {
		case tgtDecimal[i] == nil && out.ReturnDataDecimal[i] != nil:
			t.Errorf("ReturnDataDecimal[%d]: expected nil, got %v", i, out.ReturnDataDecimal[i])
		case tgtDecimal[i] != nil && (out.ReturnDataDecimal[i] == nil || out.ReturnDataDecimal[i].Cmp(tgtDecimal[i]) != 0):
			t.Errorf("ReturnDataDecimal[%d]: expected %v, got %v", i, tgtDecimal[i], out.ReturnDataDecimal[i])
		}
	}
}

func TestDecodeHexMatchesBytes(t *testing.T) {
	inputs := [][]byte{
		{0xff},
		{0x00, 0x00, 0x10},
		[]byte("some longer text with spaces"),
		{0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad, 0xbe, 0xef, 0x01},
	}
	for _, b := range inputs {
		out, err := Decode(&VMOutput{ReturnData: []string{base64.StdEncoding.EncodeToString(b)}})
		if err != nil {
			t.Fatalf("%x: %v", b, err)
		}
		if want := hex.EncodeToString(b); out.ReturnDataHex[0] != want {
			t.Errorf("%x: expected hex %q, got %q", b, want, out.ReturnDataHex[0])
		}
		if want := new(big.Int).SetBytes(b); out.ReturnDataDecimal[0].Cmp(want) != 0 {
			t.Errorf("%x: expected decimal %v, got %v", b, want, out.ReturnDataDecimal[0])
		}
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	out, err := Decode(&VMOutput{ReturnData: []string{base64.StdEncoding.EncodeToString([]byte{'a', 0xff, 'b'})}})
	if err != nil {
		t.Fatal(err)
	}
	if out.ReturnDataString[0] != "a\uFFFDb" {
		t.Errorf("expected replacement character, got %q", out.ReturnDataString[0])
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, in := range []*VMOutput{nil, {}, {ReturnData: []string{}, OutputAccounts: []*OutputAccount{}}} {
		out, err := Decode(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.ReturnDataHex == nil || out.ReturnDataDecimal == nil || out.ReturnDataString == nil {
			t.Fatalf("expected empty, non-nil derived sequences, got %#v", out)
		}
		if len(out.ReturnDataHex)+len(out.ReturnDataDecimal)+len(out.ReturnDataString) != 0 {
			t.Fatalf("expected empty derived sequences, got %#v", out)
		}
		if len(out.OutputAccounts) != 0 {
			t.Fatalf("expected no accounts, got %#v", out.OutputAccounts)
		}
	}
}

func TestDecodeAccounts(t *testing.T) {
	in := &VMOutput{
		OutputAccounts: []*OutputAccount{
			{
				Address: "AAAAAAAAAAAFAB4=",
				StorageUpdates: []*StorageUpdate{
					{Offset: "Y291bnRlcg==", Data: "AAE="},
					{Offset: "AQ==", Data: ""},
				},
			},
			{Address: "/w=="},
		},
	}

	out, err := Decode(in)
	if err != nil {
		t.Fatal(err)
	}

	if got := out.OutputAccounts[0].Address; got != "000000000000000005001e" {
		t.Errorf("unexpected address %q", got)
	}
	if got := out.OutputAccounts[1].Address; got != "ff" {
		t.Errorf("unexpected address %q", got)
	}
	if out.OutputAccounts[1].StorageUpdates != nil {
		t.Errorf("expected no storage updates, got %#v", out.OutputAccounts[1].StorageUpdates)
	}

	u := out.OutputAccounts[0].StorageUpdates[0]
	if u.DataHex != "0001" {
		t.Errorf("expected DataHex 0001, got %q", u.DataHex)
	}
	if u.DataDecimal == nil || u.DataDecimal.Int64() != 1 {
		t.Errorf("expected DataDecimal 1, got %v", u.DataDecimal)
	}
	if u.Offset != hex.EncodeToString([]byte("counter")) {
		t.Errorf("unexpected offset %q", u.Offset)
	}
	if u.Data != "AAE=" {
		t.Errorf("Data should be left as is, got %q", u.Data)
	}

	u = out.OutputAccounts[0].StorageUpdates[1]
	if u.DataHex != "" || u.DataDecimal != nil {
		t.Errorf("expected no value for empty data, got %q %v", u.DataHex, u.DataDecimal)
	}
	if u.Offset != "01" {
		t.Errorf("unexpected offset %q", u.Offset)
	}
}

func TestDecodeDoesNotMutateInput(t *testing.T) {
	in := &VMOutput{
		ReturnData:     []string{"AQ=="},
		OutputAccounts: []*OutputAccount{{Address: "AQ==", StorageUpdates: []*StorageUpdate{{Offset: "AQ==", Data: "AQ=="}}}},
	}
	if _, err := Decode(in); err != nil {
		t.Fatal(err)
	}
	if in.ReturnDataHex != nil || in.Decoded() {
		t.Errorf("input was decoded in place: %#v", in)
	}
	if in.OutputAccounts[0].Address != "AQ==" || in.OutputAccounts[0].StorageUpdates[0].Offset != "AQ==" {
		t.Errorf("input account was modified: %#v", in.OutputAccounts[0])
	}
	if in.OutputAccounts[0].StorageUpdates[0].DataHex != "" {
		t.Errorf("input storage update was modified: %#v", in.OutputAccounts[0].StorageUpdates[0])
	}
}

func TestDecodeTwice(t *testing.T) {
	out, err := Decode(&VMOutput{ReturnData: []string{"AQ=="}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(out); err != ErrAlreadyDecoded {
		t.Fatalf("expected ErrAlreadyDecoded, got %v", err)
	}
}

func TestDecodeCopiesExtra(t *testing.T) {
	in := &VMOutput{
		Extra:          map[string]json.RawMessage{"ReturnCode": json.RawMessage("0")},
		OutputAccounts: []*OutputAccount{{Address: "AQ==", Extra: map[string]json.RawMessage{"Nonce": json.RawMessage("3")}}},
	}
	out, err := Decode(in)
	if err != nil {
		t.Fatal(err)
	}
	out.Extra["ReturnCode"] = json.RawMessage("1")
	out.Extra["GasRemaining"] = json.RawMessage("10")
	out.OutputAccounts[0].Extra["Nonce"] = json.RawMessage("4")

	if string(in.Extra["ReturnCode"]) != "0" || len(in.Extra) != 1 {
		t.Errorf("input extra members were modified: %v", in.Extra)
	}
	if string(in.OutputAccounts[0].Extra["Nonce"]) != "3" {
		t.Errorf("input account extra members were modified: %v", in.OutputAccounts[0].Extra)
	}
}

func TestDecodeStorageUpdateTwice(t *testing.T) {
	var in VMOutput
	data := `{"ReturnData": [], "OutputAccounts": [{"Address": "AQ==", "StorageUpdates": [{"Offset": "01", "Data": "AQ==", "DataHex": "01", "DataDecimal": 1}]}]}`
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		t.Fatal(err)
	}
	if in.Decoded() {
		t.Fatal("output without ReturnDataHex reported as decoded")
	}
	if _, err := Decode(&in); err != ErrAlreadyDecoded {
		t.Fatalf("expected ErrAlreadyDecoded, got %v", err)
	}
}

func TestDecodeUnpaddedBase64(t *testing.T) {
	out, err := Decode(&VMOutput{ReturnData: []string{"AAE"}})
	if err != nil {
		t.Fatal(err)
	}
	if out.ReturnDataHex[0] != "0001" {
		t.Errorf("expected 0001, got %q", out.ReturnDataHex[0])
	}
}

func TestDecodeMalformed(t *testing.T) {
	testCases := []struct {
		in    *VMOutput
		field string
	}{
		{&VMOutput{ReturnData: []string{"AQ==", "not base64!"}}, "ReturnData[1]"},
		{&VMOutput{OutputAccounts: []*OutputAccount{{Address: "%%"}}}, "OutputAccounts[0].Address"},
		{&VMOutput{OutputAccounts: []*OutputAccount{{Address: "AQ==", StorageUpdates: []*StorageUpdate{{Offset: "AQ==", Data: "AQ=="}, {Offset: "AQ==", Data: "A"}}}}}, "OutputAccounts[0].StorageUpdates[1].Data"},
		{&VMOutput{OutputAccounts: []*OutputAccount{{Address: "AQ==", StorageUpdates: []*StorageUpdate{{Offset: "?", Data: "AQ=="}}}}}, "OutputAccounts[0].StorageUpdates[0].Offset"},
	}

	for _, tc := range testCases {
		_, err := Decode(tc.in)
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Errorf("%s: expected a DecodeError, got %v", tc.field, err)
			continue
		}
		if derr.Field != tc.field {
			t.Errorf("expected field %q, got %q", tc.field, derr.Field)
		}
	}
}
