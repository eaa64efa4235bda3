package vmoutput

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	vmOutputMembers      = members("ReturnData", "ReturnDataHex", "ReturnDataDecimal", "ReturnDataString", "OutputAccounts")
	outputAccountMembers = members("Address", "StorageUpdates")
	storageUpdateMembers = members("Offset", "Data", "DataHex", "DataDecimal")
)

func members(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, name := range names {
		m[name] = true
	}
	return m
}

// UnmarshalJSON implements json.Unmarshaler. Members that are not modeled
// by VMOutput are kept in Extra.
func (out *VMOutput) UnmarshalJSON(data []byte) error {
	type plain VMOutput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*out = VMOutput(p)
	out.Extra = extraMembers(data, vmOutputMembers)
	out.decoded = gjson.GetBytes(data, "ReturnDataHex").Exists()
	return nil
}

// MarshalJSON implements json.Marshaler. The derived ReturnData sequences
// are only emitted for decoded values.
func (out VMOutput) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if out.ReturnData != nil {
		w.set("ReturnData", out.ReturnData)
	}
	if out.decoded {
		w.set("ReturnDataHex", out.ReturnDataHex)
		w.set("ReturnDataDecimal", out.ReturnDataDecimal)
		w.set("ReturnDataString", out.ReturnDataString)
	}
	if out.OutputAccounts != nil {
		w.set("OutputAccounts", out.OutputAccounts)
	}
	w.setExtra(out.Extra)
	return w.bytes()
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *OutputAccount) UnmarshalJSON(data []byte) error {
	type plain OutputAccount
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = OutputAccount(p)
	a.Extra = extraMembers(data, outputAccountMembers)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a OutputAccount) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.set("Address", a.Address)
	if a.StorageUpdates != nil {
		w.set("StorageUpdates", a.StorageUpdates)
	}
	w.setExtra(a.Extra)
	return w.bytes()
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *StorageUpdate) UnmarshalJSON(data []byte) error {
	type plain StorageUpdate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = StorageUpdate(p)
	u.Extra = extraMembers(data, storageUpdateMembers)
	u.decoded = gjson.GetBytes(data, "DataHex").Exists()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (u StorageUpdate) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	w.set("Offset", u.Offset)
	w.set("Data", u.Data)
	if u.decoded {
		w.set("DataHex", u.DataHex)
		w.set("DataDecimal", u.DataDecimal)
	}
	w.setExtra(u.Extra)
	return w.bytes()
}

func extraMembers(data []byte, known map[string]bool) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		if known[key.String()] {
			return true
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[key.String()] = json.RawMessage(value.Raw)
		return true
	})
	return extra
}

// objectWriter builds a JSON object member by member, keeping the order
// in which members are set.
type objectWriter struct {
	buf []byte
	err error
}

func newObjectWriter() *objectWriter {
	return &objectWriter{buf: []byte("{}")}
}

func (w *objectWriter) set(key string, value interface{}) {
	if w.err != nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		w.err = err
		return
	}
	w.buf, w.err = sjson.SetRawBytes(w.buf, escapeKey(key), raw)
}

func (w *objectWriter) setExtra(extra map[string]json.RawMessage) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if w.err != nil {
			return
		}
		w.buf, w.err = sjson.SetRawBytes(w.buf, escapeKey(k), extra[k])
	}
}

func (w *objectWriter) bytes() ([]byte, error) {
	return w.buf, w.err
}

var keyEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`:`, `\:`,
)

func escapeKey(key string) string {
	return keyEscaper.Replace(key)
}
