// Package wire - компактное бинарное кодирование (совместимое с protobuf) payload-ов,
// которые пересекают границу native-моста в виде base64-строк.
package wire

import (
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("wire: malformed payload")

// Message - тип, который умеет писать и читать себя в wire-формате.
type Message interface {
	AppendWire(b []byte) []byte
	UnmarshalWire(b []byte) error
}

func Marshal(m Message) []byte {
	return m.AppendWire(nil)
}

// Encode кодирует сообщение и заворачивает его в base64 (std, с паддингом).
func Encode(m Message) string {
	return base64.StdEncoding.EncodeToString(Marshal(m))
}

// Decode - обратная операция к Encode.
func Decode(s string, m Message) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: base64: %v", ErrMalformed, err)
	}
	return m.UnmarshalWire(raw)
}

// fieldFunc разбирает значение поля num и возвращает число прочитанных байт.
// 0 - поле не распознано (будет пропущено), <0 - ошибка protowire.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) int

func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

// --- decode helpers ---

func readString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func readInt64(typ protowire.Type, b []byte, dst *int64) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int64(v)
	}
	return n
}

func readBool(typ protowire.Type, b []byte, dst *bool) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

// readEmbedded читает вложенное сообщение; ошибку разбора вложенного сохраняет в errp.
func readEmbedded(typ protowire.Type, b []byte, m Message, errp *error) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	if err := m.UnmarshalWire(v); err != nil && *errp == nil {
		*errp = err
	}
	return n
}

// --- encode helpers (proto3: нулевые значения не пишем) ---

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendEmbedded(b []byte, num protowire.Number, m Message) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.AppendWire(nil))
}
