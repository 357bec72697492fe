package record

import (
	"bytes"
	"fmt"

	"github.com/tinylib/msgp/msgp"

	"github.com/arloliu/irstream/attr"
)

// Field names of the serialized record.
const (
	FieldMessage            = "message"
	FieldFormattedTimestamp = "formatted_timestamp"
	FieldTimestamp          = "timestamp"
	FieldIndex              = "index"
	FieldAttributes         = "attributes"
)

var (
	_ msgp.Encodable = (*Record)(nil)
	_ msgp.Decodable = (*Record)(nil)
)

// Marshal serializes r to MessagePack.
//
// The serialized form is a map holding the message, the formatted timestamp, the
// timestamp, the index and the attributes keyed by name. Metadata, logtype and cached
// encoded bytes are not part of it.
func Marshal(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := r.EncodeMsg(w); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal restores a record serialized by Marshal.
//
// The restored record has no metadata; its formatted timestamp is the serialized one.
func Unmarshal(data []byte) (*Record, error) {
	r := &Record{}
	if err := r.DecodeMsg(msgp.NewReader(bytes.NewReader(data))); err != nil {
		return nil, err
	}

	return r, nil
}

// EncodeMsg implements msgp.Encodable.
func (r *Record) EncodeMsg(w *msgp.Writer) error {
	if err := w.WriteMapHeader(5); err != nil {
		return err
	}

	if err := writeStringField(w, FieldMessage, r.message); err != nil {
		return err
	}
	if err := writeStringField(w, FieldFormattedTimestamp, r.FormattedTimestamp()); err != nil {
		return err
	}
	if err := w.WriteString(FieldTimestamp); err != nil {
		return err
	}
	if err := w.WriteInt64(r.timestamp); err != nil {
		return err
	}
	if err := w.WriteString(FieldIndex); err != nil {
		return err
	}
	if err := w.WriteUint64(r.index); err != nil {
		return err
	}

	if err := w.WriteString(FieldAttributes); err != nil {
		return err
	}
	names := r.AttributeNames()
	if len(names) > len(r.attrs) {
		names = names[:len(r.attrs)]
	}
	if err := w.WriteMapHeader(uint32(len(names))); err != nil { //nolint:gosec
		return err
	}
	for i, name := range names {
		if err := w.WriteString(name); err != nil {
			return err
		}
		if err := writeValue(w, r.attrs[i]); err != nil {
			return err
		}
	}

	return nil
}

// DecodeMsg implements msgp.Decodable. Unknown fields are skipped.
func (r *Record) DecodeMsg(rd *msgp.Reader) error {
	fields, err := rd.ReadMapHeader()
	if err != nil {
		return fmt.Errorf("read record header: %w", err)
	}

	*r = Record{}
	for range fields {
		key, err := rd.ReadString()
		if err != nil {
			return fmt.Errorf("read record field name: %w", err)
		}

		switch key {
		case FieldMessage:
			r.message, err = rd.ReadString()
		case FieldFormattedTimestamp:
			r.formattedTimestamp, err = rd.ReadString()
		case FieldTimestamp:
			r.timestamp, err = rd.ReadInt64()
		case FieldIndex:
			r.index, err = rd.ReadUint64()
		case FieldAttributes:
			err = r.decodeAttributes(rd)
		default:
			err = rd.Skip()
		}
		if err != nil {
			return fmt.Errorf("read record field %q: %w", key, err)
		}
	}

	return nil
}

func (r *Record) decodeAttributes(rd *msgp.Reader) error {
	n, err := rd.ReadMapHeader()
	if err != nil {
		return err
	}

	r.names = make([]string, 0, n)
	r.attrs = make([]attr.Value, 0, n)
	for range n {
		name, err := rd.ReadString()
		if err != nil {
			return err
		}
		value, err := readValue(rd)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		r.names = append(r.names, name)
		r.attrs = append(r.attrs, value)
	}

	return nil
}

func writeStringField(w *msgp.Writer, name, value string) error {
	if err := w.WriteString(name); err != nil {
		return err
	}

	return w.WriteString(value)
}

func writeValue(w *msgp.Writer, v attr.Value) error {
	if s, ok := v.Str(); ok {
		return w.WriteString(s)
	}
	if n, ok := v.Int(); ok {
		return w.WriteInt64(n)
	}

	return w.WriteNil()
}

func readValue(rd *msgp.Reader) (attr.Value, error) {
	typ, err := rd.NextType()
	if err != nil {
		return attr.Value{}, err
	}

	switch typ {
	case msgp.NilType:
		return attr.Null(), rd.ReadNil()
	case msgp.StrType:
		s, err := rd.ReadString()
		return attr.String(s), err
	case msgp.IntType:
		n, err := rd.ReadInt64()
		return attr.Int(n), err
	case msgp.UintType:
		n, err := rd.ReadUint64()
		return attr.Int(int64(n)), err //nolint:gosec
	default:
		return attr.Value{}, fmt.Errorf("unsupported attribute value type %s", typ)
	}
}
