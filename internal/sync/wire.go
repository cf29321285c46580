package sync

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for the three SyncMessage variants. There is no
// .proto/codegen here: the low-level protowire primitives are
// hand-framed into a single byte-tagged
// union so offer/response/complete share one wire type.
const (
	fieldIBLTBytes         protowire.Number = 1
	fieldMessageCount      protowire.Number = 2
	fieldSketchCapacity    protowire.Number = 3
	fieldMissingEnvelope   protowire.Number = 4 // repeated
)

const (
	kindOffer    byte = 1
	kindResponse byte = 2
	kindComplete byte = 3
)

var (
	ErrUnknownSyncMessageKind = errors.New("sync: unknown wire message kind")
	ErrTruncatedSyncMessage   = errors.New("sync: truncated wire message")
)

// EncodeOffer frames a SyncOffer as kind-byte + protowire fields.
func EncodeOffer(o *SyncOffer) []byte {
	buf := []byte{kindOffer}
	buf = protowire.AppendTag(buf, fieldIBLTBytes, protowire.BytesType)
	buf = protowire.AppendBytes(buf, o.IBLTBytes)
	buf = protowire.AppendTag(buf, fieldMessageCount, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(o.MessageCount))
	buf = protowire.AppendTag(buf, fieldSketchCapacity, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(o.SketchCapacity))
	return buf
}

// EncodeResponse frames a SyncResponse as kind-byte + protowire fields.
func EncodeResponse(r *SyncResponse) []byte {
	buf := []byte{kindResponse}
	buf = protowire.AppendTag(buf, fieldIBLTBytes, protowire.BytesType)
	buf = protowire.AppendBytes(buf, r.IBLTBytes)
	buf = protowire.AppendTag(buf, fieldMessageCount, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(r.MessageCount))
	for _, env := range r.MissingEnvelopes {
		buf = protowire.AppendTag(buf, fieldMissingEnvelope, protowire.BytesType)
		buf = protowire.AppendBytes(buf, env)
	}
	return buf
}

// EncodeComplete frames a SyncComplete as kind-byte + protowire fields.
func EncodeComplete(c *SyncComplete) []byte {
	buf := []byte{kindComplete}
	for _, env := range c.MissingEnvelopes {
		buf = protowire.AppendTag(buf, fieldMissingEnvelope, protowire.BytesType)
		buf = protowire.AppendBytes(buf, env)
	}
	return buf
}

// DecodeSyncMessage dispatches on the leading kind byte and returns
// exactly one of (*SyncOffer, *SyncResponse, *SyncComplete) as `any`.
func DecodeSyncMessage(b []byte) (any, error) {
	if len(b) < 1 {
		return nil, ErrTruncatedSyncMessage
	}
	kind, rest := b[0], b[1:]
	switch kind {
	case kindOffer:
		return decodeOffer(rest)
	case kindResponse:
		return decodeResponse(rest)
	case kindComplete:
		return decodeComplete(rest)
	default:
		return nil, ErrUnknownSyncMessageKind
	}
}

func decodeOffer(b []byte) (*SyncOffer, error) {
	o := &SyncOffer{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, ErrTruncatedSyncMessage
		}
		b = b[n:]
		switch num {
		case fieldIBLTBytes:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			o.IBLTBytes = append([]byte(nil), v...)
			b = b[m:]
		case fieldMessageCount:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			o.MessageCount = int(v)
			b = b[m:]
		case fieldSketchCapacity:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			o.SketchCapacity = int(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			b = b[m:]
		}
	}
	return o, nil
}

func decodeResponse(b []byte) (*SyncResponse, error) {
	r := &SyncResponse{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, ErrTruncatedSyncMessage
		}
		b = b[n:]
		switch num {
		case fieldIBLTBytes:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			r.IBLTBytes = append([]byte(nil), v...)
			b = b[m:]
		case fieldMessageCount:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			r.MessageCount = int(v)
			b = b[m:]
		case fieldMissingEnvelope:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			r.MissingEnvelopes = append(r.MissingEnvelopes, append([]byte(nil), v...))
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			b = b[m:]
		}
	}
	return r, nil
}

func decodeComplete(b []byte) (*SyncComplete, error) {
	c := &SyncComplete{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, ErrTruncatedSyncMessage
		}
		b = b[n:]
		switch num {
		case fieldMissingEnvelope:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			c.MissingEnvelopes = append(c.MissingEnvelopes, append([]byte(nil), v...))
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, ErrTruncatedSyncMessage
			}
			b = b[m:]
		}
	}
	return c, nil
}
