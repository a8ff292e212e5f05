// Package wire frames persisted entries. Each entry is one sentinel byte
// naming the node map it belongs to, followed by the codec payload:
//
//	':' | payload   link entry
//	'=' | payload   record entry
//
// Tombstones are never framed; storage receives a nil value instead.
package wire

import "errors"

const (
	sentinelLink   byte = ':'
	sentinelRecord byte = '='
)

var ErrCorrupt = errors.New("entstore: corrupt entry")

type Kind uint8

const (
	Record Kind = iota + 1
	Link
)

func (k Kind) String() string {
	switch k {
	case Record:
		return "record"
	case Link:
		return "link"
	default:
		return "unknown"
	}
}

// Encode prefixes payload with the sentinel for k.
func Encode(k Kind, payload []byte) []byte {
	out := make([]byte, 1+len(payload))
	switch k {
	case Link:
		out[0] = sentinelLink
	case Record:
		out[0] = sentinelRecord
	default:
		panic("entstore: invalid wire kind")
	}
	copy(out[1:], payload)
	return out
}

// Decode splits an entry into its kind and payload. The payload aliases b.
func Decode(b []byte) (Kind, []byte, error) {
	if len(b) < 2 {
		return 0, nil, ErrCorrupt
	}
	switch b[0] {
	case sentinelLink:
		return Link, b[1:], nil
	case sentinelRecord:
		return Record, b[1:], nil
	default:
		return 0, nil, ErrCorrupt
	}
}
