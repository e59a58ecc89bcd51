// Wire encoding for the three gossiped pool events, retargeting the
// teacher's EncodeBlock/EncodeTransaction length-prefixed binary framing
// (internal/p2p/messages.go) onto ShieldEvent/TransferEvent/UnshieldEvent.
package p2p

import (
	"encoding/binary"
	"errors"

	"github.com/veilpool/shieldpool/pkg/types"
)

// ErrMessageTooShort is returned when a decode call is handed fewer bytes
// than its fixed-size event layout requires.
var ErrMessageTooShort = errors.New("message too short")

// EncodeShieldEvent serializes a ShieldEvent for gossip.
func EncodeShieldEvent(e *types.ShieldEvent) []byte {
	buf := make([]byte, 0, 32+8+32+4+len(e.EncryptedNote))
	buf = append(buf, e.PoolID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, e.Position)
	buf = append(buf, e.Commitment[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.EncryptedNote)))
	buf = append(buf, e.EncryptedNote...)
	return buf
}

// DecodeShieldEvent deserializes a gossiped ShieldEvent.
func DecodeShieldEvent(data []byte) (*types.ShieldEvent, error) {
	const fixed = 32 + 8 + 32 + 4
	if len(data) < fixed {
		return nil, ErrMessageTooShort
	}
	var e types.ShieldEvent
	copy(e.PoolID[:], data[0:32])
	e.Position = binary.BigEndian.Uint64(data[32:40])
	copy(e.Commitment[:], data[40:72])
	blobLen := binary.BigEndian.Uint32(data[72:76])
	if len(data) < fixed+int(blobLen) {
		return nil, ErrMessageTooShort
	}
	e.EncryptedNote = append([]byte(nil), data[76:76+int(blobLen)]...)
	return &e, nil
}

// EncodeTransferEvent serializes a TransferEvent for gossip.
func EncodeTransferEvent(e *types.TransferEvent) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, e.PoolID[:]...)
	for _, n := range e.InputNullifiers {
		buf = append(buf, n[:]...)
	}
	for _, p := range e.OutputPositions {
		buf = binary.BigEndian.AppendUint64(buf, p)
	}
	for _, c := range e.OutputCommitments {
		buf = append(buf, c[:]...)
	}
	for _, blob := range e.EncryptedNotes {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(blob)))
		buf = append(buf, blob...)
	}
	return buf
}

// DecodeTransferEvent deserializes a gossiped TransferEvent.
func DecodeTransferEvent(data []byte) (*types.TransferEvent, error) {
	const fixed = 32 + 2*32 + 2*8 + 2*32
	if len(data) < fixed {
		return nil, ErrMessageTooShort
	}
	var e types.TransferEvent
	off := 0
	copy(e.PoolID[:], data[off:off+32])
	off += 32
	for i := range e.InputNullifiers {
		copy(e.InputNullifiers[i][:], data[off:off+32])
		off += 32
	}
	for i := range e.OutputPositions {
		e.OutputPositions[i] = binary.BigEndian.Uint64(data[off : off+8])
		off += 8
	}
	for i := range e.OutputCommitments {
		copy(e.OutputCommitments[i][:], data[off:off+32])
		off += 32
	}
	for i := range e.EncryptedNotes {
		if len(data) < off+4 {
			return nil, ErrMessageTooShort
		}
		blobLen := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if len(data) < off+blobLen {
			return nil, ErrMessageTooShort
		}
		e.EncryptedNotes[i] = append([]byte(nil), data[off:off+blobLen]...)
		off += blobLen
	}
	return &e, nil
}

// EncodeUnshieldEvent serializes an UnshieldEvent for gossip.
func EncodeUnshieldEvent(e *types.UnshieldEvent) []byte {
	buf := make([]byte, 0, 32+32+8+32)
	buf = append(buf, e.PoolID[:]...)
	buf = append(buf, e.Nullifier[:]...)
	buf = binary.BigEndian.AppendUint64(buf, e.Amount)
	buf = append(buf, e.Recipient[:]...)
	return buf
}

// DecodeUnshieldEvent deserializes a gossiped UnshieldEvent.
func DecodeUnshieldEvent(data []byte) (*types.UnshieldEvent, error) {
	const fixed = 32 + 32 + 8 + types.AddressSize
	if len(data) < fixed {
		return nil, ErrMessageTooShort
	}
	var e types.UnshieldEvent
	copy(e.PoolID[:], data[0:32])
	copy(e.Nullifier[:], data[32:64])
	e.Amount = binary.BigEndian.Uint64(data[64:72])
	copy(e.Recipient[:], data[72:72+types.AddressSize])
	return &e, nil
}
