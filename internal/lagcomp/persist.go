package lagcomp

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	"lukechampine.com/blake3"
)

// BlobVersion is the layout version written by SaveSlot.
const BlobVersion byte = 2

const (
	checksumSize = 32
	headerSize   = 1 + checksumSize
)

var (
	// ErrBlobCorrupt reports a blob whose checksum or body does not decode.
	ErrBlobCorrupt = errors.New("lagcomp: history blob corrupt")
	// ErrBlobVersion reports a blob written by an incompatible layout.
	ErrBlobVersion = errors.New("lagcomp: unsupported history blob version")
	// ErrSlotRange reports a slot outside the arenas.
	ErrSlotRange = errors.New("lagcomp: slot out of range")
)

type slotBlob struct {
	Slot     int      `msgpack:"slot"`
	LastTick uint64   `msgpack:"lastTick"`
	Records  []Record `msgpack:"records"`

	// Scratch of the latest window.
	Touched bool   `msgpack:"touched"`
	Restore Record `msgpack:"restore"`
	Change  Record `msgpack:"change"`
}

// SaveSlot serialises slot's track and window scratch. The blob is a version byte, a blake3
// checksum of the body, then the lz4 compressed msgpack body.
func (m *Manager) SaveSlot(slot Slot) ([]byte, error) {
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	if !m.inRange(slot) {
		return nil, fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	body, err := msgpack.Marshal(slotBlob{
		Slot:     int(slot),
		LastTick: m.lastTick[slot],
		Records:  m.tracks[slot].Records(),
		Touched:  m.touched.Has(slot),
		Restore:  m.restore[slot],
		Change:   m.change[slot],
	})
	if err != nil {
		return nil, fmt.Errorf("lagcomp: encode slot %d: %w", slot, err)
	}

	var out bytes.Buffer
	out.Grow(headerSize + len(body)/2)
	out.WriteByte(BlobVersion)
	out.Write(make([]byte, checksumSize))
	zw := lz4.NewWriter(&out)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("lagcomp: compress slot %d: %w", slot, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lagcomp: compress slot %d: %w", slot, err)
	}

	blob := out.Bytes()
	sum := blake3.Sum256(blob[headerSize:])
	copy(blob[1:headerSize], sum[:])
	return blob, nil
}

// LoadSlot replaces slot's track and window scratch with the contents of blob.
// The blob must have been saved for the same slot.
func (m *Manager) LoadSlot(slot Slot, blob []byte) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	if m.open {
		return ErrWindowOpen
	}
	if !m.inRange(slot) {
		return fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	if len(blob) < headerSize {
		return fmt.Errorf("%w: %d bytes", ErrBlobCorrupt, len(blob))
	}
	if blob[0] != BlobVersion {
		return fmt.Errorf("%w: %d", ErrBlobVersion, blob[0])
	}
	sum := blake3.Sum256(blob[headerSize:])
	if subtle.ConstantTimeCompare(sum[:], blob[1:headerSize]) != 1 {
		return fmt.Errorf("%w: checksum mismatch", ErrBlobCorrupt)
	}
	body, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob[headerSize:])))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlobCorrupt, err)
	}
	var decoded slotBlob
	if err := msgpack.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrBlobCorrupt, err)
	}
	if decoded.Slot != int(slot) {
		return fmt.Errorf("%w: blob holds slot %d, not %d", ErrBlobCorrupt, decoded.Slot, slot)
	}

	m.tracks[slot].Reset(decoded.Records)
	m.lastTick[slot] = decoded.LastTick
	m.restore[slot] = decoded.Restore
	m.change[slot] = decoded.Change
	if decoded.Touched {
		m.touched.Set(slot)
	} else {
		m.touched.Unset(slot)
	}
	if len(decoded.Records) > 0 {
		m.cleared = false
	}
	return nil
}
