package bridge

import (
	"slices"
	"strings"

	"github.com/chazu/graft/errors"
	"github.com/fxamacker/cbor/v2"
)

// TypeRecord describes one synthesized type for tooling such as manifests
// and type dumps.
type TypeRecord struct {
	Key        string       `cbor:"1,keyasint"`
	Class      string       `cbor:"2,keyasint"`
	Base       string       `cbor:"3,keyasint"`
	Interfaces []string     `cbor:"4,keyasint,omitempty"`
	Named      bool         `cbor:"5,keyasint"`
	Slots      []SlotRecord `cbor:"6,keyasint,omitempty"`
}

// SlotRecord describes one routed slot.
type SlotRecord struct {
	Name       string   `cbor:"1,keyasint"`
	Signatures []string `cbor:"2,keyasint"`
}

// Record returns the type's description.
func (t *SynthesizedType) Record() TypeRecord {
	rec := TypeRecord{
		Key:        t.Spec.Key(),
		Class:      t.Class.Name,
		Base:       t.Spec.Base.Name,
		Interfaces: t.Spec.InterfaceNames(),
		Named:      t.Spec.Name != "",
	}
	for _, g := range t.Spec.Groups {
		slot := SlotRecord{Name: g.Name}
		for _, s := range g.Signatures {
			slot.Signatures = append(slot.Signatures, s.String())
		}
		rec.Slots = append(rec.Slots, slot)
	}
	return rec
}

// Snapshot returns a record for every synthesized type, ordered by class name.
func (b *Bridge) Snapshot() []TypeRecord {
	types := b.synthesizer.Types()
	out := make([]TypeRecord, 0, len(types))
	for _, t := range types {
		out = append(out, t.Record())
	}
	slices.SortFunc(out, func(a, b TypeRecord) int { return strings.Compare(a.Class, b.Class) })
	return out
}

// MarshalSnapshot serializes records to canonical CBOR.
func MarshalSnapshot(records []TypeRecord) ([]byte, error) {
	data, err := cborEncMode.Marshal(records)
	if err != nil {
		return nil, errors.Marshal("encode snapshot: %v", err)
	}
	return data, nil
}

// UnmarshalSnapshot deserializes records produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) ([]TypeRecord, error) {
	var records []TypeRecord
	if err := cbor.Unmarshal(data, &records); err != nil {
		return nil, errors.Marshal("decode snapshot: %v", err)
	}
	return records, nil
}
