package wallet

import "github.com/Klingon-tech/klingnet-groupwallet/pkg/types"

// MetadataVersion is the version written by StoredMetadata records today.
// Version 1 records carried "isMain" instead of "isDefault" and could lack a
// color.
const MetadataVersion = 2

// AddressMetadata is the canonical per-address presentation data, keyed by
// index.
type AddressMetadata struct {
	Index     types.AddressIndex
	Label     string
	Color     string
	IsDefault bool
}

// StoredMetadata is the persisted form of AddressMetadata. Both flag fields
// are pointers so a missing field can be told apart from false.
type StoredMetadata struct {
	Version   int                `json:"version,omitempty"`
	Index     types.AddressIndex `json:"index"`
	Label     string             `json:"label,omitempty"`
	Color     string             `json:"color,omitempty"`
	IsDefault *bool              `json:"isDefault,omitempty"`
	IsMain    *bool              `json:"isMain,omitempty"`
}

// UpgradeMetadata converts a stored record of any version into the canonical
// form. needsColor reports that the record had no color and one must be
// assigned by the caller. The function is pure.
func UpgradeMetadata(rec StoredMetadata) (md AddressMetadata, needsColor bool) {
	md = AddressMetadata{
		Index: rec.Index,
		Label: rec.Label,
		Color: rec.Color,
	}
	switch {
	case rec.IsDefault != nil:
		md.IsDefault = *rec.IsDefault
	case rec.IsMain != nil:
		md.IsDefault = *rec.IsMain
	}
	return md, md.Color == ""
}

// Stored returns the current-version persisted form of m.
func (m AddressMetadata) Stored() StoredMetadata {
	isDefault := m.IsDefault
	return StoredMetadata{
		Version:   MetadataVersion,
		Index:     m.Index,
		Label:     m.Label,
		Color:     m.Color,
		IsDefault: &isDefault,
	}
}
