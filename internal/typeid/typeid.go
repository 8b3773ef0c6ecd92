package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixIcon    = "icon"
	PrefixVehicle = "veh"
	PrefixPolygon = "poly"
	PrefixSession = "sess"
	PrefixAsset   = "asset"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewIconID() string    { return New(PrefixIcon) }
func NewVehicleID() string { return New(PrefixVehicle) }
func NewPolygonID() string { return New(PrefixPolygon) }
func NewSessionID() string { return New(PrefixSession) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
