package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Prefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewIconID(), "icon_"))
	assert.True(t, strings.HasPrefix(NewVehicleID(), "veh_"))
	assert.True(t, strings.HasPrefix(NewPolygonID(), "poly_"))
	assert.True(t, strings.HasPrefix(NewSessionID(), "sess_"))
	assert.NotEqual(t, NewSessionID(), NewSessionID())
}

func TestValidate(t *testing.T) {
	id := NewSessionID()
	require.NoError(t, Validate(id, PrefixSession))
	assert.Error(t, Validate(id, PrefixVehicle))
	assert.Error(t, Validate("not an id", PrefixSession))
}
