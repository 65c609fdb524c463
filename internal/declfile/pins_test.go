package declfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePinsYAML = `
empack:
  pins:
    YAVTU8mK:
      - "abc123"
      - "def456"
    u6dRKJwZ:
      - "single789"
`

func TestParsePinsReadsMultipleVersionsPerProject(t *testing.T) {
	pins, err := ParsePins([]byte(samplePinsYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123", "def456"}, pins.VersionsFor("YAVTU8mK"))
	assert.Equal(t, []string{"single789"}, pins.VersionsFor("u6dRKJwZ"))
}

func TestParsePinsUnpinnedProjectReturnsNil(t *testing.T) {
	pins, err := ParsePins([]byte(samplePinsYAML))
	require.NoError(t, err)
	assert.Nil(t, pins.VersionsFor("not-pinned"))
}

func TestParsePinsEmptyDocumentIsValid(t *testing.T) {
	pins, err := ParsePins([]byte(``))
	require.NoError(t, err)
	assert.Empty(t, pins)
}

func TestParsePinsRejectsEntryWithNoVersions(t *testing.T) {
	_, err := ParsePins([]byte(`
empack:
  pins:
    YAVTU8mK: []
`))
	require.Error(t, err)
}
