package contract

import (
	"strings"
	"testing"

	"github.com/status-im/keycard-go/hexutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libPlaceholder = "__$0011223344556677889900112233445566$__"

func TestNewFingerprint_SplitsAroundLibrarySlots(t *testing.T) {
	hexCode := "6080604052" + libPlaceholder + "f3fe"

	fingerprint, err := NewFingerprint(hexCode, []int{5})
	require.NoError(t, err)
	require.Len(t, fingerprint.Segments, 2)

	assert.Equal(t, 5, fingerprint.Segments[0].Length)
	assert.Equal(t, 2, fingerprint.Segments[1].Length)
}

func TestNewFingerprint_TrailingSlotKeepsEmptySegment(t *testing.T) {
	hexCode := "6080604052" + libPlaceholder

	fingerprint, err := NewFingerprint(hexCode, []int{5})
	require.NoError(t, err)
	require.Len(t, fingerprint.Segments, 2)
	assert.Equal(t, 0, fingerprint.Segments[1].Length)
}

func TestNewFingerprint_RejectsBadSlots(t *testing.T) {
	hexCode := "6080604052" + libPlaceholder + "f3fe"

	_, err := NewFingerprint(hexCode, []int{5, 10})
	assert.Error(t, err, "overlapping slots")

	_, err = NewFingerprint(hexCode, []int{20})
	assert.Error(t, err, "slot past the end")

	_, err = NewFingerprint("60zz", nil)
	assert.Error(t, err, "non-hex segment")
}

func TestFingerprint_MatchesAnyLinkedAddress(t *testing.T) {
	hexCode := "6080604052" + libPlaceholder + "f3fe"
	fingerprint, err := NewFingerprint(hexCode, []int{5})
	require.NoError(t, err)

	for _, address := range []string{
		"00112233445566778899aabbccddeeff00112233",
		"ffffffffffffffffffffffffffffffffffffffff",
	} {
		linked := hexutils.HexToBytes("6080604052" + address + "f3fe")
		assert.True(t, fingerprint.MatchesCreationCode(linked), address)
	}
}

func TestFingerprint_ToleratesConstructorArguments(t *testing.T) {
	hexCode := "6080604052" + libPlaceholder + "f3fe"
	fingerprint, err := NewFingerprint(hexCode, []int{5})
	require.NoError(t, err)

	args := strings.Repeat("00", 32) + strings.Repeat("2a", 32)
	linked := hexutils.HexToBytes("6080604052" + strings.Repeat("aa", 20) + "f3fe" + args)
	assert.True(t, fingerprint.MatchesCreationCode(linked))
}

func TestFingerprint_RejectsForeignCode(t *testing.T) {
	hexCode := "6080604052" + libPlaceholder + "f3fe"
	fingerprint, err := NewFingerprint(hexCode, []int{5})
	require.NoError(t, err)

	// first segment tampered
	assert.False(t, fingerprint.MatchesCreationCode(hexutils.HexToBytes("6080604053"+strings.Repeat("aa", 20)+"f3fe")))
	// second segment tampered
	assert.False(t, fingerprint.MatchesCreationCode(hexutils.HexToBytes("6080604052"+strings.Repeat("aa", 20)+"f4fe")))
	// too short for the link slot
	assert.False(t, fingerprint.MatchesCreationCode(hexutils.HexToBytes("6080604052")))
	assert.False(t, fingerprint.MatchesCreationCode(nil))
}

func TestFingerprint_EmptyNeverMatches(t *testing.T) {
	assert.False(t, Fingerprint{}.MatchesCreationCode(hexutils.HexToBytes("6080")))
}

func TestScanPlaceholders(t *testing.T) {
	t.Run("hashed style", func(t *testing.T) {
		slots := scanPlaceholders("6080604052" + libPlaceholder + "f3fe")
		assert.Equal(t, []int{5}, slots)
	})

	t.Run("pre-0.5 name style", func(t *testing.T) {
		placeholder := "__MathLib" + strings.Repeat("_", 31)
		require.Len(t, placeholder, 40)
		slots := scanPlaceholders("6080" + placeholder + "00" + placeholder)
		assert.Equal(t, []int{2, 23}, slots)
	})

	t.Run("linked code has none", func(t *testing.T) {
		assert.Empty(t, scanPlaceholders("6080604052"+strings.Repeat("aa", 20)+"f3fe"))
	})
}
