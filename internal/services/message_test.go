package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestConversationID(t *testing.T) {
	assert.Equal(t, "alice_bob", ConversationID("alice", "bob"))
	assert.Equal(t, "alice_bob", ConversationID("bob", "alice"))
	assert.Equal(t, ConversationID("u-1", "u-2"), ConversationID("u-2", "u-1"))
	assert.NotEqual(t, ConversationID("alice", "bob"), ConversationID("alice", "carol"))
}

func TestPreviewText(t *testing.T) {
	assert.Equal(t, "hey", previewText("hey"))

	long := strings.Repeat("a", 100)
	assert.Equal(t, strings.Repeat("a", 80), previewText(long))

	// Exactly at the limit stays intact
	exact := strings.Repeat("b", 78) + "é"
	assert.Len(t, exact, 80)
	assert.Equal(t, exact, previewText(exact))

	// A multi-byte rune straddling the cut is dropped whole
	mixed := strings.Repeat("a", 79) + "世界"
	got := previewText(mixed)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 79), got)
}
