package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtide/mailtide/internal/wire"
)

func TestParseAtoms(t *testing.T) {
	list, err := wire.Parse([]byte("* 23 EXISTS"))
	require.NoError(t, err)
	assert.Equal(t, wire.List{wire.Atom("*"), wire.Atom("23"), wire.Atom("EXISTS")}, list)
}

func TestParseNestedList(t *testing.T) {
	list, err := wire.Parse([]byte(`* FLAGS (\Answered \Seen (\Nested))`))
	require.NoError(t, err)
	require.Len(t, list, 3)
	inner, ok := list[2].(wire.List)
	require.True(t, ok)
	assert.Equal(t, wire.Atom(`\Answered`), inner[0])
	assert.Equal(t, wire.List{wire.Atom(`\Nested`)}, inner[2])
}

func TestParseAttrList(t *testing.T) {
	list, err := wire.Parse([]byte("7 OK [UIDNEXT 4392] Predicted next UID"))
	require.NoError(t, err)
	assert.Equal(t, wire.Atom("7"), list[0])
	assert.Equal(t, wire.Atom("OK"), list[1])
	assert.Equal(t, wire.AttrList{"UIDNEXT", "4392"}, list[2])
}

func TestParseQuoted(t *testing.T) {
	list, err := wire.Parse([]byte(`* LIST () "/" "Sent \"Items\""`))
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, wire.Atom(`Sent "Items"`), list[4])
}

func TestParseErrors(t *testing.T) {
	for _, raw := range []string{`(unclosed`, `"unclosed`, `[unclosed`, `too) many`} {
		_, err := wire.Parse([]byte(raw))
		assert.Error(t, err, raw)
		var perr *wire.ParseError
		assert.ErrorAs(t, err, &perr)
	}
}

// A {N} announcement followed by exactly N raw bytes must parse as if the
// payload had been sent as a quoted string, no matter which protocol
// specials the payload contains.
func TestUnfoldLiterals(t *testing.T) {
	raw := []byte("* 1 FETCH (UID 5 BODY[1] {11}\r\nhello world)")
	unfolded := wire.UnfoldLiterals(raw)
	assert.Equal(t, `* 1 FETCH (UID 5 BODY[1] "hello world")`, string(unfolded))

	list, err := wire.Parse(unfolded)
	require.NoError(t, err)
	fetch, ok := list[3].(wire.List)
	require.True(t, ok)
	assert.Equal(t, wire.Atom("BODY[1]"), fetch[2])
	assert.Equal(t, wire.Atom("hello world"), fetch[3])
}

func TestUnfoldLiteralsSpecials(t *testing.T) {
	payload := "a\"b\\c\r\nd)("
	raw := []byte("* 2 FETCH (BODY[] {10}\r\n" + payload + ")")
	list, err := wire.Parse(wire.UnfoldLiterals(raw))
	require.NoError(t, err)
	fetch := list[3].(wire.List)
	assert.Equal(t, wire.Atom(payload), fetch[1])
}

func TestUnfoldLiteralsIncomplete(t *testing.T) {
	// Payload shorter than announced: leave the announcement alone.
	raw := []byte("* 1 FETCH (BODY[] {99}\r\nshort")
	assert.Equal(t, raw, wire.UnfoldLiterals(raw))
}

func TestIsolateLastUnit(t *testing.T) {
	buf := []byte("* 1 FETCH (FLAGS ())\r\n3 OK done\r\n* 5 EXISTS\r\n* 2 FETCH (FLAGS (\\Seen))\r\n4 OK fetched\r\n")
	unit := wire.IsolateLastUnit(buf)
	assert.Equal(t, "* 5 EXISTS\r\n* 2 FETCH (FLAGS (\\Seen))\r\n4 OK fetched\r\n", string(unit))
}

func TestIsolateLastUnitNoUntagged(t *testing.T) {
	buf := []byte("* 1 EXISTS\r\n1 OK a\r\n2 OK noop done\r\n")
	assert.Equal(t, "2 OK noop done\r\n", string(wire.IsolateLastUnit(buf)))
}

func TestMailboxRoundTrip(t *testing.T) {
	encoded := wire.EncodeMailbox("Entwürfe")
	assert.Equal(t, `"Entw&APw-rfe"`, encoded)
	assert.Equal(t, "Entwürfe", wire.DecodeMailbox("Entw&APw-rfe"))
	assert.Equal(t, `"INBOX"`, wire.EncodeMailbox("INBOX"))
}
