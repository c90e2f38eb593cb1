package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtide/mailtide/internal/message"
	"github.com/mailtide/mailtide/internal/wire"
)

func parseStructure(t *testing.T, raw string) *message.Structure {
	parsed, err := wire.Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	s, err := message.ParseStructure(parsed[0])
	require.NoError(t, err)
	return s
}

const altStructure = `(("text" "plain" ("charset" "utf-8") NIL NIL "7bit" 42 1)` +
	`("text" "html" ("charset" "utf-8") NIL NIL "quoted-printable" 100 2) ` +
	`"alternative" ("boundary" "XYZ"))`

func TestParseStructureMultipart(t *testing.T) {
	s := parseStructure(t, altStructure)

	assert.Equal(t, "multipart/alternative", s.ContentType())
	assert.Equal(t, "XYZ", s.Params["boundary"])
	require.Len(t, s.Parts, 2)
	assert.Equal(t, "text/plain", s.Parts[0].ContentType())
	assert.Equal(t, "7bit", s.Parts[0].Encoding)
	assert.Equal(t, "text/html", s.Parts[1].ContentType())
	assert.Equal(t, "quoted-printable", s.Parts[1].Encoding)
}

func TestParseStructureLeaf(t *testing.T) {
	s := parseStructure(t, `("text" "plain" ("charset" "us-ascii") NIL NIL "7bit" 12 1)`)
	assert.Equal(t, "text/plain", s.ContentType())
	assert.Empty(t, s.Parts)
}

func TestParseStructureRejectsMalformed(t *testing.T) {
	parsed, err := wire.Parse([]byte(`("text")`))
	require.NoError(t, err)
	_, err = message.ParseStructure(parsed[0])
	assert.Error(t, err)

	_, err = message.ParseStructure(wire.Atom("NIL"))
	assert.Error(t, err)
}

func TestWalkNumbersLeavesPositionally(t *testing.T) {
	// A mixed tree: leaf 1, then a nested multipart holding leaves 2.1
	// and 2.2.
	s := parseStructure(t, `(("text" "plain" ("charset" "utf-8") NIL NIL "7bit" 10 1)`+
		`(("image" "png" NIL NIL NIL "base64" 2048)`+
		`("application" "pdf" NIL NIL NIL "base64" 4096) "mixed" ("boundary" "inner")) `+
		`"mixed" ("boundary" "outer"))`)

	var ids []string
	s.Walk(func(id string, leaf *message.Structure) {
		ids = append(ids, id+"="+leaf.ContentType())
	})
	assert.Equal(t, []string{
		"1=text/plain",
		"2.1=image/png",
		"2.2=application/pdf",
	}, ids)
}

func TestWalkSinglePartMessage(t *testing.T) {
	s := parseStructure(t, `("text" "plain" NIL NIL NIL "7bit" 10 1)`)

	var ids []string
	s.Walk(func(id string, leaf *message.Structure) { ids = append(ids, id) })
	assert.Equal(t, []string{"1"}, ids)
}

func TestWantedParts(t *testing.T) {
	s := parseStructure(t, altStructure)

	assert.Equal(t, map[string]bool{"1": true}, message.WantedParts(s, message.FirstPartOnly()))
	assert.Equal(t, map[string]bool{"1": true, "2": true},
		message.WantedParts(s, message.MatchingType("text/*")))
	assert.Equal(t, map[string]bool{"2": true},
		message.WantedParts(s, message.MatchingType("text/html")))
}

func TestReconstructSelectedParts(t *testing.T) {
	s := parseStructure(t, altStructure)

	header := []byte("From: alice@example.com\r\nSubject: Hi\r\n")
	parts := map[string][]byte{"1": []byte("plain body")}

	got := message.Reconstruct(s, header, parts)

	want := "From: alice@example.com\r\nSubject: Hi\r\n" +
		"Content-type: multipart/alternative; boundary=\"XYZ\"\r\n" +
		"--XYZ\r\n" +
		"Content-type: text/plain; charset=utf-8\r\n" +
		"Content-transfer-encoding: 7bit\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--XYZ\r\n" +
		"Content-type: text/html; charset=utf-8\r\n" +
		"Content-transfer-encoding: quoted-printable\r\n" +
		"\r\n" +
		"--XYZ--\r\n"
	assert.Equal(t, want, string(got))
}

func TestReconstructSingleLeaf(t *testing.T) {
	s := parseStructure(t, `("text" "plain" ("charset" "us-ascii") NIL NIL "7bit" 12 1)`)

	got := message.Reconstruct(s, []byte("Subject: solo\r\n"), map[string][]byte{
		"1": []byte("hello"),
	})
	want := "Subject: solo\r\n" +
		"Content-type: text/plain; charset=us-ascii\r\n" +
		"Content-transfer-encoding: 7bit\r\n" +
		"\r\n" +
		"hello\r\n"
	assert.Equal(t, want, string(got))
}
