package form

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"github.com/shashiranjanraj/grocerylist/pkg/session"
)

const csrfPrefix = "_csrf/"

// CSRFToken returns the token for id, minting and storing one in sess the
// first time. Tokens live as long as the session.
func CSRFToken(sess *session.Session, id string) string {
	if tok, ok := sess.GetString(csrfPrefix + id); ok && tok != "" {
		return tok
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("form: read random: " + err.Error())
	}
	tok := base64.RawURLEncoding.EncodeToString(b)
	sess.Set(csrfPrefix+id, tok)
	return tok
}

// ValidCSRF reports whether tok matches the stored token for id.
func ValidCSRF(sess *session.Session, id, tok string) bool {
	want, ok := sess.GetString(csrfPrefix + id)
	if !ok || want == "" || tok == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(tok)) == 1
}
