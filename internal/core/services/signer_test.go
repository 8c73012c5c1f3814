package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSigner_EmptySecret(t *testing.T) {
	_, err := NewSigner("")
	assert.ErrorIs(t, err, ErrEmptySigningSecret)
}

func TestSigner_SignVerify(t *testing.T) {
	signer, err := NewSigner("test-secret")
	assert.NoError(t, err)

	payload := map[string]string{
		"video":   "video-1",
		"session": "session-1",
		"user":    "user-1",
		"expires": "1700000000",
	}

	sig := signer.Sign(payload)
	assert.NotEmpty(t, sig)
	assert.True(t, signer.Verify(payload, sig))
}

func TestSigner_AnyFieldMutationBreaksSignature(t *testing.T) {
	signer, _ := NewSigner("test-secret")

	payload := map[string]string{
		"video":   "video-1",
		"session": "session-1",
		"user":    "user-1",
		"expires": "1700000000",
	}
	sig := signer.Sign(payload)

	for key := range payload {
		mutated := make(map[string]string, len(payload))
		for k, v := range payload {
			mutated[k] = v
		}
		mutated[key] = payload[key] + "x"

		assert.False(t, signer.Verify(mutated, sig), "mutated %q should not verify", key)
	}
}

func TestSigner_TamperedSignatureRejected(t *testing.T) {
	signer, _ := NewSigner("test-secret")

	payload := map[string]string{"video": "video-1"}
	sig := signer.Sign(payload)

	tampered := "A" + sig[1:]
	if tampered == sig {
		tampered = "B" + sig[1:]
	}
	assert.False(t, signer.Verify(payload, tampered))
	assert.False(t, signer.Verify(payload, ""))
}

func TestSigner_DifferentSecretsDisagree(t *testing.T) {
	a, _ := NewSigner("secret-a")
	b, _ := NewSigner("secret-b")

	payload := map[string]string{"video": "video-1", "user": "user-1"}
	assert.False(t, b.Verify(payload, a.Sign(payload)))
}

func TestCanonicalize_SortedAndStable(t *testing.T) {
	canonical := Canonicalize(map[string]string{
		"user":    "u",
		"expires": "1",
		"video":   "v",
	})

	assert.Equal(t, "expires=1&user=u&video=v", canonical)
	assert.True(t, strings.Index(canonical, "expires") < strings.Index(canonical, "user"))
}
