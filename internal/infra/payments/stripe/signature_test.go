package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func TestVerifyAcceptsSignedPayload(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	header := Sign(testSecret, payload, now)

	verifier := SignatureVerifier{Secret: testSecret, Now: func() time.Time { return now }}
	assert.NoError(t, verifier.Verify(payload, header))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	header := Sign(testSecret, []byte(`{"amount":100}`), now)

	verifier := SignatureVerifier{Secret: testSecret, Now: func() time.Time { return now }}
	err := verifier.Verify([]byte(`{"amount":99999}`), header)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{}`)
	header := Sign("whsec_other", payload, now)

	verifier := SignatureVerifier{Secret: testSecret, Now: func() time.Time { return now }}
	assert.ErrorIs(t, verifier.Verify(payload, header), ErrBadSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	signedAt := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{}`)
	header := Sign(testSecret, payload, signedAt)

	verifier := SignatureVerifier{
		Secret: testSecret,
		Now:    func() time.Time { return signedAt.Add(DefaultTolerance + time.Minute) },
	}
	assert.ErrorIs(t, verifier.Verify(payload, header), ErrStaleTimestamp)
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	verifier := SignatureVerifier{Secret: testSecret}
	require.ErrorIs(t, verifier.Verify([]byte(`{}`), ""), ErrMissingSignature)
	require.ErrorIs(t, verifier.Verify([]byte(`{}`), "v1=deadbeef"), ErrMissingSignature)
}
