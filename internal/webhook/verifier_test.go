package webhook

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"sparrow/internal/plaid"
)

type MockKeyGetter struct {
	WebhookVerificationKeyGetFunc func(ctx context.Context, keyID string) (*plaid.WebhookVerificationKeyGetResponse, error)
}

func (m *MockKeyGetter) WebhookVerificationKeyGet(ctx context.Context, keyID string) (*plaid.WebhookVerificationKeyGetResponse, error) {
	if m.WebhookVerificationKeyGetFunc != nil {
		return m.WebhookVerificationKeyGetFunc(ctx, keyID)
	}
	return nil, errors.New("no key")
}

// signingKey bundles a generated ES256 key with its JWK representation as
// the provider would publish it.
type signingKey struct {
	keyID   string
	private *ecdsa.PrivateKey
	jwk     json.RawMessage
}

func newSigningKey(t *testing.T, keyID string, expiredAt *int64) *signingKey {
	t.Helper()

	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	x := base64.RawURLEncoding.EncodeToString(private.PublicKey.X.FillBytes(make([]byte, 32)))
	y := base64.RawURLEncoding.EncodeToString(private.PublicKey.Y.FillBytes(make([]byte, 32)))

	expiry := "null"
	if expiredAt != nil {
		expiry = fmt.Sprintf("%d", *expiredAt)
	}

	jwk := fmt.Sprintf(
		`{"kty":"EC","crv":"P-256","alg":"ES256","use":"sig","kid":%q,"x":%q,"y":%q,"created_at":%d,"expired_at":%s}`,
		keyID, x, y, time.Now().Unix(), expiry,
	)

	return &signingKey{keyID: keyID, private: private, jwk: json.RawMessage(jwk)}
}

func (k *signingKey) sign(t *testing.T, body []byte, issuedAt time.Time) string {
	t.Helper()

	digest := sha256.Sum256(body)
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iat":                 issuedAt.Unix(),
		"request_body_sha256": hex.EncodeToString(digest[:]),
	})
	token.Header["kid"] = k.keyID

	signed, err := token.SignedString(k.private)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func (k *signingKey) getter() *MockKeyGetter {
	return &MockKeyGetter{
		WebhookVerificationKeyGetFunc: func(ctx context.Context, keyID string) (*plaid.WebhookVerificationKeyGetResponse, error) {
			if keyID != k.keyID {
				return nil, errors.New("unknown key")
			}
			return &plaid.WebhookVerificationKeyGetResponse{Key: k.jwk}, nil
		},
	}
}

func TestVerifyValidToken(t *testing.T) {
	key := newSigningKey(t, "kid-1", nil)
	verifier := NewVerifier(key.getter(), NewKeyCache())

	body := []byte(`{"webhook_type":"TRANSACTIONS"}`)
	token := key.sign(t, body, time.Now())

	if !verifier.Verify(context.Background(), body, token) {
		t.Error("expected valid token to verify")
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	key := newSigningKey(t, "kid-1", nil)
	verifier := NewVerifier(key.getter(), NewKeyCache())

	if verifier.Verify(context.Background(), []byte("{}"), "") {
		t.Error("expected empty token to fail")
	}
}

func TestVerifyTamperedBody(t *testing.T) {
	key := newSigningKey(t, "kid-1", nil)
	verifier := NewVerifier(key.getter(), NewKeyCache())

	token := key.sign(t, []byte(`{"amount":10}`), time.Now())

	if verifier.Verify(context.Background(), []byte(`{"amount":9999}`), token) {
		t.Error("expected tampered body to fail verification")
	}
}

func TestVerifyStaleToken(t *testing.T) {
	key := newSigningKey(t, "kid-1", nil)
	verifier := NewVerifier(key.getter(), NewKeyCache())

	body := []byte("{}")
	token := key.sign(t, body, time.Now().Add(-10*time.Minute))

	if verifier.Verify(context.Background(), body, token) {
		t.Error("expected stale token to fail verification")
	}
}

func TestVerifyUnknownKey(t *testing.T) {
	key := newSigningKey(t, "kid-1", nil)
	getter := &MockKeyGetter{
		WebhookVerificationKeyGetFunc: func(ctx context.Context, keyID string) (*plaid.WebhookVerificationKeyGetResponse, error) {
			return nil, errors.New("key not found")
		},
	}
	verifier := NewVerifier(getter, NewKeyCache())

	body := []byte("{}")
	token := key.sign(t, body, time.Now())

	if verifier.Verify(context.Background(), body, token) {
		t.Error("expected unresolvable key id to fail verification")
	}
}

func TestVerifyExpiredKey(t *testing.T) {
	expiredAt := time.Now().Add(-time.Hour).Unix()
	key := newSigningKey(t, "kid-1", &expiredAt)
	verifier := NewVerifier(key.getter(), NewKeyCache())

	body := []byte("{}")
	token := key.sign(t, body, time.Now())

	if verifier.Verify(context.Background(), body, token) {
		t.Error("expected expired key to fail verification")
	}
}

func TestVerifyWrongSigningKey(t *testing.T) {
	published := newSigningKey(t, "kid-1", nil)
	attacker := newSigningKey(t, "kid-1", nil)
	verifier := NewVerifier(published.getter(), NewKeyCache())

	body := []byte("{}")
	token := attacker.sign(t, body, time.Now())

	if verifier.Verify(context.Background(), body, token) {
		t.Error("expected token signed by a different key to fail verification")
	}
}

func TestVerifyRejectsNonES256(t *testing.T) {
	key := newSigningKey(t, "kid-1", nil)
	verifier := NewVerifier(key.getter(), NewKeyCache())

	body := []byte("{}")
	digest := sha256.Sum256(body)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat":                 time.Now().Unix(),
		"request_body_sha256": hex.EncodeToString(digest[:]),
	})
	token.Header["kid"] = "kid-1"
	signed, err := token.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if verifier.Verify(context.Background(), body, signed) {
		t.Error("expected non-ES256 token to fail verification")
	}
}

func TestVerifyCachesKey(t *testing.T) {
	key := newSigningKey(t, "kid-1", nil)

	fetches := 0
	getter := &MockKeyGetter{
		WebhookVerificationKeyGetFunc: func(ctx context.Context, keyID string) (*plaid.WebhookVerificationKeyGetResponse, error) {
			fetches++
			return &plaid.WebhookVerificationKeyGetResponse{Key: key.jwk}, nil
		},
	}
	verifier := NewVerifier(getter, NewKeyCache())

	body := []byte("{}")
	token := key.sign(t, body, time.Now())

	for i := 0; i < 3; i++ {
		if !verifier.Verify(context.Background(), body, token) {
			t.Fatalf("verification %d failed", i)
		}
	}

	if fetches != 1 {
		t.Errorf("expected 1 key fetch, got %d", fetches)
	}
}
