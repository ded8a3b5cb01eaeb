package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"sparrow/internal/plaid"
)

// HeaderName is the request header carrying the signed verification token.
const HeaderName = "Plaid-Verification"

// maxTokenAge bounds how old a webhook token's iat may be, limiting replay.
const maxTokenAge = 5 * time.Minute

// KeyGetter fetches verification key material from the provider.
type KeyGetter interface {
	WebhookVerificationKeyGet(ctx context.Context, keyID string) (*plaid.WebhookVerificationKeyGetResponse, error)
}

// Verifier authenticates inbound webhooks: an ES256-signed JWT in the
// verification header must validate against provider-published key material
// and its body-digest claim must match the raw request body. Every failure
// mode fails closed; Verify never panics or errors out.
type Verifier struct {
	client KeyGetter
	cache  *KeyCache
	now    func() time.Time
}

func NewVerifier(client KeyGetter, cache *KeyCache) *Verifier {
	return &Verifier{client: client, cache: cache, now: time.Now}
}

// Verify reports whether the webhook body was genuinely signed by the
// provider and is fresh enough to act on.
func (v *Verifier) Verify(ctx context.Context, body []byte, signedToken string) bool {
	if signedToken == "" {
		return false
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(signedToken, jwt.MapClaims{})
	if err != nil {
		return false
	}
	if unverified.Method.Alg() != "ES256" {
		return false
	}
	keyID, ok := unverified.Header["kid"].(string)
	if !ok || keyID == "" {
		return false
	}

	if _, ok := v.cache.Get(keyID); !ok {
		v.refresh(ctx, keyID)
	}

	key, ok := v.cache.Get(keyID)
	if !ok {
		return false
	}
	if key.ExpiredAt != nil {
		return false
	}

	claims, ok := v.decode(signedToken, key)
	if !ok {
		return false
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return false
	}
	if int64(iat) < v.now().Add(-maxTokenAge).Unix() {
		return false
	}

	claimedDigest, ok := claims["request_body_sha256"].(string)
	if !ok {
		return false
	}

	digest := sha256.Sum256(body)
	bodyDigest := hex.EncodeToString(digest[:])
	return hmac.Equal([]byte(bodyDigest), []byte(claimedDigest))
}

// refresh re-fetches material for every cached live key plus the new id.
// Rotated-out keys come back with expired_at set; a failed lookup leaves
// that id unrefreshed and is not an error.
func (v *Verifier) refresh(ctx context.Context, keyID string) {
	ids := append(v.cache.LiveIDs(), keyID)

	for _, id := range ids {
		resp, err := v.client.WebhookVerificationKeyGet(ctx, id)
		if err != nil {
			log.Printf("Webhook: failed to fetch verification key %s: %v", id, err)
			continue
		}

		var marker struct {
			ExpiredAt *int64 `json:"expired_at"`
		}
		if err := json.Unmarshal(resp.Key, &marker); err != nil {
			log.Printf("Webhook: malformed verification key %s: %v", id, err)
			continue
		}

		v.cache.Put(Key{KeyID: id, ExpiredAt: marker.ExpiredAt, Material: resp.Key})
	}
}

// decode verifies the token signature against the key material and returns
// the claims. The JWK is wrapped into a single-key JWKS for the keyfunc
// resolver.
func (v *Verifier) decode(signedToken string, key Key) (jwt.MapClaims, bool) {
	jwksJSON, err := json.Marshal(map[string]any{
		"keys": []json.RawMessage{key.Material},
	})
	if err != nil {
		return nil, false
	}

	jwks, err := keyfunc.NewJSON(jwksJSON)
	if err != nil {
		return nil, false
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signedToken, claims, jwks.Keyfunc,
		jwt.WithValidMethods([]string{"ES256"}),
	)
	if err != nil {
		return nil, false
	}
	return claims, true
}
