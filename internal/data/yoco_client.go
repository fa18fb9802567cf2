package data

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"
)

// yocoClient is the Yoco payment-provider anti-corruption layer.
type yocoClient struct {
	secret []byte
}

// NewYocoClient creates the Yoco client.
func NewYocoClient(c *conf.Bootstrap) biz.YocoClient {
	secret := ""
	if c != nil && c.Webhook != nil {
		secret = c.Webhook.YocoSecret
	}
	return &yocoClient{secret: []byte(secret)}
}

// VerifyWebhook checks the hex-encoded HMAC-SHA256 signature Yoco sends
// over the raw webhook body.
func (c *yocoClient) VerifyWebhook(payload []byte, signature string) bool {
	if len(c.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
