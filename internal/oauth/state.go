package oauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// MakeState signs raw with the state secret: "<raw>.<base64url(hmac)>".
func (k *Kakao) MakeState(raw string) string {
	return raw + "." + base64.RawURLEncoding.EncodeToString(k.sign(raw))
}

func (k *Kakao) VerifyState(got string) bool {
	i := strings.LastIndexByte(got, '.')
	if i <= 0 {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(got[i+1:])
	if err != nil {
		return false
	}
	return hmac.Equal(k.sign(got[:i]), sig)
}

func (k *Kakao) sign(raw string) []byte {
	mac := hmac.New(sha256.New, k.stateKey)
	mac.Write([]byte(raw))
	return mac.Sum(nil)
}
