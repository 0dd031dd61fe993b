package util

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// From: https://blog.questionable.services/article/generating-secure-random-numbers-crypto-rand/

// GenRandomString returns a URL-safe, base64 encoded securely generated
// random string.
func GenRandomString(d []byte, n int) string {
	b := append(d, GenRandomBytes(n)...)
	return base64.RawURLEncoding.EncodeToString(b)
}

func GenRandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	// Note that err != nil when we fail to read len(b) bytes.
	if err != nil {
		panic(err)
	}
	return b
}

func JsonWrite(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		panic(err)
	}
}

func GenUUID() string {
	x, err := uuid.NewRandom()
	if err != nil {
		panic(err)
	}
	return x.String()
}
