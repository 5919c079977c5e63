package quantconnect

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// Credentials identify the QuantConnect account. APIToken is a secret.
type Credentials struct {
	UserID   string
	APIToken string
}

// String never prints the token
func (c Credentials) String() string {
	return "quantconnect.Credentials{UserID: " + c.UserID + "}"
}

// Signature returns the Timestamp and Authorization header values:
//
//	Authorization: Basic base64(userId:hex(sha256(apiToken:timestamp)))
func Signature(creds Credentials, at time.Time) (timestamp, authorization string) {
	timestamp = strconv.FormatInt(at.Unix(), 10)

	sum := sha256.Sum256([]byte(creds.APIToken + ":" + timestamp))
	hash := hex.EncodeToString(sum[:])

	encoded := base64.StdEncoding.EncodeToString([]byte(creds.UserID + ":" + hash))
	return timestamp, "Basic " + encoded
}

// signRequest sets the authentication headers on req
func signRequest(req *http.Request, creds Credentials, at time.Time) {
	timestamp, authorization := Signature(creds, at)
	req.Header.Set("Timestamp", timestamp)
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")
}
