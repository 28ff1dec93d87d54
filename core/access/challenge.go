package access

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trezcool/shule/core"
)

var (
	challengeSalt = []byte("shule.core.access.challenge")
	NowFunc       = time.Now // mockable

	// errors
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrChallengeExpired = errors.New("challenge expired")
	ErrBadSignature     = errors.New("signature does not match address")
)

// MakeChallenge issues a login challenge for addr: a message the wallet
// owner signs to prove control of the key. The trailing token is an HMAC
// over the address and issue time, so the challenge authenticates itself
// and no server-side state is kept.
func MakeChallenge(conf *core.Config, addr common.Address) (string, error) {
	return makeChallengeWithTimestamp(conf, addr, NowFunc().UTC().Unix())
}

// VerifyChallenge checks that a login challenge was issued by us for addr
// and has not expired.
func VerifyChallenge(conf *core.Config, addr common.Address, challenge string) error {
	fields := strings.Fields(challenge)
	if len(fields) == 0 {
		return ErrInvalidChallenge
	}
	token := fields[len(fields)-1]

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidChallenge
	}
	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidChallenge
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return ErrInvalidChallenge
	}

	// check that the challenge has not been tampered with
	expected, err := makeChallengeWithTimestamp(conf, addr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 0 {
		return ErrInvalidChallenge
	}

	// check that the issue time is within limit
	if NowFunc().UTC().Sub(time.Unix(ts, 0)) > conf.Server.LoginChallengeTimeoutDelta {
		return ErrChallengeExpired
	}
	return nil
}

// VerifySignature checks that signature is addr's personal_sign signature
// over challenge.
func VerifySignature(addr common.Address, challenge string, signature []byte) error {
	if len(signature) != crypto.SignatureLength {
		return ErrBadSignature
	}
	// wallets report the recovery id as 27/28; SigToPub wants 0/1
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(challenge)), sig)
	if err != nil {
		return ErrBadSignature
	}
	if crypto.PubkeyToAddress(*pub) != addr {
		return ErrBadSignature
	}
	return nil
}

func makeChallengeWithTimestamp(conf *core.Config, addr common.Address, ts int64) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.FormatInt(ts, 10)))
	sig, err := sign(conf, hashValue(addr, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s login challenge for %s: %s-%s", conf.AppName, addr.Hex(), tsB32, sig), nil
}

func sign(conf *core.Config, val []byte) (string, error) {
	key := sha256.Sum256(append(challengeSalt, conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func hashValue(addr common.Address, ts int64) []byte {
	var val bytes.Buffer
	val.Write(addr.Bytes())
	val.WriteString(strconv.FormatInt(ts, 10))
	return val.Bytes()
}
