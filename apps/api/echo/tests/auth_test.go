package tests

import (
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/access"
	testutil "github.com/trezcool/shule/tests"
)

// studentKeyHex controls testutil.StudentAddr; standard dev account #2.
const studentKeyHex = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"

func parseClaims(t *testing.T, token string) *echoapi.Claims {
	t.Helper()
	claims := new(echoapi.Claims)
	if _, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(conf.SecretKey), nil
	}); err != nil {
		t.Fatalf("jwt.ParseWithClaims(): %v", err)
	}
	return claims
}

func signChallenge(t *testing.T, key *ecdsa.PrivateKey, challenge string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge)), key)
	if err != nil {
		t.Fatalf("crypto.Sign(): %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27 // as a wallet would report it
	return hexutil.Encode(sig)
}

func Test_authApi_challenge(t *testing.T) {
	reqMsg := "this field is required"
	addrMsg := "must be a valid address: 0x followed by 40 hex characters"

	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.ChallengeRequest{Address: reqMsg})},
		{
			name: "invalid address", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.ChallengeRequest{Address: "lol"}),
			wantData: marchallObj(t, echoapi.ChallengeRequest{Address: addrMsg}),
		},
		{
			name: "missing 0x prefix", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.ChallengeRequest{Address: "3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"}),
			wantData: marchallObj(t, echoapi.ChallengeRequest{Address: addrMsg}),
		},
		{name: "challenge issued", wantCode: http.StatusOK, body: marchallObj(t, echoapi.ChallengeRequest{Address: testutil.StudentAddr.Hex()})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/challenge"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// the trailing token cannot be guessed; check it verifies instead
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.ChallengeResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if !strings.Contains(respData.Challenge, testutil.StudentAddr.Hex()) {
					t.Errorf("failed! challenge %q does not name the address", respData.Challenge)
				}
				if err := access.VerifyChallenge(conf, testutil.StudentAddr, respData.Challenge); err != nil {
					t.Errorf("VerifyChallenge() failed! err %v", err)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_login(t *testing.T) {
	reqMsg := "this field is required"

	studentKey, err := crypto.HexToECDSA(studentKeyHex)
	if err != nil {
		t.Fatalf("crypto.HexToECDSA(): %v", err)
	}
	strangerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("crypto.GenerateKey(): %v", err)
	}

	challenge, err := access.MakeChallenge(conf, testutil.StudentAddr)
	if err != nil {
		t.Fatalf("MakeChallenge(): %v", err)
	}
	strangerChallenge, err := access.MakeChallenge(conf, crypto.PubkeyToAddress(strangerKey.PublicKey))
	if err != nil {
		t.Fatalf("MakeChallenge(): %v", err)
	}

	// generate an expired challenge
	dayLate := conf.Server.LoginChallengeTimeoutDelta + (24 * time.Hour)
	access.NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredChallenge, err := access.MakeChallenge(conf, testutil.StudentAddr)
	if err != nil {
		t.Fatalf("MakeChallenge(): %v", err)
	}
	access.NowFunc = time.Now // reset

	studentHex := testutil.StudentAddr.Hex()
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.LoginRequest{Address: reqMsg, Challenge: reqMsg, Signature: reqMsg}),
		},
		{
			name: "invalid address", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Address: "lol", Challenge: challenge, Signature: "0x00"}),
			wantData: marchallObj(t, echoapi.LoginRequest{Address: "must be a valid address: 0x followed by 40 hex characters"}),
		},
		{
			name: "challenge issued for another wallet", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Address: studentHex, Challenge: strangerChallenge, Signature: signChallenge(t, studentKey, strangerChallenge)}),
			wantData: marchallObj(t, echoapi.LoginRequest{Challenge: "invalid challenge"}),
		},
		{
			name: "tampered challenge", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Address: studentHex, Challenge: challenge + "!", Signature: signChallenge(t, studentKey, challenge+"!")}),
			wantData: marchallObj(t, echoapi.LoginRequest{Challenge: "invalid challenge"}),
		},
		{
			name: "expired challenge", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Address: studentHex, Challenge: expiredChallenge, Signature: signChallenge(t, studentKey, expiredChallenge)}),
			wantData: marchallObj(t, echoapi.LoginRequest{Challenge: "challenge expired"}),
		},
		{
			name: "signature not hex", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Address: studentHex, Challenge: challenge, Signature: "lol"}),
			wantData: marchallObj(t, echoapi.LoginRequest{Signature: "invalid hex encoding"}),
		},
		{
			name: "truncated signature", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Address: studentHex, Challenge: challenge, Signature: "0xdeadbeef"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "signed with the wrong key", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Address: studentHex, Challenge: challenge, Signature: signChallenge(t, strangerKey, challenge)}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "logged in", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Address: studentHex, Challenge: challenge, Signature: signChallenge(t, studentKey, challenge)}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token.. check the claims it carries instead
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Fatal("failed! empty token")
				}
				claims := parseClaims(t, respData.Token)
				if claims.Subject != studentHex {
					t.Errorf("failed! Subject = %v; want %v", claims.Subject, studentHex)
				}
				if !claims.IsStudent || claims.IsTeacher || claims.IsAdmin {
					t.Errorf("failed! flags = %v/%v/%v; want student only", claims.IsStudent, claims.IsTeacher, claims.IsAdmin)
				}
				if len(claims.Roles) != 1 || claims.Roles[0] != access.RoleStudent {
					t.Errorf("failed! Roles = %v; want [%v]", claims.Roles, access.RoleStudent)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    "Shule",
			Subject:   testutil.StudentAddr.Hex(),
			Audience:  "School",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    true,
		Roles:        []string{access.RoleStudent},
	}
	unrefreshableToken, err := echoapi.GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, testutil.StudentAddr, access.RoleStudent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

// A refreshed token gets its roles from the contract, not from the old token.
func Test_authApi_refreshTokenResolvesRoles(t *testing.T) {
	staleToken := getToken(t, testutil.OtherAddr, access.RoleMasterAdmin)

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", staleToken)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var respData echoapi.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	claims := parseClaims(t, respData.Token)
	if claims.IsAdmin || len(claims.Roles) != 0 {
		t.Errorf("failed! Roles = %v, IsAdmin = %v; want no roles", claims.Roles, claims.IsAdmin)
	}
}
