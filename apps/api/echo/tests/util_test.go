package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/operation"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// profileFor builds the standing a wallet would resolve to when it holds
// exactly the given roles.
func profileFor(addr common.Address, roles ...string) access.Profile {
	profile := access.Profile{
		Address: addr.Hex(),
		Roles:   make([]access.RoleStatus, 0, len(access.AllRoles)),
	}
	for _, role := range access.AllRoles {
		held := false
		for _, name := range roles {
			if role.Name == name {
				held = true
				break
			}
		}
		profile.Roles = append(profile.Roles, access.RoleStatus{Role: role, Held: held})
		if held {
			switch role.Name {
			case access.RoleDefaultAdmin, access.RoleMasterAdmin:
				profile.IsAdmin = true
			case access.RoleTeacher:
				profile.IsTeacher = true
			case access.RoleStudent:
				profile.IsStudent = true
			}
		}
	}
	return profile
}

func getToken(t *testing.T, addr common.Address, roles ...string) string {
	t.Helper()
	token, err := echoapi.GenerateToken(conf, echoapi.NewClaims(conf, profileFor(addr, roles...)))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

// doRequest runs one request through the app and returns the recorder.
func doRequest(t *testing.T, method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

// decodeSnapshot reads an operation snapshot out of a response, failing on
// an unexpected status code.
func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) operation.Snapshot {
	t.Helper()
	if rec.Code != wantCode {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, wantCode, rec.Body.String())
	}
	var snap operation.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	return snap
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
