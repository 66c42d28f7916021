// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"viroscope-server/crypto"
	"viroscope-server/db"
	"viroscope-server/middlewares"
	"viroscope-server/models"

	"github.com/labstack/echo/v4"
)

func authenticate(c echo.Context, user *models.User) {
	middlewares.SetClient(c, &middlewares.Client{
		UserID:        &user.ID,
		Administrator: user.Administrator,
		Groups:        user.Groups,
		Permissions:   user.Permissions,
		Authenticated: true,
	})
}

func createTestKey(t *testing.T, c echo.Context, rec *httptest.ResponseRecorder) CreateAPIKeyResponse {
	t.Helper()
	if err := CreateAPIKeyHandler(c); err != nil {
		t.Fatalf("CreateAPIKeyHandler failed: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}
	var resp CreateAPIKeyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return resp
}

func TestCreateAPIKey(t *testing.T) {
	openTestDB(t)
	user := createTestUser(t, "bob", "Password123", false, false)

	c, rec := jsonContext(t, http.MethodPost, "/account/keys",
		`{"name": "analysis-pipeline", "permissions": {"create_sample": true, "modify_hmm": true}}`)
	authenticate(c, user)

	resp := createTestKey(t, c, rec)

	if resp.Key == "" {
		t.Fatal("Expected the key secret in the creation response")
	}
	if resp.DisplayID == "" {
		t.Fatal("Expected a display id")
	}
	if !resp.Permissions["create_sample"] {
		t.Error("Expected create_sample to be granted")
	}
	if resp.Permissions["modify_hmm"] {
		t.Error("modify_hmm exceeds the owner's permissions and must be capped")
	}

	var stored models.APIKey
	if err := db.Conn.First(&stored, "display_id = ?", resp.DisplayID).Error; err != nil {
		t.Fatalf("Failed to load stored key: %v", err)
	}
	if stored.KeyHash != crypto.HashKey(resp.Key) {
		t.Error("The stored hash should match the returned secret")
	}
	if stored.KeyHash == resp.Key {
		t.Error("The secret must not be stored in plaintext")
	}
}

func TestCreateAPIKeyAdministrator(t *testing.T) {
	openTestDB(t)
	admin := createTestUser(t, "root", "Password123", true, false)

	c, rec := jsonContext(t, http.MethodPost, "/account/keys",
		`{"name": "ops", "permissions": {"modify_hmm": true, "remove_job": true}}`)
	authenticate(c, admin)

	resp := createTestKey(t, c, rec)

	if !resp.Permissions["modify_hmm"] || !resp.Permissions["remove_job"] {
		t.Error("An administrator's requested permissions should be granted as-is")
	}
	if !resp.Administrator {
		t.Error("Expected the administrator flag to be snapshotted")
	}
}

func TestCreateAPIKeyDuplicateName(t *testing.T) {
	openTestDB(t)
	user := createTestUser(t, "bob", "Password123", false, false)

	c, rec := jsonContext(t, http.MethodPost, "/account/keys", `{"name": "ci"}`)
	authenticate(c, user)
	createTestKey(t, c, rec)

	c, _ = jsonContext(t, http.MethodPost, "/account/keys", `{"name": "ci"}`)
	authenticate(c, user)

	err := CreateAPIKeyHandler(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for duplicate name, got %v", err)
	}

	// Another user may reuse the name
	other := createTestUser(t, "alice", "Password123", false, false)
	c, rec = jsonContext(t, http.MethodPost, "/account/keys", `{"name": "ci"}`)
	authenticate(c, other)
	createTestKey(t, c, rec)
}

func TestGetAPIKey(t *testing.T) {
	openTestDB(t)
	user := createTestUser(t, "bob", "Password123", false, false)

	c, rec := jsonContext(t, http.MethodPost, "/account/keys", `{"name": "ci"}`)
	authenticate(c, user)
	created := createTestKey(t, c, rec)

	req := httptest.NewRequest(http.MethodGet, "/account/keys/"+created.DisplayID, nil)
	rec = httptest.NewRecorder()
	c = echo.New().NewContext(req, rec)
	c.SetParamNames("key_id")
	c.SetParamValues(created.DisplayID)
	authenticate(c, user)

	if err := GetAPIKeyHandler(c); err != nil {
		t.Fatalf("GetAPIKeyHandler failed: %v", err)
	}

	var resp APIKeyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.DisplayID != created.DisplayID || resp.Name != "ci" {
		t.Error("Expected the created key")
	}

	// Another user cannot address the key
	other := createTestUser(t, "alice", "Password123", false, false)
	c = echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("key_id")
	c.SetParamValues(created.DisplayID)
	authenticate(c, other)

	err := GetAPIKeyHandler(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for another user's key, got %v", err)
	}
}

func TestListAPIKeys(t *testing.T) {
	openTestDB(t)
	user := createTestUser(t, "bob", "Password123", false, false)
	other := createTestUser(t, "alice", "Password123", false, false)

	for _, name := range []string{"ci", "pipeline"} {
		c, rec := jsonContext(t, http.MethodPost, "/account/keys", `{"name": "`+name+`"}`)
		authenticate(c, user)
		createTestKey(t, c, rec)
	}
	c, rec := jsonContext(t, http.MethodPost, "/account/keys", `{"name": "ci"}`)
	authenticate(c, other)
	createTestKey(t, c, rec)

	req := httptest.NewRequest(http.MethodGet, "/account/keys", nil)
	rec = httptest.NewRecorder()
	c = echo.New().NewContext(req, rec)
	authenticate(c, user)

	if err := GetAllAPIKeysHandler(c); err != nil {
		t.Fatalf("GetAllAPIKeysHandler failed: %v", err)
	}

	var resp []APIKeyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(resp))
	}
}

func TestUpdateAPIKey(t *testing.T) {
	openTestDB(t)
	user := createTestUser(t, "bob", "Password123", false, false)
	user.Permissions = models.PermissionSet{"create_sample": true, "remove_file": true}
	if err := db.Conn.Save(user).Error; err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	c, rec := jsonContext(t, http.MethodPost, "/account/keys",
		`{"name": "ci", "permissions": {"create_sample": true}}`)
	authenticate(c, user)
	created := createTestKey(t, c, rec)

	c, rec = jsonContext(t, http.MethodPatch, "/account/keys/"+created.DisplayID,
		`{"permissions": {"remove_file": true, "modify_hmm": true}}`)
	c.SetParamNames("key_id")
	c.SetParamValues(created.DisplayID)
	authenticate(c, user)

	if err := UpdateAPIKeyHandler(c); err != nil {
		t.Fatalf("UpdateAPIKeyHandler failed: %v", err)
	}

	var resp APIKeyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !resp.Permissions["remove_file"] {
		t.Error("Expected remove_file to be granted")
	}
	if resp.Permissions["create_sample"] {
		t.Error("The permission set is replaced, not merged")
	}
	if resp.Permissions["modify_hmm"] {
		t.Error("modify_hmm exceeds the owner's permissions and must be capped")
	}
}

func TestDeleteAPIKeys(t *testing.T) {
	openTestDB(t)
	user := createTestUser(t, "bob", "Password123", false, false)

	c, rec := jsonContext(t, http.MethodPost, "/account/keys", `{"name": "ci"}`)
	authenticate(c, user)
	created := createTestKey(t, c, rec)

	req := httptest.NewRequest(http.MethodDelete, "/account/keys/"+created.DisplayID, nil)
	rec = httptest.NewRecorder()
	c = echo.New().NewContext(req, rec)
	c.SetParamNames("key_id")
	c.SetParamValues(created.DisplayID)
	authenticate(c, user)

	if err := DeleteAPIKeyHandler(c); err != nil {
		t.Fatalf("DeleteAPIKeyHandler failed: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rec.Code)
	}

	var count int64
	db.Conn.Model(&models.APIKey{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected 0 keys after delete, got %d", count)
	}

	// Bulk delete
	for _, name := range []string{"one", "two"} {
		c, rec := jsonContext(t, http.MethodPost, "/account/keys", `{"name": "`+name+`"}`)
		authenticate(c, user)
		createTestKey(t, c, rec)
	}

	rec = httptest.NewRecorder()
	c = echo.New().NewContext(httptest.NewRequest(http.MethodDelete, "/account/keys", nil), rec)
	authenticate(c, user)

	if err := DeleteAllAPIKeysHandler(c); err != nil {
		t.Fatalf("DeleteAllAPIKeysHandler failed: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rec.Code)
	}

	db.Conn.Model(&models.APIKey{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected 0 keys after bulk delete, got %d", count)
	}
}
