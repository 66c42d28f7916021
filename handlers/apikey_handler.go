// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"errors"
	"net/http"
	"viroscope-server/crypto"
	"viroscope-server/db"
	"viroscope-server/dispatcher"
	"viroscope-server/events"
	"viroscope-server/middlewares"
	"viroscope-server/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const apiKeySecretBytes = 32

// CreateAPIKeyHandler godoc
// @Summary      Create an API key
// @Description  Creates a long-lived API key for the authenticated user. The
// @Description  requested permissions are intersected with the user's own
// @Description  unless the user is an administrator. The key secret appears
// @Description  only in this response; the server stores its hash.
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        createKeyRequest  body  CreateAPIKeyRequest  true  "Key creation payload"
// @Success      201 {object} CreateAPIKeyResponse "API key created"
// @Failure      400 {object} echo.HTTPError       "Bad request"
// @Failure      401 {object} echo.HTTPError       "Unauthorized"
// @Failure      500 {object} echo.HTTPError       "Internal server error"
// @Router       /account/keys [post]
func CreateAPIKeyHandler(c echo.Context) error {
	logger := c.Logger()

	var req CreateAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid key creation payload:", err)
		return echo.ErrBadRequest
	}

	if req.Name == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "name field is required",
		}
	}

	owner, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	var count int64
	err = db.Conn.Model(&models.APIKey{}).
		Where("user_id = ? AND name = ?", owner.ID, req.Name).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to check key name:", err)
		return echo.ErrInternalServerError
	}
	if count > 0 {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "API key name already exists",
		}
	}

	secret, err := crypto.GenerateSecret(apiKeySecretBytes)
	if err != nil {
		logger.Error("Failed to generate key secret:", err)
		return echo.ErrInternalServerError
	}

	key := models.APIKey{
		KeyHash:       crypto.HashKey(secret),
		DisplayID:     uuid.NewString(),
		Name:          req.Name,
		Administrator: owner.Administrator,
		Groups:        owner.Groups,
		Permissions:   capPermissions(req.Permissions, owner),
		UserID:        owner.ID,
	}

	if err := db.Conn.Create(&key).Error; err != nil {
		logger.Error("Failed to create API key:", err)
		return echo.ErrInternalServerError
	}

	document := keyResponse(&key)
	events.Publish("keys", dispatcher.OperationCreate, document)

	return c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: document,
		Key:            secret,
	})
}

// GetAllAPIKeysHandler godoc
// @Summary      List API keys
// @Description  Lists the authenticated user's API keys. Secrets are never
// @Description  included.
// @Tags         account
// @Produce      json
// @Success      200 {array} APIKeyResponse  "API keys"
// @Failure      401 {object} echo.HTTPError "Unauthorized"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /account/keys [get]
func GetAllAPIKeysHandler(c echo.Context) error {
	logger := c.Logger()

	client := middlewares.GetClient(c)

	var keys []models.APIKey
	if err := db.Conn.Where("user_id = ?", client.UserID).Find(&keys).Error; err != nil {
		logger.Error("Failed to list API keys:", err)
		return echo.ErrInternalServerError
	}

	documents := make([]APIKeyResponse, 0, len(keys))
	for i := range keys {
		documents = append(documents, keyResponse(&keys[i]))
	}
	return c.JSON(http.StatusOK, documents)
}

// GetAPIKeyHandler godoc
// @Summary      Get an API key
// @Description  Retrieves one of the authenticated user's API keys by its
// @Description  public display ID.
// @Tags         account
// @Produce      json
// @Param        key_id  path  string  true  "Key display ID"
// @Success      200 {object} APIKeyResponse  "API key"
// @Failure      404 {object} echo.HTTPError  "Not found"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /account/keys/{key_id} [get]
func GetAPIKeyHandler(c echo.Context) error {
	key, err := findOwnKey(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, keyResponse(key))
}

// UpdateAPIKeyHandler godoc
// @Summary      Update an API key
// @Description  Replaces the permission set of one of the authenticated
// @Description  user's API keys. The new set is intersected with the owner's
// @Description  current permissions unless the owner is an administrator.
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        key_id  path  string  true  "Key display ID"
// @Param        updateKeyRequest  body  UpdateAPIKeyRequest  true  "Key update payload"
// @Success      200 {object} APIKeyResponse  "API key updated"
// @Failure      404 {object} echo.HTTPError  "Not found"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /account/keys/{key_id} [patch]
func UpdateAPIKeyHandler(c echo.Context) error {
	logger := c.Logger()

	var req UpdateAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid key update payload:", err)
		return echo.ErrBadRequest
	}

	key, err := findOwnKey(c)
	if err != nil {
		return err
	}

	owner, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return echo.ErrUnauthorized
	}

	key.Permissions = capPermissions(req.Permissions, owner)

	if err := db.Conn.Save(key).Error; err != nil {
		logger.Error("Failed to update API key:", err)
		return echo.ErrInternalServerError
	}

	document := keyResponse(key)
	events.Publish("keys", dispatcher.OperationUpdate, document)

	return c.JSON(http.StatusOK, document)
}

// DeleteAPIKeyHandler godoc
// @Summary      Delete an API key
// @Description  Removes one of the authenticated user's API keys.
// @Tags         account
// @Param        key_id  path  string  true  "Key display ID"
// @Success      204 "API key deleted"
// @Failure      404 {object} echo.HTTPError "Not found"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /account/keys/{key_id} [delete]
func DeleteAPIKeyHandler(c echo.Context) error {
	logger := c.Logger()

	key, err := findOwnKey(c)
	if err != nil {
		return err
	}

	if err := db.Conn.Delete(key).Error; err != nil {
		logger.Error("Failed to delete API key:", err)
		return echo.ErrInternalServerError
	}

	events.Publish("keys", dispatcher.OperationDelete, keyResponse(key))

	return c.NoContent(http.StatusNoContent)
}

// DeleteAllAPIKeysHandler godoc
// @Summary      Delete all API keys
// @Description  Removes every API key belonging to the authenticated user.
// @Tags         account
// @Success      204 "API keys deleted"
// @Failure      500 {object} echo.HTTPError "Internal server error"
// @Router       /account/keys [delete]
func DeleteAllAPIKeysHandler(c echo.Context) error {
	logger := c.Logger()

	client := middlewares.GetClient(c)

	err := db.Conn.Where("user_id = ?", client.UserID).Delete(&models.APIKey{}).Error
	if err != nil {
		logger.Error("Failed to delete API keys:", err)
		return echo.ErrInternalServerError
	}

	return c.NoContent(http.StatusNoContent)
}

// capPermissions enforces the key invariant: a key's permission set can
// never exceed the owner's own permissions, unless the owner is an
// administrator.
func capPermissions(requested models.PermissionSet, owner *models.User) models.PermissionSet {
	if owner.Administrator {
		normalized := models.NewPermissionSet()
		for _, name := range models.Capabilities {
			normalized[name] = requested[name]
		}
		return normalized
	}
	return models.Limit(requested, owner.Permissions)
}

func findOwnKey(c echo.Context) (*models.APIKey, error) {
	client := middlewares.GetClient(c)

	var key models.APIKey
	err := db.Conn.
		Where("display_id = ? AND user_id = ?", c.Param("key_id"), client.UserID).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.ErrNotFound
	}
	if err != nil {
		c.Logger().Error("Failed to find API key:", err)
		return nil, echo.ErrInternalServerError
	}
	return &key, nil
}

func keyResponse(key *models.APIKey) APIKeyResponse {
	return APIKeyResponse{
		DisplayID:     key.DisplayID,
		Name:          key.Name,
		Administrator: key.Administrator,
		Groups:        key.Groups,
		Permissions:   key.Permissions,
		CreatedAt:     key.CreatedAt,
	}
}
