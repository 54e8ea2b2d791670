package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/praxy-health/zkid-service/pkg/server/framework"
	svcframework "github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/service/ledger"
	"github.com/praxy-health/zkid-service/pkg/service/registry"
)

type RegistryRouter struct {
	service *registry.Service
}

func NewRegistryRouter(s svcframework.Service) (*RegistryRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	registryService, ok := s.(*registry.Service)
	if !ok {
		return nil, fmt.Errorf("could not create registry router with service type: %s", s.Type())
	}
	return &RegistryRouter{
		service: registryService,
	}, nil
}

type LinkCredentialRequest struct {
	// The credential identifier, matched case-insensitively against the roster.
	CredentialID string `json:"credentialId" validate:"required" example:"MN-118951"`

	// Given name as it appears on the roster.
	GivenName string `json:"givenName" validate:"required" example:"Claudia"`

	// Family name as it appears on the roster.
	FamilyName string `json:"familyName" validate:"required" example:"Gutierrez"`

	// The identity commitment to bind, a decimal string.
	Commitment string `json:"commitment" validate:"required" example:"1234567890123456789"`
}

type LinkCredentialResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LinkCredential godoc
//
// @Summary     Link Credential
// @Description Bind an identity commitment to a roster credential. Linking the same
// @Description commitment again is a no-op; linking a different commitment to an
// @Description already-bound credential is a conflict.
// @Tags        RegistryAPI
// @Accept      json
// @Produce     json
// @Param       request body     LinkCredentialRequest true "request body"
// @Success     201     {object} LinkCredentialResponse
// @Success     200     {object} LinkCredentialResponse
// @Failure     400     {string} string "Bad request"
// @Failure     404     {string} string "Credential not found"
// @Failure     409     {string} string "Credential already bound"
// @Router      /v1/credentials/link [put]
func (rr RegistryRouter) LinkCredential(c *gin.Context) {
	var request LinkCredentialRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid link credential request", http.StatusBadRequest)
		return
	}

	_, err := rr.service.Link(c, registry.LinkRequest{
		CredentialID: request.CredentialID,
		GivenName:    request.GivenName,
		FamilyName:   request.FamilyName,
		Commitment:   request.Commitment,
	})
	switch {
	case err == nil:
		framework.Respond(c, LinkCredentialResponse{Success: true, Message: "credential linked"}, http.StatusCreated)
	case errors.Is(err, registry.ErrAlreadyLinked):
		framework.Respond(c, LinkCredentialResponse{Success: true, Message: "credential already linked with this commitment"}, http.StatusOK)
	case errors.Is(err, ledger.ErrCredentialNotFound):
		framework.LoggingRespondError(c, err, http.StatusNotFound)
	case errors.Is(err, registry.ErrCredentialAlreadyBound):
		framework.LoggingRespondError(c, err, http.StatusConflict)
	case errors.Is(err, registry.ErrInvalidCommitment):
		framework.LoggingRespondError(c, err, http.StatusBadRequest)
	default:
		framework.LoggingRespondErrWithMsg(c, err, "could not link credential", http.StatusInternalServerError)
	}
}

type RevokeCredentialResponse struct {
	// Whether a linked credential was removed.
	Revoked bool `json:"revoked"`
}

// RevokeCredential godoc
//
// @Summary     Revoke Credential
// @Description Remove a credential's link, excluding its commitment from future groups.
// @Tags        RegistryAPI
// @Accept      json
// @Produce     json
// @Param       id  path     string true "ID"
// @Success     200 {object} RevokeCredentialResponse
// @Failure     500 {string} string "Internal server error"
// @Router      /v1/credentials/{id} [delete]
func (rr RegistryRouter) RevokeCredential(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		framework.LoggingRespondErrMsg(c, "revoke request missing id parameter", http.StatusBadRequest)
		return
	}

	revoked, err := rr.service.Revoke(c, id)
	if err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "could not revoke credential", http.StatusInternalServerError)
		return
	}
	framework.Respond(c, RevokeCredentialResponse{Revoked: revoked}, http.StatusOK)
}

type SyncCredentialsRequest struct {
	// The full desired registry state. Replaces all existing links atomically.
	// An empty list clears the registry.
	LinkedCredentials []registry.LinkedCredential `json:"linkedCredentials"`
}

type SyncCredentialsResponse struct {
	Success bool `json:"success"`

	// Number of linked credentials after the sync.
	Count int `json:"count"`
}

// SyncCredentials godoc
//
// @Summary     Sync Credentials
// @Description Replace the entire registry with the provided set of linked credentials.
// @Tags        RegistryAPI
// @Accept      json
// @Produce     json
// @Param       request body     SyncCredentialsRequest true "request body"
// @Success     200     {object} SyncCredentialsResponse
// @Failure     400     {string} string "Bad request"
// @Failure     500     {string} string "Internal server error"
// @Router      /v1/credentials/sync [put]
func (rr RegistryRouter) SyncCredentials(c *gin.Context) {
	var request SyncCredentialsRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid sync credentials request", http.StatusBadRequest)
		return
	}

	if err := rr.service.Sync(c, request.LinkedCredentials); err != nil {
		if errors.Is(err, registry.ErrInvalidCommitment) {
			framework.LoggingRespondError(c, err, http.StatusBadRequest)
			return
		}
		framework.LoggingRespondErrWithMsg(c, err, "could not sync credentials", http.StatusInternalServerError)
		return
	}
	framework.Respond(c, SyncCredentialsResponse{Success: true, Count: len(request.LinkedCredentials)}, http.StatusOK)
}
