package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/praxy-health/zkid-service/pkg/server/framework"
	svcframework "github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/service/group"
	"github.com/praxy-health/zkid-service/pkg/service/verification"
)

type VerificationRouter struct {
	service *verification.Service
}

func NewVerificationRouter(s svcframework.Service) (*VerificationRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	verificationService, ok := s.(*verification.Service)
	if !ok {
		return nil, fmt.Errorf("could not create verification router with service type: %s", s.Type())
	}
	return &VerificationRouter{
		service: verificationService,
	}, nil
}

type VerifyProofRequest struct {
	// The zero-knowledge membership proof to verify.
	Proof verification.Proof `json:"proof" validate:"required"`

	// Optional scope the proof must be bound to, a decimal string.
	ExpectedScope string `json:"expectedScope"`
}

type GroupMismatchDetails struct {
	ProvidedRoot string `json:"providedRoot"`
	ExpectedRoot string `json:"expectedRoot"`
}

type VerifyProofResponse struct {
	Verified bool `json:"verified"`

	// Reason for rejection, only set when Verified is false.
	Error string `json:"error,omitempty"`

	// Set on success.
	Data *verification.Verified `json:"data,omitempty"`

	// Set on a group root mismatch so the client can resync.
	Details *GroupMismatchDetails `json:"details,omitempty"`
}

// VerifyProof godoc
//
// @Summary     Verify Proof
// @Description Verify a zero-knowledge membership proof against the current group.
// @Description Rejections are reported in the response body; only transport and
// @Description storage failures surface as error status codes.
// @Tags        VerificationAPI
// @Accept      json
// @Produce     json
// @Param       request body     VerifyProofRequest true "request body"
// @Success     200     {object} VerifyProofResponse
// @Failure     400     {object} VerifyProofResponse
// @Failure     500     {string} string "Internal server error"
// @Router      /v1/proofs/verification [post]
func (vr VerificationRouter) VerifyProof(c *gin.Context) {
	var request VerifyProofRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid verify proof request", http.StatusBadRequest)
		return
	}

	verified, err := vr.service.VerifyProof(c, request.Proof, request.ExpectedScope)
	if err == nil {
		framework.Respond(c, VerifyProofResponse{Verified: true, Data: verified}, http.StatusOK)
		return
	}

	var groupMismatch *verification.GroupMismatchError
	var scopeMismatch *verification.ScopeMismatchError
	switch {
	case errors.Is(err, verification.ErrMalformedProof):
		framework.Respond(c, VerifyProofResponse{Verified: false, Error: err.Error()}, http.StatusBadRequest)
	case errors.As(err, &groupMismatch):
		framework.Respond(c, VerifyProofResponse{
			Verified: false,
			Error:    err.Error(),
			Details: &GroupMismatchDetails{
				ProvidedRoot: groupMismatch.ProvidedRoot,
				ExpectedRoot: groupMismatch.ExpectedRoot,
			},
		}, http.StatusOK)
	case errors.As(err, &scopeMismatch),
		errors.Is(err, group.ErrEmptyGroup),
		errors.Is(err, verification.ErrNullifierReused),
		errors.Is(err, verification.ErrInvalidProof),
		errors.Is(err, verification.ErrVerificationTimeout):
		framework.Respond(c, VerifyProofResponse{Verified: false, Error: err.Error()}, http.StatusOK)
	default:
		framework.LoggingRespondErrWithMsg(c, err, "could not verify proof", http.StatusInternalServerError)
	}
}
