package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/praxy-health/zkid-service/pkg/server/framework"
	svcframework "github.com/praxy-health/zkid-service/pkg/service/framework"
	"github.com/praxy-health/zkid-service/pkg/service/group"
)

type GroupRouter struct {
	service *group.Service
}

func NewGroupRouter(s svcframework.Service) (*GroupRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	groupService, ok := s.(*group.Service)
	if !ok {
		return nil, fmt.Errorf("could not create group router with service type: %s", s.Type())
	}
	return &GroupRouter{
		service: groupService,
	}, nil
}

type GetGroupResponse struct {
	// Member commitments in insertion order, decimal strings.
	Members []string `json:"members"`

	// The Merkle root over the members, "0" for an empty group.
	Root string `json:"root"`

	MemberCount int `json:"memberCount"`

	// Depth of the Merkle tree, 0 for empty or single-member groups.
	Depth int `json:"depth"`
}

// GetGroup godoc
//
// @Summary     Get Group
// @Description Get the current membership group: all linked commitments in insertion
// @Description order and the Merkle root clients prove against. An empty group is a
// @Description valid response, not an error.
// @Tags        GroupAPI
// @Accept      json
// @Produce     json
// @Success     200 {object} GetGroupResponse
// @Failure     500 {string} string "Internal server error"
// @Router      /v1/group [get]
func (gr GroupRouter) GetGroup(c *gin.Context) {
	currentGroup, err := gr.service.CurrentGroup(c)
	if err != nil {
		if errors.Is(err, group.ErrEmptyGroup) {
			framework.Respond(c, GetGroupResponse{Members: []string{}, Root: "0"}, http.StatusOK)
			return
		}
		framework.LoggingRespondErrWithMsg(c, err, "could not get group", http.StatusInternalServerError)
		return
	}

	framework.Respond(c, GetGroupResponse{
		Members:     currentGroup.Members,
		Root:        currentGroup.Root.String(),
		MemberCount: len(currentGroup.Members),
		Depth:       currentGroup.Depth,
	}, http.StatusOK)
}
