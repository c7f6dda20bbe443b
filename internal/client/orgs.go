package client

import (
	"context"
	"fmt"

	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// OrgsClient implements copepod.OrgsClient.
type OrgsClient struct {
	httpClient *internalhttp.Client
}

// NewOrgsClient creates a new organizations client.
func NewOrgsClient(httpClient *internalhttp.Client) *OrgsClient {
	return &OrgsClient{
		httpClient: httpClient,
	}
}

// List implements copepod.OrgsClient.List.
func (c *OrgsClient) List(ctx context.Context) (*copepod.ListResult[copepod.Org], error) {
	resp, err := c.httpClient.Get(ctx, constants.PathPlatformOrgs, nil)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}

	return decodeResponse[copepod.ListResult[copepod.Org]](resp, "organizations list")
}

// Get implements copepod.OrgsClient.Get.
func (c *OrgsClient) Get(ctx context.Context, orgID string) (*copepod.Org, error) {
	resp, err := c.httpClient.Get(ctx, buildPath(constants.OrgPathFormat, orgID), nil)
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}

	return decodeResponse[copepod.Org](resp, "organization")
}

// Create implements copepod.OrgsClient.Create.
func (c *OrgsClient) Create(ctx context.Context, request *copepod.OrgCreateRequest) (*copepod.Org, error) {
	resp, err := c.httpClient.Post(ctx, constants.PathPlatformOrgs, request)
	if err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	return decodeResponse[copepod.Org](resp, "organization response")
}

// Update implements copepod.OrgsClient.Update.
func (c *OrgsClient) Update(ctx context.Context, orgID string, request *copepod.OrgUpdateRequest) (*copepod.Org, error) {
	resp, err := c.httpClient.Patch(ctx, buildPath(constants.OrgPathFormat, orgID), request)
	if err != nil {
		return nil, fmt.Errorf("updating organization: %w", err)
	}

	return decodeResponse[copepod.Org](resp, "organization response")
}

// Delete implements copepod.OrgsClient.Delete.
func (c *OrgsClient) Delete(ctx context.Context, orgID string) error {
	_, err := c.httpClient.Delete(ctx, buildPath(constants.OrgPathFormat, orgID))
	if err != nil {
		return fmt.Errorf("deleting organization: %w", err)
	}

	return nil
}

// ListMembers implements copepod.OrgsClient.ListMembers.
func (c *OrgsClient) ListMembers(ctx context.Context, orgID string) (*copepod.ListResult[copepod.OrgMember], error) {
	resp, err := c.httpClient.Get(ctx, buildPath(constants.OrgMembersPathFormat, orgID), nil)
	if err != nil {
		return nil, fmt.Errorf("listing organization members: %w", err)
	}

	return decodeResponse[copepod.ListResult[copepod.OrgMember]](resp, "organization members list")
}

// AddMember implements copepod.OrgsClient.AddMember.
func (c *OrgsClient) AddMember(ctx context.Context, orgID string, request *copepod.OrgMemberRequest) (*copepod.OrgMember, error) {
	resp, err := c.httpClient.Post(ctx, buildPath(constants.OrgMembersPathFormat, orgID), request)
	if err != nil {
		return nil, fmt.Errorf("adding organization member: %w", err)
	}

	return decodeResponse[copepod.OrgMember](resp, "organization member")
}

// UpdateMember implements copepod.OrgsClient.UpdateMember.
func (c *OrgsClient) UpdateMember(ctx context.Context, orgID, userID string, request *copepod.OrgMemberUpdateRequest) (*copepod.OrgMember, error) {
	path := joinPath(buildPath(constants.OrgMembersPathFormat, orgID), userID)

	resp, err := c.httpClient.Patch(ctx, path, request)
	if err != nil {
		return nil, fmt.Errorf("updating organization member: %w", err)
	}

	return decodeResponse[copepod.OrgMember](resp, "organization member")
}

// RemoveMember implements copepod.OrgsClient.RemoveMember.
func (c *OrgsClient) RemoveMember(ctx context.Context, orgID, userID string) error {
	path := joinPath(buildPath(constants.OrgMembersPathFormat, orgID), userID)

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("removing organization member: %w", err)
	}

	return nil
}
