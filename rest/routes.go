package rest

import (
	"context"
	"net/http"

	"github.com/LimeProgramming/defectio"
)

// Routes. Bucket keys combine the route shape with its major parameter so
// traffic against one channel never delays another.

// NodeInfo is the unauthenticated API root payload.
type NodeInfo struct {
	Revision int    `json:"revolt,omitempty"`
	WS       string `json:"ws,omitempty"`
	App      string `json:"app,omitempty"`
}

// FetchNodeInfo returns the API root metadata, including the gateway URL.
func (c *Client) FetchNodeInfo(ctx context.Context) (NodeInfo, error) {
	var info NodeInfo
	err := c.do(ctx, http.MethodGet, "/", "GET:/", nil, &info)
	return info, err
}

// SendMessage posts content to a channel and returns the created message.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (defectio.Message, error) {
	var msg defectio.Message
	err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages",
		"POST:/channels/{id}/messages|"+channelID,
		map[string]interface{}{"content": content}, &msg)
	return msg, err
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID,
		"PATCH:/channels/{id}/messages|"+channelID,
		map[string]interface{}{"content": content}, nil)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/messages/"+messageID,
		"DELETE:/channels/{id}/messages|"+channelID, nil, nil)
}

// FetchUser returns a user by ID.
func (c *Client) FetchUser(ctx context.Context, userID string) (defectio.User, error) {
	var u defectio.User
	err := c.do(ctx, http.MethodGet, "/users/"+userID, "GET:/users|"+userID, nil, &u)
	return u, err
}

// FetchChannel returns a channel by ID.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (defectio.Channel, error) {
	var ch defectio.Channel
	err := c.do(ctx, http.MethodGet, "/channels/"+channelID, "GET:/channels|"+channelID, nil, &ch)
	return ch, err
}

// OpenDM opens (or returns the existing) direct-message channel with a user.
func (c *Client) OpenDM(ctx context.Context, userID string) (defectio.Channel, error) {
	var ch defectio.Channel
	err := c.do(ctx, http.MethodGet, "/users/"+userID+"/dm", "GET:/users/{id}/dm|"+userID, nil, &ch)
	return ch, err
}

// FetchRelationships lists the session user's relationships.
func (c *Client) FetchRelationships(ctx context.Context) ([]defectio.Relationship, error) {
	var rels []defectio.Relationship
	err := c.do(ctx, http.MethodGet, "/users/relationships", "GET:/users/relationships", nil, &rels)
	return rels, err
}

// AddFriend sends (or accepts) a friend request.
func (c *Client) AddFriend(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPut, "/users/"+userID+"/friend", "PUT:/users/{id}/friend|"+userID, nil, nil)
}

// RemoveFriend removes a friend or cancels a pending request.
func (c *Client) RemoveFriend(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+userID+"/friend", "DELETE:/users/{id}/friend|"+userID, nil, nil)
}

// BlockUser blocks a user.
func (c *Client) BlockUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPut, "/users/"+userID+"/block", "PUT:/users/{id}/block|"+userID, nil, nil)
}

// UnblockUser unblocks a user.
func (c *Client) UnblockUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+userID+"/block", "DELETE:/users/{id}/block|"+userID, nil, nil)
}

// EditSelf patches the session user's profile. status, for example:
//
//	c.EditSelf(ctx, map[string]interface{}{"status": map[string]string{"text": "away"}})
func (c *Client) EditSelf(ctx context.Context, patch map[string]interface{}) error {
	return c.do(ctx, http.MethodPatch, "/users/@me", "PATCH:/users/@me", patch, nil)
}
