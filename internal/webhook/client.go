package webhook

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Client adapts the Messaging API client to Messenger and to the profile
// lookup used by the greeting.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

// NewClient creates a Messaging API client for the channel access token.
func NewClient(channelToken string) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply sends messages with a reply token.
func (c *Client) Reply(_ context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// ShowLoading shows the loading animation in a chat.
func (c *Client) ShowLoading(_ context.Context, chatID string, seconds int32) error {
	if _, err := c.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	}); err != nil {
		return fmt.Errorf("failed to show loading animation: %w", err)
	}
	return nil
}

// DisplayName returns the LINE display name of a user who has added the bot.
func (c *Client) DisplayName(_ context.Context, userID string) (string, error) {
	profile, err := c.api.GetProfile(userID)
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return profile.DisplayName, nil
}
