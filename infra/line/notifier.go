// Package line delivers chat messages through the LINE Messaging API.
package line

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/kilianp07/homecoming/core/logger"
)

// Config holds the channel credentials.
type Config struct {
	ChannelSecret      string `json:"channel_secret"`
	ChannelAccessToken string `json:"channel_access_token"`
	// Endpoint overrides the API base URL.
	Endpoint string `json:"endpoint"`
}

// Validate checks that both credentials are present.
func (c Config) Validate() error {
	if c.ChannelSecret == "" {
		return fmt.Errorf("line channel secret is required")
	}
	if c.ChannelAccessToken == "" {
		return fmt.Errorf("line channel access token is required")
	}
	return nil
}

// Notifier sends text replies and push messages.
type Notifier struct {
	api *messaging_api.MessagingApiAPI
	log logger.Logger
}

// NewNotifier creates a Notifier for the configured channel.
func NewNotifier(cfg Config, log logger.Logger) (*Notifier, error) {
	var opts []messaging_api.MessagingApiAPIOption
	if cfg.Endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(cfg.Endpoint))
	}
	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("line client: %w", err)
	}
	return &Notifier{api: api, log: logger.OrNop(log)}, nil
}

// Reply answers the event identified by replyToken.
func (n *Notifier) Reply(ctx context.Context, replyToken, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := n.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   textMessages(text),
	})
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	n.log.Debugf("replied: %s", text)
	return nil
}

// Push sends text to userID outside of a reply.
func (n *Notifier) Push(ctx context.Context, userID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := n.api.WithContext(ctx).PushMessage(&messaging_api.PushMessageRequest{
		To:       userID,
		Messages: textMessages(text),
	}, "")
	if err != nil {
		return fmt.Errorf("push to %s: %w", userID, err)
	}
	n.log.Debugf("pushed to %s: %s", userID, text)
	return nil
}

func textMessages(text string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{messaging_api.TextMessage{Text: text}}
}
