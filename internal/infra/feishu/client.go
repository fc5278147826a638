package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// SendResult is the outcome reported by the Feishu open API
type SendResult struct {
	Code      int
	Msg       string
	MessageID string
}

// Client is a send-only Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
}

// NewClient creates a new Feishu client.
// The underlying lark client manages the tenant access token itself.
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli: lark.NewClient(appID, appSecret,
			lark.WithLogLevel(larkcore.LogLevelError),
			lark.WithEnableTokenCache(true),
		),
	}
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	return c.appID != "" && c.appSecret != ""
}

// ReceiveIDType infers the id type from the receiver id prefix
func ReceiveIDType(receiveID string) string {
	switch {
	case strings.HasPrefix(receiveID, "oc_"):
		return larkim.ReceiveIdTypeChatId
	case strings.HasPrefix(receiveID, "ou_"):
		return larkim.ReceiveIdTypeOpenId
	case strings.HasPrefix(receiveID, "on_"):
		return larkim.ReceiveIdTypeUnionId
	case strings.Contains(receiveID, "@"):
		return larkim.ReceiveIdTypeEmail
	default:
		return larkim.ReceiveIdTypeUserId
	}
}

// SendText sends a text message to a chat or user.
// A non-nil error means the request never got an API answer; API level
// failures are reported through SendResult.Code.
func (c *Client) SendText(ctx context.Context, receiveID, text string) (*SendResult, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encode message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(ReceiveIDType(receiveID)).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("send message failed: %w", err)
	}

	result := &SendResult{Code: resp.Code, Msg: resp.Msg}
	if resp.Success() && resp.Data != nil && resp.Data.MessageId != nil {
		result.MessageID = *resp.Data.MessageId
	}
	return result, nil
}
