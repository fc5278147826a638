package data

import (
	"context"
	"errors"

	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
	"github.com/DevRickLin/msg-forwarder/internal/infra/feishu"
)

// feishuTransport delivers through the Feishu IM open API
type feishuTransport struct {
	client *feishu.Client
}

// NewFeishuTransport creates a transport backed by a Feishu app
func NewFeishuTransport(client *feishu.Client) repo.Transport {
	return &feishuTransport{client: client}
}

func (t *feishuTransport) Name() string {
	return "feishu"
}

// Send maps the API code onto the status code; Msg is surfaced as stderr
// on failure so it reaches the logs
func (t *feishuTransport) Send(ctx context.Context, recipient, text string) (repo.TransportOutput, error) {
	if t.client == nil || !t.client.Configured() {
		return repo.TransportOutput{}, errors.New("feishu credentials not configured")
	}

	res, err := t.client.SendText(ctx, recipient, text)
	if err != nil {
		return repo.TransportOutput{}, err
	}

	out := repo.TransportOutput{StatusCode: res.Code}
	if res.Code == 0 {
		out.Stdout = res.MessageID
	} else {
		out.Stderr = res.Msg
	}
	return out, nil
}
