package data

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
	"github.com/DevRickLin/msg-forwarder/internal/conf"
	"github.com/DevRickLin/msg-forwarder/internal/infra/feishu"
)

// Repositories contains all repositories
type Repositories struct {
	Messages  repo.MessageStore
	Presence  repo.PresenceRepo
	Transport repo.Transport
	State     repo.StateRepo
}

// NewRepositories creates all repositories from configuration.
// The returned repositories are always usable; a transport that cannot be
// built is left nil and reported through the error, so sends fail and are
// counted instead of stopping the daemon.
func NewRepositories(cfg *conf.Config, logger *slog.Logger) (*Repositories, error) {
	repos := &Repositories{
		Messages: NewChatDBRepo(cfg.SourceDBPath),
		Presence: NewPresenceRepo(PresenceConfigFrom(cfg)),
		State:    NewStateRepo(cfg.StatePath, logger),
	}

	transport, err := NewTransport(cfg)
	if err != nil {
		return repos, err
	}
	repos.Transport = transport
	return repos, nil
}

// PresenceConfigFrom extracts the presence endpoint settings
func PresenceConfigFrom(cfg *conf.Config) PresenceConfig {
	return PresenceConfig{
		URL:      cfg.PresenceURL,
		Token:    cfg.PresenceToken,
		JSONPath: cfg.PresenceJSONPath,
		Timeout:  time.Duration(cfg.PresenceTimeoutSecs) * time.Second,
	}
}

// NewTransport builds the transport selected by cfg.Transport
func NewTransport(cfg *conf.Config) (repo.Transport, error) {
	switch cfg.Transport {
	case conf.TransportCommand, "":
		if len(cfg.TransportCommand) == 0 {
			return nil, fmt.Errorf("transport %q needs transportCommand", conf.TransportCommand)
		}
		return NewCommandTransport(cfg.TransportCommand), nil
	case conf.TransportFeishu:
		return NewFeishuTransport(feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)), nil
	case conf.TransportTelegram:
		return NewTelegramTransport(cfg.TelegramBotToken, time.Duration(cfg.SendTimeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// Close releases resources held by the repositories
func (r *Repositories) Close() error {
	if c, ok := r.Messages.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
