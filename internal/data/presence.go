package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

const maxPresenceBody = 1 << 20

// PresenceConfig contains presence endpoint configuration
type PresenceConfig struct {
	URL      string
	Token    string
	JSONPath string
	Timeout  time.Duration
}

// presenceRepo queries a vehicle data endpoint for the user-present flag
type presenceRepo struct {
	config PresenceConfig
	client *http.Client
}

// NewPresenceRepo creates an HTTP presence repository
func NewPresenceRepo(config PresenceConfig) repo.PresenceRepo {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.JSONPath == "" {
		config.JSONPath = "response.vehicle_state.is_user_present"
	}
	return &presenceRepo{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

func presenceErr(category string, err error) error {
	return &repo.PresenceError{Category: category, Err: err}
}

// CheckPresence performs one GET bounded by the configured timeout
func (r *presenceRepo) CheckPresence(ctx context.Context) (bool, error) {
	endpoint := strings.TrimSpace(r.config.URL)
	token := strings.TrimSpace(r.config.Token)
	if endpoint == "" || token == "" {
		return false, presenceErr(repo.PresenceMissingConfig, errors.New("presence url or token not set"))
	}

	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false, presenceErr(repo.PresenceInvalidEndpoint, fmt.Errorf("bad presence url %q", endpoint))
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, presenceErr(repo.PresenceInvalidEndpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, presenceErr(classifyTransportErr(ctx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxPresenceBody))
		return false, presenceErr(repo.HTTPStatusCategory(resp.StatusCode), fmt.Errorf("status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPresenceBody))
	if err != nil {
		return false, presenceErr(classifyTransportErr(ctx, err), err)
	}

	return parsePresence(body, r.config.JSONPath)
}

func classifyTransportErr(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return repo.PresenceTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return repo.PresenceTimeout
	}
	return repo.PresenceNetworkError
}

// parsePresence extracts the flag at path. Accepted encodings are JSON
// booleans, the numbers 1 and 0, and the strings "true", "false", "1", "0".
func parsePresence(body []byte, path string) (bool, error) {
	if !gjson.ValidBytes(body) {
		return false, presenceErr(repo.PresenceInvalidJSON, errors.New("response is not valid JSON"))
	}

	v := gjson.GetBytes(body, path)
	if !v.Exists() || v.Type == gjson.Null {
		return false, presenceErr(repo.PresenceMissingField, fmt.Errorf("%s not found", path))
	}

	switch v.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.Number:
		switch v.Num {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
	}

	return false, presenceErr(repo.PresenceInvalidValue, fmt.Errorf("%s has unusable value %s", path, v.Raw))
}
