package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"parley/internal/domain"
)

// Client talks to a relay over HTTP.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

// New returns a relay client for the given base URL. httpc and log may be nil.
func New(base string, httpc *http.Client, log *zap.Logger) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: base, http: httpc, log: log}
}

// RegisterBundle publishes a public prekey bundle to the directory.
func (c *Client) RegisterBundle(ctx context.Context, b domain.PreKeyBundlePublic) error {
	return c.post(ctx, "/register", b, nil)
}

// FetchBundle retrieves a peer's public prekey bundle.
func (c *Client) FetchBundle(ctx context.Context, userID string) (domain.PreKeyBundlePublic, error) {
	var out domain.PreKeyBundlePublic
	if err := c.getJSON(ctx, "/bundle/"+url.PathEscape(userID), &out); err != nil {
		return domain.PreKeyBundlePublic{}, err
	}
	return out, nil
}

// SendEnvelope posts an encrypted envelope to the recipient's mailbox.
func (c *Client) SendEnvelope(ctx context.Context, env domain.Envelope) error {
	return c.post(ctx, "/msg/"+url.PathEscape(env.To), env, nil)
}

// FetchEnvelopes returns up to limit pending envelopes for userID.
func (c *Client) FetchEnvelopes(ctx context.Context, userID string, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(userID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// AckEnvelopes removes the first count envelopes from userID's mailbox.
func (c *Client) AckEnvelopes(ctx context.Context, userID string, count int) error {
	return c.post(ctx, "/msg/"+url.PathEscape(userID)+"/ack", struct {
		Count int `json:"count"`
	}{Count: count}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Compile-time assertion that Client implements domain.RelayClient.
var _ domain.RelayClient = (*Client)(nil)
