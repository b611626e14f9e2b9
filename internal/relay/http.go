package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"elgchat/internal/domain"
)

// ErrNotFound is returned when the relay answers 404.
var ErrNotFound = errors.New("relay: not found")

// DefaultTimeout bounds a single relay round trip when no client is supplied.
const DefaultTimeout = 15 * time.Second

// HTTP is a RelayClient over JSON/HTTP.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. A zero timeout selects
// DefaultTimeout.
func NewHTTP(base string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{Base: base, HTTP: &http.Client{Timeout: timeout}}
}

// PublishPublicKey registers key under id, replacing any earlier key.
func (c *HTTP) PublishPublicKey(ctx context.Context, id domain.ParticipantID, key domain.PublicKey) error {
	return c.post(ctx, "/keys", KeyRecord{ParticipantID: id, PublicKey: key}, nil)
}

// FetchPublicKey returns the key registered for id.
func (c *HTTP) FetchPublicKey(ctx context.Context, id domain.ParticipantID) (domain.PublicKey, error) {
	var out KeyRecord
	if err := c.getJSON(ctx, "/keys/"+url.PathEscape(id.String()), &out); err != nil {
		return domain.PublicKey{}, err
	}
	return out.PublicKey, nil
}

// CreateConversation posts payload and returns the conversation the relay
// assigned an ID to.
func (c *HTTP) CreateConversation(
	ctx context.Context,
	payload domain.ConversationPayload,
) (domain.Conversation, error) {
	var out domain.Conversation
	if err := c.post(ctx, "/conversations", payload, &out); err != nil {
		return domain.Conversation{}, err
	}
	return out, nil
}

// FetchConversations lists every conversation member belongs to.
func (c *HTTP) FetchConversations(ctx context.Context, member domain.ParticipantID) ([]domain.Conversation, error) {
	var out []domain.Conversation
	q := url.Values{"member": {member.String()}}
	if err := c.getJSON(ctx, "/conversations?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Deliver queues envelope for every recipient.
func (c *HTTP) Deliver(ctx context.Context, recipients []domain.ParticipantID, env domain.Envelope) error {
	return c.post(ctx, "/msg", domain.Delivery{Recipients: recipients, Envelope: env}, nil)
}

// FetchMessages returns up to limit queued envelopes for me, oldest first.
// A limit of 0 fetches everything queued.
func (c *HTTP) FetchMessages(ctx context.Context, me domain.ParticipantID, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(me.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// AckMessages drops the first count queued envelopes for me.
func (c *HTTP) AckMessages(ctx context.Context, me domain.ParticipantID, count int) error {
	return c.post(ctx, "/msg/"+url.PathEscape(me.String())+"/ack", AckRequest{Count: count}, nil)
}

func (c *HTTP) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(http.MethodPost, path, resp); err != nil {
		return err
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(http.MethodGet, path, resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(method, path string, resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	return fmt.Errorf("relay %s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
}

var _ domain.RelayClient = (*HTTP)(nil)
