package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"campaign-console/internal/campaign"
	"campaign-console/internal/observability"
)

// Client talks to the campaign store's REST API rooted at /api/campaigns.
// It never retries; every failure is returned as *RemoteError.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for baseURL, e.g. "http://localhost:8000/api/campaigns".
// A zero timeout leaves requests bounded only by their context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListCampaigns(ctx context.Context, p campaign.ListParams) ([]campaign.Campaign, error) {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Title != "" {
		q.Set("title", p.Title)
	}
	if p.LandingURL != "" {
		q.Set("landing_url", p.LandingURL)
	}
	if p.IsRunning != nil {
		q.Set("is_running", strconv.FormatBool(*p.IsRunning))
	}
	var out []campaign.Campaign
	err := c.do(ctx, "list campaigns", http.MethodGet, "/", q, nil, &out)
	return out, err
}

func (c *Client) SearchCampaigns(ctx context.Context, query string, skip, limit int) ([]campaign.Campaign, error) {
	q := url.Values{"q": {query}}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []campaign.Campaign
	err := c.do(ctx, "search campaigns", http.MethodGet, "/search", q, nil, &out)
	return out, err
}

func (c *Client) GetCampaign(ctx context.Context, id int) (campaign.Campaign, error) {
	var out campaign.Campaign
	err := c.do(ctx, "get campaign", http.MethodGet, "/"+strconv.Itoa(id), nil, nil, &out)
	return out, err
}

func (c *Client) GetCampaignByURL(ctx context.Context, landingURL string) (campaign.Campaign, error) {
	var out campaign.Campaign
	err := c.do(ctx, "get campaign by url", http.MethodGet, "/url/"+url.PathEscape(landingURL), nil, nil, &out)
	return out, err
}

func (c *Client) CreateCampaign(ctx context.Context, in campaign.NewCampaign) (campaign.Campaign, error) {
	var out campaign.Campaign
	err := c.do(ctx, "create campaign", http.MethodPost, "/campaigns/", nil, in, &out)
	return out, err
}

func (c *Client) UpdateCampaign(ctx context.Context, id int, upd campaign.CampaignUpdate) (campaign.Campaign, error) {
	var out campaign.Campaign
	err := c.do(ctx, "update campaign", http.MethodPatch, "/"+strconv.Itoa(id), nil, upd, &out)
	return out, err
}

func (c *Client) ToggleCampaign(ctx context.Context, id int) (campaign.Campaign, error) {
	var out campaign.Campaign
	err := c.do(ctx, "toggle campaign", http.MethodPatch, "/"+strconv.Itoa(id)+"/toggle", nil, nil, &out)
	return out, err
}

func (c *Client) DeleteCampaign(ctx context.Context, id int) error {
	return c.do(ctx, "delete campaign", http.MethodDelete, "/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) Countries(ctx context.Context) ([]campaign.Country, error) {
	var out []campaign.Country
	err := c.do(ctx, "list countries", http.MethodGet, "/countries", nil, nil, &out)
	return out, err
}

func (c *Client) ListPayouts(ctx context.Context, campaignID int) ([]campaign.Payout, error) {
	var out []campaign.Payout
	err := c.do(ctx, "list payouts", http.MethodGet, "/"+strconv.Itoa(campaignID)+"/payouts/", nil, nil, &out)
	return out, err
}

func (c *Client) CreatePayout(ctx context.Context, campaignID int, in campaign.NewPayout) (campaign.Payout, error) {
	var out campaign.Payout
	err := c.do(ctx, "create payout", http.MethodPost, "/"+strconv.Itoa(campaignID)+"/payouts/", nil, in, &out)
	return out, err
}

func (c *Client) UpdatePayout(ctx context.Context, payoutID int, upd campaign.PayoutUpdate) (campaign.Payout, error) {
	var out campaign.Payout
	err := c.do(ctx, "update payout", http.MethodPatch, "/payouts/"+strconv.Itoa(payoutID), nil, upd, &out)
	return out, err
}

func (c *Client) DeletePayout(ctx context.Context, payoutID int) error {
	return c.do(ctx, "delete payout", http.MethodDelete, "/payouts/"+strconv.Itoa(payoutID), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &RemoteError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveRemote(op, 0, time.Since(start))
		log.Error().Err(err).Str("op", op).Str("url", target).Msg("campaign store unreachable")
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveRemote(op, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		re := &RemoteError{Op: op, StatusCode: resp.StatusCode, Detail: detail(raw)}
		log.Warn().Str("op", op).Int("status", resp.StatusCode).Str("detail", re.Detail).Msg("campaign store rejected request")
		return re
	}
	log.Debug().Str("op", op).Str("method", method).Str("url", target).Int("status", resp.StatusCode).Msg("campaign store call")

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
