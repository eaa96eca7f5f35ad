// Package remotetest runs an in-memory campaign store speaking the same REST
// contract as the real one, for tests.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"campaign-console/internal/campaign"
)

// Server is a fake campaign store. Payout amounts are served as decimal
// strings, the way the real store encodes them.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	nextID    int
	campaigns []campaign.Campaign
	countries []campaign.Country
	requests  []string
	fail      map[string]int
}

// New starts a server seeded with campaigns. Close it when done.
func New(seed ...campaign.Campaign) *Server {
	s := &Server{
		nextID:    1000,
		campaigns: seed,
		countries: []campaign.Country{
			{Code: "US", Name: "United States", CurrencyCode: "USD", CurrencyName: "US Dollar", EnumValue: "United_States", DisplayName: "United States (USD)"},
			{Code: "DE", Name: "Germany", CurrencyCode: "EUR", CurrencyName: "Euro", EnumValue: "Germany", DisplayName: "Germany (EUR)"},
		},
		fail: map[string]int{},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// BaseURL is the API root to hand to remote.New.
func (s *Server) BaseURL() string { return s.URL + "/api/campaigns" }

// Fail makes every request matching "METHOD /path" answer status.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method+" "+path] = status
}

// Requests lists "METHOD /path" of every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count is the number of served requests equal to "METHOD /path".
func (s *Server) Count(req string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == req {
			n++
		}
	}
	return n
}

// Campaigns returns a copy of the stored campaigns.
func (s *Server) Campaigns() []campaign.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]campaign.Campaign(nil), s.campaigns...)
}

type payoutJSON struct {
	ID         int    `json:"id"`
	Country    string `json:"country"`
	Amount     string `json:"amount"`
	CampaignID int    `json:"campaign_id"`
}

type campaignJSON struct {
	ID         int          `json:"id"`
	Title      string       `json:"title"`
	LandingURL string       `json:"landing_url"`
	IsRunning  bool         `json:"is_running"`
	Payouts    []payoutJSON `json:"payouts"`
}

func toPayoutJSON(p campaign.Payout) payoutJSON {
	return payoutJSON{ID: p.ID, Country: p.Country, Amount: decimal.NewFromFloat(p.Amount).String(), CampaignID: p.CampaignID}
}

func toCampaignJSON(c campaign.Campaign) campaignJSON {
	out := campaignJSON{ID: c.ID, Title: c.Title, LandingURL: c.LandingURL, IsRunning: c.IsRunning, Payouts: []payoutJSON{}}
	for _, p := range c.Payouts {
		out.Payouts = append(out.Payouts, toPayoutJSON(p))
	}
	return out
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, status int, msg string) {
	reply(w, status, map[string]string{"detail": msg})
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key := req.Method + " " + req.URL.Path
			s.mu.Lock()
			s.requests = append(s.requests, key)
			status, failing := s.fail[key]
			s.mu.Unlock()
			if failing {
				detail(w, status, "injected failure")
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Route("/api/campaigns", func(r chi.Router) {
		r.Get("/", s.list)
		r.Get("/search", s.search)
		r.Get("/countries", func(w http.ResponseWriter, _ *http.Request) { reply(w, http.StatusOK, s.countries) })
		r.Post("/campaigns/", s.create)
		r.Get("/url/*", s.byURL)
		r.Get("/{id}", s.get)
		r.Patch("/{id}", s.update)
		r.Delete("/{id}", s.remove)
		r.Patch("/{id}/toggle", s.toggle)
		r.Get("/{id}/payouts/", s.payouts)
		r.Post("/{id}/payouts/", s.createPayout)
		r.Patch("/payouts/{pid}", s.updatePayout)
		r.Delete("/payouts/{pid}", s.deletePayout)
	})
	return r
}

func (s *Server) index(id int) int {
	for i, c := range s.campaigns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) campaignAt(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return 0, false
	}
	i := s.index(id)
	if i < 0 {
		detail(w, http.StatusNotFound, "Campaign not found")
		return 0, false
	}
	return i, true
}

func (s *Server) listJSON(match func(campaign.Campaign) bool, skip, limit int) []campaignJSON {
	out := []campaignJSON{}
	for _, c := range s.campaigns {
		if match(c) {
			out = append(out, toCampaignJSON(c))
		}
	}
	if skip > len(out) {
		skip = len(out)
	}
	out = out[skip:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func ilike(s, sub string) bool { return strings.Contains(strings.ToLower(s), strings.ToLower(sub)) }

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	s.mu.Lock()
	defer s.mu.Unlock()
	reply(w, http.StatusOK, s.listJSON(func(c campaign.Campaign) bool {
		if t := q.Get("title"); t != "" && !ilike(c.Title, t) {
			return false
		}
		if u := q.Get("landing_url"); u != "" && !ilike(c.LandingURL, u) {
			return false
		}
		if v := q.Get("is_running"); v != "" && strconv.FormatBool(c.IsRunning) != v {
			return false
		}
		return true
	}, skip, limit))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		detail(w, http.StatusUnprocessableEntity, "q is required")
		return
	}
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.mu.Lock()
	defer s.mu.Unlock()
	reply(w, http.StatusOK, s.listJSON(func(c campaign.Campaign) bool {
		return ilike(c.Title, q) || ilike(c.LandingURL, q)
	}, skip, limit))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in campaign.NewCampaign
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := campaign.Campaign{ID: s.nextID, Title: in.Title, LandingURL: in.LandingURL, IsRunning: in.IsRunning}
	for _, p := range in.Payouts {
		s.nextID++
		c.Payouts = append(c.Payouts, campaign.Payout{ID: s.nextID, Country: p.Country, Amount: p.Amount, CampaignID: c.ID})
	}
	s.campaigns = append(s.campaigns, c)
	reply(w, http.StatusOK, toCampaignJSON(c))
}

func (s *Server) byURL(w http.ResponseWriter, r *http.Request) {
	u, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid url")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.campaigns {
		if c.LandingURL == u {
			reply(w, http.StatusOK, toCampaignJSON(c))
			return
		}
	}
	detail(w, http.StatusNotFound, "Campaign not found")
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.campaignAt(w, r); ok {
		reply(w, http.StatusOK, toCampaignJSON(s.campaigns[i]))
	}
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var upd campaign.CampaignUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.campaignAt(w, r)
	if !ok {
		return
	}
	c := &s.campaigns[i]
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.LandingURL != nil {
		c.LandingURL = *upd.LandingURL
	}
	if upd.IsRunning != nil {
		c.IsRunning = *upd.IsRunning
	}
	reply(w, http.StatusOK, toCampaignJSON(*c))
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.campaignAt(w, r)
	if !ok {
		return
	}
	s.campaigns = append(s.campaigns[:i:i], s.campaigns[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.campaignAt(w, r)
	if !ok {
		return
	}
	s.campaigns[i].IsRunning = !s.campaigns[i].IsRunning
	reply(w, http.StatusOK, toCampaignJSON(s.campaigns[i]))
}

func (s *Server) payouts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.campaignAt(w, r)
	if !ok {
		return
	}
	out := []payoutJSON{}
	for _, p := range s.campaigns[i].Payouts {
		out = append(out, toPayoutJSON(p))
	}
	reply(w, http.StatusOK, out)
}

func (s *Server) createPayout(w http.ResponseWriter, r *http.Request) {
	var in campaign.NewPayout
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.campaignAt(w, r)
	if !ok {
		return
	}
	if in.Amount <= 0 {
		detail(w, http.StatusBadRequest, "Payout amount must be greater than 0")
		return
	}
	for _, p := range s.campaigns[i].Payouts {
		if p.Country == in.Country {
			detail(w, http.StatusBadRequest, "Payout for "+in.Country+" already exists")
			return
		}
	}
	s.nextID++
	p := campaign.Payout{ID: s.nextID, Country: in.Country, Amount: in.Amount, CampaignID: s.campaigns[i].ID}
	s.campaigns[i].Payouts = append(s.campaigns[i].Payouts, p)
	reply(w, http.StatusOK, toPayoutJSON(p))
}

func (s *Server) findPayout(w http.ResponseWriter, r *http.Request) (ci, pi int, ok bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "pid"))
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "invalid id")
		return 0, 0, false
	}
	for ci := range s.campaigns {
		for pi, p := range s.campaigns[ci].Payouts {
			if p.ID == id {
				return ci, pi, true
			}
		}
	}
	detail(w, http.StatusNotFound, "Payout "+strconv.Itoa(id)+" not found")
	return 0, 0, false
}

func (s *Server) updatePayout(w http.ResponseWriter, r *http.Request) {
	var upd campaign.PayoutUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, pi, ok := s.findPayout(w, r)
	if !ok {
		return
	}
	p := &s.campaigns[ci].Payouts[pi]
	if upd.Country != nil {
		p.Country = *upd.Country
	}
	if upd.Amount != nil {
		p.Amount = *upd.Amount
	}
	reply(w, http.StatusOK, toPayoutJSON(*p))
}

func (s *Server) deletePayout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci, pi, ok := s.findPayout(w, r)
	if !ok {
		return
	}
	ps := s.campaigns[ci].Payouts
	s.campaigns[ci].Payouts = append(ps[:pi:pi], ps[pi+1:]...)
	w.WriteHeader(http.StatusNoContent)
}
