package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"campaign-console/internal/campaign"
	"campaign-console/internal/dispatcher"
	"campaign-console/internal/engine"
	"campaign-console/internal/remote"
	"campaign-console/internal/session"
	"campaign-console/internal/validate"
)

// ConsoleHandler serves the campaign console to the browser.
type ConsoleHandler struct {
	Disp     *dispatcher.Dispatcher
	Sessions *session.Store
	// SecureCookie marks the session cookie Secure (HTTPS deployments).
	SecureCookie bool
}

func NewConsoleHandler(d *dispatcher.Dispatcher, s *session.Store) *ConsoleHandler {
	return &ConsoleHandler{Disp: d, Sessions: s}
}

// Notification mirrors the toast the console shows for a failed action.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

// CampaignDetails is a campaign with its payout summary.
type CampaignDetails struct {
	Campaign campaign.Campaign      `json:"campaign"`
	Summary  campaign.PayoutSummary `json:"summary"`
}

type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError turns err into a destructive notification. Validation problems
// never reached the store; everything the store rejected is reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *validate.ValidationError
		ue  *validate.InvalidURLError
		bad badRequest
	)
	status := http.StatusBadGateway
	n := Notification{Title: "Error", Description: "The request failed. Please try again.", Variant: "destructive"}

	switch {
	case errors.As(err, &ve):
		status, n.Title, n.Description = http.StatusBadRequest, "Validation Error", ve.Message
	case errors.As(err, &ue):
		status, n.Title, n.Description = http.StatusBadRequest, "Invalid URL", ue.Message
	case errors.As(err, &bad):
		status, n.Title, n.Description = http.StatusBadRequest, "Bad Request", bad.Error()
	case errors.Is(err, session.ErrUnauthenticated):
		status, n.Title, n.Description = http.StatusUnauthorized, "Login required", "Please log in to continue."
	case errors.Is(err, dispatcher.ErrBatchFailed):
		n.Description = "Failed to update payouts"
	case remote.IsNotFound(err):
		status, n.Title, n.Description = http.StatusNotFound, "Not found", "Campaign not found"
	}

	ev := hlog.FromRequest(r).Warn()
	switch {
	case validate.IsValidation(err):
		ev = hlog.FromRequest(r).Debug()
	case status >= 500:
		ev = hlog.FromRequest(r).Error()
	}
	ev.Err(err).Int("status", status).Msg("console request failed")
	writeJSON(w, status, n)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest{fmt.Errorf("invalid JSON body: %w", err)}
	}
	return nil
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, badRequest{fmt.Errorf("invalid %s", name)}
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest{fmt.Errorf("invalid %s", name)}
	}
	return n, nil
}

// Login starts a session from a display name. No credentials are checked.
func (h *ConsoleHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.Sessions.Login(body.Name)
	if err != nil {
		writeError(w, r, badRequest{err})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	hlog.FromRequest(r).Info().Str("name", sess.Name).Msg("login")
	writeJSON(w, http.StatusOK, sess)
}

func (h *ConsoleHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, err := h.Sessions.FromRequest(r); err == nil {
		h.Sessions.Logout(sess.ID)
	}
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, session.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ListCampaigns returns the campaign list after the search, status, payout
// band and sort of the list view are applied.
func (h *ConsoleHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := engine.ParseListState(q.Get("search"), q.Get("status"), q.Get("payout"), q.Get("sort"))
	if err != nil {
		writeError(w, r, badRequest{err})
		return
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	all, err := h.Disp.Campaigns(r.Context(), campaign.ListParams{Skip: skip, Limit: limit})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.Apply(all, st))
}

// SearchCampaigns delegates the search to the store.
func (h *ConsoleHandler) SearchCampaigns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, r, badRequest{errors.New("q is required")})
		return
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Disp.Search(r.Context(), query, skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ConsoleHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var form validate.CreateForm
	if err := decode(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Disp.SubmitCreate(r.Context(), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ConsoleHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Disp.Campaign(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CampaignDetails{Campaign: c, Summary: campaign.Summarize(c.Payouts)})
}

// CampaignByURL backs the details page, which is addressed by landing URL.
func (h *ConsoleHandler) CampaignByURL(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeError(w, r, badRequest{errors.New("url is required")})
		return
	}
	c, err := h.Disp.CampaignByURL(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CampaignDetails{Campaign: c, Summary: campaign.Summarize(c.Payouts)})
}

func (h *ConsoleHandler) EditCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var form validate.EditForm
	if err := decode(r, &form); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Disp.SubmitEdit(r.Context(), id, form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConsoleHandler) ToggleCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Disp.ToggleCampaign(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConsoleHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Disp.DeleteCampaign(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := h.Disp.Payouts(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// SavePayouts replaces a campaign's payout set with the edited rows.
func (h *ConsoleHandler) SavePayouts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Payouts []validate.PayoutRow `json:"payouts"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Disp.SavePayouts(r.Context(), id, body.Payouts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ConsoleHandler) CreatePayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in campaign.NewPayout
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Disp.SubmitPayout(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ConsoleHandler) UpdatePayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "payoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd campaign.PayoutUpdate
	if err := decode(r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validate.PayoutUpdate(upd); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Disp.UpdatePayout(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ConsoleHandler) DeletePayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "payoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Disp.DeletePayout(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandler) Countries(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Disp.Countries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}
