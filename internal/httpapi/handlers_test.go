package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dialer-platform/internal/agents"
	"dialer-platform/internal/ami"
	"dialer-platform/internal/audit"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/contacts"
	"dialer-platform/internal/dialer"
	"dialer-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

type stubPBX struct{}

func (stubPBX) Originate(ctx context.Context, req ami.OriginateRequest) (bool, error) {
	return true, nil
}

func (stubPBX) ActiveChannels(ctx context.Context, vars ...string) ([]map[string]string, error) {
	return nil, nil
}

func (stubPBX) Close() error { return nil }

type stubDispatcher struct{}

func (stubDispatcher) Dispatch(ctx context.Context, campaignID string, contact contacts.Contact, agent agents.Agent) (string, bool, error) {
	return "call-1", true, nil
}

type apiFixture struct {
	router   *gin.Engine
	camps    *campaigns.MemoryRepo
	contacts *contacts.MemoryRepo
	queue    *contacts.Queue
	ledger   *calls.MemoryRepo
	audit    *audit.MemoryRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &apiFixture{
		camps:    campaigns.NewMemoryRepo(),
		contacts: contacts.NewMemoryRepo(),
		ledger:   calls.NewMemoryRepo(),
	}
	f.queue = contacts.NewQueue(f.contacts)
	pool := agents.NewPool(agents.NewMemoryRepo(), log)

	mgr := dialer.NewManager(dialer.Deps{
		Campaigns: f.camps,
		Contacts:  f.queue,
		Agents:    pool,
		Ledger:    f.ledger,
		Connect:   func(ctx context.Context) (dialer.PBX, error) { return stubPBX{}, nil },
		Trackers:  func(pbx calls.PBXClient) dialer.Dispatcher { return stubDispatcher{} },
	}, dialer.Config{}, log)
	t.Cleanup(mgr.StopAll)

	f.audit = audit.NewMemoryRepo()
	h := Handlers{
		Manager:     mgr,
		Campaigns:   f.camps,
		Queue:       f.queue,
		Reports:     reporting.NewService(f.camps, f.queue, f.ledger),
		Audit:       audit.NewService(f.audit),
		CountryCode: "62",
	}
	f.router = gin.New()
	h.Register(f.router)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCreateAndGetCampaign(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/campaigns", `{"name":"september leads","pacing_ratio":3}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	camp := decode(t, w)["campaign"].(map[string]any)
	id := camp["id"].(string)
	if id == "" || camp["status"] != "pending" {
		t.Fatalf("unexpected campaign payload: %v", camp)
	}

	w = f.do(t, http.MethodGet, "/v1/campaigns/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/v1/campaigns", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
}

func TestCreateCampaignRejectsBadInput(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodPost, "/v1/campaigns", `{"name":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty name accepted: %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/campaigns", `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json accepted: %d", w.Code)
	}
}

func TestImportContacts(t *testing.T) {
	f := newAPIFixture(t)
	f.addCampaign(t, "camp", campaigns.StatusPending)

	w := f.do(t, http.MethodPost, "/v1/campaigns/camp/contacts",
		`{"leads":[{"name":"Budi","phone":"0812-1111-2222"},{"name":"Sari","phone":"0813-3333-4444"}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d body=%s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["imported"].(float64); got != 2 {
		t.Fatalf("imported = %v, want 2", got)
	}

	w = f.do(t, http.MethodPost, "/v1/campaigns/camp/contacts", `{"leads":[{"phone":"abc"}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unusable import status = %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/v1/campaigns/missing/contacts", `{"leads":[]}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown campaign import status = %d", w.Code)
	}
}

func TestDialerControlStatusMapping(t *testing.T) {
	f := newAPIFixture(t)
	f.addCampaign(t, "camp", campaigns.StatusPending)

	// No contacts yet: start is a client error, not a conflict.
	if w := f.do(t, http.MethodPost, "/v1/campaigns/camp/dialer/start", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("empty start status = %d", w.Code)
	}
	// Wrong state transitions map to 409.
	if w := f.do(t, http.MethodPost, "/v1/campaigns/camp/dialer/pause", ""); w.Code != http.StatusConflict {
		t.Fatalf("pause pending status = %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/campaigns/camp/dialer/resume", ""); w.Code != http.StatusConflict {
		t.Fatalf("resume pending status = %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/campaigns/camp/dialer/stop", ""); w.Code != http.StatusConflict {
		t.Fatalf("stop pending status = %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/v1/campaigns/missing/dialer/start", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown start status = %d", w.Code)
	}
}

func TestStartStopRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	f.addCampaign(t, "camp", campaigns.StatusPending)
	f.contacts.Add(contacts.Contact{ID: "ct1", CampaignID: "camp", Phone: "+62811"})

	w := f.do(t, http.MethodPost, "/v1/campaigns/camp/dialer/start", "")
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d body=%s", w.Code, w.Body.String())
	}
	if msg := decode(t, w)["message"]; msg != "predictive dialer started" {
		t.Fatalf("start message = %v", msg)
	}

	// Second start conflicts while the first run is active.
	if w := f.do(t, http.MethodPost, "/v1/campaigns/camp/dialer/start", ""); w.Code != http.StatusConflict {
		t.Fatalf("double start status = %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/v1/campaigns/camp/dialer/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d body=%s", w.Code, w.Body.String())
	}
	camp := decode(t, w)["campaign"].(map[string]any)
	if camp["status"] != "stopped" {
		t.Fatalf("campaign after stop = %v", camp["status"])
	}

	evs := f.audit.Events()
	if len(evs) != 2 || evs[0].Type != audit.EventTypeDialerStarted || evs[1].Type != audit.EventTypeDialerStopped {
		t.Fatalf("audit trail = %+v", evs)
	}

	w = f.do(t, http.MethodGet, "/v1/campaigns/camp/audit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit status = %d", w.Code)
	}
	if events := decode(t, w)["events"].([]any); len(events) != 2 {
		t.Fatalf("audit endpoint returned %d events", len(events))
	}
}

func TestDialerStatusAndReport(t *testing.T) {
	f := newAPIFixture(t)
	f.addCampaign(t, "camp", campaigns.StatusPending)
	f.contacts.Add(contacts.Contact{ID: "ct1", CampaignID: "camp", Phone: "+62811", IsCalled: true})
	f.contacts.Add(contacts.Contact{ID: "ct2", CampaignID: "camp", Phone: "+62812"})

	w := f.do(t, http.MethodGet, "/v1/campaigns/camp/dialer/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status status = %d", w.Code)
	}
	stats := decode(t, w)["stats"].(map[string]any)
	if stats["total_numbers"].(float64) != 2 || stats["called_numbers"].(float64) != 1 {
		t.Fatalf("stats payload: %v", stats)
	}

	w = f.do(t, http.MethodGet, "/v1/campaigns/camp/report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
	rep := decode(t, w)
	if rep["total_numbers"].(float64) != 2 {
		t.Fatalf("report payload: %v", rep)
	}
}

func (f *apiFixture) addCampaign(t *testing.T, id string, status campaigns.Status) {
	t.Helper()
	err := f.camps.Create(context.Background(), campaigns.Campaign{
		ID:       id,
		Name:     "camp " + id,
		Status:   status,
		IsActive: status.Active(),
	})
	if err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
}
