package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jwoolab/depositwatch/internal/callback"
	"github.com/jwoolab/depositwatch/internal/ledger"
	"github.com/jwoolab/depositwatch/internal/model"
)

const testToken = "o.abcDEF0123456789xyz"

// stubRunner returns a fixed outcome and records the requests it saw.
type stubRunner struct {
	mu      sync.Mutex
	outcome model.Outcome
	runs    []model.ChargeRequest
}

func (s *stubRunner) Run(ctx context.Context, req model.ChargeRequest) model.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, req)
	return s.outcome
}

func (s *stubRunner) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func newTestServer(t *testing.T, runner ChargeRunner, notifier *callback.Notifier) (http.Handler, *ledger.Sqlite) {
	t.Helper()
	l, err := ledger.NewSqlite(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSqlite: %v", err)
	}
	t.Cleanup(l.Close)

	if notifier == nil {
		notifier = callback.NewNotifier("")
	}
	return NewRouter(runner, l, notifier, nil), l
}

func postBank(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bank", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCheckCharge_Success(t *testing.T) {
	runner := &stubRunner{outcome: model.Outcome{Success: true, Amount: 10000, Message: "충전 완료"}}
	h, _ := newTestServer(t, runner, nil)

	rec := postBank(t, h, `{"time":1700000000,"pushbullet":"`+testToken+`","amount":10000,"name":"김철수","userId":42,"chargeLogId":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	out := decodeResponse(t, rec)
	if out["success"] != true {
		t.Errorf("success = %v, want true", out["success"])
	}
	if out["amount"] != float64(10000) {
		t.Errorf("amount = %v, want 10000", out["amount"])
	}

	if runner.runCount() != 1 {
		t.Fatalf("runner called %d times, want 1", runner.runCount())
	}
	got := runner.runs[0]
	if got.Amount != 10000 || got.PayerName != "김철수" || got.RequestedTime != 1700000000 {
		t.Errorf("request = %+v", got)
	}
	if got.ExternalUserID != 42 || got.ExternalChargeID != 7 {
		t.Errorf("correlation = (%d, %d), want (42, 7)", got.ExternalUserID, got.ExternalChargeID)
	}
}

func TestCheckCharge_MissingFields(t *testing.T) {
	runner := &stubRunner{}
	h, _ := newTestServer(t, runner, nil)

	bodies := []string{
		`{"pushbullet":"` + testToken + `","name":"김철수","time":1700000000}`,
		`{"pushbullet":"` + testToken + `","amount":10000,"time":1700000000}`,
		`{"pushbullet":"` + testToken + `","amount":10000,"name":"김철수"}`,
		`{"pushbullet":"` + testToken + `","amount":-1,"name":"김철수","time":1700000000}`,
		`not json`,
	}

	for _, body := range bodies {
		rec := postBank(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}

	if runner.runCount() != 0 {
		t.Errorf("runner called %d times, want 0", runner.runCount())
	}
}

func TestCheckCharge_NoTokenShortCircuits(t *testing.T) {
	runner := &stubRunner{}
	h, _ := newTestServer(t, runner, nil)

	rec := postBank(t, h, `{"time":1700000000,"amount":10000,"name":"김철수"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	out := decodeResponse(t, rec)
	if out["success"] != false {
		t.Errorf("success = %v, want false", out["success"])
	}
	if out["message"] != "수동 처리 필요" {
		t.Errorf("message = %v", out["message"])
	}
	if runner.runCount() != 0 {
		t.Errorf("runner called %d times, want 0", runner.runCount())
	}
}

func TestCheckCharge_MalformedToken(t *testing.T) {
	runner := &stubRunner{}
	h, _ := newTestServer(t, runner, nil)

	rec := postBank(t, h, `{"time":1700000000,"pushbullet":"garbage","amount":10000,"name":"김철수"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if runner.runCount() != 0 {
		t.Errorf("runner called %d times, want 0", runner.runCount())
	}
}

func TestCheckCharge_FiresCallbackWithCorrelation(t *testing.T) {
	received := make(chan map[string]any, 1)
	cbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		received <- body
	}))
	defer cbServer.Close()

	runner := &stubRunner{outcome: model.Outcome{Success: true, Amount: 10000, Message: "충전 완료"}}
	h, _ := newTestServer(t, runner, callback.NewNotifier(cbServer.URL))

	postBank(t, h, `{"time":1700000000,"pushbullet":"`+testToken+`","amount":10000,"name":"김철수","userId":42,"chargeLogId":7}`)

	select {
	case body := <-received:
		if body["userId"] != float64(42) || body["chargeLogId"] != float64(7) {
			t.Errorf("callback body = %v", body)
		}
		if body["success"] != true {
			t.Errorf("callback success = %v, want true", body["success"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestCheckCharge_NoCallbackWithoutCorrelation(t *testing.T) {
	received := make(chan struct{}, 1)
	cbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
	}))
	defer cbServer.Close()

	runner := &stubRunner{outcome: model.Outcome{Success: true, Amount: 10000, Message: "충전 완료"}}
	h, _ := newTestServer(t, runner, callback.NewNotifier(cbServer.URL))

	// chargeLogId missing: correlation incomplete.
	postBank(t, h, `{"time":1700000000,"pushbullet":"`+testToken+`","amount":10000,"name":"김철수","userId":42}`)

	select {
	case <-received:
		t.Fatal("callback fired without full correlation")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestListCharges(t *testing.T) {
	runner := &stubRunner{}
	h, l := newTestServer(t, runner, nil)

	rec := model.ChargeRecord{
		Time: 1700000000, Amount: 10000, PayerName: "김철수",
		Device: "com.kakaobank.channel", Confirmed: true,
	}
	if err := l.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/charges", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var out struct {
		Charges []map[string]any `json:"charges"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Charges) != 1 {
		t.Fatalf("len(charges) = %d, want 1", len(out.Charges))
	}
	if out.Charges[0]["name"] != "김철수" {
		t.Errorf("charges[0] = %v", out.Charges[0])
	}
}

func TestHealth(t *testing.T) {
	runner := &stubRunner{}
	h, _ := newTestServer(t, runner, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q, want ok", out["status"])
	}
}
