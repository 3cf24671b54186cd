package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/roach88/zwiggato/internal/api"
	"github.com/roach88/zwiggato/internal/catalog"
	"github.com/roach88/zwiggato/internal/ledger"
	"github.com/roach88/zwiggato/internal/store"
	"github.com/roach88/zwiggato/internal/testutil"
)

// SessionValue is the cookie value sent on every step that wants a session.
const SessionValue = "harness-session"

// Harness is the test execution engine.
// It serves one scenario from an in-memory database with a deterministic
// clock, so ids and created_at values repeat exactly across runs.
type Harness struct {
	store  *store.Store
	reader *ledger.Reader
	router *gin.Engine
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create fresh in-memory database
//  2. Seed the reference catalog unless empty_catalog is set
//  3. Send each step through the router and check its expect clause
//  4. Evaluate assertions against the final database state
//
// The returned error is reserved for setup failures; a scenario that does
// not hold reports through Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithLogger(ctx, scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with the service logs sent to logger.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := newHarness(ctx, scenario, logger)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.runStep(i, step, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{
		Ctx:    ctx,
		Store:  h.store,
		Orders: h.reader,
	}) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Harness, error) {
	policy, err := ledger.ParseTotalPolicy(scenario.Policy)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}

	if !scenario.EmptyCatalog {
		ref, err := catalog.DefaultReference()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("load reference catalog: %w", err)
		}
		if _, err := catalog.NewReconciler(st, ref, logger).Reconcile(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	clock := testutil.NewDeterministicClock()
	reader := ledger.NewReader(st, logger)
	router := api.NewRouter(api.Deps{
		Catalog: st,
		Ledger: ledger.New(st, ledger.Options{
			Policy: policy,
			Clock:  clock,
			Logger: logger,
		}),
		Orders:        reader,
		Health:        st,
		SessionCookie: api.DefaultSessionCookie,
		Logger:        logger,
	})

	return &Harness{
		store:  st,
		reader: reader,
		router: router,
		clock:  clock,
		logger: logger,
	}, nil
}

// runStep sends one request and records the exchange. Mismatches are added
// to result; only a step that cannot be built returns an error.
func (h *Harness) runStep(index int, step Step, result *Result) error {
	body, err := stepBody(step)
	if err != nil {
		return fmt.Errorf("steps[%d] %s: %w", index, step.Name, err)
	}

	req := httptest.NewRequest(step.Method, step.Path, bytes.NewReader(body))
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if !step.NoSession {
		req.AddCookie(&http.Cookie{Name: api.DefaultSessionCookie, Value: SessionValue})
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	respBody := bytes.TrimSpace(rec.Body.Bytes())
	if !json.Valid(respBody) {
		result.AddError(fmt.Sprintf("steps[%d] %s: response is not JSON: %q", index, step.Name, respBody))
		respBody = nil
	}
	if len(respBody) == 0 {
		respBody = []byte("null")
	}

	result.AddExchange(Exchange{
		Step:   step.Name,
		Method: step.Method,
		Path:   step.Path,
		Status: rec.Code,
		Body:   json.RawMessage(respBody),
	})

	if step.Expect != nil {
		for _, msg := range checkExpect(step.Expect, rec.Code, respBody) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", index, step.Name, msg))
		}
	}
	return nil
}

func stepBody(step Step) ([]byte, error) {
	if step.RawBody != "" {
		return []byte(step.RawBody), nil
	}
	if step.Body == nil {
		return nil, nil
	}
	data, err := json.Marshal(step.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return data, nil
}

func checkExpect(expect *ExpectClause, status int, body []byte) []string {
	var msgs []string
	if status != expect.Status {
		msgs = append(msgs, fmt.Sprintf("status = %d, expected %d", status, expect.Status))
	}

	var actual interface{}
	if err := json.Unmarshal(body, &actual); err != nil {
		return append(msgs, fmt.Sprintf("decode response: %v", err))
	}

	if expect.Body != nil && !matchValue(expect.Body, actual) {
		msgs = append(msgs, fmt.Sprintf("body = %s, expected to match %v", body, expect.Body))
	}

	if expect.Error != "" || expect.Field != "" {
		obj, _ := actual.(map[string]interface{})
		if expect.Error != "" && obj["error"] != expect.Error {
			msgs = append(msgs, fmt.Sprintf("error = %v, expected %q", obj["error"], expect.Error))
		}
		if expect.Field != "" && obj["field"] != expect.Field {
			msgs = append(msgs, fmt.Sprintf("field = %v, expected %q", obj["field"], expect.Field))
		}
	}
	return msgs
}
