package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/okian/pagepulse/internal/adapters/http/api"
	"github.com/okian/pagepulse/internal/domain/model"
	"github.com/okian/pagepulse/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var errSessionMissing = fmt.Errorf("dispatch: %w", model.ErrSessionNotFound)

// fakeDeps implements the handler dependencies with canned behavior.
type fakeDeps struct {
	sessionID   string
	startErr    error
	dispatchErr error
	assignErr   error

	dispatched map[string][]model.BrowserEvent
	exposure   model.Exposure
}

func (f *fakeDeps) StartSession(_ context.Context, _ model.PageInfo) (string, error) {
	return f.sessionID, f.startErr
}

func (f *fakeDeps) Dispatch(_ context.Context, sessionID string, events []model.BrowserEvent) error {
	if f.dispatchErr != nil {
		return f.dispatchErr
	}
	if f.dispatched == nil {
		f.dispatched = map[string][]model.BrowserEvent{}
	}
	f.dispatched[sessionID] = append(f.dispatched[sessionID], events...)
	return nil
}

func (f *fakeDeps) Assign(_ context.Context, sessionID, _, _ string) (model.Exposure, error) {
	if f.assignErr != nil {
		return model.Exposure{}, f.assignErr
	}
	e := f.exposure
	e.SessionID = sessionID
	return e, nil
}

func (f *fakeDeps) GetStats() map[string]any {
	return map[string]any{"activeSessions": 2}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestPostSession(t *testing.T) {
	convey.Convey("Given the ingest API", t, func() {
		deps := &fakeDeps{sessionID: "session-123"}
		mux := newTestMux(deps)

		convey.Convey("When a valid session bootstrap arrives", func() {
			rec := do(mux, http.MethodPost, "/sessions",
				`{"page":{"url":"https://example.com/","userAgent":"test-agent"}}`)

			convey.Convey("Then a session id should come back with 201", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusCreated)
				convey.So(decodeBody(t, rec)["sessionId"], convey.ShouldEqual, "session-123")
			})
		})

		convey.Convey("When the page url is missing", func() {
			rec := do(mux, http.MethodPost, "/sessions", `{"page":{"userAgent":"test-agent"}}`)

			convey.Convey("Then the request should be rejected", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
				convey.So(decodeBody(t, rec)["code"], convey.ShouldEqual, "bad_request")
			})
		})

		convey.Convey("When the body is not JSON", func() {
			rec := do(mux, http.MethodPost, "/sessions", `not json`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the method is wrong", func() {
			rec := do(mux, http.MethodGet, "/sessions", "")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostEvents(t *testing.T) {
	convey.Convey("Given the ingest API", t, func() {
		deps := &fakeDeps{sessionID: "session-123"}
		mux := newTestMux(deps)

		convey.Convey("When a relay batch arrives", func() {
			rec := do(mux, http.MethodPost, "/events",
				`{"sessionId":"session-123","events":[{"type":"scroll","scrollY":400},{"type":"page_hidden"}]}`)

			convey.Convey("Then the batch should be accepted", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusAccepted)

				body := decodeBody(t, rec)
				convey.So(body["status"], convey.ShouldEqual, "accepted")
				convey.So(body["accepted"], convey.ShouldEqual, 2)
			})

			convey.Convey("Then the events should reach the registry", func() {
				convey.So(deps.dispatched["session-123"], convey.ShouldHaveLength, 2)
				convey.So(deps.dispatched["session-123"][0].Type, convey.ShouldEqual, "scroll")
			})
		})

		convey.Convey("When the session does not exist", func() {
			deps.dispatchErr = errSessionMissing
			rec := do(mux, http.MethodPost, "/events",
				`{"sessionId":"gone","events":[{"type":"scroll"}]}`)

			convey.Convey("Then the page script should see a 404", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
				convey.So(decodeBody(t, rec)["code"], convey.ShouldEqual, "session_not_found")
			})
		})

		convey.Convey("When dispatch fails with an unrelated error mentioning not found", func() {
			deps.dispatchErr = errors.New("webhook endpoint not found")
			rec := do(mux, http.MethodPost, "/events",
				`{"sessionId":"session-123","events":[{"type":"scroll"}]}`)

			convey.Convey("Then it should surface as a server error, not a 404", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusInternalServerError)
				convey.So(decodeBody(t, rec)["code"], convey.ShouldEqual, "internal_error")
			})
		})

		convey.Convey("When the batch has no events", func() {
			rec := do(mux, http.MethodPost, "/events", `{"sessionId":"session-123","events":[]}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the session id is blank", func() {
			rec := do(mux, http.MethodPost, "/events", `{"sessionId":" ","events":[{"type":"scroll"}]}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPostAssign(t *testing.T) {
	convey.Convey("Given the ingest API", t, func() {
		deps := &fakeDeps{exposure: model.Exposure{
			CopyBucket:  "A",
			StyleBucket: "B",
			Cell:        "A_B",
		}}
		mux := newTestMux(deps)

		convey.Convey("When an assignment is requested", func() {
			rec := do(mux, http.MethodPost, "/assign",
				`{"sessionId":"session-123","visitorId":"visitor-1","sectionId":"hero"}`)

			convey.Convey("Then the exposure should come back", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

				body := decodeBody(t, rec)
				convey.So(body["cell"], convey.ShouldEqual, "A_B")
				convey.So(body["sessionId"], convey.ShouldEqual, "session-123")
			})
		})

		convey.Convey("When the visitor id is missing", func() {
			rec := do(mux, http.MethodPost, "/assign", `{"sessionId":"session-123","sectionId":"hero"}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the session does not exist", func() {
			deps.assignErr = errSessionMissing
			rec := do(mux, http.MethodPost, "/assign",
				`{"sessionId":"gone","visitorId":"visitor-1","sectionId":"hero"}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	convey.Convey("Given the ingest API", t, func() {
		deps := &fakeDeps{}
		mux := newTestMux(deps)

		convey.Convey("When the health check is hit", func() {
			rec := do(mux, http.MethodGet, "/healthz", "")

			convey.Convey("Then it should answer ok", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(decodeBody(t, rec)["status"], convey.ShouldEqual, "ok")
			})
		})

		convey.Convey("When the stats are requested", func() {
			rec := do(mux, http.MethodGet, "/stats", "")

			convey.Convey("Then the registry stats should come back", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(decodeBody(t, rec)["activeSessions"], convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the metrics endpoint is scraped", func() {
			rec := do(mux, http.MethodGet, "/metrics", "")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}
