package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"dsesim/src/simulator"
	"dsesim/src/store"
)

const producerConsumer = `
architecture:
  name: quad
  processors_per_tile: 4
  local_memory: 1000000
  tile_memory: 16000000
  crossbar:
    bandwidth: 1000
    channels: 1
application:
  name: producer-consumer
  actors:
    - name: producer
    - name: consumer
  fifos:
    - name: frame
      src: producer
      dst: consumer
      token_size: 2000000
binding:
  actors:
    - actor: producer
      processor: "quad.Tile[0].Core[0]"
      runtime: 10
    - actor: consumer
      processor: "quad.Tile[0].Core[1]"
      runtime: 10
scheduler:
  mode: baseline
  iterations: 4
`

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"message"`
}

type result struct {
	Run    store.Run         `json:"run"`
	Report *simulator.Report `json:"report"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return NewRouter(db, simulator.DefaultConfig())
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (int, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	status, env := do(t, router, http.MethodGet, "/api/v1/health", "")
	if status != http.StatusOK || env.Code != SUCCESS {
		t.Fatalf("unexpected health reply %d %+v", status, env)
	}
}

func TestCreateAndFetchSchedule(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	status, env := do(t, router, http.MethodPost, "/api/v1/schedules", producerConsumer)
	if status != http.StatusOK || env.Code != SUCCESS {
		t.Fatalf("create failed: %d %+v", status, env)
	}

	var created result
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Run.Status != store.RunStatusSucceeded || created.Run.Remaps != 1 {
		t.Fatalf("unexpected run %+v", created.Run)
	}
	if created.Report == nil || created.Report.Scheduler != "baseline" {
		t.Fatalf("unexpected report %+v", created.Report)
	}

	status, env = do(t, router, http.MethodGet, "/api/v1/schedules/"+created.Run.RunID, "")
	if status != http.StatusOK {
		t.Fatalf("fetch failed: %d %+v", status, env)
	}
	var fetched result
	if err := json.Unmarshal(env.Data, &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.Run.RunID != created.Run.RunID || fetched.Report.Period != created.Report.Period {
		t.Fatalf("fetched %+v, created %+v", fetched.Run, created.Run)
	}

	status, env = do(t, router, http.MethodGet, "/api/v1/schedules?scheduler=baseline", "")
	if status != http.StatusOK || !strings.Contains(string(env.Data), created.Run.RunID) {
		t.Fatalf("list does not contain the run: %d %s", status, env.Data)
	}
}

func TestModeOverride(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	status, env := do(t, router, http.MethodPost, "/api/v1/schedules?mode=fcfs", producerConsumer)
	if status != http.StatusOK {
		t.Fatalf("create failed: %d %+v", status, env)
	}
	var created result
	_ = json.Unmarshal(env.Data, &created)
	if created.Run.Scheduler != "fcfs" {
		t.Fatalf("expected the fcfs scheduler, got %s", created.Run.Scheduler)
	}

	status, _ = do(t, router, http.MethodPost, "/api/v1/schedules?mode=random", producerConsumer)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown mode, got %d", status)
	}
}

func TestRejectsMalformedScenarios(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	status, env := do(t, router, http.MethodPost, "/api/v1/schedules", "architecture: [")
	if status != http.StatusBadRequest || env.Code != VALIDATION_ERROR {
		t.Fatalf("expected a validation error, got %d %+v", status, env)
	}

	broken := strings.Replace(producerConsumer, "dst: consumer", "dst: nobody", 1)
	status, _ = do(t, router, http.MethodPost, "/api/v1/schedules", broken)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown actor, got %d", status)
	}
}

func TestUnknownRunIsNotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	status, env := do(t, router, http.MethodGet, "/api/v1/schedules/missing", "")
	if status != http.StatusNotFound || env.Code != NOT_FOUND {
		t.Fatalf("expected 404, got %d %+v", status, env)
	}
}
