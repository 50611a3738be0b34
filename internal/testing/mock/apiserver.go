package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// RecordedRequest is one request received by the APIServer.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	// Body is the decoded JSON body, nil for requests without one.
	Body map[string]interface{}
}

// Failure makes the APIServer answer a route with an error. By default the
// body is a Kubernetes Status carrying Message.
type Failure struct {
	Code    int
	Message string
	// RetryAfter, when set, is sent as the Retry-After header.
	RetryAfter string
	// ContentType and RawBody replace the Status body, as a proxy in front
	// of the API server would.
	ContentType string
	RawBody     string
}

func (f *Failure) write(w http.ResponseWriter) {
	if f.RetryAfter != "" {
		w.Header().Set("Retry-After", f.RetryAfter)
	}
	if f.RawBody == "" && f.ContentType == "" {
		writeStatus(w, f.Code, reasonFor(f.Code), f.Message)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.WriteHeader(f.Code)
	_, _ = io.WriteString(w, f.RawBody)
}

// APIServer is a minimal batch/v1 Kubernetes API used by tests. It serves
// CronJob reads and Job creates, checks the bearer token and records every
// request it receives.
type APIServer struct {
	*httptest.Server

	token string

	mu         sync.Mutex
	cronJobs   map[string]map[string]interface{}
	jobs       []map[string]interface{}
	requests   []RecordedRequest
	getFailure *Failure
	postFail   *Failure
	createGate chan struct{}
	seq        int
}

// NewAPIServer starts a server that accepts the given bearer token. The
// server is closed when the test ends.
func NewAPIServer(t interface{ Cleanup(func()) }, token string) *APIServer {
	s := &APIServer{
		token:    token,
		cronJobs: make(map[string]map[string]interface{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /apis/batch/v1/namespaces/{ns}/cronjobs/{name}", s.getCronJob)
	mux.HandleFunc("POST /apis/batch/v1/namespaces/{ns}/jobs", s.createJob)

	s.Server = httptest.NewServer(s.record(s.authenticate(mux)))
	t.Cleanup(s.Close)
	return s
}

// AddCronJob registers a CronJob whose spec.jobTemplate.spec is jobSpec.
func (s *APIServer) AddCronJob(namespace, name string, jobSpec map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cronJobs[namespace+"/"+name] = map[string]interface{}{
		"apiVersion": "batch/v1",
		"kind":       "CronJob",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
			"uid":       "cronjob-uid",
		},
		"spec": map[string]interface{}{
			"schedule": "0 3 * * *",
			"jobTemplate": map[string]interface{}{
				"spec": jobSpec,
			},
		},
	}
}

// AddRawCronJob registers an arbitrary CronJob document.
func (s *APIServer) AddRawCronJob(namespace, name string, obj map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cronJobs[namespace+"/"+name] = obj
}

// FailCronJobGet makes every CronJob read fail.
func (s *APIServer) FailCronJobGet(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getFailure = &Failure{Code: code, Message: message}
}

// FailCronJobGetWith makes every CronJob read fail as described by f.
func (s *APIServer) FailCronJobGetWith(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getFailure = &f
}

// FailJobCreate makes every Job create fail.
func (s *APIServer) FailJobCreate(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postFail = &Failure{Code: code, Message: message}
}

// FailJobCreateWith makes every Job create fail as described by f.
func (s *APIServer) FailJobCreateWith(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postFail = &f
}

// HoldCreates blocks Job creates until the returned function is called.
func (s *APIServer) HoldCreates() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.createGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Requests returns a copy of the recorded requests in arrival order.
func (s *APIServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// CountRequests returns how many requests matched method.
func (s *APIServer) CountRequests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Jobs returns the Jobs created so far.
func (s *APIServer) Jobs() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]interface{}(nil), s.jobs...)
}

func (s *APIServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
		}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			if len(data) > 0 {
				_ = json.Unmarshal(data, &req.Body)
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeStatus(w, http.StatusUnauthorized, "Unauthorized", "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) getCronJob(w http.ResponseWriter, r *http.Request) {
	ns, name := r.PathValue("ns"), r.PathValue("name")

	s.mu.Lock()
	failure := s.getFailure
	obj, ok := s.cronJobs[ns+"/"+name]
	s.mu.Unlock()

	if failure != nil {
		failure.write(w)
		return
	}
	if !ok {
		writeStatus(w, http.StatusNotFound, "NotFound", fmt.Sprintf("cronjobs.batch %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *APIServer) createJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	failure := s.postFail
	gate := s.createGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-time.After(10 * time.Second):
		}
	}

	if failure != nil {
		failure.write(w)
		return
	}

	var job map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeStatus(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	metadata, _ := job["metadata"].(map[string]interface{})
	if metadata == nil {
		metadata = map[string]interface{}{}
		job["metadata"] = metadata
	}

	s.mu.Lock()
	s.seq++
	generateName, _ := metadata["generateName"].(string)
	metadata["name"] = fmt.Sprintf("%s%05d", generateName, s.seq)
	metadata["namespace"] = r.PathValue("ns")
	metadata["uid"] = fmt.Sprintf("job-uid-%d", s.seq)
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, job)
}

func reasonFor(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusConflict:
		return "AlreadyExists"
	case http.StatusUnprocessableEntity:
		return "Invalid"
	case http.StatusTooManyRequests:
		return "TooManyRequests"
	case http.StatusServiceUnavailable:
		return "ServiceUnavailable"
	default:
		return "InternalError"
	}
}

func writeStatus(w http.ResponseWriter, code int, reason, message string) {
	writeJSON(w, code, map[string]interface{}{
		"kind":       "Status",
		"apiVersion": "v1",
		"metadata":   map[string]interface{}{},
		"status":     "Failure",
		"message":    message,
		"reason":     reason,
		"code":       code,
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
