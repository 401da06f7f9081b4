// Package splunktest runs a fake splunkd management API on an httptest
// server. It keeps in-memory job state and replays canned search results,
// enough to exercise the client and command layers without a Splunk
// instance.
package splunktest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Job is the mutable dispatch state of a fake search job.
type Job struct {
	SID           string
	Search        string
	DispatchState string
	DoneProgress  float64
	EventCount    int
	ResultCount   int
	ScanCount     int
	RunDuration   float64
	TTL           int
	Paused        bool
	Deleted       bool
	// PollsUntilDone counts status reads before the job flips to DONE.
	// Zero means the job is born finished.
	PollsUntilDone int
	Results        []map[string]any
	Messages       []map[string]string
}

// Call records one request the server received.
type Call struct {
	Method string
	Path   string
	Form   map[string]string
}

// Server is the fake splunkd instance.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	jobs       map[string]*Job
	nextSID    int
	calls      []Call
	oneshot    []map[string]any
	serverInfo map[string]any
	// Token expected in the Authorization header; empty disables the check.
	Token string
	// Delay is slept before handling each request, to exercise deadlines.
	Delay time.Duration
	// FailStatuses maps "METHOD path" to a status code returned once.
	failOnce map[string]int
}

// New starts a fake splunkd. Call Close when done.
func New() *Server {
	s := &Server{
		jobs:     map[string]*Job{},
		failOnce: map[string]int{},
		serverInfo: map[string]any{
			"serverName":   "mock-splunk",
			"version":      "9.2.1",
			"build":        "fake",
			"os_name":      "Linux",
			"cpu_arch":     "x86_64",
			"licenseState": "OK",
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetOneshotResults sets the result rows returned by oneshot searches.
func (s *Server) SetOneshotResults(results []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oneshot = results
}

// SetServerInfo overrides the canned /server/info content.
func (s *Server) SetServerInfo(info map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverInfo = info
}

// AddJob seeds a job into the dispatch directory.
func (s *Server) AddJob(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.DispatchState == "" {
		job.DispatchState = "DONE"
	}
	s.jobs[job.SID] = job
}

// GetJob returns the state of a job, or nil.
func (s *Server) GetJob(sid string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[sid]
}

// FailOnce makes the next request matching method and path prefix return
// the given status, then behave normally. Used to exercise retry paths.
func (s *Server) FailOnce(method, pathPrefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnce[method+" "+pathPrefix] = status
}

// Calls returns all recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts requests matching method and path prefix.
func (s *Server) CallCount(method, pathPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method && strings.HasPrefix(c.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.Delay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	r.ParseForm()
	form := map[string]string{}
	for k, vs := range r.Form {
		if len(vs) > 0 {
			form[k] = vs[0]
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Form: form})
	for key, status := range s.failOnce {
		method, prefix, _ := strings.Cut(key, " ")
		if r.Method == method && strings.HasPrefix(r.URL.Path, prefix) {
			delete(s.failOnce, key)
			s.mu.Unlock()
			writeError(w, status, http.StatusText(status))
			return
		}
	}
	token := s.Token
	s.mu.Unlock()

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	path := trimNamespace(r.URL.Path)
	path = strings.TrimPrefix(path, "/services")

	switch {
	case path == "/search/jobs/oneshot" && r.Method == http.MethodPost:
		s.handleOneshot(w)
	case path == "/search/v2/jobs" && r.Method == http.MethodPost:
		s.handleCreateJob(w, form)
	case path == "/search/v2/jobs" && r.Method == http.MethodGet:
		s.handleListJobs(w)
	case strings.HasPrefix(path, "/search/v2/jobs/"):
		s.handleJob(w, r, strings.TrimPrefix(path, "/search/v2/jobs/"), form)
	case path == "/server/info":
		s.mu.Lock()
		info := s.serverInfo
		s.mu.Unlock()
		writeEntries(w, []map[string]any{{"name": "server-info", "content": info}})
	case path == "/server/status":
		writeEntries(w, []map[string]any{{"name": "server-status", "content": map[string]any{"status": "up"}}})
	case path == "/server/health/splunkd":
		writeEntries(w, []map[string]any{{"name": "splunkd", "content": map[string]any{
			"health": "green",
			"features": map[string]any{
				"Indexing": map[string]any{"health": "green"},
				"Search":   map[string]any{"health": "green"},
			},
		}}})
	case path == "/authentication/users":
		writeEntries(w, []map[string]any{
			{"name": "admin", "content": map[string]any{
				"realname": "Administrator",
				"email":    "admin@example.com",
				"roles":    []string{"admin"},
			}},
			{"name": "analyst", "content": map[string]any{
				"realname": "Analyst",
				"email":    "",
				"roles":    []string{"user", "power"},
			}},
		})
	case path == "/authorization/roles":
		writeEntries(w, []map[string]any{
			{"name": "admin", "content": map[string]any{
				"imported_roles": []string{"power", "user"},
				"capabilities":   []string{"admin_all_objects", "edit_user"},
			}},
			{"name": "user", "content": map[string]any{
				"imported_roles": []string{},
				"capabilities":   []string{"search"},
			}},
		})
	case path == "/data/indexes/main" || path == "/data/indexes/metrics_main":
		name := strings.TrimPrefix(path, "/data/indexes/")
		writeEntries(w, []map[string]any{indexEntry(name)})
	case path == "/data/indexes":
		writeEntries(w, []map[string]any{
			indexEntry("main"),
			indexEntry("_internal"),
			indexEntry("metrics_main"),
		})
	default:
		writeError(w, http.StatusNotFound, "Not Found: "+r.URL.Path)
	}
}

func trimNamespace(path string) string {
	if !strings.HasPrefix(path, "/servicesNS/") {
		return path
	}
	parts := strings.SplitN(strings.TrimPrefix(path, "/servicesNS/"), "/", 3)
	if len(parts) == 3 {
		return "/" + parts[2]
	}
	return path
}

func indexEntry(name string) map[string]any {
	dataType := "event"
	if strings.HasPrefix(name, "metrics") {
		dataType = "metric"
	}
	return map[string]any{
		"name": name,
		"content": map[string]any{
			"totalEventCount": 12345,
			"currentDBSizeMB": 42.5,
			"maxDataSizeMB":   500000,
			"datatype":        dataType,
			"disabled":        false,
		},
	}
}

func (s *Server) handleOneshot(w http.ResponseWriter) {
	s.mu.Lock()
	results := s.oneshot
	s.mu.Unlock()
	if results == nil {
		results = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, form map[string]string) {
	s.mu.Lock()
	s.nextSID++
	sid := fmt.Sprintf("%d.%d", time.Now().Unix(), s.nextSID)
	job := &Job{
		SID:           sid,
		Search:        form["search"],
		DispatchState: "RUNNING",
		ResultCount:   len(s.oneshot),
		Results:       s.oneshot,
	}
	if form["exec_mode"] == "blocking" {
		job.DispatchState = "DONE"
		job.DoneProgress = 1
	} else {
		job.PollsUntilDone = 2
	}
	s.jobs[sid] = job
	s.mu.Unlock()

	if form["exec_mode"] == "blocking" {
		writeEntries(w, []map[string]any{{"name": sid, "content": map[string]any{"sid": sid}}})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sid": sid})
}

func (s *Server) handleListJobs(w http.ResponseWriter) {
	s.mu.Lock()
	var jobEntries []map[string]any
	for _, job := range s.jobs {
		if job.Deleted {
			continue
		}
		jobEntries = append(jobEntries, map[string]any{"name": job.SID, "content": jobContent(job)})
	}
	s.mu.Unlock()
	writeEntries(w, jobEntries)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request, rest string, form map[string]string) {
	parts := strings.SplitN(rest, "/", 2)
	sid := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	s.mu.Lock()
	job := s.jobs[sid]
	s.mu.Unlock()
	if job == nil || job.Deleted {
		writeError(w, http.StatusNotFound, "Unknown sid.")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.mu.Lock()
		if job.PollsUntilDone > 0 {
			job.PollsUntilDone--
			job.DoneProgress = 1 - float64(job.PollsUntilDone)/3
			if job.PollsUntilDone == 0 && job.DispatchState == "RUNNING" {
				job.DispatchState = "DONE"
				job.DoneProgress = 1
			}
		}
		content := jobContent(job)
		s.mu.Unlock()
		writeEntries(w, []map[string]any{{"name": sid, "content": content}})
	case action == "" && r.Method == http.MethodDelete:
		s.mu.Lock()
		job.Deleted = true
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	case action == "control" && r.Method == http.MethodPost:
		s.mu.Lock()
		switch form["action"] {
		case "cancel":
			job.DispatchState = "DONE"
			job.Deleted = true
		case "pause":
			job.Paused = true
		case "unpause":
			job.Paused = false
		case "finalize":
			job.DispatchState = "FINALIZING"
		case "setttl":
			fmt.Sscanf(form["ttl"], "%d", &job.TTL)
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"messages": []any{}})
	case action == "results" || action == "results_preview":
		s.mu.Lock()
		results := job.Results
		s.mu.Unlock()
		if results == nil {
			results = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

func jobContent(job *Job) map[string]any {
	state := job.DispatchState
	if job.Paused {
		state = "PAUSED"
	}
	messages := make([]any, 0, len(job.Messages))
	for _, m := range job.Messages {
		messages = append(messages, map[string]any{"type": m["type"], "text": m["text"]})
	}
	return map[string]any{
		"sid":           job.SID,
		"dispatchState": state,
		"doneProgress":  job.DoneProgress,
		"eventCount":    job.EventCount,
		"resultCount":   job.ResultCount,
		"scanCount":     job.ScanCount,
		"runDuration":   job.RunDuration,
		"ttl":           job.TTL,
		"isDone":        state == "DONE",
		"isFailed":      state == "FAILED",
		"isPaused":      job.Paused,
		"messages":      messages,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEntries(w http.ResponseWriter, entryList []map[string]any) {
	if entryList == nil {
		entryList = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entryList})
}

func writeError(w http.ResponseWriter, status int, text string) {
	writeJSON(w, status, map[string]any{
		"messages": []map[string]string{{"type": "ERROR", "text": text}},
	})
}
