package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/querytables/internal/state"
	"github.com/leapstack-labs/querytables/pkg/statements"
	"github.com/leapstack-labs/querytables/pkg/tables"
)

// Response headers carrying cache attributes.
const (
	HeaderCacheChannel = "X-Cache-Channel"
	HeaderSurrogateKey = "Surrogate-Key"
	HeaderLastModified = "Last-Modified"
)

type errorResponse struct {
	Error string `json:"error"`
}

type splitResponse struct {
	Statements []string `json:"statements"`
}

// TablesResponse is the body of POST /v1/tables.
type TablesResponse struct {
	CacheChannel  string         `json:"cache_channel"`
	SurrogateKeys []string       `json:"surrogate_keys"`
	LastUpdatedAt *time.Time     `json:"last_updated_at,omitempty"`
	Tables        []tables.Table `json:"tables"`
}

type dependentsResponse struct {
	Queries []state.QueryRecord `json:"queries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	query, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	stmts := statements.Split(query)
	if stmts == nil {
		stmts = []string{}
	}
	writeJSON(w, http.StatusOK, splitResponse{Statements: stmts})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	skipNotUpdatedAt, err := boolParam(r, "skip_not_updated_at")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	skipAnalysis, err := boolParam(r, "skip_analysis")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	query, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	md, err := s.intro.Metadata(r.Context(), query)
	if err != nil {
		s.logger.Warn("introspection failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err)
		return
	}

	resp := TablesResponse{
		CacheChannel:  md.CacheChannel(skipNotUpdatedAt),
		SurrogateKeys: md.Key(skipNotUpdatedAt),
		Tables:        md.Tables(skipNotUpdatedAt, skipAnalysis),
	}
	if resp.Tables == nil {
		resp.Tables = []tables.Table{}
	}
	if last := md.LastUpdatedAt(time.Time{}); !last.IsZero() {
		resp.LastUpdatedAt = &last
		w.Header().Set(HeaderLastModified, last.UTC().Format(http.TimeFormat))
	}
	if resp.CacheChannel != "" {
		w.Header().Set(HeaderCacheChannel, resp.CacheChannel)
	}
	if len(resp.SurrogateKeys) > 0 {
		w.Header().Set(HeaderSurrogateKey, md.SurrogateKeyHeader(skipNotUpdatedAt))
	}

	s.record(r, query, md)
	writeJSON(w, http.StatusOK, resp)
}

// record stores the query in the index, if any. Failures are logged and
// do not fail the request.
func (s *Server) record(r *http.Request, query string, md *tables.Metadata) {
	if s.index == nil || md.Len() == 0 {
		return
	}
	rec, err := s.index.RecordQuery(r.Context(), query, md)
	if err != nil {
		s.logger.Error("failed to record query", slog.String("error", err.Error()))
		return
	}
	s.notifier.Publish(rec.CacheChannel)
}

func (s *Server) handleDependents(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("invalidation index not configured"))
		return
	}

	q := r.URL.Query()
	dbname, schema, table := q.Get("dbname"), q.Get("schema"), q.Get("table")
	if dbname == "" || table == "" {
		writeError(w, http.StatusBadRequest, errors.New("dbname and table are required"))
		return
	}
	if schema == "" {
		schema = "public"
	}

	records, err := s.index.Dependents(r.Context(), dbname, schema, table)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []state.QueryRecord{}
	}
	writeJSON(w, http.StatusOK, dependentsResponse{Queries: records})
}

// handleEvents streams the cache channels of newly recorded queries as
// server-sent events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case channel := <-ch:
			if err := writeEvent(w, "channel", channel); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one server-sent event. Each line of data goes on its
// own data: field so quoted identifiers holding line breaks cannot end
// the frame early; clients rejoin the lines with "\n".
func writeEvent(w io.Writer, event, data string) error {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// readQuery reads the SQL request body. It writes a 400 and returns false
// when the body is empty or unreadable.
func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return "", false
	}
	query := string(body)
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, errors.New("empty query"))
		return "", false
	}
	return query, true
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, v)
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
