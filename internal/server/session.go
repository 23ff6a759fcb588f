package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"resumeform/internal/errors"
	"resumeform/internal/form"
	"resumeform/internal/input"
	"resumeform/internal/observability"
	"resumeform/internal/render"
	"resumeform/internal/types"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Browser event types
const (
	EventPick   = "pick"
	EventDrag   = "drag"
	EventField  = "field"
	EventSubmit = "submit"
	EventReset  = "reset"
)

// ViewOp is one view operation sent to the browser
type ViewOp struct {
	Op   string         `json:"op"`
	Data map[string]any `json:"data,omitempty"`
}

// ClientEvent is one DOM event relayed from the browser.
// Drag carries the DOM event name: dragenter, dragover, dragleave or drop.
type ClientEvent struct {
	Type  string        `json:"type"`
	Drag  string        `json:"drag,omitempty"`
	Files []FilePayload `json:"files,omitempty"`
	Name  string        `json:"name,omitempty"`
	Value string        `json:"value,omitempty"`
}

// FilePayload is a file read by the browser; Data is base64 in JSON
type FilePayload struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data"`
}

func (ev ClientEvent) selectedFiles() []*types.SelectedFile {
	files := make([]*types.SelectedFile, 0, len(ev.Files))
	for _, f := range ev.Files {
		files = append(files, &types.SelectedFile{
			Name:        f.Name,
			Size:        int64(len(f.Data)),
			ContentType: f.ContentType,
			Content:     f.Data,
		})
	}
	return files
}

// websocketHandler upgrades the request and runs one form session until
// the browser goes away
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		s.Logger.Debug("Websocket upgrade failed", "error", err.Error(), "client_ip", getClientIP(r))
		return
	}

	limitKey, _ := s.rateLimitKey(r)
	sess := s.newSession(conn, limitKey)
	s.sessions.add(sess)
	defer s.sessions.remove(sess)

	sess.logger.Info("Form session opened", "client_ip", getClientIP(r))
	sess.run()
	sess.logger.Info("Form session closed")
}

// checkOrigin allows requests without an Origin header and, when
// AllowedOrigins is set, only the listed origins
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.AllowedOrigins) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(s.AllowedOrigins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host)
	})
}

type session struct {
	id      string
	conn    *websocket.Conn
	ctrl    *form.Controller
	view    *wsView
	ctx     context.Context
	cancel  context.CancelFunc
	submits sync.WaitGroup
	maxSize int64
	metrics *observability.Metrics
	logger  *errors.Logger

	// submits spend from the same bucket as the upgrade; nil when unlimited
	limiter  *RateLimiter
	limitKey string
}

func (s *Server) newSession(conn *websocket.Conn, limitKey string) *session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	logger := s.Logger.With("session_id", id)

	view := &wsView{send: make(chan ViewOp, sendBuffer), done: ctx.Done()}

	opts := s.FormOptions
	if opts.Recorder == nil {
		opts.Recorder = s.metrics
	}

	sess := &session{
		id:      id,
		conn:    conn,
		ctrl:    form.NewController(view, s.Submitter, opts, logger),
		view:    view,
		ctx:     ctx,
		cancel:  cancel,
		maxSize: s.MaxRequestSize,
		metrics: s.metrics,
		logger:  logger,
	}
	if limitKey != "" {
		sess.limiter = s.RateLimiter
		sess.limitKey = limitKey
	}
	return sess
}

// run blocks until the read side ends, then tears the session down
func (sess *session) run() {
	sess.metrics.SessionOpened(context.Background())
	defer sess.metrics.SessionClosed(context.Background())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sess.writePump()
	}()

	sess.view.emit("session", map[string]any{"id": sess.id})
	sess.ctrl.Normalizer().Clear()

	sess.readPump()

	sess.cancel()
	sess.ctrl.Close()
	sess.submits.Wait()
	<-writerDone
	_ = sess.conn.Close()
}

// close ends the session from the server side
func (sess *session) close() {
	sess.cancel()
}

func (sess *session) readPump() {
	if sess.maxSize > 0 {
		sess.conn.SetReadLimit(sess.maxSize)
	}
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Debug("Websocket read ended", "error", err.Error())
			}
			return
		}

		var ev ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			sess.protocolError("invalid event: " + err.Error())
			continue
		}
		sess.handle(ev)
	}
}

func (sess *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case op := <-sess.view.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteJSON(op); err != nil {
				sess.logger.Debug("Websocket write failed", "error", err.Error())
				sess.cancel()
				_ = sess.conn.Close()
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sess.cancel()
				_ = sess.conn.Close()
				return
			}
		case <-sess.ctx.Done():
			_ = sess.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = sess.conn.Close()
			return
		}
	}
}

func (sess *session) handle(ev ClientEvent) {
	switch ev.Type {
	case EventPick:
		var first *types.SelectedFile
		if files := ev.selectedFiles(); len(files) > 0 {
			first = files[0]
		}
		sess.ctrl.SelectFile(first)

	case EventDrag:
		res := sess.ctrl.HandleDrag(input.DragEvent{
			Type:  input.DragEventType(ev.Drag),
			Files: ev.selectedFiles(),
		})
		if input.DragEventType(ev.Drag) == input.Drop {
			sess.metrics.RecordDrop(sess.ctx, "bridge", res.Accepted != nil)
		}

	case EventField:
		if strings.TrimSpace(ev.Name) == "" {
			sess.protocolError("field event without a name")
			return
		}
		sess.ctrl.SetField(ev.Name, ev.Value)

	case EventSubmit:
		if !sess.allowSubmit() {
			return
		}
		sess.submits.Add(1)
		go func() {
			defer sess.submits.Done()
			state, err := sess.ctrl.Submit(sess.ctx)
			switch {
			case stderrors.Is(err, form.ErrSubmissionInFlight):
				sess.logger.Debug("Ignoring submit while a submission is in flight")
			case err != nil:
				sess.logger.Debug("Submission ended without an outcome", "error", err.Error())
			default:
				sess.logger.Debug("Submission finished", "state", state.String())
			}
		}()

	case EventReset:
		sess.ctrl.Reset()

	default:
		sess.protocolError("unknown event type " + ev.Type)
	}
}

// allowSubmit spends a token for a submit, telling the browser how long to
// wait when none is left
func (sess *session) allowSubmit() bool {
	if sess.limiter == nil {
		return true
	}
	ok, wait := sess.limiter.Allow(sess.limitKey)
	if ok {
		return true
	}
	sess.logger.Info("Submit throttled", "retry_after", wait.String())
	sess.metrics.RecordRateLimitHit(sess.ctx, "submit")
	sess.view.emit("throttled", map[string]any{"retry_after_ms": wait.Milliseconds()})
	return false
}

func (sess *session) protocolError(message string) {
	sess.logger.Warn("Bad event from browser", "reason", message)
	sess.view.emit("protocol_error", map[string]any{"message": message})
}

// sessionRegistry tracks live sessions so shutdown can close them
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	opened   uint64
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) add(sess *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.id] = sess
	r.opened++
}

func (r *sessionRegistry) remove(sess *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sess.id)
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *sessionRegistry) total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sess := range r.sessions {
		sess.close()
	}
}

// wsView turns view calls into ops queued for the browser. Ops emitted
// after the session ended are dropped.
type wsView struct {
	send chan ViewOp
	done <-chan struct{}
}

var (
	_ form.FormView       = (*wsView)(nil)
	_ input.HintView      = (*wsView)(nil)
	_ render.ScoreSettler = (*wsView)(nil)
)

func (v *wsView) emit(op string, data map[string]any) {
	select {
	case v.send <- ViewOp{Op: op, Data: data}:
	case <-v.done:
	}
}

func (v *wsView) SetFileLabel(label string, chosen bool) {
	v.emit("file_label", map[string]any{"label": label, "chosen": chosen})
}

func (v *wsView) SetFileHint(hint string) {
	v.emit("file_hint", map[string]any{"hint": hint})
}

func (v *wsView) SetDropHighlight(on bool) {
	v.emit("drop_highlight", map[string]any{"on": on})
}

func (v *wsView) SetSubmitting(on bool) {
	v.emit("submitting", map[string]any{"on": on})
}

func (v *wsView) ShowResults() {
	v.emit("show_results", nil)
}

func (v *wsView) HideResults() {
	v.emit("hide_results", nil)
}

func (v *wsView) ShowError(message string) {
	v.emit("show_error", map[string]any{"message": message})
}

func (v *wsView) HideError() {
	v.emit("hide_error", nil)
}

func (v *wsView) ClearFields() {
	v.emit("clear_fields", nil)
}

func (v *wsView) ScrollTo(region form.Region) {
	v.emit("scroll_to", map[string]any{"region": region})
}

func (v *wsView) ClearResults() {
	v.emit("clear_results", nil)
}

func (v *wsView) SetScoreBand(b render.Band) {
	v.emit("score_band", map[string]any{"band": b})
}

func (v *wsView) SetScore(n int) {
	v.emit("score", map[string]any{"value": n})
}

func (v *wsView) SetSummary(text string) {
	v.emit("summary", map[string]any{"text": text})
}

func (v *wsView) SetList(kind render.ListKind, rows []render.Row) {
	v.emit("list", map[string]any{"kind": kind, "rows": rows})
}

func (v *wsView) SetTags(group render.TagGroup, tags []render.Tag) {
	v.emit("tags", map[string]any{"group": group, "tags": tags})
}

func (v *wsView) ScoreSettled(value int, band render.Band) {
	v.emit("score_settled", map[string]any{"value": value, "band": band})
}
