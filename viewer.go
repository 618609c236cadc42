package skyline

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// ViewerConfig configures the HTTP graph viewer adapter.
type ViewerConfig struct {
	// Addr is the listen address, e.g. ":7101".
	Addr string

	// Index supplies the series corpus.
	Index TagIndex

	// Options are the presentation defaults; request parameters override them.
	Options Options

	// StepMS is the default step when the request does not set one.
	// Default: 60 000.
	StepMS int64

	// Cache, when set, memoises render results across requests.
	Cache *RenderCache

	// RefreshInterval is the push cadence of the live websocket endpoint.
	// Default: 10s.
	RefreshInterval time.Duration

	// Logger receives request logs. Default: slog.Default().
	Logger *slog.Logger
}

// Viewer is a thin HTTP adapter over Render: it owns no evaluator or renderer
// state beyond the optional cache, and every graph endpoint goes through the
// same entry point the CLI uses; the tags endpoint reads the index directly.
type Viewer struct {
	cfg      ViewerConfig
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewViewer creates a viewer.
func NewViewer(cfg ViewerConfig) *Viewer {
	if cfg.StepMS <= 0 {
		cfg.StepMS = 60_000
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Viewer{cfg: cfg, log: log}
}

// Handler returns the viewer's routes.
func (v *Viewer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/graph", v.handleGraph)
	mux.HandleFunc("/api/v1/graph/live", v.handleLive)
	mux.HandleFunc("/api/v1/tags", v.handleTags)
	return mux
}

// ListenAndServe runs the viewer until the listener fails.
func (v *Viewer) ListenAndServe() error {
	v.log.Info("viewer listening", "addr", v.cfg.Addr)
	return http.ListenAndServe(v.cfg.Addr, v.Handler())
}

// graphRequest is the decoded query-string form of one render request.
type graphRequest struct {
	program string
	ctx     EvalContext
	opts    Options
	format  string
}

func (v *Viewer) parseRequest(q url.Values) (graphRequest, error) {
	program := q.Get("q")
	if program == "" {
		return graphRequest{}, errors.New("missing q parameter")
	}

	step := v.cfg.StepMS
	if s := q.Get("step"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return graphRequest{}, errors.New("bad step parameter")
		}
		step = n
	}
	ctx, err := ResolveWindow(q.Get("s"), q.Get("e"), step, q.Get("tz"), time.Now().UTC())
	if err != nil {
		return graphRequest{}, err
	}

	opts := v.cfg.Options.withDefaults()
	if w := q.Get("w"); w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			opts.Width = n
		}
	}
	if h := q.Get("h"); h != "" {
		if n, err := strconv.Atoi(h); err == nil {
			opts.Height = n
		}
	}
	if theme := q.Get("theme"); theme != "" {
		opts.Theme = Theme(theme)
	}
	if layout := q.Get("layout"); layout != "" {
		opts.Layout = Layout(layout)
	}
	if palette := q.Get("palette"); palette != "" {
		opts.Palette = palette
	}
	if title := q.Get("title"); title != "" {
		opts.Title = title
	}
	if q.Get("no_legend") == "1" {
		opts.NoLegend = true
	}
	if q.Get("only_graph") == "1" {
		opts.OnlyGraph = true
	}

	format := q.Get("format")
	if format == "" {
		format = "png"
	}
	return graphRequest{program: program, ctx: ctx, opts: opts, format: format}, nil
}

func (v *Viewer) render(req graphRequest) (*RenderResult, string, error) {
	key := RequestKey(req.program, req.ctx, req.opts)
	if v.cfg.Cache != nil {
		if res, ok := v.cfg.Cache.Get(key); ok {
			return res, key, nil
		}
	}
	res, err := Render(req.program, req.ctx, req.opts, v.cfg.Index)
	if err != nil {
		return nil, "", err
	}
	if v.cfg.Cache != nil {
		if err := v.cfg.Cache.Put(key, res); err != nil {
			v.log.Warn("render cache put failed", "error", err)
		}
	}
	return res, key, nil
}

func (v *Viewer) handleGraph(w http.ResponseWriter, r *http.Request) {
	req, err := v.parseRequest(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, etag, err := v.render(req)
	if err != nil {
		v.log.Error("render failed", "q", req.program, "error", err)
		status := http.StatusInternalServerError
		var perr *ParseError
		var eerr *EvalError
		if errors.As(err, &perr) || errors.As(err, &eerr) ||
			errors.Is(err, ErrInvalidContext) || errors.Is(err, ErrInvalidCanvas) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("ETag", `"`+etag+`"`)
	switch req.format {
	case "v2.json":
		w.Header().Set("Content-Type", "application/json")
		if err := WriteGraphDef(w, res.GraphDef, false); err != nil {
			v.log.Error("write graph def failed", "error", err)
		}
	default:
		w.Header().Set("Content-Type", "image/png")
		if _, err := w.Write(res.PNG); err != nil {
			v.log.Debug("client went away", "error", err)
		}
	}
}

// handleLive upgrades to a websocket and pushes a fresh render on every tick.
// Relative time references re-resolve per push, so "e-3h..now" windows slide.
func (v *Viewer) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := v.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	q := r.URL.Query()
	ticker := time.NewTicker(v.cfg.RefreshInterval)
	defer ticker.Stop()

	var lastKey string
	for {
		req, err := v.parseRequest(q)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("error: "+err.Error()))
			return
		}
		res, key, err := v.render(req)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("error: "+err.Error()))
			return
		}
		if key != lastKey {
			lastKey = key
			if err := conn.WriteMessage(websocket.BinaryMessage, res.PNG); err != nil {
				return
			}
		}
		<-ticker.C
	}
}

func (v *Viewer) handleTags(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, k := range v.cfg.Index.AllTagKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k))
	}
	buf.WriteByte(']')
	w.Write(buf.Bytes())
}
