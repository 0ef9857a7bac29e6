// Package session exposes the resolver over a line-oriented request/response
// exchange. A caller sends PROVIDE; the handler answers with DESC plan
// lines, then streams one CMD/STDOUT pair per node as outcomes finalize,
// and closes the exchange with END. The handler is transport-agnostic: it
// speaks to any io.ReadWriter and serves exactly one resolution request per
// connection.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vk/spacesd/internal/ctxlog"
	"github.com/vk/spacesd/internal/engine"
	"github.com/vk/spacesd/internal/graph"
	"github.com/vk/spacesd/internal/model"
	"github.com/vk/spacesd/internal/registry"
	"github.com/vk/spacesd/internal/scheduler"
)

// RequestProvide is the only request the minimal protocol surface accepts.
const RequestProvide = "PROVIDE"

// Handler serves resolution requests for one configured definition set and
// root. Each request builds a fresh graph; nothing persists across runs.
type Handler struct {
	defs []*model.Definition
	root model.ResourceID
	reg  *registry.Registry
	opts engine.Options
}

// NewHandler creates a protocol handler.
func NewHandler(defs []*model.Definition, root model.ResourceID, reg *registry.Registry, opts engine.Options) *Handler {
	return &Handler{defs: defs, root: root, reg: reg, opts: opts}
}

// Serve handles one request/response exchange. Protocol-level problems are
// reported to the peer as ERR lines and do not surface as errors here; only
// transport failures do.
func (h *Handler) Serve(ctx context.Context, rw io.ReadWriter) error {
	logger := ctxlog.FromContext(ctx)
	out := bufio.NewWriter(rw)

	request, err := readRequest(rw)
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("reading request: %w", err)
	}
	if request != RequestProvide {
		logger.Warn("Malformed session request.", "request", request)
		return emit(out, "ERR unsupported request: %s", request)
	}

	g, err := graph.Build(ctx, h.defs, h.root, h.reg)
	if err != nil {
		logger.Error("Graph validation failed.", "error", err)
		return emit(out, "ERR %s", err)
	}
	plan, err := scheduler.Schedule(g)
	if err != nil {
		logger.Error("Scheduling failed.", "error", err)
		return emit(out, "ERR %s", err)
	}

	eng := engine.New(g, plan, h.reg, h.opts)
	logger.Info("Resolution run starting.", "runID", eng.RunID().String(), "root", h.root.String(), "nodes", g.Len())

	if err := emit(out, "DESC provisioning plan %s for %s", eng.RunID(), h.root.Bracket()); err != nil {
		return err
	}
	for i, step := range plan.Steps() {
		if err := emit(out, "DESC step %d: %s", i+1, formatStep(step)); err != nil {
			return err
		}
	}

	for report := range eng.Run(ctx) {
		node, _ := g.Node(report.ID)
		if err := emit(out, "CMD ensure %s via %s", report.ID.Bracket(), node.Provider); err != nil {
			return err
		}
		if err := emit(out, "STDOUT %s %s", detailLine(report), statusTag(report.Status)); err != nil {
			return err
		}
	}
	return emit(out, "END")
}

// readRequest reads the first newline-terminated line of the exchange.
func readRequest(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// emit writes one protocol line and flushes it immediately so the peer sees
// outcomes as they are produced, not batched.
func emit(w *bufio.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format+"\n", args...); err != nil {
		return err
	}
	return w.Flush()
}

func formatStep(step []model.ResourceID) string {
	parts := make([]string, len(step))
	for i, id := range step {
		parts[i] = id.Bracket()
	}
	return strings.Join(parts, ", ")
}

func detailLine(r engine.Report) string {
	if r.Detail != "" {
		return r.Detail
	}
	return r.Status.String()
}

func statusTag(s engine.Status) string {
	switch s {
	case engine.Skipped:
		return "[skipped]"
	case engine.Failed:
		return "[failed]"
	}
	return "[ok]"
}
