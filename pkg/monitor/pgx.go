package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
)

// Tracer implements pgx.QueryTracer and records every query on the attached
// Monitor. One Tracer is set on the pool config; Attach points it at the
// current block. Queries run while no Monitor is attached are not recorded.
type Tracer struct {
	mon atomic.Pointer[Monitor]
}

var _ pgx.QueryTracer = (*Tracer)(nil)

// NewTracer returns a Tracer attached to m, which may be nil.
func NewTracer(m *Monitor) *Tracer {
	t := &Tracer{}
	t.Attach(m)
	return t
}

// Attach directs recording to m. A nil m detaches.
func (t *Tracer) Attach(m *Monitor) {
	t.mon.Store(m)
}

// Detach stops recording.
func (t *Tracer) Detach() {
	t.mon.Store(nil)
}

type traceKey struct{}

type traceStart struct {
	mon   *Monitor
	sql   string
	start time.Time
}

// TraceQueryStart is called at the beginning of Query, QueryRow and Exec.
func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	m := t.mon.Load()
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, traceStart{mon: m, sql: data.SQL, start: m.now()})
}

// TraceQueryEnd is called at the end of Query, QueryRow and Exec.
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryEndData) {
	ts, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	ts.mon.Record(ts.sql, ts.mon.now().Sub(ts.start))
}
