package pipeline

import "github.com/google/uuid"

// Kind distinguishes the two request shapes the pipeline accepts.
type Kind int

const (
	KindPut Kind = iota
	KindGet
)

// Result is what the single worker hands back to whichever connection
// handler submitted the work item.
type Result struct {
	Status int
	Body   []byte
}

// WorkItem is one unit of work enqueued on the pipeline's FIFO. Every
// item carries a uuid trace id used only for structured log
// correlation; it never appears on the wire.
type WorkItem struct {
	TraceID       string
	Kind          Kind
	Peer          string
	Clock         int64
	Payload       []byte // PUT body, nil for GET
	StationFilter string // GET only; "" means no filter
	done          chan Result
}

// NewPutItem builds a PUT work item for peer, at Lamport clock, with
// the given raw JSON payload.
func NewPutItem(peer string, clock int64, payload []byte) *WorkItem {
	return newItem(KindPut, peer, clock, payload, "")
}

// NewGetItem builds a GET work item for peer, at Lamport clock,
// optionally restricted to a single station id.
func NewGetItem(peer string, clock int64, stationFilter string) *WorkItem {
	return newItem(KindGet, peer, clock, nil, stationFilter)
}

func newItem(kind Kind, peer string, clock int64, payload []byte, filter string) *WorkItem {
	return &WorkItem{
		TraceID:       uuid.NewString(),
		Kind:          kind,
		Peer:          peer,
		Clock:         clock,
		Payload:       payload,
		StationFilter: filter,
		done:          make(chan Result, 1),
	}
}

// Wait blocks until the worker has processed this item and returns its
// result. Safe to call exactly once per item.
func (w *WorkItem) Wait() Result {
	return <-w.done
}

func (w *WorkItem) complete(status int, body []byte) {
	w.done <- Result{Status: status, Body: body}
}
