package discovery

// EventStatus tags the lifecycle phase of a streamed event.
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventProgress  EventStatus = "progress"
	EventCompleted EventStatus = "completed"
	EventError     EventStatus = "error"
)

// Event is one frame of a streaming discovery run. A run emits exactly
// one started event, zero or more progress events (one per accepted
// company, in discovery order), then exactly one terminal event:
// completed or error, never both.
type Event struct {
	Status    EventStatus    `json:"status"`
	Message   string         `json:"message,omitempty"`
	Company   *QuoteRecord   `json:"company,omitempty"`
	Index     int            `json:"index,omitempty"`
	Total     int            `json:"total,omitempty"`
	Companies []*QuoteRecord `json:"companies,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// emitter serializes events onto a bounded channel and enforces the
// single-terminal invariant. Written from one goroutine only.
type emitter struct {
	ch       chan Event
	terminal bool
}

func newEmitter() *emitter {
	return &emitter{ch: make(chan Event, 16)}
}

func (e *emitter) started(message string) {
	e.send(Event{Status: EventStarted, Message: message})
}

func (e *emitter) progress(company *QuoteRecord, index, total int) {
	e.send(Event{Status: EventProgress, Company: company, Index: index, Total: total})
}

func (e *emitter) completed(companies []*QuoteRecord) {
	e.send(Event{Status: EventCompleted, Companies: companies, Total: len(companies)})
	e.finish()
}

func (e *emitter) fail(err error) {
	e.send(Event{Status: EventError, Error: err.Error()})
	e.finish()
}

func (e *emitter) send(ev Event) {
	if e.terminal {
		return
	}
	e.ch <- ev
}

func (e *emitter) finish() {
	if e.terminal {
		return
	}
	e.terminal = true
	close(e.ch)
}
