package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// feedBacklog bounds how many published events are retained for
	// Last-Event-ID replay.
	feedBacklog = 1000

	feedHeartbeat = 15 * time.Second

	watcherBuffer = 64
)

// feedEvent is one published change as it goes out on the wire.
type feedEvent struct {
	Seq    uint64
	Tenant string
	Topic  string
	Data   []byte
}

// write renders the event in text/event-stream framing.
func (e *feedEvent) write(w io.Writer) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.Seq, e.Topic, e.Data)
}

// eventFeed delivers published client events to stream watchers, keyed by
// tenant, and keeps a bounded backlog for reconnecting watchers.
type eventFeed struct {
	mu       sync.Mutex
	seq      uint64
	backlog  []*feedEvent
	watchers map[string]map[*feedWatcher]struct{}
}

// feedWatcher is one open stream.
type feedWatcher struct {
	tenant   string
	patterns []string
	out      chan *feedEvent
}

func newEventFeed() *eventFeed {
	return &eventFeed{watchers: make(map[string]map[*feedWatcher]struct{})}
}

// publish assigns the next sequence number and hands the event to every
// interested watcher of tenant. Watchers whose buffers are full miss it.
func (f *eventFeed) publish(tenant, topic string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	ev := &feedEvent{Seq: f.seq, Tenant: tenant, Topic: topic, Data: data}
	if len(f.backlog) == feedBacklog {
		copy(f.backlog, f.backlog[1:])
		f.backlog = f.backlog[:feedBacklog-1]
	}
	f.backlog = append(f.backlog, ev)

	for w := range f.watchers[tenant] {
		if !w.wants(ev) {
			continue
		}
		select {
		case w.out <- ev:
		default:
		}
	}
}

func (f *eventFeed) watch(tenant string, patterns []string) *feedWatcher {
	w := &feedWatcher{tenant: tenant, patterns: patterns, out: make(chan *feedEvent, watcherBuffer)}
	f.mu.Lock()
	set := f.watchers[tenant]
	if set == nil {
		set = make(map[*feedWatcher]struct{})
		f.watchers[tenant] = set
	}
	set[w] = struct{}{}
	f.mu.Unlock()
	return w
}

func (f *eventFeed) drop(w *feedWatcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.watchers[w.tenant]
	delete(set, w)
	if len(set) == 0 {
		delete(f.watchers, w.tenant)
	}
}

// after returns the retained events newer than seq, oldest first. Events
// already evicted from the backlog are gone.
func (f *eventFeed) after(seq uint64) []*feedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ev := range f.backlog {
		if ev.Seq > seq {
			return append([]*feedEvent(nil), f.backlog[i:]...)
		}
	}
	return nil
}

// wants reports whether ev is for the watcher's tenant and topic patterns.
// No patterns means every topic.
func (w *feedWatcher) wants(ev *feedEvent) bool {
	if ev.Tenant != w.tenant {
		return false
	}
	if len(w.patterns) == 0 {
		return true
	}
	for _, p := range w.patterns {
		if topicMatches(p, ev.Topic) {
			return true
		}
	}
	return false
}

// topicMatches applies NATS subject rules to dotted topics: "*" stands for
// exactly one token and a trailing ">" for one or more.
func topicMatches(pattern, topic string) bool {
	for {
		pHead, pRest, pMore := strings.Cut(pattern, ".")
		tHead, tRest, tMore := strings.Cut(topic, ".")
		switch {
		case pHead == ">" && !pMore:
			return tHead != ""
		case pHead != "*" && pHead != tHead:
			return false
		case pMore != tMore:
			return false
		case !pMore:
			return true
		}
		pattern, topic = pRest, tRest
	}
}

// parsePatterns splits a comma separated topics parameter.
func parsePatterns(raw string) []string {
	var out []string
	for p := range strings.SplitSeq(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// handleEventStream serves GET /v1/events/stream as server-sent events for
// the caller's tenant, replaying from Last-Event-ID when given.
func (s *LedgerServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	watcher := s.feed.watch(tenantFrom(r.Context()), parsePatterns(r.URL.Query().Get("topics")))
	defer s.feed.drop(watcher)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if last, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, ev := range s.feed.after(last) {
			if watcher.wants(ev) {
				ev.write(w)
			}
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(feedHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-watcher.out:
			ev.write(w)
		case <-heartbeat.C:
			io.WriteString(w, ":keepalive\n\n")
		}
		flusher.Flush()
	}
}
