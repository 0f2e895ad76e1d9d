package gena

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/strefethen/upnp-av-go/internal/transport"
)

// defaultSubscriptionTimeout is granted when a SUBSCRIBE omits TIMEOUT
// or sends a malformed one.
const defaultSubscriptionTimeout = 1800

// Subscription is one device-side GENA subscription (spec.md §4.4
// "Subscription (device side)"): a set of delivery callback URLs, an
// absolute expiry enforced by the publisher, and a per-subscription
// sequence counter that wraps from its maximum back to 1 — 0 is
// reserved for the initial event sent right after SUBSCRIBE.
type Subscription struct {
	SID          string
	CallbackURLs []string
	ExpiresAt    time.Time
	seq          uint32
}

func (s *Subscription) nextSeq() uint32 {
	if s.seq == ^uint32(0) {
		s.seq = 0
	}
	s.seq++
	return s.seq
}

// Publisher is the device-side GENA subscription broker: it answers
// SUBSCRIBE/UNSUBSCRIBE and delivers NOTIFY to every callback URL of
// every active subscription. Grounded on gena.SubscribeClient for the
// wire grammar, mirrored for the serving side.
type Publisher struct {
	client *transport.Client
	newSID func() string

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewPublisher constructs a Publisher. newSID generates the random
// identifier embedded in each granted "uuid:<id>" SID.
func NewPublisher(client *transport.Client, newSID func() string) *Publisher {
	return &Publisher{client: client, newSID: newSID, subs: make(map[string]*Subscription)}
}

// HandleSubscribe answers a SUBSCRIBE request. A request carrying SID
// is always treated as a renewal, never a new subscription (spec.md
// §8 "A SUBSCRIBE with an SID header is always treated as renewal").
// On a new subscription, if initialEvent is non-nil it is sent as a
// sequence-0 NOTIFY immediately after the response is written
// (spec.md §6 "Root Device").
func (p *Publisher) HandleSubscribe(w http.ResponseWriter, r *http.Request, initialEvent func() []byte) {
	if sid := r.Header.Get("SID"); sid != "" {
		p.handleRenew(w, sid, r.Header.Get("TIMEOUT"))
		return
	}

	if r.Header.Get("NT") != "upnp:event" {
		http.Error(w, "missing or invalid NT", http.StatusPreconditionFailed)
		return
	}
	urls := parseCallbackURLs(r.Header.Get("CALLBACK"))
	if len(urls) == 0 {
		http.Error(w, "missing or malformed CALLBACK", http.StatusPreconditionFailed)
		return
	}

	timeoutSec, ok := ParseTimeout(r.Header.Get("TIMEOUT"))
	if !ok {
		timeoutSec = defaultSubscriptionTimeout
	}

	sub := &Subscription{
		SID:          fmt.Sprintf("uuid:%s", p.newSID()),
		CallbackURLs: urls,
		ExpiresAt:    expiryFor(timeoutSec),
	}

	p.mu.Lock()
	p.subs[sub.SID] = sub
	p.mu.Unlock()

	w.Header().Set("SID", sub.SID)
	w.Header().Set("TIMEOUT", FormatTimeout(timeoutSec))
	w.WriteHeader(http.StatusOK)

	if initialEvent != nil {
		payload := initialEvent()
		go p.deliver(sub, 0, payload)
	}
}

func (p *Publisher) handleRenew(w http.ResponseWriter, sid, timeoutHeader string) {
	p.mu.Lock()
	sub, ok := p.subs[sid]
	p.mu.Unlock()
	if !ok {
		http.Error(w, "unknown subscription", http.StatusPreconditionFailed)
		return
	}

	timeoutSec, ok := ParseTimeout(timeoutHeader)
	if !ok {
		timeoutSec = defaultSubscriptionTimeout
	}

	p.mu.Lock()
	sub.ExpiresAt = expiryFor(timeoutSec)
	p.mu.Unlock()

	w.Header().Set("SID", sid)
	w.Header().Set("TIMEOUT", FormatTimeout(timeoutSec))
	w.WriteHeader(http.StatusOK)
}

// HandleUnsubscribe answers an UNSUBSCRIBE request, discarding the
// subscription if one exists under the given SID.
func (p *Publisher) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	sid := r.Header.Get("SID")
	if sid == "" {
		http.Error(w, "missing SID", http.StatusPreconditionFailed)
		return
	}

	p.mu.Lock()
	_, ok := p.subs[sid]
	delete(p.subs, sid)
	p.mu.Unlock()

	if !ok {
		http.Error(w, "unknown subscription", http.StatusPreconditionFailed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ActiveSubscriptionCount reports how many subscriptions are
// currently tracked, used by tests and diagnostics.
func (p *Publisher) ActiveSubscriptionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Publish delivers payload as a NOTIFY to every active subscription's
// callback URLs, each with its own advancing sequence number.
// Subscriptions whose expiry has passed are dropped instead.
func (p *Publisher) Publish(payload []byte) {
	p.mu.Lock()
	now := time.Now()
	subs := make([]*Subscription, 0, len(p.subs))
	for sid, sub := range p.subs {
		if !sub.ExpiresAt.IsZero() && now.After(sub.ExpiresAt) {
			delete(p.subs, sid)
			continue
		}
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		p.mu.Lock()
		seq := sub.nextSeq()
		p.mu.Unlock()
		go p.deliver(sub, seq, payload)
	}
}

func (p *Publisher) deliver(sub *Subscription, seq uint32, payload []byte) {
	for _, url := range sub.CallbackURLs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, _ = p.client.Do(ctx, transport.Request{
			Method: "NOTIFY",
			URL:    url,
			Header: http.Header{
				"SID":          []string{sub.SID},
				"SEQ":          []string{fmt.Sprintf("%d", seq)},
				"NT":           []string{"upnp:event"},
				"NTS":          []string{"upnp:propchange"},
				"Content-Type": []string{"text/xml"},
			},
			Body: payload,
		})
		cancel()
	}
}

func expiryFor(timeoutSec int) time.Time {
	if timeoutSec == InfiniteTimeout {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(timeoutSec) * time.Second)
}

// parseCallbackURLs extracts every "<url>" segment from a CALLBACK
// header, which may list more than one delivery URL.
func parseCallbackURLs(header string) []string {
	var urls []string
	for _, part := range strings.Split(header, "<") {
		end := strings.Index(part, ">")
		if end < 0 {
			continue
		}
		if url := strings.TrimSpace(part[:end]); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}
