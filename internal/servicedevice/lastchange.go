package servicedevice

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"sync"
	"time"
)

// LastChangeNamespace picks the metadata namespace a LastChange event
// is serialised under, one per AV service (spec.md §4.7).
type LastChangeNamespace string

const (
	LastChangeNamespaceAVT LastChangeNamespace = "urn:schemas-upnp-org:metadata-1-0/AVT/"
	LastChangeNamespaceRCS LastChangeNamespace = "urn:schemas-upnp-org:metadata-1-0/RCS/"
)

// lastChangeVar is one changed variable queued for the next aggregate,
// keyed so a second change to the same variable before flush replaces
// rather than duplicates it (spec.md §4.6 "dedup by variable").
type lastChangeVar struct {
	name    string
	value   string
	channel string
}

// LastChangeAggregator coalesces per-instance state-variable changes
// into a single LastChange event XML payload emitted at most once per
// MinInterval, grounded on
// original_source/src/upnp.lastchangevariable.cpp's
// LastChangeVariable::addChangedVariable/createLastChangeEvent.
type LastChangeAggregator struct {
	namespace   LastChangeNamespace
	minInterval time.Duration

	mu         sync.Mutex
	pending    map[uint32]map[string]lastChangeVar // instanceID -> key -> var
	lastFlush  time.Time
	timerArmed bool
	timer      *time.Timer
	emit       func(payload []byte)
	now        func() time.Time
}

// NewLastChangeAggregator creates an aggregator that calls emit with
// the serialised <Event> payload covering every instance with pending
// changes, no more often than minInterval.
func NewLastChangeAggregator(namespace LastChangeNamespace, minInterval time.Duration, emit func(payload []byte)) *LastChangeAggregator {
	return &LastChangeAggregator{
		namespace:   namespace,
		minInterval: minInterval,
		pending:     make(map[uint32]map[string]lastChangeVar),
		emit:        emit,
		now:         time.Now,
	}
}

// AddChangedVariable queues a variable change for instanceID. channel
// is the RenderingControl channel key ("Master", "LF", ...) or "" for
// variables that are not channel-keyed.
//
// If more than minInterval has elapsed since the last emission, the
// aggregate flushes immediately; otherwise a timer is armed (if one
// isn't already) to flush minInterval after the last emission, per
// addChangedVariable's timeSinceLastUpdate branch.
func (a *LastChangeAggregator) AddChangedVariable(instanceID uint32, name, value, channel string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	inst, ok := a.pending[instanceID]
	if !ok {
		inst = make(map[string]lastChangeVar)
		a.pending[instanceID] = inst
	}
	key := name + "\x00" + channel
	inst[key] = lastChangeVar{name: name, value: value, channel: channel}

	if a.timerArmed {
		return
	}

	elapsed := a.now().Sub(a.lastFlush)
	if a.lastFlush.IsZero() || elapsed > a.minInterval {
		a.flushLocked()
		return
	}

	wait := a.minInterval - elapsed
	a.timerArmed = true
	a.timer = time.AfterFunc(wait, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.timerArmed = false
		a.flushLocked()
	})
}

// flushLocked must be called with mu held. It serialises every pending
// instance's changes into a single <Event> element, emits it, and
// clears the pending set.
func (a *LastChangeAggregator) flushLocked() {
	if len(a.pending) == 0 {
		return
	}
	payload := a.renderEvent(a.pending)
	a.pending = make(map[uint32]map[string]lastChangeVar)
	a.lastFlush = a.now()
	if a.emit != nil {
		a.emit(payload)
	}
}

func (a *LastChangeAggregator) renderEvent(byInstance map[uint32]map[string]lastChangeVar) []byte {
	instanceIDs := make([]uint32, 0, len(byInstance))
	for id := range byInstance {
		instanceIDs = append(instanceIDs, id)
	}
	sort.Slice(instanceIDs, func(i, j int) bool { return instanceIDs[i] < instanceIDs[j] })

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<Event xmlns="%s">`, a.namespace)
	for _, instanceID := range instanceIDs {
		vars := byInstance[instanceID]
		if len(vars) == 0 {
			continue
		}
		fmt.Fprintf(&buf, `<InstanceID val="%d">`, instanceID)
		for _, v := range vars {
			var esc bytes.Buffer
			_ = xml.EscapeText(&esc, []byte(v.value))
			if v.channel != "" {
				fmt.Fprintf(&buf, `<%s channel="%s" val="%s"/>`, v.name, v.channel, esc.String())
			} else {
				fmt.Fprintf(&buf, `<%s val="%s"/>`, v.name, esc.String())
			}
		}
		buf.WriteString("</InstanceID>")
	}
	buf.WriteString("</Event>")
	return buf.Bytes()
}
