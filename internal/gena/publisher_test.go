package gena

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/upnp-av-go/internal/transport"
)

func sequentialSIDs() func() string {
	n := 0
	return func() string {
		n++
		if n == 1 {
			return "11111111-1111-1111-1111-111111111111"
		}
		return "22222222-2222-2222-2222-222222222222"
	}
}

func TestHandleSubscribeGrantsSIDAndTimeout(t *testing.T) {
	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())

	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("CALLBACK", "<http://127.0.0.1:9999/cb>")
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", "Second-1800")

	rec := httptest.NewRecorder()
	p.HandleSubscribe(rec, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uuid:11111111-1111-1111-1111-111111111111", rec.Header().Get("SID"))
	assert.Equal(t, "Second-1800", rec.Header().Get("TIMEOUT"))
	assert.Equal(t, 1, p.ActiveSubscriptionCount())
}

func TestHandleSubscribeRejectsMissingCallback(t *testing.T) {
	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())

	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("NT", "upnp:event")

	rec := httptest.NewRecorder()
	p.HandleSubscribe(rec, req, nil)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, 0, p.ActiveSubscriptionCount())
}

func TestHandleSubscribeWithSIDRenews(t *testing.T) {
	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())

	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("CALLBACK", "<http://127.0.0.1:9999/cb>")
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", "Second-1800")
	rec := httptest.NewRecorder()
	p.HandleSubscribe(rec, req, nil)
	sid := rec.Header().Get("SID")

	renewReq := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	renewReq.Header.Set("SID", sid)
	renewReq.Header.Set("TIMEOUT", "Second-900")
	renewRec := httptest.NewRecorder()
	p.HandleSubscribe(renewRec, renewReq, nil)

	assert.Equal(t, http.StatusOK, renewRec.Code)
	assert.Equal(t, sid, renewRec.Header().Get("SID"))
	assert.Equal(t, "Second-900", renewRec.Header().Get("TIMEOUT"))
	assert.Equal(t, 1, p.ActiveSubscriptionCount())
}

func TestHandleSubscribeRenewUnknownSIDFails(t *testing.T) {
	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())

	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("SID", "uuid:does-not-exist")
	rec := httptest.NewRecorder()
	p.HandleSubscribe(rec, req, nil)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestHandleUnsubscribeRemovesSubscription(t *testing.T) {
	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())

	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("CALLBACK", "<http://127.0.0.1:9999/cb>")
	req.Header.Set("NT", "upnp:event")
	rec := httptest.NewRecorder()
	p.HandleSubscribe(rec, req, nil)
	sid := rec.Header().Get("SID")

	unsubReq := httptest.NewRequest("UNSUBSCRIBE", "/event", nil)
	unsubReq.Header.Set("SID", sid)
	unsubRec := httptest.NewRecorder()
	p.HandleUnsubscribe(unsubRec, unsubReq)

	assert.Equal(t, http.StatusOK, unsubRec.Code)
	assert.Equal(t, 0, p.ActiveSubscriptionCount())
}

func TestHandleSubscribeSendsInitialEventAtSequenceZero(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("SEQ") + "|" + r.Header.Get("NT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())
	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("CALLBACK", "<"+server.URL+"/cb>")
	req.Header.Set("NT", "upnp:event")
	rec := httptest.NewRecorder()

	p.HandleSubscribe(rec, req, func() []byte { return []byte("<e:propertyset/>") })

	select {
	case got := <-received:
		assert.Equal(t, "0|upnp:event", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial NOTIFY")
	}
}

func TestHandleSubscribeInitialNotifySetsContentType(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())
	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("CALLBACK", "<"+server.URL+"/cb>")
	req.Header.Set("NT", "upnp:event")
	rec := httptest.NewRecorder()

	p.HandleSubscribe(rec, req, func() []byte { return []byte("<e:propertyset/>") })

	select {
	case got := <-received:
		assert.Equal(t, "text/xml", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial NOTIFY")
	}
}

func TestPublishAdvancesSequenceAcrossCalls(t *testing.T) {
	received := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("SEQ")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPublisher(transport.NewClient(time.Second), sequentialSIDs())
	req := httptest.NewRequest("SUBSCRIBE", "/event", nil)
	req.Header.Set("CALLBACK", "<"+server.URL+"/cb>")
	req.Header.Set("NT", "upnp:event")
	rec := httptest.NewRecorder()
	p.HandleSubscribe(rec, req, nil)

	p.Publish([]byte("<e:propertyset/>"))
	p.Publish([]byte("<e:propertyset/>"))

	seqs := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case seq := <-received:
			seqs = append(seqs, seq)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for NOTIFY")
		}
	}
	require.ElementsMatch(t, []string{"1", "2"}, seqs)
}
