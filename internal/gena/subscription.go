package gena

import (
	"context"
	"fmt"
	"net/http"

	"github.com/strefethen/upnp-av-go/internal/transport"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// SubscribeClient issues SUBSCRIBE/RENEW/UNSUBSCRIBE requests against a
// publisher's event URL, mirroring strefethen's SubscriptionClient.
type SubscribeClient struct {
	client *transport.Client
}

func NewSubscribeClient(client *transport.Client) *SubscribeClient {
	return &SubscribeClient{client: client}
}

// Subscribe sends an initial SUBSCRIBE (CALLBACK + NT set, no SID) and
// returns the granted SID and timeout in seconds (InfiniteTimeout for
// "Second-infinite").
func (c *SubscribeClient) Subscribe(ctx context.Context, eventURL, callbackURL string, requestedTimeoutSec int) (sid string, timeoutSec int, err error) {
	resp, err := c.client.Do(ctx, transport.Request{
		Method: "SUBSCRIBE",
		URL:    eventURL,
		Header: http.Header{
			"CALLBACK": []string{fmt.Sprintf("<%s>", callbackURL)},
			"NT":       []string{"upnp:event"},
			"TIMEOUT":  []string{FormatTimeout(requestedTimeoutSec)},
		},
	})
	if err != nil {
		return "", 0, err
	}
	if resp.Status != http.StatusOK {
		return "", 0, &upnperror.InvalidResponseError{Reason: fmt.Sprintf("subscribe failed with status %d", resp.Status)}
	}

	sid = resp.Header.Get("SID")
	if sid == "" {
		return "", 0, &upnperror.InvalidResponseError{Reason: "subscribe response missing SID"}
	}
	timeoutSec, ok := ParseTimeout(resp.Header.Get("TIMEOUT"))
	if !ok {
		return "", 0, &upnperror.InvalidResponseError{Reason: "subscribe response has malformed TIMEOUT"}
	}
	return sid, timeoutSec, nil
}

// Renew sends a renewal SUBSCRIBE (SID set, no CALLBACK/NT). A 412
// response means the subscription no longer exists on the publisher.
func (c *SubscribeClient) Renew(ctx context.Context, eventURL, sid string, requestedTimeoutSec int) (timeoutSec int, err error) {
	resp, err := c.client.Do(ctx, transport.Request{
		Method: "SUBSCRIBE",
		URL:    eventURL,
		Header: http.Header{
			"SID":     []string{sid},
			"TIMEOUT": []string{FormatTimeout(requestedTimeoutSec)},
		},
	})
	if err != nil {
		return 0, err
	}
	if resp.Status == http.StatusPreconditionFailed {
		return 0, &upnperror.InvalidSubscriptionIDError{SID: sid}
	}
	if resp.Status != http.StatusOK {
		return 0, &upnperror.InvalidResponseError{Reason: fmt.Sprintf("renew failed with status %d", resp.Status)}
	}

	timeoutSec, ok := ParseTimeout(resp.Header.Get("TIMEOUT"))
	if !ok {
		return 0, &upnperror.InvalidResponseError{Reason: "renew response has malformed TIMEOUT"}
	}
	return timeoutSec, nil
}

// Unsubscribe sends UNSUBSCRIBE. Network failures and an already-gone
// subscription (412) are both treated as success: the publisher side
// no longer holds state either way.
func (c *SubscribeClient) Unsubscribe(ctx context.Context, eventURL, sid string) error {
	resp, err := c.client.Do(ctx, transport.Request{
		Method: "UNSUBSCRIBE",
		URL:    eventURL,
		Header: http.Header{"SID": []string{sid}},
	})
	if err != nil {
		return nil
	}
	if resp.Status == http.StatusOK || resp.Status == http.StatusPreconditionFailed {
		return nil
	}
	return &upnperror.InvalidResponseError{Reason: fmt.Sprintf("unsubscribe failed with status %d", resp.Status)}
}
