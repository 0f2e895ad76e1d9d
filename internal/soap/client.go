package soap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/strefethen/upnp-av-go/internal/transport"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// Invoker performs SOAP action calls over an HTTP transport client,
// mirroring strefethen's soap.Client.Call: build envelope, POST with
// SOAPACTION header, branch on status for fault vs success.
type Invoker struct {
	client *transport.Client
}

func NewInvoker(client *transport.Client) *Invoker {
	return &Invoker{client: client}
}

// Call invokes serviceType#actionName at controlURL and returns the
// out-arguments, or a *upnperror.UPnPError decoded from a SOAP fault.
func (i *Invoker) Call(ctx context.Context, controlURL, serviceType, actionName string, args []Argument) ([]Argument, error) {
	body := BuildAction(serviceType, actionName, args)

	resp, err := i.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    controlURL,
		Header: http.Header{
			"Content-Type": []string{`text/xml; charset="utf-8"`},
			"SOAPAction":   []string{fmt.Sprintf(`"%s#%s"`, serviceType, actionName)},
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusInternalServerError {
		return nil, ParseFault(resp.Body)
	}
	if resp.Status != http.StatusOK {
		return nil, &upnperror.InvalidResponseError{Reason: fmt.Sprintf("unexpected status %d", resp.Status)}
	}

	return ParseActionResponse(resp.Body)
}

// ParseSOAPAction splits a SOAPACTION header value of the form
// `"serviceType#actionName"` into its two parts, the inverse of the
// format Call builds for the header it sends.
func ParseSOAPAction(header string) (serviceType, actionName string, ok bool) {
	header = strings.Trim(strings.TrimSpace(header), `"`)
	idx := strings.LastIndex(header, "#")
	if idx < 0 {
		return "", "", false
	}
	return header[:idx], header[idx+1:], true
}
