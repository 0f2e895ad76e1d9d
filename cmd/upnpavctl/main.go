// Command upnpavctl is a control-point CLI: it fetches a device
// description, binds a client to one of the four standard AV services,
// and runs a single action or watches LastChange/SystemUpdateID events.
//
// Usage:
//
//	upnpavctl <description-url> <service> <command> [args...]
//
// service is one of: avtransport, renderingcontrol, contentdirectory,
// connectionmanager.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/strefethen/upnp-av-go/internal/av/avtransport"
	"github.com/strefethen/upnp-av-go/internal/av/connectionmanager"
	"github.com/strefethen/upnp-av-go/internal/av/contentdirectory"
	"github.com/strefethen/upnp-av-go/internal/av/renderingcontrol"
	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/gena"
	"github.com/strefethen/upnp-av-go/internal/transport"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: upnpavctl <description-url> <service> <command> [args...]")
		os.Exit(2)
	}
	descriptionURL, serviceName, command, rest := os.Args[1], os.Args[2], os.Args[3], os.Args[4:]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dev, err := fetchDeviceDescription(ctx, descriptionURL)
	if err != nil {
		log.Fatalf("UPNP: failed to fetch device description: %v", err)
	}

	httpClient := transport.NewClient(10 * time.Second)
	var eventServer *gena.EventServer
	callbackURLFunc := func() string {
		if eventServer == nil {
			return ""
		}
		return "http://" + eventServer.Addr() + "/notify"
	}

	switch serviceName {
	case "avtransport":
		runAVTransport(ctx, dev, httpClient, callbackURLFunc, &eventServer, command, rest)
	case "renderingcontrol":
		runRenderingControl(ctx, dev, httpClient, callbackURLFunc, &eventServer, command, rest)
	case "contentdirectory":
		runContentDirectory(ctx, dev, httpClient, callbackURLFunc, &eventServer, command, rest)
	case "connectionmanager":
		runConnectionManager(ctx, dev, httpClient, command, rest)
	default:
		log.Fatalf("UPNP: unknown service %q", serviceName)
	}
}

func fetchDeviceDescription(ctx context.Context, url string) (*device.Device, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return device.ParseDeviceDescription(body, url)
}

// waitForInterrupt blocks until SIGINT/SIGTERM, used by watch commands.
func waitForInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}

func runAVTransport(ctx context.Context, dev *device.Device, httpClient *transport.Client, callbackURLFunc func() string, eventServer **gena.EventServer, command string, args []string) {
	client := avtransport.NewClient(httpClient, callbackURLFunc, 1800, 0.75)
	if err := client.SetDevice(ctx, dev); err != nil {
		log.Fatalf("UPNP: bind failed: %v", err)
	}

	switch command {
	case "play":
		checkErr(client.Play(ctx, 0, "1"))
	case "pause":
		checkErr(client.Pause(ctx, 0))
	case "stop":
		checkErr(client.Stop(ctx, 0))
	case "next":
		checkErr(client.Next(ctx, 0))
	case "previous":
		checkErr(client.Previous(ctx, 0))
	case "seek":
		requireArgs(args, 2, "seek <unit> <target>")
		checkErr(client.Seek(ctx, 0, args[0], args[1]))
	case "setavtransporturi":
		requireArgs(args, 1, "setavtransporturi <uri> [metadata]")
		meta := ""
		if len(args) > 1 {
			meta = args[1]
		}
		checkErr(client.SetAVTransportURI(ctx, 0, args[0], meta))
	case "transportinfo":
		info, err := client.GetTransportInfo(ctx, 0)
		checkErr(err)
		fmt.Printf("state=%s status=%s speed=%s\n", info.State, info.Status, info.Speed)
	case "positioninfo":
		info, err := client.GetPositionInfo(ctx, 0)
		checkErr(err)
		fmt.Printf("track=%d duration=%s reltime=%s\n", info.Track, info.TrackDuration, info.RelTime)
	case "mediainfo":
		info, err := client.GetMediaInfo(ctx, 0)
		checkErr(err)
		fmt.Printf("tracks=%d uri=%s\n", info.NumberOfTracks, info.CurrentURI)
	case "watch":
		client.OnAnyVariableChanged(func(vars map[string]string) {
			for name, value := range vars {
				fmt.Printf("%s=%s\n", name, value)
			}
		})
		startWatcher(eventServer, func(evt gena.NotifyEvent) {
			if err := client.HandleNotify(evt); err != nil {
				log.Printf("UPNP: malformed NOTIFY body: %v", err)
			}
		})
		checkErr(client.Subscribe(ctx))
		defer client.Unsubscribe(context.Background())
		waitForInterrupt()
	default:
		log.Fatalf("UPNP: unknown avtransport command %q", command)
	}
}

func runRenderingControl(ctx context.Context, dev *device.Device, httpClient *transport.Client, callbackURLFunc func() string, eventServer **gena.EventServer, command string, args []string) {
	client := renderingcontrol.NewClient(httpClient, callbackURLFunc, 1800, 0.75)
	if err := client.SetDevice(ctx, dev); err != nil {
		log.Fatalf("UPNP: bind failed: %v", err)
	}

	switch command {
	case "getvolume":
		v, err := client.GetVolume(ctx, 0, renderingcontrol.ChannelMaster)
		checkErr(err)
		fmt.Println(v)
	case "setvolume":
		requireArgs(args, 1, "setvolume <0-100>")
		v, err := strconv.Atoi(args[0])
		checkErr(err)
		checkErr(client.SetVolume(ctx, 0, renderingcontrol.ChannelMaster, v))
	case "getmute":
		m, err := client.GetMute(ctx, 0, renderingcontrol.ChannelMaster)
		checkErr(err)
		fmt.Println(m)
	case "setmute":
		requireArgs(args, 1, "setmute <0|1>")
		checkErr(client.SetMute(ctx, 0, renderingcontrol.ChannelMaster, args[0] == "1"))
	case "watch":
		client.OnAnyVariableChanged(func(vars map[string]string) {
			for name, value := range vars {
				fmt.Printf("%s=%s\n", name, value)
			}
		})
		startWatcher(eventServer, func(evt gena.NotifyEvent) {
			if err := client.HandleNotify(evt); err != nil {
				log.Printf("UPNP: malformed NOTIFY body: %v", err)
			}
		})
		checkErr(client.Subscribe(ctx))
		defer client.Unsubscribe(context.Background())
		waitForInterrupt()
	default:
		log.Fatalf("UPNP: unknown renderingcontrol command %q", command)
	}
}

func runContentDirectory(ctx context.Context, dev *device.Device, httpClient *transport.Client, callbackURLFunc func() string, eventServer **gena.EventServer, command string, args []string) {
	client := contentdirectory.NewClient(httpClient, callbackURLFunc, 1800, 0.75)
	if err := client.SetDevice(ctx, dev); err != nil {
		log.Fatalf("UPNP: bind failed: %v", err)
	}

	switch command {
	case "browse":
		requireArgs(args, 1, "browse <objectID> [direct|metadata]")
		flag := contentdirectory.BrowseDirectChildren
		if len(args) > 1 && args[1] == "metadata" {
			flag = contentdirectory.BrowseMetadata
		}
		result, err := client.Browse(ctx, args[0], flag, "*", 0, 0, "")
		checkErr(err)
		for _, item := range result.Items {
			fmt.Printf("%s\t%s\t%s\n", item.ID, item.Class, item.Title)
		}
	case "search":
		requireArgs(args, 2, "search <containerID> <criteria>")
		result, err := client.Search(ctx, args[0], args[1], "*", 0, 0, "")
		checkErr(err)
		for _, item := range result.Items {
			fmt.Printf("%s\t%s\t%s\n", item.ID, item.Class, item.Title)
		}
	case "updateid":
		id, err := client.GetSystemUpdateID(ctx)
		checkErr(err)
		fmt.Println(id)
	case "watch":
		client.OnAnyVariableChanged(func(vars map[string]string) {
			for name, value := range vars {
				fmt.Printf("%s=%s\n", name, value)
			}
		})
		startWatcher(eventServer, func(evt gena.NotifyEvent) {
			if err := client.HandleNotify(evt); err != nil {
				log.Printf("UPNP: malformed NOTIFY body: %v", err)
			}
		})
		checkErr(client.Subscribe(ctx))
		defer client.Unsubscribe(context.Background())
		waitForInterrupt()
	default:
		log.Fatalf("UPNP: unknown contentdirectory command %q", command)
	}
}

func runConnectionManager(ctx context.Context, dev *device.Device, httpClient *transport.Client, command string, args []string) {
	client := connectionmanager.NewClient(httpClient, func() string { return "" }, 1800, 0.75)
	if err := client.SetDevice(ctx, dev); err != nil {
		log.Fatalf("UPNP: bind failed: %v", err)
	}

	switch command {
	case "protocolinfo":
		source, sink, err := client.GetProtocolInfo(ctx)
		checkErr(err)
		fmt.Printf("source=%v sink=%v\n", source, sink)
	case "connectionids":
		ids, err := client.GetCurrentConnectionIDs(ctx)
		checkErr(err)
		fmt.Println(ids)
	case "connectioninfo":
		requireArgs(args, 1, "connectioninfo <connectionID>")
		id, err := strconv.Atoi(args[0])
		checkErr(err)
		info, err := client.GetCurrentConnectionInfo(ctx, int32(id))
		checkErr(err)
		fmt.Printf("%+v\n", info)
	default:
		log.Fatalf("UPNP: unknown connectionmanager command %q", command)
	}
}

func startWatcher(eventServer **gena.EventServer, cb gena.NotifyCallback) {
	es, err := gena.NewEventServer("0.0.0.0:0", "/notify", cb)
	if err != nil {
		log.Fatalf("UPNP: failed to start event server: %v", err)
	}
	*eventServer = es
	es.Start(context.Background())
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "usage: upnpavctl ... %s\n", usage)
		os.Exit(2)
	}
}

func checkErr(err error) {
	if err != nil {
		log.Fatalf("UPNP: action failed: %v", err)
	}
}
