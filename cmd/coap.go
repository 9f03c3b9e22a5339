package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"coapnotify/internal/config"
	"coapnotify/internal/notify"
)

var coapCmd = &cobra.Command{
	Use:   "coap",
	Short: "Raw CoAP requests against any IPv6 endpoint",
}

var coapGetCmd = &cobra.Command{
	Use:   "get <address> <port> <path>",
	Short: "Send a GET and print the response",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return coapRequest(cmd, notify.MethodGet, args[0], args[1], args[2], "")
	},
}

var coapPostCmd = &cobra.Command{
	Use:   "post <address> <port> <path> <payload>",
	Short: "Send a POST with a text payload and print the response",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return coapRequest(cmd, notify.MethodPost, args[0], args[1], args[2], strings.Join(args[3:], " "))
	},
}

var coapPingCmd = &cobra.Command{
	Use:   "ping <address> <port>",
	Short: "Send a CoAP ping and report the round trip",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ep, err := parseEndpoint(args[0], args[1])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rtt, err := a.transport.Ping(cmd.Context(), ep)
		if err != nil {
			return err
		}
		fmt.Printf("pong from %s://%s rtt=%s\n", a.transport.Scheme(), ep, rtt.Round(time.Microsecond))
		return nil
	},
}

func coapRequest(cmd *cobra.Command, method notify.Method, address, port, path, payload string) error {
	ep, err := parseEndpoint(address, port)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	resp, err := a.transport.Do(cmd.Context(), notify.Request{
		Method:   method,
		Endpoint: ep,
		URIPath:  path,
		Payload:  []byte(payload),
	})
	if err != nil {
		return fmt.Errorf("coap %s %s%s: %w", method, ep, path, err)
	}
	fmt.Printf("%s %s://%s%s -> %s mid=%d rtt=%s\n", method, a.transport.Scheme(), ep, path, resp.Code, resp.MessageID, time.Since(start).Round(time.Microsecond))
	if resp.Block2 != nil {
		fmt.Printf("block2: %s\n", resp.Block2)
	}
	if len(resp.Payload) > 0 {
		fmt.Println(strconv.Quote(string(resp.Payload)))
	}
	return nil
}

func parseEndpoint(address, port string) (notify.Endpoint, error) {
	p, err := config.ParsePort(port)
	if err != nil {
		return notify.Endpoint{}, err
	}
	ep, ok := notify.ParseEndpoint(strings.Trim(address, "[]"), p)
	if !ok {
		return notify.Endpoint{}, fmt.Errorf("%q is not an IPv6 address", address)
	}
	return ep, nil
}

func init() {
	coapCmd.AddCommand(coapGetCmd, coapPostCmd, coapPingCmd)
	rootCmd.AddCommand(coapCmd)
}
