package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

var (
	httpServerEndpoint = flag.String("http-server-endpoint", "http://localhost:8080", "HTTP server endpoint")
	grpcServerEndpoint = flag.String("grpc-server-endpoint", "localhost:8081", "gRPC server endpoint")
	timeout            = flag.Duration("timeout", 10*time.Second, "request timeout")
)

const usage = `Usage: tinyurl [flags] <command> [args]

A CLI to interact with the tinyurl service.

Commands:
  shorten <url> [user]   Shortens a long URL, optionally on behalf of a user.
  clicks <user>          Lists the click events recorded for a user's links.
  health                 Reports whether the service and its stores are up.

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: missing command.")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch cmd := args[0]; {
	case cmd == "shorten" && (len(args) == 2 || len(args) == 3):
		user := ""
		if len(args) == 3 {
			user = args[2]
		}
		err = shortenCmd(ctx, args[1], user)
	case cmd == "clicks" && len(args) == 2:
		err = clicksCmd(ctx, args[1])
	case cmd == "health" && len(args) == 1:
		err = healthCmd(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid command %q\n", args)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func shortenCmd(ctx context.Context, longURL, user string) error {
	body, err := json.Marshal(map[string]string{"longUrl": longURL, "userName": user})
	if err != nil {
		return err
	}
	res, err := do(ctx, http.MethodPost, "/tiny", bytes.NewReader(body))
	if err != nil {
		return err
	}
	fmt.Printf("short url: %s\n", res)
	return nil
}

func clicksCmd(ctx context.Context, user string) error {
	res, err := do(ctx, http.MethodGet, "/user/"+url.PathEscape(user)+"/clicks", nil)
	if err != nil {
		return err
	}
	var clicks struct {
		Data []struct {
			ClickTime time.Time `json:"clickTime"`
			Code      string    `json:"code"`
			LongURL   string    `json:"longUrl"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(res, &clicks); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	if len(clicks.Data) == 0 {
		fmt.Println(clicks.Message)
		return nil
	}
	for _, c := range clicks.Data {
		fmt.Printf("%s  %s  %s\n", c.ClickTime.Format(time.RFC3339), c.Code, c.LongURL)
	}
	return nil
}

func healthCmd(ctx context.Context) error {
	conn, err := grpc.NewClient(*grpcServerEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("could not connect to server: %w", err)
	}
	defer conn.Close()

	res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Println(protojson.Format(res))
	return nil
}

func do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, *httpServerEndpoint+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach server. Make sure the server is running and try again: %w", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(buf, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s (%d)", apiErr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return buf, nil
}
