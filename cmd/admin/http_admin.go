package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// callServer hits a loopback admin endpoint on a running server and copies
// the JSON reply to out.
func callServer(name, method, path string, timeout time.Duration, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}

func stateCmd(args []string, out io.Writer) error {
	return callServer("state", http.MethodGet, "/admin/v1/state", 5*time.Second, args, out)
}

// saveCmd asks a running server to flush its dirty chunks.
func saveCmd(args []string, out io.Writer) error {
	return callServer("save", http.MethodPost, "/admin/v1/save", 15*time.Second, args, out)
}
