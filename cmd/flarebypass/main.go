package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"

	"flarebypass"
)

// maxProxyRetries limits proxy rotation retries for connection-level errors.
const maxProxyRetries = 3

type clientLogger struct {
	logger *log.Logger
}

func (c *clientLogger) Log(format string, args ...any) {
	c.logger.Printf("  "+format, args...)
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: flarebypass <url> [solve-url]\nEnvironment: SOLVER_URL (required), PROXIES_FILE (optional)")
	}
	targetURL := os.Args[1]
	solveURL := ""
	if len(os.Args) > 2 {
		solveURL = os.Args[2]
	}

	_ = godotenv.Load()

	solverURL := flarebypass.GetSolverURL()
	if solverURL == "" {
		log.Fatal("SOLVER_URL is not set")
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	var proxies *flarebypass.ProxyManager
	proxy := ""
	if file := flarebypass.GetProxiesFile(); file != "" {
		var err error
		proxies, err = flarebypass.NewProxyManager(file)
		if err != nil {
			log.Fatalf("Failed to load proxies: %v", err)
		}
		proxy = proxies.Random()
		logger.Printf("Loaded %d proxies, using %s", proxies.Count(), proxies.CurrentDisplay())
	}

	resp, err := fetch(targetURL, solveURL, solverURL, proxy, proxies, logger)
	if err != nil {
		var blocked *flarebypass.BlockedError
		if errors.As(err, &blocked) {
			log.Fatalf("Permanently blocked: %v", err)
		}
		log.Fatalf("Request failed: %v", err)
	}

	logger.Printf("%s -> %d (%d bytes)", targetURL, resp.StatusCode, len(resp.Body))
	os.Stdout.Write(resp.Body)
}

// fetch runs the request, rotating proxies on connection-level errors the
// way a fresh session would.
func fetch(targetURL, solveURL, solverURL, proxy string, proxies *flarebypass.ProxyManager, logger *log.Logger) (*flarebypass.Response, error) {
	opts := &flarebypass.RequestOptions{SolveURL: solveURL}

	var lastErr error
	for attempt := 0; attempt <= maxProxyRetries; attempt++ {
		if attempt > 0 {
			if proxies == nil {
				break
			}
			proxy = proxies.Rotate()
			logger.Printf("Connection error, rotating to proxy %s: %v", proxies.CurrentDisplay(), lastErr)
		}

		client := flarebypass.NewClient(solverURL,
			flarebypass.WithLogger(&clientLogger{logger: logger}),
			flarebypass.WithProxy(proxy),
		)
		if err := client.Open(); err != nil {
			return nil, err
		}

		resp, err := client.Get(context.Background(), targetURL, opts)
		client.Close()
		if err == nil {
			return resp, nil
		}
		if !flarebypass.IsRetryableError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}
