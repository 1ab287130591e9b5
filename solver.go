package flarebypass

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	solveEndpoint = "/get_cookies"

	// solveWindowMillis is the budget the solver gets for the challenge
	// itself. The HTTP call carries one extra second for network overhead.
	solveWindowMillis = 60000
	solveCallTimeout  = 61 * time.Second
)

type solveRequest struct {
	MaxTimeout int      `json:"maxTimeout"`
	URL        string   `json:"url"`
	Cookies    []Cookie `json:"cookies"`
	Proxy      *string  `json:"proxy"`
}

// Solution is the identity the solver established: the user-agent it
// browsed with and the cookies that now authenticate the session.
type Solution struct {
	UserAgent string   `json:"userAgent"`
	Cookies   []Cookie `json:"cookies"`
}

type solveResponse struct {
	Solution *Solution `json:"solution"`
}

// Solver posts challenge URLs to an external solving service and parses the
// resulting session identity. It never mutates the session itself; the
// client applies solutions.
type Solver struct {
	baseURL string
	client  *http.Client
}

// NewSolver builds a gateway to the solver at baseURL. The solver endpoint
// is a different trust and performance domain than the target site, so it
// gets its own plain HTTP/1.1 client with a fresh connection per solve
// instead of sharing the main session's pool.
func NewSolver(baseURL string) *Solver {
	transport := &http.Transport{
		DisableKeepAlives: true,
		TLSNextProto:      map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	return &Solver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   solveCallTimeout,
		},
	}
}

// Solve asks the solver to clear the challenge protecting targetURL. Every
// cookie the session currently holds is forwarded, since the solver may need
// application cookies beyond the protection markers to reproduce the session.
// The returned identity is reported verbatim, not applied.
func (s *Solver) Solve(ctx context.Context, targetURL string, cookies []Cookie, proxy string) (*Solution, error) {
	if cookies == nil {
		cookies = []Cookie{}
	}

	solverReq := solveRequest{
		MaxTimeout: solveWindowMillis,
		URL:        targetURL,
		Cookies:    cookies,
	}
	if proxy != "" {
		solverReq.Proxy = &proxy
	}

	payload, err := json.Marshal(solverReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+solveEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SolverUnavailableError{StatusCode: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed solveResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.Solution == nil {
		return nil, &SolverProtocolError{
			TargetURL: targetURL,
			Request:   string(payload),
			Response:  string(respBody),
		}
	}

	return parsed.Solution, nil
}
