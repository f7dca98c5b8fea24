// Package installapi is a read-only client for the installation-orchestration
// API that drives the early phase of an unattended cluster install.
//
// Every failure is classified: a missing credential pauses polling without
// counting against the data source, while network errors, non-200 responses
// and malformed payloads all collapse into ErrTransient, meaning "no data
// this cycle".
package installapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Sentinel errors for the failure taxonomy.
var (
	// ErrNoCredentials means the installer state file has not produced a
	// token yet. It pauses polling and never counts as a source failure.
	ErrNoCredentials = errors.New("no credentials available")

	// ErrTransient covers network errors, non-200 responses and malformed
	// payloads. Callers treat it as "no data this cycle".
	ErrTransient = errors.New("transient orchestration API failure")
)

// TokenSource yields the current bearer token, or "" when absent.
type TokenSource interface {
	Token() string
}

// Client issues authenticated reads against the orchestration API.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	log     logr.Logger
}

// NewClient creates an orchestration API client. The timeout is applied per
// request; the API runs on the rendezvous host with a self-signed
// certificate, so verification is skipped.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, log logr.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402
			},
		},
		log: log,
	}
}

// FirstCluster returns the first cluster the API lists, which for an
// agent-based install is the only one.
func (c *Client) FirstCluster(ctx context.Context) (*Cluster, error) {
	var clusters []Cluster
	if err := c.get(ctx, "/clusters", &clusters); err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return nil, fmt.Errorf("%w: cluster list is empty", ErrTransient)
	}
	return &clusters[0], nil
}

// ClusterHosts lists the hosts registered to a cluster.
func (c *Client) ClusterHosts(ctx context.Context, clusterID string) ([]Host, error) {
	var hosts []Host
	if err := c.get(ctx, "/clusters/"+url.PathEscape(clusterID)+"/hosts", &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// InfraEnvHosts lists the hosts of an infra-env. This endpoint yields richer
// identity data than the cluster-scoped one and is preferred when an
// infra-env id is known.
func (c *Client) InfraEnvHosts(ctx context.Context, infraEnvID string) ([]Host, error) {
	var hosts []Host
	if err := c.get(ctx, "/infra-envs/"+url.PathEscape(infraEnvID)+"/hosts", &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// Events returns the installation event feed for a cluster.
func (c *Client) Events(ctx context.Context, clusterID string) ([]Event, error) {
	var events []Event
	if err := c.get(ctx, "/events?cluster_id="+url.QueryEscape(clusterID), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// get performs one authenticated read and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	token := c.tokens.Token()
	if token == "" {
		return ErrNoCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	req.Header.Set("Authorization", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrTransient, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		// Malformed responses are logged but surface like any other
		// transient failure.
		c.log.V(1).Info("malformed orchestration API response", "path", path, "error", err.Error())
		return fmt.Errorf("%w: decoding %s: %v", ErrTransient, path, err)
	}

	return nil
}
