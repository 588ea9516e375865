// Package registry implements the hardened HTTPS client for the package
// registry: metadata fetches, size-capped downloads, and the
// checksum-then-signature verification pipeline.
package registry

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/git-lfs/go-netrc/netrc"

	"github.com/th3f0rk/bppkg/internal/bperr"
	"github.com/th3f0rk/bppkg/internal/config"
	"github.com/th3f0rk/bppkg/internal/security"
	"github.com/th3f0rk/bppkg/internal/trust"
)

// PackageInfo is the registry's metadata for one package version. It is
// fetched fresh per resolution and never persisted as-is.
type PackageInfo struct {
	Name              string            `json:"name"`
	Version           string            `json:"version"`
	Description       string            `json:"description,omitempty"`
	Checksum          string            `json:"checksum"`
	ChecksumAlgorithm string            `json:"checksum_algorithm,omitempty"`
	Signature         string            `json:"signature"`
	SignerKeyID       string            `json:"signer_key_id"`
	DownloadURL       string            `json:"download_url"`
	Dependencies      map[string]string `json:"dependencies,omitempty"`
}

// Algorithm returns the checksum algorithm, defaulting to sha256 when the
// registry omits it.
func (p *PackageInfo) Algorithm() string {
	if p.ChecksumAlgorithm == "" {
		return security.AlgoSHA256
	}
	return p.ChecksumAlgorithm
}

// SearchResult is one row from the registry's search endpoint.
type SearchResult struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Client fetches package metadata and artifacts from the registry.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	maxFetchBytes int64
	netrc         *netrc.Netrc
	log           *log.Logger
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The URL policy checks
// still apply.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxFetchBytes overrides the response size ceiling.
func WithMaxFetchBytes(n int64) Option {
	return func(c *Client) { c.maxFetchBytes = n }
}

// WithLogger sets the logger used for verification progress.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a registry client from the runtime configuration.
// Credentials for the registry host are read from ~/.netrc when present.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:       strings.TrimRight(cfg.RegistryURL, "/"),
		maxFetchBytes: cfg.MaxFetchBytes,
		log:           log.New(io.Discard),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
	}

	home, err := os.UserHomeDir()
	if err == nil {
		n, err := netrc.ParseFile(filepath.Join(home, ".netrc"))
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("parsing netrc: %w", err)
		}
		c.netrc = n
	}
	if c.netrc == nil {
		c.netrc = &netrc.Netrc{}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// checkFetchURL enforces the URL policy on every outgoing request: the scheme
// must be exactly https and the host must not be an IP literal.
func checkFetchURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, bperr.Securityf("invalid url %q: %v", raw, err)
	}
	if u.Scheme != "https" {
		return nil, bperr.Securityf("disallowed url scheme %q in %q", u.Scheme, raw)
	}
	host := u.Hostname()
	if host == "" {
		return nil, bperr.Securityf("url %q has no host", raw)
	}
	if net.ParseIP(host) != nil {
		return nil, bperr.Securityf("ip-literal host %q rejected in %q", host, raw)
	}
	return u, nil
}

// fetchLimited GETs rawURL under the size ceiling. The declared
// Content-Length is checked up front, and the body read is still capped in
// case the server lies about the length.
func (c *Client) fetchLimited(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := checkFetchURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, bperr.Networkf("creating request for %s: %v", rawURL, err)
	}
	if machine := c.netrc.FindMachine(u.Hostname(), ""); machine != nil {
		req.SetBasicAuth(machine.Login, machine.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, bperr.Networkf("fetching %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, bperr.Networkf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}
	if resp.ContentLength > c.maxFetchBytes {
		return nil, bperr.Securityf("response from %s declares %d bytes, limit is %d",
			rawURL, resp.ContentLength, c.maxFetchBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFetchBytes+1))
	if err != nil {
		return nil, bperr.Networkf("reading response from %s: %v", rawURL, err)
	}
	if int64(len(data)) > c.maxFetchBytes {
		return nil, bperr.Securityf("response from %s exceeds %d byte limit", rawURL, c.maxFetchBytes)
	}
	return data, nil
}

// FetchPackageInfo retrieves and type-checks the metadata for name at the
// given version or constraint. The name is validated before any network use.
func (c *Client) FetchPackageInfo(ctx context.Context, name, version string) (*PackageInfo, error) {
	if !security.ValidatePackageName(name) {
		return nil, bperr.Newf(bperr.KindValidation, name, "invalid package name")
	}

	infoURL := fmt.Sprintf("%s/api/v1/packages/%s/%s",
		c.baseURL, url.PathEscape(name), url.PathEscape(version))

	data, err := c.fetchLimited(ctx, infoURL)
	if err != nil {
		return nil, err
	}

	var info PackageInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, bperr.Newf(bperr.KindValidation, name, "malformed registry response: %v", err)
	}
	if err := validateInfo(&info, name); err != nil {
		return nil, err
	}
	return &info, nil
}

func validateInfo(info *PackageInfo, requested string) error {
	switch {
	case info.Name != requested:
		return bperr.Newf(bperr.KindValidation, requested,
			"registry returned metadata for %q", info.Name)
	case !security.ValidateVersion(info.Version):
		return bperr.Newf(bperr.KindValidation, requested,
			"registry returned invalid version %q", info.Version)
	case info.Checksum == "":
		return bperr.Newf(bperr.KindValidation, requested, "registry response missing checksum")
	case !security.SupportedAlgorithm(info.Algorithm()):
		return bperr.Newf(bperr.KindValidation, requested,
			"unsupported checksum algorithm %q", info.Algorithm())
	case info.Signature == "":
		return bperr.Newf(bperr.KindValidation, requested, "registry response missing signature")
	case info.SignerKeyID == "":
		return bperr.Newf(bperr.KindValidation, requested, "registry response missing signer key id")
	case info.DownloadURL == "":
		return bperr.Newf(bperr.KindValidation, requested, "registry response missing download url")
	}
	for dep := range info.Dependencies {
		if !security.ValidatePackageName(dep) {
			return bperr.Newf(bperr.KindValidation, requested,
				"registry response declares invalid dependency name %q", dep)
		}
	}
	return nil
}

// DownloadAndVerify fetches the artifact described by info, verifies its
// checksum and signature, and only then writes it to destination. No bytes
// reach disk before both checks pass.
func (c *Client) DownloadAndVerify(ctx context.Context, info *PackageInfo, destination string, keys *trust.Keyring) (string, error) {
	data, err := c.fetchLimited(ctx, info.DownloadURL)
	if err != nil {
		return "", err
	}
	c.log.Debug("downloaded artifact", "package", info.Name, "bytes", len(data))

	if !security.VerifyChecksum(data, info.Checksum, info.Algorithm()) {
		return "", bperr.Newf(bperr.KindSecurity, info.Name,
			"checksum mismatch (%s)", info.Algorithm())
	}
	c.log.Debug("checksum verified", "package", info.Name, "algorithm", info.Algorithm())

	pub, ok := keys.Lookup(info.SignerKeyID)
	if !ok {
		return "", bperr.Newf(bperr.KindSecurity, info.Name,
			"signer key %q is not trusted", info.SignerKeyID)
	}
	sig, err := base64.StdEncoding.DecodeString(info.Signature)
	if err != nil {
		return "", bperr.Newf(bperr.KindSecurity, info.Name, "invalid signature encoding: %v", err)
	}
	// The registry signs the hex digest it publishes, so verification stays
	// independent of artifact size.
	if !security.VerifySignature([]byte(info.Checksum), sig, pub) {
		return "", bperr.Newf(bperr.KindSecurity, info.Name,
			"signature verification failed for signer %q", info.SignerKeyID)
	}
	c.log.Debug("signature verified", "package", info.Name, "signer", info.SignerKeyID)

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(destination), err)
	}
	if err := os.WriteFile(destination, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", destination, err)
	}
	return destination, nil
}

// Search queries the registry's search endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	searchURL := fmt.Sprintf("%s/api/v1/search?q=%s", c.baseURL, url.QueryEscape(query))

	data, err := c.fetchLimited(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, bperr.Validationf("malformed search response: %v", err)
	}
	return out.Results, nil
}
