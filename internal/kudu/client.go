// Package kudu is a client for the Kudu (SCM) REST API of App Service hosted
// Logic Apps: VFS, zip, deployments, SSH keys, environment, processes and
// WebJobs. Every call is authenticated with the app's MSDeploy publishing
// credentials and any non-2xx response is returned as a *StatusError.
package kudu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	userAgent = "LogicApp-MCP-Kudu-Client/1.0"

	// DefaultBaseURLFormat expands to the SCM endpoint of an app.
	DefaultBaseURLFormat = "https://%s.scm.azurewebsites.net"
)

// StatusError is returned for any non-2xx Kudu response.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("Kudu API %s %s returned status %d", e.Method, e.URL, e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// Service owns the pooled HTTP client and the per-identity credential cache.
// It is shared; Client values bound to one call are cheap to create.
type Service struct {
	httpClient *http.Client
	baseURL    func(appName string) string

	mu          sync.RWMutex
	credentials map[string]string
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithBaseURL overrides how an app name maps to its SCM endpoint.
func WithBaseURL(fn func(appName string) string) Option {
	return func(s *Service) { s.baseURL = fn }
}

// NewService creates a Service whose requests time out after timeout.
func NewService(timeout time.Duration, opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: timeout},
		baseURL: func(appName string) string {
			return fmt.Sprintf(DefaultBaseURLFormat, appName)
		},
		credentials: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client binds the Service to one caller identity. scope must differ for
// identities that may see different publishing credentials.
func (s *Service) Client(scope string, profiles ProfileFunc) *Client {
	return &Client{svc: s, scope: scope, profiles: profiles}
}

// Client performs Kudu calls for a single identity.
type Client struct {
	svc      *Service
	scope    string
	profiles ProfileFunc
}

func (c *Client) authorization(ctx context.Context, appName string) (string, error) {
	key := c.scope + "|" + appName

	c.svc.mu.RLock()
	auth, ok := c.svc.credentials[key]
	c.svc.mu.RUnlock()
	if ok {
		return auth, nil
	}

	profile, err := c.profiles(ctx, appName)
	if err != nil {
		return "", fmt.Errorf("failed to get Kudu credentials: %w", err)
	}
	user, password, err := ParsePublishingProfile(profile)
	if err != nil {
		return "", fmt.Errorf("failed to get Kudu credentials: %w", err)
	}

	auth = BasicAuth(user, password)
	c.svc.mu.Lock()
	c.svc.credentials[key] = auth
	c.svc.mu.Unlock()
	return auth, nil
}

// forget drops the cached credentials of appName so the next call reads a
// fresh publishing profile.
func (c *Client) forget(appName string) {
	c.svc.mu.Lock()
	delete(c.svc.credentials, c.scope+"|"+appName)
	c.svc.mu.Unlock()
}

type request struct {
	method   string
	endpoint string
	query    url.Values
	headers  map[string]string
	body     []byte
	jsonBody any
}

type response struct {
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, appName string, r request) (*response, error) {
	auth, err := c.authorization(ctx, appName)
	if err != nil {
		return nil, err
	}

	u := strings.TrimSuffix(c.svc.baseURL(appName), "/") + r.endpoint
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	body := r.body
	if r.jsonBody != nil {
		if body, err = json.Marshal(r.jsonBody); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", auth)
	if r.jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.svc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Kudu API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Kudu response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.forget(appName)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Method: r.method, URL: u, Body: string(data)}
	}
	return &response{header: resp.Header, body: data}, nil
}

func (c *Client) getJSON(ctx context.Context, appName, endpoint string, query url.Values) (any, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: endpoint, query: query})
	if err != nil {
		return nil, err
	}
	return decodeJSON(resp.body)
}

func (c *Client) exec(ctx context.Context, appName string, r request, done string) (string, error) {
	if _, err := c.do(ctx, appName, r); err != nil {
		return "", err
	}
	return done, nil
}

func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to parse Kudu response: %w", err)
	}
	return v, nil
}

// escapePath escapes each segment of a VFS path, keeping separators.
func escapePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func dirEndpoint(prefix, dir string) string {
	p := escapePath(dir)
	if p == "" {
		return prefix + "/"
	}
	return prefix + "/" + p + "/"
}

// SCM

func (c *Client) GetSCMInfo(ctx context.Context, appName string) (any, error) {
	return c.getJSON(ctx, appName, "/api/scm/info", nil)
}

// CleanRepository runs 'git clean -xdff' on the repository.
func (c *Client) CleanRepository(ctx context.Context, appName string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodPost, endpoint: "/api/scm/clean"}, "Repository cleaned successfully")
}

func (c *Client) DeleteRepository(ctx context.Context, appName string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodDelete, endpoint: "/api/scm"}, "Repository deleted successfully")
}

// ExecuteCommand runs a shell command on the worker and returns its output.
func (c *Client) ExecuteCommand(ctx context.Context, appName, command, dir string) (any, error) {
	resp, err := c.do(ctx, appName, request{
		method:   http.MethodPost,
		endpoint: "/api/command",
		jsonBody: map[string]string{"command": command, "dir": dir},
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON(resp.body)
}

// VFS

func (c *Client) GetFile(ctx context.Context, appName, filePath string) ([]byte, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: "/api/vfs/" + escapePath(filePath)})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (c *Client) ListDirectory(ctx context.Context, appName, dirPath string) ([]map[string]any, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: dirEndpoint("/api/vfs", dirPath)})
	if err != nil {
		return nil, err
	}
	return pickEach(resp.body, fileInfoFields), nil
}

// PutFile uploads content, overwriting any existing file.
func (c *Client) PutFile(ctx context.Context, appName, filePath string, content []byte) (string, error) {
	return c.exec(ctx, appName, request{
		method:   http.MethodPut,
		endpoint: "/api/vfs/" + escapePath(filePath),
		headers:  map[string]string{"If-Match": "*"},
		body:     content,
	}, fmt.Sprintf("File %s uploaded successfully", filePath))
}

func (c *Client) CreateDirectory(ctx context.Context, appName, dirPath string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodPut, endpoint: dirEndpoint("/api/vfs", dirPath)},
		fmt.Sprintf("Directory %s created successfully", dirPath))
}

func (c *Client) DeleteFile(ctx context.Context, appName, filePath string) (string, error) {
	return c.exec(ctx, appName, request{
		method:   http.MethodDelete,
		endpoint: "/api/vfs/" + escapePath(filePath),
		headers:  map[string]string{"If-Match": "*"},
	}, fmt.Sprintf("File %s deleted successfully", filePath))
}

// Zip

func (c *Client) DownloadDirectoryZip(ctx context.Context, appName, dirPath string) ([]byte, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: dirEndpoint("/api/zip", dirPath)})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// UploadZipDirectory extracts a zip archive into dirPath.
func (c *Client) UploadZipDirectory(ctx context.Context, appName, dirPath string, zip []byte) (string, error) {
	return c.exec(ctx, appName, request{
		method:   http.MethodPut,
		endpoint: dirEndpoint("/api/zip", dirPath),
		headers:  map[string]string{"Content-Type": "application/zip"},
		body:     zip,
	}, fmt.Sprintf("Zip file extracted to %s successfully", dirPath))
}

// Deployments

func (c *Client) ListDeployments(ctx context.Context, appName string) ([]map[string]any, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: "/api/deployments"})
	if err != nil {
		return nil, err
	}
	return pickEach(resp.body, deploymentFields), nil
}

func (c *Client) GetDeployment(ctx context.Context, appName, deploymentID string) (map[string]any, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: "/api/deployments/" + url.PathEscape(deploymentID)})
	if err != nil {
		return nil, err
	}
	return pick(gjsonParse(resp.body), deploymentFields), nil
}

// Redeploy re-runs deploymentID, or the latest deployment when it is empty.
func (c *Client) Redeploy(ctx context.Context, appName, deploymentID string, clean, needFileUpdate bool) (string, error) {
	endpoint := "/api/deployments"
	done := "Redeployment initiated successfully"
	if deploymentID != "" {
		endpoint += "/" + url.PathEscape(deploymentID)
		done = fmt.Sprintf("Redeployment of %s initiated successfully", deploymentID)
	}
	return c.exec(ctx, appName, request{
		method:   http.MethodPut,
		endpoint: endpoint,
		jsonBody: map[string]bool{"clean": clean, "needFileUpdate": needFileUpdate},
	}, done)
}

func (c *Client) DeleteDeployment(ctx context.Context, appName, deploymentID string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodDelete, endpoint: "/api/deployments/" + url.PathEscape(deploymentID)},
		fmt.Sprintf("Deployment %s deleted successfully", deploymentID))
}

func (c *Client) GetDeploymentLog(ctx context.Context, appName, deploymentID string) (any, error) {
	return c.getJSON(ctx, appName, "/api/deployments/"+url.PathEscape(deploymentID)+"/log", nil)
}

func (c *Client) GetDeploymentLogDetails(ctx context.Context, appName, deploymentID, logID string) (any, error) {
	return c.getJSON(ctx, appName, "/api/deployments/"+url.PathEscape(deploymentID)+"/log/"+url.PathEscape(logID), nil)
}

// ZipDeployFromURL asks Kudu to pull and deploy a package. For async
// deployments the status URL from the Location header is returned.
func (c *Client) ZipDeployFromURL(ctx context.Context, appName, packageURI string, isAsync bool) (map[string]any, error) {
	var query url.Values
	if isAsync {
		query = url.Values{"isAsync": []string{"true"}}
	}
	resp, err := c.do(ctx, appName, request{
		method:   http.MethodPut,
		endpoint: "/api/zipdeploy",
		query:    query,
		jsonBody: map[string]string{"packageUri": packageURI},
	})
	if err != nil {
		return nil, err
	}

	result := map[string]any{"message": "Zip deployment initiated successfully"}
	if loc := resp.header.Get("Location"); isAsync && loc != "" {
		result["deployment_status_url"] = loc
	}
	return result, nil
}

func (c *Client) ZipDeployFromFile(ctx context.Context, appName string, zip []byte) (string, error) {
	return c.exec(ctx, appName, request{
		method:   http.MethodPost,
		endpoint: "/api/zipdeploy",
		headers:  map[string]string{"Content-Type": "application/zip"},
		body:     zip,
	}, "Zip deployment completed successfully")
}

// SSH keys

func (c *Client) GetSSHKey(ctx context.Context, appName string, ensurePublicKey bool) (any, error) {
	var query url.Values
	if ensurePublicKey {
		query = url.Values{"ensurePublicKey": []string{"1"}}
	}
	return c.getJSON(ctx, appName, "/api/sshkey", query)
}

func (c *Client) SetPrivateKey(ctx context.Context, appName, privateKey string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodPut, endpoint: "/api/sshkey", body: []byte(privateKey)},
		"Private SSH key set successfully")
}

func (c *Client) DeleteSSHKey(ctx context.Context, appName string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodDelete, endpoint: "/api/sshkey"}, "SSH key deleted successfully")
}

// Environment

func (c *Client) GetEnvironment(ctx context.Context, appName string) (any, error) {
	return c.getJSON(ctx, appName, "/api/environment", nil)
}

func (c *Client) GetSettings(ctx context.Context, appName string) (any, error) {
	return c.getJSON(ctx, appName, "/api/settings", nil)
}

// Processes

func (c *Client) ListProcesses(ctx context.Context, appName string) ([]map[string]any, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: "/api/processes"})
	if err != nil {
		return nil, err
	}
	return pickEach(resp.body, processFields), nil
}

func (c *Client) GetProcess(ctx context.Context, appName, processID string) (map[string]any, error) {
	resp, err := c.do(ctx, appName, request{method: http.MethodGet, endpoint: "/api/processes/" + url.PathEscape(processID)})
	if err != nil {
		return nil, err
	}
	return pick(gjsonParse(resp.body), processFields), nil
}

func (c *Client) KillProcess(ctx context.Context, appName, processID string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodDelete, endpoint: "/api/processes/" + url.PathEscape(processID)},
		fmt.Sprintf("Process %s killed successfully", processID))
}

// CreateProcessDump returns a mini or full dump of the process.
func (c *Client) CreateProcessDump(ctx context.Context, appName, processID, dumpType string) ([]byte, error) {
	resp, err := c.do(ctx, appName, request{
		method:   http.MethodGet,
		endpoint: "/api/processes/" + url.PathEscape(processID) + "/dump",
		query:    url.Values{"dumpType": []string{dumpType}},
	})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// WebJobs

func (c *Client) ListWebJobs(ctx context.Context, appName string) (any, error) {
	return c.getJSON(ctx, appName, "/api/webjobs", nil)
}

func (c *Client) GetWebJob(ctx context.Context, appName, jobName string) (any, error) {
	return c.getJSON(ctx, appName, "/api/webjobs/"+url.PathEscape(jobName), nil)
}

func (c *Client) StartWebJob(ctx context.Context, appName, jobName string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodPost, endpoint: "/api/webjobs/" + url.PathEscape(jobName) + "/start"},
		fmt.Sprintf("WebJob %s started successfully", jobName))
}

func (c *Client) StopWebJob(ctx context.Context, appName, jobName string) (string, error) {
	return c.exec(ctx, appName, request{method: http.MethodPost, endpoint: "/api/webjobs/" + url.PathEscape(jobName) + "/stop"},
		fmt.Sprintf("WebJob %s stopped successfully", jobName))
}
