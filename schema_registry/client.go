package schema_registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pleszczy/kafka-avro/observability"
)

const contentType = "application/vnd.schemaregistry.v1+json"

//go:generate mockgen -destination=mocks/mock_registry.go -package=mocks github.com/pleszczy/kafka-avro/schema_registry Registry

// Registry is the subset of the Confluent Schema Registry REST API used by
// this module. Every call honors ctx.
type Registry interface {
	// GetSchemaByID retrieves a schema by its globally unique id.
	GetSchemaByID(ctx context.Context, id int) (*Metadata, error)

	// GetLatestSchema retrieves the latest version registered under subject.
	GetLatestSchema(ctx context.Context, subject string) (*Metadata, error)

	// GetSchemaByVersion retrieves one version registered under subject.
	GetSchemaByVersion(ctx context.Context, subject string, version int) (*Metadata, error)

	// RegisterSchema registers a schema under subject and returns its id.
	// Registering an existing schema returns the existing id.
	RegisterSchema(ctx context.Context, subject, schema, schemaType string) (int, error)

	// CheckCompatibility checks a schema against the latest version of subject.
	CheckCompatibility(ctx context.Context, subject, schema, schemaType string) (bool, error)

	// ListSubjects lists every registered subject.
	ListSubjects(ctx context.Context) ([]string, error)

	// ListVersions lists the version numbers registered under subject.
	ListVersions(ctx context.Context, subject string) ([]int, error)
}

// Metadata contains metadata about a registered schema
type Metadata struct {
	ID      int    `json:"id"`
	Version int    `json:"version"`
	Schema  string `json:"schema"`
	Subject string `json:"subject"`
	Type    string `json:"schemaType,omitempty"`
}

// Client implements Registry over HTTP. It keeps no state besides its
// configuration; SchemaCache owns caching.
type Client struct {
	url        string
	httpClient *http.Client

	username string
	password string

	observer observability.Observer
	logger   Logger
}

// Logger is an interface that matches the logger.Logger interface.
// It provides context-aware structured logging with optional error and field parameters.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// NewClient creates a new schema registry client.
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("schema registry URL is required")
	}
	if _, err := url.ParseRequestURI(config.URL); err != nil {
		return nil, fmt.Errorf("invalid schema registry URL %q: %w", config.URL, err)
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		url:        strings.TrimRight(config.URL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
		username:   config.Username,
		password:   config.Password,
	}, nil
}

// GetSchemaByID retrieves a schema from the registry by its ID.
func (c *Client) GetSchemaByID(ctx context.Context, id int) (*Metadata, error) {
	start := time.Now()
	subResource := strconv.Itoa(id)

	var metadata Metadata
	err := c.do(ctx, http.MethodGet, "/schemas/ids/"+subResource, nil, &metadata)
	if err != nil {
		c.observeOperation("get_schema_by_id", "registry", subResource, time.Since(start), err, nil)
		return nil, err
	}
	metadata.ID = id

	c.observeOperation("get_schema_by_id", "registry", subResource, time.Since(start), nil, map[string]interface{}{
		"schema_type": metadata.Type,
	})
	return &metadata, nil
}

// GetLatestSchema retrieves the latest version of a schema for a subject.
func (c *Client) GetLatestSchema(ctx context.Context, subject string) (*Metadata, error) {
	return c.getVersion(ctx, "get_latest_schema", subject, "latest")
}

// GetSchemaByVersion retrieves a specific version of a schema for a subject.
func (c *Client) GetSchemaByVersion(ctx context.Context, subject string, version int) (*Metadata, error) {
	return c.getVersion(ctx, "get_schema_by_version", subject, strconv.Itoa(version))
}

func (c *Client) getVersion(ctx context.Context, operation, subject, version string) (*Metadata, error) {
	start := time.Now()

	var metadata Metadata
	path := "/subjects/" + url.PathEscape(subject) + "/versions/" + version
	if err := c.do(ctx, http.MethodGet, path, nil, &metadata); err != nil {
		c.observeOperation(operation, subject, version, time.Since(start), err, nil)
		return nil, err
	}
	metadata.Subject = subject

	c.observeOperation(operation, subject, version, time.Since(start), nil, map[string]interface{}{
		"schema_id":   metadata.ID,
		"version":     metadata.Version,
		"schema_type": metadata.Type,
	})
	return &metadata, nil
}

// RegisterSchema registers a new schema with the schema registry.
func (c *Client) RegisterSchema(ctx context.Context, subject, schema, schemaType string) (int, error) {
	start := time.Now()

	var result struct {
		ID int `json:"id"`
	}
	path := "/subjects/" + url.PathEscape(subject) + "/versions"
	if err := c.do(ctx, http.MethodPost, path, schemaPayload(schema, schemaType), &result); err != nil {
		c.observeOperation("register_schema", subject, "", time.Since(start), err, map[string]interface{}{
			"schema_type": schemaType,
		})
		c.logError(ctx, "failed to register schema", err, map[string]interface{}{"subject": subject})
		return 0, err
	}

	c.observeOperation("register_schema", subject, strconv.Itoa(result.ID), time.Since(start), nil, map[string]interface{}{
		"schema_type": schemaType,
		"schema_id":   result.ID,
	})
	c.logInfo(ctx, "schema registered", map[string]interface{}{"subject": subject, "schema_id": result.ID})
	return result.ID, nil
}

// CheckCompatibility checks if a schema is compatible with the existing schema for a subject.
func (c *Client) CheckCompatibility(ctx context.Context, subject, schema, schemaType string) (bool, error) {
	start := time.Now()

	var result struct {
		IsCompatible bool `json:"is_compatible"`
	}
	path := "/compatibility/subjects/" + url.PathEscape(subject) + "/versions/latest"
	if err := c.do(ctx, http.MethodPost, path, schemaPayload(schema, schemaType), &result); err != nil {
		c.observeOperation("check_compatibility", subject, "latest", time.Since(start), err, map[string]interface{}{
			"schema_type": schemaType,
		})
		return false, err
	}

	c.observeOperation("check_compatibility", subject, "latest", time.Since(start), nil, map[string]interface{}{
		"schema_type":   schemaType,
		"is_compatible": result.IsCompatible,
	})
	if !result.IsCompatible {
		c.logWarn(ctx, "schema is not compatible with latest version", map[string]interface{}{"subject": subject})
	}
	return result.IsCompatible, nil
}

// ListSubjects returns every subject known to the registry.
func (c *Client) ListSubjects(ctx context.Context) ([]string, error) {
	start := time.Now()

	var subjects []string
	if err := c.do(ctx, http.MethodGet, "/subjects", nil, &subjects); err != nil {
		c.observeOperation("list_subjects", "registry", "", time.Since(start), err, nil)
		return nil, err
	}

	c.observeOperation("list_subjects", "registry", "", time.Since(start), nil, map[string]interface{}{
		"count": len(subjects),
	})
	return subjects, nil
}

// ListVersions returns the versions registered under subject in ascending order.
func (c *Client) ListVersions(ctx context.Context, subject string) ([]int, error) {
	start := time.Now()

	var versions []int
	if err := c.do(ctx, http.MethodGet, "/subjects/"+url.PathEscape(subject)+"/versions", nil, &versions); err != nil {
		c.observeOperation("list_versions", subject, "", time.Since(start), err, nil)
		return nil, err
	}

	c.observeOperation("list_versions", subject, "", time.Since(start), nil, map[string]interface{}{
		"count": len(versions),
	})
	return versions, nil
}

func schemaPayload(schema, schemaType string) map[string]interface{} {
	payload := map[string]interface{}{"schema": schema}
	if schemaType != "" && !strings.EqualFold(schemaType, SchemaTypeAvro) {
		payload["schemaType"] = schemaType
	}
	return payload
}

// do performs one request and decodes a 200 response into out. Non-2xx
// responses become *RegistryError; transport failures wrap
// ErrRegistryUnavailable.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", contentType)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec
	if err != nil {
		return unavailable(method+" "+path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readRegistryError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func readRegistryError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	regErr := &RegistryError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, regErr); err != nil || regErr.Message == "" {
		regErr.Message = strings.TrimSpace(string(raw))
	}
	regErr.StatusCode = resp.StatusCode
	return regErr
}

// WithObserver sets the observer for this client and returns the client for method chaining.
// The observer receives events about schema registry operations (e.g., register, get, check compatibility).
//
// Example:
//
//	client := client.WithObserver(myObserver).WithLogger(myLogger)
func (c *Client) WithObserver(observer observability.Observer) *Client {
	c.observer = observer
	return c
}

// WithLogger sets the logger for this client and returns the client for method chaining.
func (c *Client) WithLogger(logger Logger) *Client {
	c.logger = logger
	return c
}

func (c *Client) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, nil, fields)
	}
}

func (c *Client) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
