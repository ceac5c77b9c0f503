package eventtypes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/pkg/retry"
)

// maxCatalogSize bounds remotely fetched catalog documents.
const maxCatalogSize = 4 << 20

// catalogSchema is the JSON Schema every catalog document must satisfy
// before it is merged into the repository.
const catalogSchema = `{
	"type": "object",
	"required": ["types"],
	"properties": {
		"version": {"type": "string"},
		"types": {
			"type": "object",
			"additionalProperties": {"$ref": "#/definitions/schema"}
		}
	},
	"definitions": {
		"schema": {
			"type": "object",
			"required": ["type"],
			"properties": {
				"type": {"enum": ["number", "integer", "string", "boolean", "object", "null"]},
				"properties": {
					"type": "object",
					"additionalProperties": {"$ref": "#/definitions/schema"}
				},
				"required": {"type": "array", "items": {"type": "string"}}
			}
		}
	}
}`

// Repository resolves type names to descriptors against an in-memory catalog.
// It is safe for concurrent use; TryUpdate replaces the catalog atomically.
type Repository struct {
	mu      sync.RWMutex
	types   map[string]*Schema
	version string

	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithHTTPClient replaces the HTTP client used by TryUpdate.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Repository) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRepository creates a repository preloaded with the given catalog.
// A nil catalog starts from the built-in minimal catalog.
func NewRepository(catalog *Catalog, opts ...Option) *Repository {
	if catalog == nil {
		catalog = builtinCatalog()
	}
	r := &Repository{
		types:      catalog.Types,
		version:    catalog.Version,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Version returns the version string of the loaded catalog.
func (r *Repository) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// IsKnown reports whether the name resolves to a catalog type. Series names
// are known when their leaf type is.
func (r *Repository) IsKnown(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Lookup resolves a type name to its descriptor. Series names have their
// prefix stripped, the leaf resolved, and the result wrapped in the series
// adapter. Unknown names fail with an invalid-event-type error.
func (r *Repository) Lookup(name string) (EventType, error) {
	if IsSeriesName(name) {
		leaf, err := r.Lookup(name[len(SeriesPrefix):])
		if err != nil {
			return nil, errors.NewInvalidEventType(name)
		}
		return &SeriesType{name: name, leaf: leaf}, nil
	}

	r.mu.RLock()
	schema, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewInvalidEventType(name)
	}
	return compile(name, schema), nil
}

// compile builds the descriptor for a leaf schema.
func compile(name string, schema *Schema) EventType {
	if schema.IsObject() {
		return &complexType{name: name, schema: schema}
	}
	return &basicType{name: name, value: Field{Name: "value", Type: schema.Type}}
}

// TryUpdate fetches a catalog document from url, validates it against the
// catalog schema and merges it into the repository. Transient transport
// failures are retried with backoff. On any final failure the existing
// catalog is left untouched and the error is surfaced to the caller; there
// is no partial merge.
func (r *Repository) TryUpdate(ctx context.Context, url string) error {
	raw, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() ([]byte, error) {
		return r.fetch(ctx, url)
	})
	if err != nil {
		return errors.Wrap(err, "Repository", "TryUpdate", "fetch catalog")
	}
	return r.merge(raw, url)
}

// fetch downloads one catalog document. Client errors are final; transport
// failures and server errors are worth another attempt.
func (r *Repository) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.NonRetryable(err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	default:
		return nil, retry.NonRetryable(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// merge validates a raw catalog document and merges it. Split from TryUpdate
// so tests can exercise the all-or-nothing property without a server.
func (r *Repository) merge(raw []byte, source string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.NewParseFailure("type catalog validation: %v", err)
	}
	if !result.Valid() {
		return errors.NewParseFailure(
			"type catalog from %s rejected: %v", source, result.Errors())
	}

	catalog, err := ParseCatalog(raw)
	if err != nil {
		return err
	}

	r.mu.Lock()
	merged := make(map[string]*Schema, len(r.types)+len(catalog.Types))
	for name, schema := range r.types {
		merged[name] = schema
	}
	for name, schema := range catalog.Types {
		merged[name] = schema
	}
	r.types = merged
	if catalog.Version != "" {
		r.version = catalog.Version
	}
	count := len(merged)
	r.mu.Unlock()

	r.logger.Info("type catalog updated",
		"source", source, "version", catalog.Version, "types", count)
	return nil
}

// builtinCatalog returns the minimal catalog shipped with the platform. The
// full catalog is loaded at runtime with TryUpdate; this one keeps the
// mechanism exercisable without network access.
func builtinCatalog() *Catalog {
	return &Catalog{
		Version: "builtin",
		Types: map[string]*Schema{
			"mass/kg":       {Type: TypeNumber},
			"count/generic": {Type: TypeNumber},
			"temperature/c": {Type: TypeNumber},
			"note/txt":      {Type: TypeString},
			"boolean/bool":  {Type: TypeBoolean},
			"position/wgs84": {
				Type: TypeObject,
				Properties: map[string]*Schema{
					"latitude":           {Type: TypeNumber},
					"longitude":          {Type: TypeNumber},
					"altitude":           {Type: TypeNumber},
					"horizontalAccuracy": {Type: TypeNumber},
				},
				Required: []string{"latitude", "longitude"},
			},
		},
	}
}
