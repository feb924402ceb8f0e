// Package techdocs collates TechDocs pages into search documents and provides
// the backend module that registers the collator with the search index.
package techdocs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/rshade/stagehand/internal/catalog"
	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/logging"
	"github.com/rshade/stagehand/internal/search"
)

// Collator defaults.
const (
	DocumentType            = "techdocs"
	PluginID                = "techdocs"
	DefaultLocationTemplate = "/docs/:namespace/:kind/:name/:path"
	DefaultParallelismLimit = 10
	DefaultBatchSize        = 500

	defaultTimeout = 30 * time.Second
)

// ErrIndexFetch is returned when an entity's search index cannot be retrieved.
var ErrIndexFetch = errors.New("techdocs search index fetch failed")

// EntityTransformer derives extra document fields from the entity that owns
// the docs.
type EntityTransformer func(e *catalog.Entity) map[string]any

// Options configures a CollatorFactory.
type Options struct {
	Discovery   catalog.Discovery
	Tokens      catalog.TokenSource
	Catalog     catalog.Client
	Logger      *zerolog.Logger
	Transformer EntityTransformer
	HTTPClient  *http.Client

	LocationTemplate string
	ParallelismLimit int
	BatchSize        int

	// LegacyPathCasing keeps the entity triplet's case in fetch paths and
	// locations instead of lower-casing it.
	LegacyPathCasing bool

	// RateLimit caps index fetches per second; 0 disables throttling.
	RateLimit float64
}

// CollatorFactory collects TechDocs pages of every entity carrying the
// techdocs-ref annotation.
type CollatorFactory struct {
	discovery   catalog.Discovery
	tokens      catalog.TokenSource
	catalog     catalog.Client
	transformer EntityTransformer
	http        *http.Client
	limiter     *rate.Limiter
	logger      zerolog.Logger

	locationTemplate string
	parallelism      int
	batchSize        int
	legacyCasing     bool
}

// NewCollatorFactory creates a factory. Discovery and Catalog are required.
func NewCollatorFactory(opts Options) (*CollatorFactory, error) {
	if opts.Discovery == nil || opts.Catalog == nil {
		return nil, errors.New("techdocs collator: discovery and catalog are required")
	}
	f := &CollatorFactory{
		discovery:        opts.Discovery,
		tokens:           opts.Tokens,
		catalog:          opts.Catalog,
		transformer:      opts.Transformer,
		http:             opts.HTTPClient,
		locationTemplate: opts.LocationTemplate,
		parallelism:      opts.ParallelismLimit,
		batchSize:        opts.BatchSize,
		legacyCasing:     opts.LegacyPathCasing,
	}
	if f.http == nil {
		f.http = &http.Client{Timeout: defaultTimeout}
	}
	if f.locationTemplate == "" {
		f.locationTemplate = DefaultLocationTemplate
	}
	if f.parallelism < 1 {
		f.parallelism = DefaultParallelismLimit
	}
	if f.batchSize < 1 {
		f.batchSize = DefaultBatchSize
	}
	if opts.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), f.parallelism)
	}
	base := logging.Default()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	f.logger = logging.ComponentLogger(base, "techdocs-collator")
	return f, nil
}

// FromConfig reads the search.collators.techdocs keys and
// techdocs.legacyUseCaseSensitiveTripletPaths on top of opts.
func FromConfig(cfg *config.Config, opts Options) (*CollatorFactory, error) {
	r := cfg.Reader()

	var err error
	if opts.LocationTemplate, err = r.OptionalString(
		"search.collators.techdocs.locationTemplate", DefaultLocationTemplate); err != nil {
		return nil, err
	}
	if opts.ParallelismLimit, err = r.OptionalInt(
		"search.collators.techdocs.parallelismLimit", DefaultParallelismLimit); err != nil {
		return nil, err
	}
	if opts.ParallelismLimit < 1 {
		return nil, fmt.Errorf("%w: search.collators.techdocs.parallelismLimit must be >= 1", config.ErrInvalidConfig)
	}
	rateLimit, err := r.OptionalInt("search.collators.techdocs.rateLimit", 0)
	if err != nil {
		return nil, err
	}
	opts.RateLimit = float64(rateLimit)
	opts.LegacyPathCasing = cfg.TechDocs.LegacyUseCaseSensitiveTripletPaths
	return NewCollatorFactory(opts)
}

// Type implements search.DocumentCollatorFactory.
func (f *CollatorFactory) Type() string { return DocumentType }

// GetCollator implements search.DocumentCollatorFactory. Entities whose index
// cannot be fetched are logged and skipped.
func (f *CollatorFactory) GetCollator(ctx context.Context) ([]search.Document, error) {
	var docs []search.Document
	for offset := 0; ; offset += f.batchSize {
		resp, err := f.catalog.GetEntities(ctx, catalog.GetEntitiesRequest{
			Filter: []catalog.Filter{{"metadata.annotations." + catalog.AnnotationTechDocsRef: catalog.FilterExists}},
			Fields: []string{
				"kind", "namespace", "metadata.annotations", "metadata.name", "metadata.title",
				"metadata.namespace", "spec.type", "spec.lifecycle", "relations",
			},
			Offset: offset,
			Limit:  f.batchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("listing techdocs entities: %w", err)
		}

		batch, err := f.collateBatch(ctx, resp.Items)
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch...)

		if len(resp.Items) < f.batchSize {
			break
		}
	}
	return docs, nil
}

func (f *CollatorFactory) collateBatch(ctx context.Context, entities []catalog.Entity) ([]search.Document, error) {
	perEntity := make([][]search.Document, len(entities))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for i := range entities {
		g.Go(func() error {
			entity := &entities[i]
			docs, err := f.entityDocuments(gCtx, entity)
			if err != nil {
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				f.logger.Debug().Ctx(ctx).Err(err).
					Str("entity", entity.Ref().String()).
					Msg("failed to retrieve techdocs search index")
				return nil
			}
			perEntity[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []search.Document
	for _, docs := range perEntity {
		out = append(out, docs...)
	}
	return out, nil
}

// triplet holds the path segments an entity's docs are published under.
type triplet struct {
	namespace, kind, name string
}

func (f *CollatorFactory) tripletFor(e *catalog.Entity) triplet {
	ns := e.Metadata.Namespace
	if ns == "" {
		ns = catalog.DefaultNamespace
	}
	t := triplet{namespace: ns, kind: e.Kind, name: e.Metadata.Name}
	if !f.legacyCasing {
		lower := cases.Lower(language.Und)
		t = triplet{namespace: lower.String(t.namespace), kind: lower.String(t.kind), name: lower.String(t.name)}
	}
	return t
}

// searchIndex is the mkdocs search_index.json payload.
type searchIndex struct {
	Docs []struct {
		Location string `json:"location"`
		Title    string `json:"title"`
		Text     string `json:"text"`
	} `json:"docs"`
}

func (f *CollatorFactory) entityDocuments(ctx context.Context, e *catalog.Entity) ([]search.Document, error) {
	t := f.tripletFor(e)
	index, err := f.fetchIndex(ctx, t)
	if err != nil {
		return nil, err
	}

	fields := DefaultTransformer(e)
	if f.transformer != nil {
		for k, v := range f.transformer(e) {
			fields[k] = v
		}
	}

	docs := make([]search.Document, 0, len(index.Docs))
	for _, d := range index.Docs {
		doc := search.Document{}
		for k, v := range fields {
			doc[k] = v
		}
		doc[search.FieldTitle] = html.UnescapeString(d.Title)
		doc[search.FieldText] = html.UnescapeString(d.Text)
		doc[search.FieldLocation] = f.location(t, d.Location)
		doc["path"] = d.Location
		doc[search.FieldAuthorization] = map[string]any{"resourceRef": e.Ref().String()}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (f *CollatorFactory) location(t triplet, path string) string {
	return strings.NewReplacer(
		":namespace", t.namespace,
		":kind", t.kind,
		":name", t.name,
		":path", path,
	).Replace(f.locationTemplate)
}

func (f *CollatorFactory) fetchIndex(ctx context.Context, t triplet) (*searchIndex, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	baseURL, err := f.discovery.GetBaseURL(ctx, PluginID)
	if err != nil {
		return nil, fmt.Errorf("resolving techdocs url: %w", err)
	}
	indexURL := fmt.Sprintf("%s/static/docs/%s/%s/%s/search/search_index.json",
		strings.TrimSuffix(baseURL, "/"),
		url.PathEscape(t.namespace), url.PathEscape(t.kind), url.PathEscape(t.name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.tokens != nil {
		token, tokenErr := f.tokens.GetToken(ctx)
		if tokenErr != nil {
			return nil, fmt.Errorf("getting token: %w", tokenErr)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s/%s: %w", ErrIndexFetch, t.namespace, t.kind, t.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s/%s/%s: status %d", ErrIndexFetch, t.namespace, t.kind, t.name, resp.StatusCode)
	}

	var index searchIndex
	if err = json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, fmt.Errorf("%w: %s/%s/%s: decoding: %w", ErrIndexFetch, t.namespace, t.kind, t.name, err)
	}
	return &index, nil
}

// DefaultTransformer returns the entity fields every TechDocs document carries.
func DefaultTransformer(e *catalog.Entity) map[string]any {
	ns := e.Metadata.Namespace
	if ns == "" {
		ns = catalog.DefaultNamespace
	}
	componentType := e.SpecString("type")
	if componentType == "" {
		componentType = "other"
	}
	return map[string]any{
		"kind":          e.Kind,
		"namespace":     ns,
		"name":          e.Metadata.Name,
		"entityTitle":   e.Metadata.Title,
		"componentType": componentType,
		"lifecycle":     e.SpecString("lifecycle"),
		"owner":         ownerOf(e),
	}
}

// ownerOf prefers the ownedBy relation's entity name and falls back to spec.owner.
func ownerOf(e *catalog.Entity) string {
	for _, rel := range e.Relations {
		if rel.Type != "ownedBy" {
			continue
		}
		if ref, err := catalog.ParseRef(rel.TargetRef, catalog.Defaults{Kind: "group"}); err == nil {
			return ref.Name
		}
	}
	return e.Owner()
}
