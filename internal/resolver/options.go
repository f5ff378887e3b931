package resolver

import (
	"github.com/fyrsmithlabs/tutorialkit/internal/assets"
	"github.com/fyrsmithlabs/tutorialkit/internal/config"
	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
	"github.com/fyrsmithlabs/tutorialkit/internal/publish"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithRelated also resolves the artifacts of other workflows. Their parent
// directories are not created.
func WithRelated(names ...string) Option {
	return func(r *Resolver) {
		r.relatedNames = append(r.relatedNames, names...)
	}
}

// WithAssetLoader replaces the default HTTP asset downloader.
func WithAssetLoader(l assets.Loader) Option {
	return func(r *Resolver) { r.loader = l }
}

// WithAssetBaseURL sets the bucket the default downloader fetches from.
func WithAssetBaseURL(url string) Option {
	return func(r *Resolver) { r.assetBaseURL = url }
}

// WithPublisher replaces the default rsconnect publisher.
func WithPublisher(p publish.Publisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

// WithAssetType sets the rsconnect deploy subcommand (default "quarto").
func WithAssetType(t string) Option {
	return func(r *Resolver) { r.assetType = t }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithLookupEnv replaces os.LookupEnv for credential resolution.
func WithLookupEnv(f config.LookupFunc) Option {
	return func(r *Resolver) { r.lookupEnv = f }
}
