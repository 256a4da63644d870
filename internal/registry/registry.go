// Package registry resolves container image references ahead of an image
// scan. Resolution is best effort: the scanning tools pull images on their
// own, so a registry that cannot be reached only degrades the report.
package registry

import (
	"context"
	"log/slog"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/iacscan/iacscan/internal/errors"
)

// ImageRef is a normalized container image reference
type ImageRef struct {
	// Registry hostname, e.g. index.docker.io
	Registry string
	// Repository path within the registry, e.g. library/nginx
	Repository string
	// Tag is empty when the reference pins a digest
	Tag string
	// Digest is empty when the reference uses a tag
	Digest string
	// Canonical is the fully qualified form passed to the tools
	Canonical string
}

// ImageInfo augments a reference with manifest details from the registry
type ImageInfo struct {
	Ref          ImageRef
	Digest       string
	MediaType    string
	Architecture string
	OS           string
	LayerCount   int
}

// ParseRef normalizes a raw image reference. Bare names get the docker.io
// registry, the library namespace, and the latest tag.
func ParseRef(raw string) (ImageRef, error) {
	ref, err := name.ParseReference(raw)
	if err != nil {
		return ImageRef{}, errors.NewPermanentf("invalid image reference %q: %w", raw, err)
	}

	out := ImageRef{
		Registry:   ref.Context().RegistryStr(),
		Repository: ref.Context().RepositoryStr(),
		Canonical:  ref.Name(),
	}
	switch r := ref.(type) {
	case name.Tag:
		out.Tag = r.TagStr()
	case name.Digest:
		out.Digest = r.DigestStr()
	}
	return out, nil
}

// Resolver fetches image descriptors from the registry
type Resolver struct {
	logger     *slog.Logger
	remoteOpts []remote.Option
}

// NewResolver creates a resolver authenticating with the local docker
// credential helpers, falling back to anonymous access
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		remoteOpts: []remote.Option{
			remote.WithAuthFromKeychain(authn.DefaultKeychain),
		},
	}
}

// Resolve parses raw and looks up its descriptor. Registry errors come back
// as transient so the caller can treat them as a degraded, non-fatal path.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*ImageInfo, error) {
	imageRef, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}

	ref, err := name.ParseReference(imageRef.Canonical)
	if err != nil {
		return nil, errors.NewPermanentf("invalid image reference %q: %w", imageRef.Canonical, err)
	}

	opts := append([]remote.Option{remote.WithContext(ctx)}, r.remoteOpts...)
	desc, err := remote.Get(ref, opts...)
	if err != nil {
		return nil, errors.NewTransientf("failed to resolve %s: %w", imageRef.Canonical, err)
	}

	info := &ImageInfo{
		Ref:       imageRef,
		Digest:    desc.Digest.String(),
		MediaType: string(desc.MediaType),
	}

	img, err := desc.Image()
	if err != nil {
		// Index-only references still resolved a digest; report what we have.
		r.logger.Debug("descriptor is not a single image", "ref", imageRef.Canonical, "error", err)
		return info, nil
	}

	if configFile, err := img.ConfigFile(); err == nil {
		info.Architecture = configFile.Architecture
		info.OS = configFile.OS
	}
	if layers, err := img.Layers(); err == nil {
		info.LayerCount = len(layers)
	}

	return info, nil
}
