// Package image packages build outputs as OCI images and publishes them to a
// registry: the base image of a rebuilt artifact, its per-coordinate tags,
// and the pre-build images a pipeline resumes from.
package image

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sofmeright/rebuildkit/src/gav"
	"github.com/sofmeright/rebuildkit/src/logging"
	"github.com/sofmeright/rebuildkit/src/logscan"
	"github.com/sofmeright/rebuildkit/src/registry"
	"github.com/sofmeright/rebuildkit/src/scm"
)

// Labels written on published images.
const (
	LabelGroupID    = "groupId"
	LabelArtifactID = "artifactId"
	LabelVersion    = "version"
	LabelGAVs       = "io.jvmbuildservice.gavs"
	LabelExpires    = "quay.expires-after"

	// PreBuildExpiry is how long a registry keeps a pre-build image.
	PreBuildExpiry = "24h"
)

// DefaultHTTPTimeout bounds each registry call.
const DefaultHTTPTimeout = 5 * time.Minute

// Options tune a Packager. The zero value is usable.
type Options struct {
	ImageID     string        // base image tag; a fresh UUID when empty
	PrependTag  string        // default prefix for derived coordinate tags
	HTTPTimeout time.Duration // per registry call
	ScratchDir  string        // where layer archives are staged; os.TempDir when empty
	LogSecrets  logscan.Policy
	Workers     int // hermetic existence checks; NumCPU when zero
}

// DeployRequest describes one base image build.
type DeployRequest struct {
	ArtifactsPath string
	SourcePath    string
	LogsPath      string
	GAVs          []string
	PrependTag    string
	KeepArtifacts bool
}

// Packager builds and pushes images to a single registry target.
type Packager struct {
	target    registry.Target
	opts      Options
	logger    zerolog.Logger
	scanner   *logscan.Scanner
	transport http.RoundTripper
}

// NewPackager validates target and prepares the registry transport.
func NewPackager(target registry.Target, opts Options, logger zerolog.Logger) (*Packager, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = DefaultHTTPTimeout
	}
	if opts.LogSecrets == "" {
		opts.LogSecrets = logscan.PolicyWarn
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	p := &Packager{
		target:    target,
		opts:      opts,
		logger:    logging.Component(logger, "image"),
		scanner:   logscan.NewScanner(logger),
		transport: newTransport(opts.HTTPTimeout, target.Insecure),
	}
	if target.Credentials == nil {
		p.logger.Warn().Str("registry", target.Registry()).Msg("No token configured, pushing anonymously")
	} else {
		p.logger.Info().
			Str("username", target.Credentials.Username).
			Str("repository", target.FullName()).
			Msg("Using registry credentials")
	}
	return p, nil
}

func newTransport(timeout time.Duration, insecure bool) http.RoundTripper {
	var tr *http.Transport
	if t, ok := remote.DefaultTransport.(*http.Transport); ok {
		tr = t.Clone()
	} else {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	tr.ResponseHeaderTimeout = timeout
	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opted in per target
	}
	return tr
}

// BuildBaseImage packages sources, logs and artifacts as three layers of an
// empty OCI image, pushes it and reports the reference and digest to
// callback. The artifacts directory is removed afterwards unless the request
// keeps it.
func (p *Packager) BuildBaseImage(ctx context.Context, req DeployRequest, callback func(ref, digest string)) (string, v1.Hash, error) {
	if !req.KeepArtifacts && req.ArtifactsPath != "" {
		defer func() {
			if err := os.RemoveAll(req.ArtifactsPath); err != nil {
				p.logger.Warn().Err(err).Str("path", req.ArtifactsPath).Msg("Failed to remove artifacts")
			}
		}()
	}

	if req.SourcePath == "" || req.LogsPath == "" || req.ArtifactsPath == "" {
		return "", v1.Hash{}, fmt.Errorf("%w: source, logs and artifacts paths are required", ErrInvalidRequest)
	}
	prependTag := req.PrependTag
	if prependTag == "" {
		prependTag = p.opts.PrependTag
	}
	gavs, err := gav.NewSet(req.GAVs, prependTag)
	if err != nil {
		return "", v1.Hash{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := p.checkLogs(ctx, req.LogsPath); err != nil {
		return "", v1.Hash{}, err
	}

	tag := p.opts.ImageID
	if tag == "" {
		tag = uuid.NewString()
	}
	imageName := p.target.ImageName(tag)

	scratch, cleanup, err := p.scratchDir()
	if err != nil {
		return "", v1.Hash{}, err
	}
	defer cleanup()

	var layers []v1.Layer
	for _, dir := range []struct{ name, path string }{
		{"source", req.SourcePath},
		{"logs", req.LogsPath},
		{"artifacts", req.ArtifactsPath},
	} {
		l, err := DirectoryLayer(dir.name, dir.path, "/")
		if err != nil {
			return "", v1.Hash{}, err
		}
		built, err := l.Build(scratch)
		if err != nil {
			return "", v1.Hash{}, err
		}
		p.logger.Debug().Str("layer", dir.name).Int("entries", len(l.Entries)).Msg("Built layer")
		layers = append(layers, built)
	}

	labels := map[string]string{
		LabelGAVs:       gavs.Keys(),
		LabelGroupID:    gavs.GroupIDs(),
		LabelArtifactID: gavs.ArtifactIDs(),
		LabelVersion:    gavs.Versions(),
	}
	if info, err := scm.Describe(req.SourcePath); err == nil {
		for k, v := range info.Labels() {
			labels[k] = v
		}
	} else if !errors.Is(err, scm.ErrNotRepository) {
		p.logger.Debug().Err(err).Msg("Source revision unavailable")
	}

	img, err := assemble(empty.Image, layers, labels)
	if err != nil {
		return "", v1.Hash{}, err
	}

	p.logger.Info().Str("image", imageName).Int("gavs", gavs.Len()).Msg("Pushing base image")
	if err := p.push(ctx, imageName, img); err != nil {
		return "", v1.Hash{}, err
	}
	digest, err := img.Digest()
	if err != nil {
		return "", v1.Hash{}, fmt.Errorf("image: computing digest: %w", err)
	}
	p.logger.Info().Str("image", imageName).Str("digest", digest.String()).Msg("Pushed base image")

	if callback != nil {
		callback(imageName, digest.Hex)
	}
	return imageName, digest, nil
}

// RetagImage publishes the base image under one tag per coordinate. The
// first coordinate's tag is written with the coordinates label; every other
// tag points at that same manifest.
func (p *Packager) RetagImage(ctx context.Context, gavs []string, prependTag, baseTag string) error {
	if len(gavs) == 0 {
		return fmt.Errorf("%w: no coordinates to tag", ErrInvalidRequest)
	}
	if prependTag == "" {
		prependTag = p.opts.PrependTag
	}
	if baseTag == "" {
		baseTag = p.opts.ImageID
	}
	if baseTag == "" {
		return fmt.Errorf("%w: no base image tag", ErrInvalidRequest)
	}

	parsed := make([]gav.GAV, 0, len(gavs))
	for _, s := range gavs {
		g, err := gav.Parse(s, prependTag)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		parsed = append(parsed, g)
	}

	base, err := p.pull(ctx, p.target.ImageName(baseTag))
	if err != nil {
		return err
	}
	img, err := withLabels(base, map[string]string{LabelGAVs: strings.Join(gavs, ",")})
	if err != nil {
		return err
	}

	primary := p.target.ImageName(parsed[0].Tag)
	p.logger.Info().Str("image", primary).Msg("Tagging base image")
	if err := p.push(ctx, primary, img); err != nil {
		return err
	}

	seen := map[string]bool{parsed[0].Tag: true}
	for _, g := range parsed[1:] {
		if seen[g.Tag] {
			continue
		}
		seen[g.Tag] = true
		ref := p.target.ImageName(g.Tag)
		p.logger.Debug().Str("image", ref).Str("gav", g.Key()).Msg("Adding tag")
		if err := p.tag(ctx, ref, img); err != nil {
			return err
		}
	}
	return nil
}

// DeployPreBuiltImage adds the contents of sourcePath on top of baseImage,
// marks the result to expire, and pushes it under tag.
func (p *Packager) DeployPreBuiltImage(ctx context.Context, baseImage, sourcePath, imageDestPath, tag string) error {
	layer, err := FlatListingLayer("pre-build", sourcePath, imageDestPath)
	if err != nil {
		return err
	}
	return p.deployOnto(ctx, baseImage, layer, tag, map[string]string{LabelExpires: PreBuildExpiry})
}

// DeployHermeticPreBuiltImage adds the dependencies in repositoryPath that
// the build did not itself produce under buildArtifactsPath, so the build
// can be re-run offline.
func (p *Packager) DeployHermeticPreBuiltImage(ctx context.Context, baseImage, buildArtifactsPath, repositoryPath, imageDestPath, tag string) error {
	layer, err := HermeticLayer(ctx, "hermetic", repositoryPath, buildArtifactsPath, imageDestPath, p.opts.Workers)
	if err != nil {
		return err
	}
	p.logger.Info().Int("files", len(layer.Entries)).Str("repository", repositoryPath).Msg("Collected hermetic dependencies")
	return p.deployOnto(ctx, baseImage, layer, tag, nil)
}

func (p *Packager) deployOnto(ctx context.Context, baseImage string, layer Layer, tag string, labels map[string]string) error {
	if tag == "" {
		return fmt.Errorf("%w: no image tag", ErrInvalidRequest)
	}
	scratch, cleanup, err := p.scratchDir()
	if err != nil {
		return err
	}
	defer cleanup()

	built, err := layer.Build(scratch)
	if err != nil {
		return err
	}
	base, err := p.pull(ctx, baseImage)
	if err != nil {
		return err
	}
	img, err := assemble(base, []v1.Layer{built}, labels)
	if err != nil {
		return err
	}

	imageName := p.target.ImageName(tag)
	p.logger.Info().Str("image", imageName).Str("base", baseImage).Msg("Pushing pre-build image")
	return p.push(ctx, imageName, img)
}

// checkLogs applies the configured secret policy to the logs directory.
func (p *Packager) checkLogs(ctx context.Context, logsPath string) error {
	if p.opts.LogSecrets == logscan.PolicyOff {
		return nil
	}
	findings, err := p.scanner.Scan(ctx, logsPath)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Log scan incomplete")
	}
	for _, f := range findings {
		p.logger.Warn().
			Str("file", f.File).
			Int("line", f.Line).
			Str("rule", f.RuleID).
			Msg("Possible secret in build logs")
	}
	if len(findings) > 0 && p.opts.LogSecrets == logscan.PolicyFail {
		return fmt.Errorf("%w: %d finding(s)", ErrSecretsInLogs, len(findings))
	}
	return nil
}

func (p *Packager) scratchDir() (string, func(), error) {
	dir, err := os.MkdirTemp(p.opts.ScratchDir, "rebuildkit-layers-")
	if err != nil {
		return "", nil, fsError(err)
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Debug().Err(err).Str("path", filepath.Clean(dir)).Msg("Failed to remove scratch directory")
		}
	}, nil
}

// assemble appends layers to base as an OCI image and merges labels into its
// configuration.
func assemble(base v1.Image, layers []v1.Layer, labels map[string]string) (v1.Image, error) {
	img := mutate.MediaType(base, types.OCIManifestSchema1)
	img = mutate.ConfigMediaType(img, types.OCIConfigJSON)
	img, err := mutate.AppendLayers(img, layers...)
	if err != nil {
		return nil, fmt.Errorf("image: appending layers: %w", err)
	}
	return withLabels(img, labels)
}

func withLabels(img v1.Image, labels map[string]string) (v1.Image, error) {
	cf, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("image: reading config: %w", err)
	}
	cf = cf.DeepCopy()
	if cf.OS == "" {
		cf.OS = "linux"
	}
	if cf.Architecture == "" {
		cf.Architecture = "amd64"
	}
	if cf.Config.Labels == nil {
		cf.Config.Labels = make(map[string]string, len(labels))
	}
	for k, v := range labels {
		cf.Config.Labels[k] = v
	}
	img, err = mutate.ConfigFile(img, cf)
	if err != nil {
		return nil, fmt.Errorf("image: writing config: %w", err)
	}
	return img, nil
}
