package image

import (
	"context"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/sofmeright/rebuildkit/src/registry"
	"github.com/sofmeright/rebuildkit/src/version"
)

// targetKeychain answers with the configured credentials for the target
// registry and anonymously for everything else. registry holds the
// normalised form (docker.io becomes index.docker.io).
type targetKeychain struct {
	registry string
	creds    *registry.Credentials
}

func (k targetKeychain) Resolve(res authn.Resource) (authn.Authenticator, error) {
	if k.creds == nil || res.RegistryStr() != k.registry {
		return authn.Anonymous, nil
	}
	return authn.FromConfig(authn.AuthConfig{
		Username: k.creds.Username,
		Password: k.creds.Password,
	}), nil
}

func (p *Packager) pushKeychain() authn.Keychain {
	host := p.target.Registry()
	if reg, err := name.NewRegistry(host, p.nameOptions()...); err == nil {
		host = reg.RegistryStr()
	}
	return targetKeychain{registry: host, creds: p.target.Credentials}
}

// pullKeychain also consults the local docker configuration, since base
// images may live on another registry.
func (p *Packager) pullKeychain() authn.Keychain {
	if p.target.Credentials == nil {
		return authn.DefaultKeychain
	}
	return authn.NewMultiKeychain(p.pushKeychain(), authn.DefaultKeychain)
}

func (p *Packager) nameOptions() []name.Option {
	if p.target.Insecure {
		return []name.Option{name.Insecure}
	}
	return nil
}

func (p *Packager) remoteOptions(ctx context.Context, kc authn.Keychain) []remote.Option {
	return []remote.Option{
		remote.WithContext(ctx),
		remote.WithTransport(p.transport),
		remote.WithAuthFromKeychain(kc),
		remote.WithUserAgent(version.UserAgent()),
	}
}

func (p *Packager) pull(ctx context.Context, ref string) (v1.Image, error) {
	r, err := name.ParseReference(ref, p.nameOptions()...)
	if err != nil {
		return nil, &RegistryError{Op: "parse", Ref: ref, Err: err}
	}
	// The image is read lazily while the result is pushed, so the deadline
	// is the caller's rather than a per-call one.
	img, err := remote.Image(r, p.remoteOptions(ctx, p.pullKeychain())...)
	if err != nil {
		return nil, &RegistryError{Op: "pull", Ref: ref, Err: err}
	}
	return img, nil
}

func (p *Packager) push(ctx context.Context, ref string, img v1.Image) error {
	tag, err := name.NewTag(ref, p.nameOptions()...)
	if err != nil {
		return &RegistryError{Op: "parse", Ref: ref, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.HTTPTimeout)
	defer cancel()
	if err := remote.Write(tag, img, p.remoteOptions(ctx, p.pushKeychain())...); err != nil {
		return &RegistryError{Op: "push", Ref: ref, Err: err}
	}
	return nil
}

func (p *Packager) tag(ctx context.Context, ref string, img v1.Image) error {
	tag, err := name.NewTag(ref, p.nameOptions()...)
	if err != nil {
		return &RegistryError{Op: "parse", Ref: ref, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.HTTPTimeout)
	defer cancel()
	if err := remote.Tag(tag, img, p.remoteOptions(ctx, p.pushKeychain())...); err != nil {
		return &RegistryError{Op: "tag", Ref: ref, Err: err}
	}
	return nil
}
