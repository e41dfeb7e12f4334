package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/image"
	"github.com/sofmeright/rebuildkit/src/logscan"
	"github.com/sofmeright/rebuildkit/src/registry"
)

var (
	dpHost       string
	dpPort       int
	dpOwner      string
	dpRepository string
	dpInsecure   bool
	dpTokenEnv   string
	dpPrependTag string
	dpImageID    string
	dpTimeout    string
	dpLogSecrets string
	dpScratchDir string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Package and publish build outputs as OCI images",
	Long: `Build, tag and push the images a rebuild pipeline produces.

Registry settings come from the config file; flags override them. The registry
token is read from the environment variable named by --token-env and is either
base64 user:password or a docker config JSON document.`,
}

func init() {
	pf := deployCmd.PersistentFlags()
	pf.StringVar(&dpHost, "registry-host", "", "registry host (default from config)")
	pf.IntVar(&dpPort, "registry-port", 0, "registry port (default from config)")
	pf.StringVar(&dpOwner, "owner", "", "repository owner or namespace")
	pf.StringVar(&dpRepository, "repository", "", "repository name")
	pf.BoolVar(&dpInsecure, "insecure", false, "allow plain HTTP and untrusted certificates")
	pf.StringVar(&dpTokenEnv, "token-env", "", "environment variable holding the registry token")
	pf.StringVar(&dpPrependTag, "prepend-tag", "", "prefix for coordinate tags")
	pf.StringVar(&dpImageID, "image-id", "", "base image tag (default: random UUID)")
	pf.StringVar(&dpTimeout, "timeout", "", "registry call timeout, e.g. 5m")
	pf.StringVar(&dpLogSecrets, "log-secrets", "", "secret scan policy for logs: off, warn, fail")
	pf.StringVar(&dpScratchDir, "scratch-dir", "", "directory for staging layer archives")

	rootCmd.AddCommand(deployCmd)
}

// newPackager merges flags over the loaded config and resolves credentials.
func newPackager(cmd *cobra.Command) (*image.Packager, error) {
	rc := cfg.Registry
	flags := cmd.Flags()
	if flags.Changed("registry-host") {
		rc.Host = dpHost
	}
	if flags.Changed("registry-port") {
		rc.Port = dpPort
	}
	if flags.Changed("owner") {
		rc.Owner = dpOwner
	}
	if flags.Changed("repository") {
		rc.Repository = dpRepository
	}
	if flags.Changed("insecure") {
		rc.Insecure = dpInsecure
	}
	if flags.Changed("token-env") {
		rc.TokenEnv = dpTokenEnv
	}
	if flags.Changed("prepend-tag") {
		rc.PrependTag = dpPrependTag
	}
	if flags.Changed("image-id") {
		rc.ImageID = dpImageID
	}
	if flags.Changed("timeout") {
		rc.HTTPTimeout = dpTimeout
	}

	timeout, err := rc.Timeout()
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", rc.HTTPTimeout, err)
	}

	policyName := cfg.Deploy.LogSecrets
	if flags.Changed("log-secrets") {
		policyName = dpLogSecrets
	}
	policy, err := logscan.ParsePolicy(policyName)
	if err != nil {
		return nil, err
	}

	scratch := cfg.Deploy.ScratchDir
	if flags.Changed("scratch-dir") {
		scratch = dpScratchDir
	}

	target := rc.Target()
	token, err := rc.TokenSource().Token()
	if err != nil {
		return nil, err
	}
	target.Credentials, err = registry.ResolveCredentials(token, target.FullName())
	if err != nil {
		return nil, err
	}

	return image.NewPackager(target, image.Options{
		ImageID:     rc.ImageID,
		PrependTag:  rc.PrependTag,
		HTTPTimeout: timeout,
		ScratchDir:  scratch,
		LogSecrets:  policy,
	}, logger)
}
