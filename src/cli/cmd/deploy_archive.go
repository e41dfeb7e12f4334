package cmd

import (
	"fmt"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/gav"
	"github.com/sofmeright/rebuildkit/src/image"
	"github.com/sofmeright/rebuildkit/src/output"
)

var (
	daSource          string
	daLogs            string
	daArtifacts       string
	daGAVs            []string
	daKeepArtifacts   bool
	daImageNamePath   string
	daImageDigestPath string
)

var deployArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Push sources, logs and artifacts as a base image",
	Long: `Archive packages the build's source checkout, logs and deployed artifacts as
three layers of a new image and pushes it. The artifacts directory is removed
afterwards unless --keep-artifacts is set.

The image reference and digest can be written to result files for the
pipeline with --image-name-path and --image-digest-path.`,
	Args: cobra.NoArgs,
	RunE: runDeployArchive,
}

func init() {
	f := deployArchiveCmd.Flags()
	f.StringVar(&daSource, "source", "", "source checkout directory")
	f.StringVar(&daLogs, "logs", "", "build logs directory")
	f.StringVar(&daArtifacts, "artifacts", "", "deployed artifacts directory")
	f.StringSliceVar(&daGAVs, "gav", nil, "artifact coordinate group:artifact:version (repeatable)")
	f.BoolVar(&daKeepArtifacts, "keep-artifacts", false, "do not remove the artifacts directory")
	f.StringVar(&daImageNamePath, "image-name-path", "", "write the image reference to this file")
	f.StringVar(&daImageDigestPath, "image-digest-path", "", "write the image digest to this file")
	for _, name := range []string{"source", "logs", "artifacts"} {
		_ = deployArchiveCmd.MarkFlagRequired(name)
	}

	deployCmd.AddCommand(deployArchiveCmd)
}

func runDeployArchive(cmd *cobra.Command, args []string) error {
	p, err := newPackager(cmd)
	if err != nil {
		return err
	}

	var (
		ref       string
		digest    v1.Hash
		resultErr error
	)
	elapsed, err := runPhase(cmd, "deploy_archive", "Pushing base image", func() error {
		var err error
		ref, digest, err = p.BuildBaseImage(cmd.Context(), image.DeployRequest{
			SourcePath:    daSource,
			LogsPath:      daLogs,
			ArtifactsPath: daArtifacts,
			GAVs:          daGAVs,
			PrependTag:    dpPrependTag,
			KeepArtifacts: daKeepArtifacts,
		}, func(ref, digest string) {
			if err := output.WriteResult(daImageNamePath, ref); err != nil {
				resultErr = err
				return
			}
			if err := output.WriteResult(daImageDigestPath, digest); err != nil {
				resultErr = err
			}
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("deploy archive: %w", err)
	}
	if resultErr != nil {
		return resultErr
	}

	color := output.UseColor()
	sec := output.NewSection(cmd.OutOrStdout(), "Base Image", elapsed, color)
	sec.KV("image", ref)
	sec.KV("digest", digest.String())
	prepend := dpPrependTag
	if prepend == "" {
		prepend = cfg.Registry.PrependTag
	}
	set, err := gav.NewSet(daGAVs, prepend)
	if err != nil {
		return err
	}
	sec.KV("coordinates", fmt.Sprintf("%d", set.Len()))
	for _, g := range set.Sorted() {
		sec.Row("  %s", g.Key())
	}
	sec.Close()
	return nil
}
