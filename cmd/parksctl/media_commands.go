package main

import (
	"github.com/spf13/cobra"

	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/service"
)

const defaultMappingsFile = "url-mappings.json"

func newMediaCommands(ctx *commandContext) []*cobra.Command {
	fetch := &cobra.Command{
		Use:   "fetch-photos",
		Short: "Store photo descriptors for parks that have no images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, repo repository.ParksRepository, _ *service.ParksService) error {
				media, err := ctx.mediaService(cmd.Context(), cfg, repo, true, false)
				if err != nil {
					return err
				}
				summary, err := media.FetchPhotoMetadata(cmd.Context())
				printMediaSummary(cmd, "Fetch photos", summary)
				return err
			})
		},
	}

	download := &cobra.Command{
		Use:   "download-images",
		Short: "Download Places photos into the public image directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, repo repository.ParksRepository, _ *service.ParksService) error {
				media, err := ctx.mediaService(cmd.Context(), cfg, repo, true, false)
				if err != nil {
					return err
				}
				summary, err := media.DownloadImages(cmd.Context())
				printMediaSummary(cmd, "Download images", summary)
				return err
			})
		},
	}

	var uploadMappings string
	upload := &cobra.Command{
		Use:   "upload-images",
		Short: "Upload downloaded images to the bucket and write the URL mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// Uploading only walks the public directory.
			media, err := ctx.mediaService(cmd.Context(), cfg, nil, false, true)
			if err != nil {
				return err
			}
			_, summary, err := media.UploadImages(cmd.Context(), uploadMappings)
			printMediaSummary(cmd, "Upload images", summary)
			return err
		},
	}
	upload.Flags().StringVar(&uploadMappings, "mappings", defaultMappingsFile, "Where to write the old path to URL mappings")

	var rewriteMappings string
	rewrite := &cobra.Command{
		Use:   "rewrite-image-urls",
		Short: "Point stored images at their uploaded URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := service.ReadMappings(rewriteMappings)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, repo repository.ParksRepository, _ *service.ParksService) error {
				media, err := ctx.mediaService(cmd.Context(), cfg, repo, false, false)
				if err != nil {
					return err
				}
				summary, err := media.RewriteImageURLs(cmd.Context(), mappings)
				printMediaSummary(cmd, "Rewrite image URLs", summary)
				return err
			})
		},
	}
	rewrite.Flags().StringVar(&rewriteMappings, "mappings", defaultMappingsFile, "URL mappings written by upload-images")

	return []*cobra.Command{fetch, download, upload, rewrite}
}

func printMediaSummary(cmd *cobra.Command, title string, summary dto.MediaSummary) {
	printSummary(cmd.OutOrStdout(), title,
		count("parks", summary.Parks),
		count("updated", summary.Updated),
		count("files", summary.Files),
		count("bytes", summary.Bytes),
		count("no photos", summary.NoPhotos),
		count("errors", summary.Errors),
	)
}
