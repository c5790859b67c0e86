package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"VidTube/storage"
)

var (
	imagesPrefix string
	imagesList   bool
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Check the image host bucket",
	Long:  `Create the image bucket when missing and print its statistics, optionally listing the stored objects.`,
	Example: `  # check the bucket and print statistics
  vidtube images

  # list every uploaded image
  vidtube images -l

  # list a different prefix
  vidtube images -l -p "images/"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		fmt.Printf("Image host: %s, endpoint: %s, bucket: %s\n",
			cfg.ImageHost.Driver, cfg.ImageHost.Endpoint, cfg.ImageHost.Bucket)

		host, err := storage.NewImageHost(ctx, cfg.ImageHost)
		if err != nil {
			return err
		}
		if err := host.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("bucket check failed: %w", err)
		}
		fmt.Println("Bucket OK.")

		lister, ok := host.(storage.Lister)
		if !ok {
			return nil
		}
		objects, stats, err := lister.List(ctx, imagesPrefix)
		if err != nil {
			return fmt.Errorf("listing failed: %w", err)
		}

		if imagesList {
			for _, obj := range objects {
				fmt.Printf("%-60s %10s  %s\n",
					obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format(time.DateTime))
			}
		}
		fmt.Printf("\nObjects: %d\nTotal size: %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("Last modified: %s\n", stats.LastModified.Format(time.DateTime))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imagesCmd)

	imagesCmd.Flags().StringVarP(&imagesPrefix, "prefix", "p", storage.ImagePrefix, "object key prefix")
	imagesCmd.Flags().BoolVarP(&imagesList, "list", "l", false, "list every object under the prefix")
}
