package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genaker/agento/internal/app"
	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/services/video"
	"github.com/genaker/agento/internal/utils/jsonutil"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var Cmd = &cobra.Command{
	Use:   "video [flags] [more images...]",
	Short: "Generate product videos from images with Veo",
	Example: `  agento video -i catalog/product/s/h/shirt.jpg -p "model turns slowly" --poll
  agento video -i a.jpg b.jpg -p "zoom in" -a 9:16 --silent-video --poll`,
	Args: cobra.ArbitraryArgs,
	RunE: runVideo,
}

func init() {
	flags := Cmd.Flags()

	flags.StringArrayP("image-path", "i", nil, "Source image path or URL, repeatable; extra arguments are read as more images (relative paths resolve against pub/media)")
	flags.StringP("prompt", "p", "", "Text prompt for the video")
	flags.StringP("aspect-ratio", "a", video.DefaultAspectRatio, "Aspect ratio, 16:9 or 9:16")
	flags.BoolP("silent-video", "s", false, "Ask for a video without audio, which trips fewer safety filters")
	flags.Bool("poll", false, "Wait for the video and download it")
	flags.String("api-key", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	flags.String("base-path", "", "Magento root directory")
	flags.String("base-url", "", "Public base URL used to build video links")
	flags.Int("concurrency", 2, "Videos generated in parallel")

	flags.SetNormalizeFunc(videoFlagAliases)

	Cmd.MarkFlagRequired("image-path")
	Cmd.MarkFlagRequired("prompt")

	config.BindFlag(flags, "api-key", "gemini.api_key")
	config.BindFlag(flags, "base-path", "base_path")
	config.BindFlag(flags, "base-url", "media.base_url")
	config.BindFlag(flags, "concurrency", "video.concurrency")
}

// videoFlagAliases accepts --image and --silent for --image-path and
// --silent-video.
func videoFlagAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "image":
		name = "image-path"
	case "silent":
		name = "silent-video"
	}

	return pflag.NormalizedName(name)
}

func runVideo(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	images, _ := flags.GetStringArray("image-path")
	images = append(images, args...)
	prompt, _ := flags.GetString("prompt")
	aspectRatio, _ := flags.GetString("aspect-ratio")
	silent, _ := flags.GetBool("silent-video")
	poll, _ := flags.GetBool("poll")

	app, err := app.NewApp(config.MustGetConfig(), app.WithFileUploader(), app.WithDownloadProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	svc, err := app.VideoService("")
	if err != nil {
		if errors.Is(err, config.ErrAPIKeyMissing) {
			jsonutil.Print(out, jsonutil.Failure(err))
		}
		return err
	}

	ctx, stop := signal.NotifyContext(app.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reqs := make([]video.Request, 0, len(images))
	for _, image := range images {
		reqs = append(reqs, video.Request{
			ImagePath:   image,
			Prompt:      prompt,
			AspectRatio: aspectRatio,
			Silent:      silent,
			Poll:        poll,
		})
	}

	outcomes := svc.RunBatch(ctx, reqs, app.Config().Video.Concurrency)
	report, failed := video.Report(outcomes)
	if err := jsonutil.Print(out, report); err != nil {
		return err
	}

	if failed {
		return fmt.Errorf("video generation failed for %d of %d images", countFailed(outcomes), len(outcomes))
	}

	return nil
}

func countFailed(outcomes []*video.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Success {
			n++
		}
	}

	return n
}
