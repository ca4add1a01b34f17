package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genaker/agento/internal/app"
	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/services/imagegen"
	"github.com/genaker/agento/internal/utils/jsonutil"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var Cmd = &cobra.Command{
	Use:   "image",
	Short: "Generate a lookbook image from a model image and an optional look image",
	Example: `  agento image -m model.jpg -l dress.jpg -p "the model wearing the dress"
  agento image --image-1 https://shop.test/media/model.png -p "studio portrait" --backend http`,
	RunE: runImage,
}

func init() {
	flags := Cmd.Flags()

	flags.StringP("model-image", "m", "", "Model image path or URL")
	flags.StringP("look-image", "l", "", "Look image path or URL")
	flags.StringP("prompt", "p", "", "Text prompt describing the result")
	flags.StringP("api-key", "k", "", "Gemini API key (defaults to GEMINI_API_KEY)")
	flags.StringP("base-url", "u", "", "Gemini API base URL (defaults to GOOGLE_API_DOMAIN)")
	flags.String("base-path", config.DefaultImageBasePath, "Media directory the output directory lives in")
	flags.String("output-dir", config.DefaultImageOutputDir, "Output directory under --base-path")
	flags.String("backend", config.ImageBackendSDK, "Generation backend: sdk or http")

	flags.SetNormalizeFunc(imageFlagAliases)

	Cmd.MarkFlagRequired("model-image")
	Cmd.MarkFlagRequired("prompt")

	config.BindFlag(flags, "api-key", "gemini.api_key")
	config.BindFlag(flags, "base-url", "gemini.api_base_url")
	config.BindFlag(flags, "base-path", "image.base_path")
	config.BindFlag(flags, "output-dir", "image.output_dir")
	config.BindFlag(flags, "backend", "image.backend")
}

// imageFlagAliases accepts the positional style --image-1/--image-2 names.
func imageFlagAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "image-1":
		name = "model-image"
	case "image-2":
		name = "look-image"
	}

	return pflag.NormalizedName(name)
}

func runImage(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	modelImage, _ := flags.GetString("model-image")
	lookImage, _ := flags.GetString("look-image")
	prompt, _ := flags.GetString("prompt")

	app, err := app.NewApp(config.MustGetConfig(), app.WithDownloadProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	fail := func(err error) error {
		jsonutil.Print(out, jsonutil.Failure(err))
		return err
	}

	svc, err := app.ImageService("", app.ImageOutputDir())
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(app.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	op, err := svc.Generate(ctx, modelImage, lookImage, prompt)
	if err != nil {
		return fail(err)
	}

	if !op.Done {
		return jsonutil.Print(out, op)
	}

	name := imagegen.DescriptiveFilename(modelImage, lookImage, prompt, time.Now())
	savedPath, err := svc.SaveAsset(ctx, op, name)
	if err != nil {
		return fail(err)
	}

	return jsonutil.Print(out, map[string]any{
		"success":    true,
		"status":     "completed",
		"saved_path": savedPath,
		"message":    fmt.Sprintf("Image generated and saved to %s", savedPath),
	})
}
