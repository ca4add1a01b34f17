package cmd

import (
	"strings"

	"github.com/genaker/agento/internal/app"
	"github.com/genaker/agento/internal/config"
	"github.com/genaker/agento/internal/utils/jsonutil"

	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var Cmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available to the API key",
	RunE:  runModels,
}

type modelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName,omitempty"`
	InputTokenLimit  int32    `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit int32    `json:"outputTokenLimit,omitempty"`
	SupportedActions []string `json:"supportedActions,omitempty"`
}

func init() {
	flags := Cmd.Flags()

	flags.Bool("image-only", false, "Only list models that can generate images")
	flags.StringP("api-key", "k", "", "Gemini API key (defaults to GEMINI_API_KEY)")

	config.BindFlag(flags, "api-key", "gemini.api_key")
}

func runModels(cmd *cobra.Command, _ []string) error {
	imageOnly, _ := cmd.Flags().GetBool("image-only")

	app, err := app.NewApp(config.MustGetConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := app.Context()
	client, err := app.GenAIClient(ctx, "")
	if err != nil {
		return err
	}

	models := []modelInfo{}
	for model, err := range client.Models.All(ctx) {
		if err != nil {
			return err
		}
		if imageOnly && !isImageModel(model) {
			continue
		}
		models = append(models, modelInfo{
			Name:             model.Name,
			DisplayName:      model.DisplayName,
			InputTokenLimit:  model.InputTokenLimit,
			OutputTokenLimit: model.OutputTokenLimit,
			SupportedActions: model.SupportedActions,
		})
	}

	return jsonutil.Print(cmd.OutOrStdout(), models)
}

// isImageModel reports whether a model looks able to produce images, by name
// or by one of its supported actions.
func isImageModel(model *genai.Model) bool {
	name := strings.ToLower(model.Name)
	if strings.Contains(name, "image") || strings.Contains(name, "imagen") {
		return true
	}

	for _, action := range model.SupportedActions {
		action = strings.ToLower(action)
		if strings.Contains(action, "generateimage") || strings.HasPrefix(action, "predict") {
			return true
		}
	}

	return false
}
