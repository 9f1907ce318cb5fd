package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storyreel/internal/ai/component"
	"storyreel/internal/model/story"
	"storyreel/internal/pkg/ffmpeg"
	"storyreel/internal/pkg/storage"
	"storyreel/internal/pkg/storagefactory"
	"storyreel/internal/pkg/storytools/providers"
	"storyreel/internal/server"
	storyService "storyreel/internal/service/story"
)

var (
	genTextFile  string
	genText      string
	genTitle     string
	genStyle     string
	genMaxScenes int
	genImageSize string
	genVoice     string
	genTempo     string
	genRefPaths  []string
	genRefURLs   []string
	genOutput    string
	genKeepScene bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a story video from text",
	Long: `Generate a narrated story video from a piece of text without starting the server.
The text is read from --text or --text-file, and the finished MP4 can be
copied to --output.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.StringVarP(&genTextFile, "text-file", "f", "", "path to a file containing the story text")
	flags.StringVarP(&genText, "text", "t", "", "story text (ignored when --text-file is set)")
	flags.StringVar(&genTitle, "title", "", "story title")
	flags.StringVar(&genStyle, "style", "", "visual style (inferred from the text when empty)")
	flags.IntVar(&genMaxScenes, "max-scenes", 0, "maximum number of scenes (0 = unlimited)")
	flags.StringVar(&genImageSize, "size", "", "image size such as 1024x576 (default from config)")
	flags.StringVar(&genVoice, "voice", "", "TTS voice id (default from config)")
	flags.StringVar(&genTempo, "tempo", "", "narration tempo: slow/normal/fast (default from config)")
	flags.StringSliceVar(&genRefPaths, "ref", nil, "reference image file, repeatable")
	flags.StringSliceVar(&genRefURLs, "ref-url", nil, "reference image URL, repeatable")
	flags.StringVarP(&genOutput, "output", "o", "", "copy the finished video to this path")
	flags.BoolVar(&genKeepScene, "keep-scene-assets", false, "upload per-scene images and audio")

	flags.String("ai-api-key", "", "AI API key (recommend using env: STORYREEL_AI_API_KEY)")
	_ = viper.BindPFlag("ai.api_key", flags.Lookup("ai-api-key"))
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := context.Background()

	text := genText
	if genTextFile != "" {
		data, err := os.ReadFile(genTextFile)
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
		text = string(data)
	}
	if text == "" {
		return fmt.Errorf("either --text or --text-file is required")
	}

	if cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is not configured")
	}

	chatModel, err := component.NewChatModel(ctx, &cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	image, err := server.BuildImageProvider(&cfg.Image)
	if err != nil {
		return err
	}

	tts, err := providers.NewOpenAITTSProvider(providers.OpenAITTSConfig{
		APIKey:  cfg.TTS.APIKey,
		BaseURL: cfg.TTS.BaseURL,
		Model:   cfg.TTS.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create tts provider: %w", err)
	}

	store, err := storagefactory.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	svc := storyService.NewStoryService(
		cfg,
		providers.NewEinoProvider(chatModel),
		image,
		tts,
		ffmpeg.NewClient(),
		store,
		nil,
		nil,
	)

	rec, err := svc.GenerateVideo(ctx, text, story.GenerationOptions{
		Title:           genTitle,
		Style:           genStyle,
		MaxScenes:       genMaxScenes,
		ImageSize:       genImageSize,
		Voice:           genVoice,
		Tempo:           genTempo,
		ReferencePaths:  genRefPaths,
		ReferenceURLs:   genRefURLs,
		KeepSceneAssets: genKeepScene,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	log.Info().
		Str("story_id", rec.ID).
		Int("scenes", rec.SceneCount).
		Float64("duration", rec.Duration).
		Str("video_key", rec.VideoKey).
		Msg("story video generated")

	if genOutput != "" {
		if err := copyFromStorage(ctx, store, rec.VideoKey, genOutput); err != nil {
			return fmt.Errorf("failed to copy video to %s: %w", genOutput, err)
		}
		fmt.Println(genOutput)
	} else if rec.VideoURL != "" {
		fmt.Println(rec.VideoURL)
	}

	return nil
}

// copyFromStorage 把存储中的对象落到本地文件
func copyFromStorage(ctx context.Context, store storage.Storage, key, dest string) error {
	reader, err := store.Download(ctx, key)
	if err != nil {
		return err
	}
	defer reader.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, reader)
	return err
}
