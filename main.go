package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lexical-to-mdx",
	Short: "Convert a Lexical blog export into MDX files",
	Long: `Reads a JSON export of blog documents whose bodies are Lexical rich-text
trees, converts every published document to MDX with YAML frontmatter and
downloads the images it references.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			SetDebugMode(true)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := LoadSettings(overridesFromFlags(cmd.Flags()))
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}

		processor, err := NewDocumentProcessor(settings)
		if err != nil {
			log.Fatalf("Failed to create processor: %v", err)
		}

		fmt.Println("Lexical to MDX Converter")
		fmt.Println("========================")

		summary, err := processor.Run(cmd.Context())
		if err != nil {
			log.Fatalf("Conversion failed: %v", err)
		}

		PrintSummary(os.Stdout, summary)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := ensureConfigExists()
		if err != nil {
			log.Fatalf("Failed to write settings: %v", err)
		}
		fmt.Printf("Settings: %s\n", path)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Verify generated MDX files and their image references",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		} else {
			settings, err := LoadSettings(overridesFromFlags(cmd.Flags()))
			if err != nil {
				log.Fatalf("Failed to load settings: %v", err)
			}
			dir = settings.OutputDirectory
		}

		count, issues, err := CheckOutput(dir)
		if err != nil {
			log.Fatalf("Check failed: %v", err)
		}

		for _, issue := range issues {
			fmt.Println(issue)
		}
		fmt.Printf("Checked %d files, %d issues\n", count, len(issues))
		if len(issues) > 0 {
			os.Exit(1)
		}
	},
}

var (
	debugMode    bool
	forcePublish bool
)

var publishCmd = &cobra.Command{
	Use:   "publish-assets",
	Short: "Upload downloaded assets to an S3-compatible bucket",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := LoadSettings(overridesFromFlags(cmd.Flags()))
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
		if err := settings.Publish.ValidatePublish(); err != nil {
			log.Fatalf("Invalid publish settings: %v", err)
		}

		store, err := NewS3Store(cmd.Context(), settings.Publish)
		if err != nil {
			log.Fatalf("Failed to create store: %v", err)
		}

		publisher := NewAssetPublisher(store, settings.AssetsDirectory, settings.Publish.Prefix, forcePublish)
		result, err := publisher.Publish(cmd.Context())
		if err != nil {
			log.Fatalf("Publishing failed: %v", err)
		}

		fmt.Printf("Uploaded: %d, Skipped: %d, Failed: %d\n", result.Uploaded, result.Skipped, result.Failed)
		if result.Failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("settings", "", "Path to settings file (default .lexical-to-mdx/settings.yaml)")
	flags.String("input", "", "Input JSON export")
	flags.String("output", "", "Output directory for MDX files")
	flags.String("assets", "", "Directory for downloaded images")
	flags.String("api-base-url", "", "Base URL for relative image paths")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")

	publishCmd.Flags().BoolVar(&forcePublish, "force", false, "Upload files that already exist in the bucket")

	rootCmd.AddCommand(initCmd, checkCmd, publishCmd)
}

// overridesFromFlags returns overrides for the flags set on the command line
func overridesFromFlags(fs *pflag.FlagSet) *ConfigOverrides {
	overrides := &ConfigOverrides{}
	pick := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, err := fs.GetString(name)
		if err != nil {
			return nil
		}
		return &v
	}

	overrides.SettingsPath = pick("settings")
	overrides.InputFile = pick("input")
	overrides.OutputDirectory = pick("output")
	overrides.AssetsDirectory = pick("assets")
	overrides.APIBaseURL = pick("api-base-url")
	return overrides
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
