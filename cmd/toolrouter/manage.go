package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/toolrouter/internal/catalog"
	"github.com/normanking/toolrouter/internal/config"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CACHE COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persisted tool embeddings",
	}

	// Clear command
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the persisted tool embeddings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openCacheSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.router.ClearDiskCache(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("cleared ")+s.router.CacheLocation())
			return nil
		},
	})

	// Path command
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show where tool embeddings are persisted",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openCacheSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Fprintln(cmd.OutOrStdout(), s.router.CacheLocation())
			return nil
		},
	})

	return cmd
}

// openCacheSession opens a router that never embeds anything, for commands
// that only touch the store.
func openCacheSession(cmd *cobra.Command) (*session, error) {
	rc := cfg.Router
	rc.EnableSemanticMatching = false
	rc.EnableDiskCache = true
	return openSession(cmd.Context(), rc)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CATALOG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the tool catalog",
	}

	// List command
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tools in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d tools in %s", len(tools), cfg.Catalog.Path)))
			for _, t := range tools {
				fmt.Fprintf(out, "%s %s\n", toolStyle.Render(t.Name), t.Description)
				if len(t.Keywords) > 0 {
					fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("  keywords: %v", t.Keywords)))
				}
			}
			return nil
		},
	})

	// Init command
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample catalog to catalog.path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Catalog.Path
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			data, err := yaml.Marshal(struct {
				Tools []catalog.Tool `yaml:"tools"`
			}{sampleTools()})
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("wrote ")+path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing catalog")
	cmd.AddCommand(initCmd)

	return cmd
}

func sampleTools() []catalog.Tool {
	return []catalog.Tool{
		{
			Name:        "read_file",
			Description: "Read the contents of a file from the local filesystem",
			Keywords:    []string{"read file", "open file", "show file", "cat"},
		},
		{
			Name:        "write_file",
			Description: "Create a file or replace its contents",
			Keywords:    []string{"write file", "save file", "create file"},
		},
		{
			Name:        "list_directory",
			Description: "List the files and folders in a directory",
			Keywords:    []string{"list files", "list dir", "directory"},
		},
		{
			Name:        "run_command",
			Description: "Run a shell command and return its output",
			Keywords:    []string{"run", "execute", "shell", "terminal"},
		},
		{
			Name:        "web_search",
			Description: "Search the web for current information",
			Keywords:    []string{"search", "google", "look up"},
		},
		{
			Name:        "get_weather",
			Description: "Get the current weather and forecast for a location",
			Keywords:    []string{"weather", "forecast", "temperature"},
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	// Show command
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *cfg
			shown.Embedding.OpenAI.APIKey = redact(shown.Embedding.OpenAI.APIKey)
			shown.Embedding.GenAI.APIKey = redact(shown.Embedding.GenAI.APIKey)

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render("toolrouter configuration"))
			fmt.Fprintln(out, dimStyle.Render(configPath()))
			fmt.Fprint(out, string(data))
			return nil
		},
	})

	// Path command
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath())
		},
	})

	// Init command
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Reset the configuration file to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToPath(configPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("wrote ")+configPath())
			return nil
		},
	})

	return cmd
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
