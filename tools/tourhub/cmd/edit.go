package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	cliconfig "github.com/perpetuallyhorni/tourhub/tools/tourhub/internal/config"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the configuration or links file in your default editor.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var editConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the configuration file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFilePath := flagConfig
		if configFilePath == "" {
			var err error
			if configFilePath, err = cliconfig.DefaultPath(); err != nil {
				return err
			}
		}
		return editFile(cmd, configFilePath)
	},
}

var editLinksCmd = &cobra.Command{
	Use:   "links",
	Short: "Edit the links file used by 'tourhub add'.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.LinksFile == "" {
			return fmt.Errorf("links file path is not defined in config")
		}
		return editFile(cmd, cfg.LinksFile)
	},
}

func editFile(cmd *cobra.Command, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", path, err)
	}
	editor, err := determineEditor(cmd)
	if err != nil {
		return err
	}
	console.Info("Opening %s with '%s'", path, editor)
	return openInEditor(editor, path)
}

// determineEditor selects the editor from the flag, config, $EDITOR, then fallbacks.
func determineEditor(cmd *cobra.Command) (string, error) {
	if editor, _ := cmd.Flags().GetString("editor"); editor != "" {
		return editor, nil
	}
	if cfg != nil && cfg.Editor != "" {
		return cfg.Editor, nil
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor, nil
	}

	if runtime.GOOS == "windows" {
		return "notepad", nil
	}
	for _, editor := range []string{"nano", "vi", "vim"} {
		if path, err := exec.LookPath(editor); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no suitable editor found. please set the --editor flag, 'editor' in your config, or the $EDITOR environment variable")
}

func openInEditor(editor, filePath string) error {
	// #nosec G204 -- the editor comes from flags, config or $EDITOR.
	cmd := exec.Command(editor, filePath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func init() {
	editCmd.PersistentFlags().String("editor", "", "Editor to use (e.g. 'code', 'vim', 'notepad'). Overrides config and $EDITOR.")
	editCmd.AddCommand(editConfigCmd, editLinksCmd)
}
