package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/disiqueira/gotree/v3"
	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete the local content of records, keeping them on the server.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := appClient.Refresh(cmd.Context()); err != nil {
			return err
		}
		for _, id := range args {
			if _, ok := appClient.Item(id); !ok {
				console.Warn("No download with id %s", id)
				continue
			}
			appClient.Delete(id)
			console.Success("Deleted local content of %s", id)
		}
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Open a downloaded tour.",
	Long: `Opens a downloaded record. Extracted tours are served on a local
address and opened in the browser; the command keeps serving until
interrupted. Other content is handed to the system's default application.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := appClient.Refresh(ctx); err != nil {
			return err
		}
		viewer, err := appClient.Open(ctx, args[0])
		switch {
		case errors.Is(err, tourhub.ErrNotDownloaded):
			return fmt.Errorf("%s is not downloaded yet. run 'tourhub download %s' first", args[0], args[0])
		case err != nil:
			return err
		case viewer == nil:
			console.Success("Opened %s", args[0])
			return nil
		}

		console.Success("Serving tour at %s", console.Bold.Sprint(viewer.URL))
		console.Info("Press Ctrl+C to stop.")
		select {
		case <-ctx.Done():
		case <-viewer.Done():
		}
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Show the files of an extracted tour.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := appClient.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if item.UnzippedPath == "" {
			return fmt.Errorf("%s has no extracted content", args[0])
		}
		out, err := renderTree(appClient.UnzippedDir(item.ID), item.IndexHTMLPath)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// fileTree renders paths relative to a root as a tree.
type fileTree struct {
	tree gotree.Tree
	dirs map[string]gotree.Tree
}

func newFileTree(rootLabel string) fileTree {
	return fileTree{tree: gotree.New(rootLabel), dirs: make(map[string]gotree.Tree)}
}

func (t fileTree) dir(dirPath string) gotree.Tree {
	if dirPath == "." {
		return t.tree
	}
	d, ok := t.dirs[dirPath]
	if !ok {
		d = t.dir(filepath.Dir(dirPath)).Add(filepath.Base(dirPath) + "/")
		t.dirs[dirPath] = d
	}
	return d
}

func (t fileTree) insert(relPath, prefix string) {
	t.dir(filepath.Dir(relPath)).Add(prefix + filepath.Base(relPath))
}

// renderTree lists the files under root. The entry point is marked with a star.
func renderTree(root, entryPoint string) (string, error) {
	t := newFileTree(root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		if d.IsDir() {
			t.dir(rel)
			return nil
		}
		prefix := ""
		if path == entryPoint {
			prefix = "* "
		}
		t.insert(rel, prefix)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", root, err)
	}
	return t.tree.Print(), nil
}
