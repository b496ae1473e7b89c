package cmd

import (
	"fmt"
	"io"
	"strings"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/spf13/cobra"
)

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post.",
	Long: `Likes a post. Liking a post twice has no further effect. With --toggle,
the like is flipped instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if toggle, _ := cmd.Flags().GetBool("toggle"); toggle {
			post, err := appClient.Interactions(ctx, args[0])
			if err != nil {
				return err
			}
			snap, err := post.ToggleLike(ctx)
			if err != nil {
				return err
			}
			printLikes(args[0], snap.IsLiked, snap.LikeCount)
			return nil
		}

		res, err := appClient.Like(ctx, args[0])
		if err != nil {
			return err
		}
		printLikes(args[0], res.IsLiked, res.LikeCount)
		return nil
	},
}

var unlikeCmd = &cobra.Command{
	Use:   "unlike <post-id>",
	Short: "Remove your like from a post.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := appClient.Unlike(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !res.Success {
			console.Warn("You had not liked %s", args[0])
		}
		printLikes(args[0], res.IsLiked, res.LikeCount)
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>...",
	Short: "Comment on a post.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := appClient.AddComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			reportRPCError("Could not add comment", err)
			return fmt.Errorf("comment rejected")
		}
		console.Success("Comment added as %s (%d comments)", res.Comment.Username, res.CommentCount)
		return nil
	},
}

var interactionsCmd = &cobra.Command{
	Use:   "interactions <post-id>",
	Short: "Show likes and comments of a post.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := appClient.GetInteractions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printInteractions(cmd.OutOrStdout(), in)
		return nil
	},
}

func printLikes(postID string, liked bool, count int) {
	if liked {
		console.Success("You like %s (%d likes)", postID, count)
		return
	}
	console.Info("You do not like %s (%d likes)", postID, count)
}

func printInteractions(w io.Writer, in tourhub.Interactions) {
	liked := ""
	if in.IsLiked {
		liked = ", including yours"
	}
	fmt.Fprintf(w, "%d likes%s, %d comments\n", in.LikeCount, liked, in.CommentCount)
	for _, c := range in.Comments {
		fmt.Fprintf(w, "  %s %s\n    %s\n",
			console.Bold.Sprint(c.Username),
			console.Gray.Sprint(c.CreatedAt.Local().Format("2006-01-02 15:04")),
			c.Text)
	}
}

func init() {
	likeCmd.Flags().Bool("toggle", false, "Unlike the post if you already like it")
}
