package cmd

import (
	"fmt"
	"strings"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/spf13/cobra"
)

var centerCmd = &cobra.Command{
	Use:   "center",
	Short: "Command-center actions: notifications, meetings, profile and orders.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := appClient.Notifications(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, n := range notes {
			fmt.Fprintf(out, "%s  %s\n    %s\n",
				console.Gray.Sprint(n.Timestamp.Local().Format("2006-01-02 15:04")),
				console.Bold.Sprint(n.Title),
				n.Body)
		}
		return nil
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List meeting slots for the coming week.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		slots, err := appClient.Availability(cmd.Context())
		if err != nil {
			return err
		}
		showAll, _ := cmd.Flags().GetBool("all")
		out := cmd.OutOrStdout()
		for _, s := range slots {
			switch {
			case s.Available:
				fmt.Fprintf(out, "%s  %s\n", s.ID, console.Lime.Sprint("available"))
			case showAll:
				fmt.Fprintf(out, "%s  %s\n", s.ID, console.Gray.Sprint("taken"))
			}
		}
		return nil
	},
}

var bookCmd = &cobra.Command{
	Use:   `book <slot-id>`,
	Short: `Book a meeting slot, e.g. "2024-01-16-09:00 AM".`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseSlotID(strings.Join(args, " "))
		if err != nil {
			return err
		}
		res, err := appClient.BookMeeting(cmd.Context(), in)
		if err != nil {
			return err
		}
		console.Success("%s Confirmation: %s", res.Message, res.ConfirmationID)
		return nil
	},
}

// parseSlotID splits "<YYYY-MM-DD>-<time>" into a booking request.
func parseSlotID(id string) (tourhub.BookMeetingInput, error) {
	const dateLen = len("2006-01-02")
	if len(id) <= dateLen+1 || id[dateLen] != '-' {
		return tourhub.BookMeetingInput{}, fmt.Errorf("invalid slot id %q, expected \"YYYY-MM-DD-HH:MM AM\"", id)
	}
	return tourhub.BookMeetingInput{SlotID: id, Date: id[:dateLen], Time: id[dateLen+1:]}, nil
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your profile.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		res, err := appClient.UpdateProfile(cmd.Context(), tourhub.ProfileInput{Name: name, Email: email})
		if err != nil {
			reportRPCError("Could not update profile", err)
			return fmt.Errorf("profile rejected")
		}
		console.Success("%s (%s <%s>)", res.Message, res.Data.Name, res.Data.Email)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Request a password reset email.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := appClient.ResetPassword(cmd.Context(), args[0])
		if err != nil {
			reportRPCError("Could not request a reset", err)
			return fmt.Errorf("reset rejected")
		}
		console.Success("%s", res.Message)
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Order a virtual tour, photo or video shoot.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		product, _ := cmd.Flags().GetString("type")
		in := tourhub.OrderInput{ProductType: product}
		if cmd.Flags().Changed("images") {
			n, _ := cmd.Flags().GetInt("images")
			in.NumberOfImages = &n
		}
		in.ShootDate, _ = cmd.Flags().GetString("date")
		in.Comments, _ = cmd.Flags().GetString("comments")

		res, err := appClient.SubmitOrder(cmd.Context(), in)
		if err != nil {
			reportRPCError("Could not submit order", err)
			return fmt.Errorf("order rejected")
		}
		console.Success("%s Order: %s", res.Message, res.OrderID)
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping [name]",
	Short: "Check that the server is reachable.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		g, err := appClient.Hi(cmd.Context(), name)
		if err != nil {
			return err
		}
		console.Success("hello %s (server time %s)", g.Hello, g.Date.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	slotsCmd.Flags().Bool("all", false, "Also list slots that are taken")
	profileCmd.Flags().String("name", "", "Your name")
	profileCmd.Flags().String("email", "", "Your email address")
	orderCmd.Flags().String("type", tourhub.ProductVirtualTour,
		fmt.Sprintf("Product: %q, %q or %q", tourhub.ProductVirtualTour, tourhub.ProductPhotoShoot, tourhub.ProductVideoShoot))
	orderCmd.Flags().Int("images", 0, "Number of images")
	orderCmd.Flags().String("date", "", "Preferred shoot date (YYYY-MM-DD)")
	orderCmd.Flags().String("comments", "", "Notes for the shoot")

	centerCmd.AddCommand(notificationsCmd, slotsCmd, bookCmd, profileCmd, resetPasswordCmd, orderCmd)
}
