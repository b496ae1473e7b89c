package client

import (
	"context"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
)

// Notifications lists the command-center notifications.
func (c *Client) Notifications(ctx context.Context) ([]tourhub.Notification, error) {
	return rpc.Call[[]tourhub.Notification](ctx, c.rpc, "commandCenter.getNotifications", nil)
}

// Availability lists bookable meeting slots.
func (c *Client) Availability(ctx context.Context) ([]tourhub.TimeSlot, error) {
	return rpc.Call[[]tourhub.TimeSlot](ctx, c.rpc, "commandCenter.getAvailability", nil)
}

func (c *Client) BookMeeting(ctx context.Context, in tourhub.BookMeetingInput) (tourhub.BookMeetingResult, error) {
	return rpc.Mutate[tourhub.BookMeetingResult](ctx, c.rpc, "commandCenter.bookMeeting", in)
}

func (c *Client) UpdateProfile(ctx context.Context, in tourhub.ProfileInput) (tourhub.ProfileResult, error) {
	return rpc.Mutate[tourhub.ProfileResult](ctx, c.rpc, "commandCenter.updateProfile", in)
}

func (c *Client) ResetPassword(ctx context.Context, email string) (tourhub.MessageResult, error) {
	return rpc.Mutate[tourhub.MessageResult](ctx, c.rpc, "commandCenter.resetPassword", tourhub.ResetPasswordInput{Email: email})
}

func (c *Client) SubmitOrder(ctx context.Context, in tourhub.OrderInput) (tourhub.OrderResult, error) {
	return rpc.Mutate[tourhub.OrderResult](ctx, c.rpc, "commandCenter.submitOrder", in)
}

// Hi calls the server's health probe.
func (c *Client) Hi(ctx context.Context, name string) (tourhub.Greeting, error) {
	return rpc.Call[tourhub.Greeting](ctx, c.rpc, "example.hi", tourhub.GreetingInput{Name: name})
}
