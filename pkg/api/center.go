package api

import (
	"context"
	"fmt"
	"time"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"go.uber.org/zap"
)

// Simulated processing time of the command-center mutations.
const (
	bookMeetingDelay   = 500 * time.Millisecond
	updateProfileDelay = 500 * time.Millisecond
	resetPasswordDelay = 1000 * time.Millisecond
	submitOrderDelay   = 800 * time.Millisecond
)

// slotAvailability is the probability that a generated slot is free.
const slotAvailability = 0.7

func (r *Router) getNotifications(_ context.Context, _ rpc.Void) ([]tourhub.Notification, error) {
	now := r.clock.Now()
	r.logger.Debug("fetching notifications")
	return []tourhub.Notification{
		{ID: "1", Title: "New Property Available", Body: "A new luxury listing has been added to your area", Timestamp: now.Add(-30 * time.Minute)},
		{ID: "2", Title: "Tour Completed", Body: "Your virtual tour for 123 Main St has been processed", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "3", Title: "Meeting Reminder", Body: "You have a meeting scheduled tomorrow at 2:00 PM", Timestamp: now.Add(-24 * time.Hour)},
		{ID: "4", Title: "Order Update", Body: "Your photo shoot order is ready for review", Timestamp: now.Add(-48 * time.Hour)},
	}, nil
}

// getAvailability lists slots for each of the next SlotDays days, starting tomorrow.
func (r *Router) getAvailability(_ context.Context, _ rpc.Void) ([]tourhub.TimeSlot, error) {
	today := r.clock.Now().UTC()
	slots := make([]tourhub.TimeSlot, 0, tourhub.SlotDays*len(tourhub.SlotTimes))
	for day := 1; day <= tourhub.SlotDays; day++ {
		date := today.AddDate(0, 0, day).Format(time.DateOnly)
		for _, t := range tourhub.SlotTimes {
			slots = append(slots, tourhub.TimeSlot{
				ID:        date + "-" + t,
				Date:      date,
				Time:      t,
				Available: r.float64() < slotAvailability,
			})
		}
	}
	return slots, nil
}

func (r *Router) bookMeeting(ctx context.Context, in tourhub.BookMeetingInput) (tourhub.BookMeetingResult, error) {
	r.logger.Info("booking meeting", zap.String("slot", in.SlotID))
	if err := r.simulate(ctx, bookMeetingDelay); err != nil {
		return tourhub.BookMeetingResult{}, err
	}
	return tourhub.BookMeetingResult{
		Success:        true,
		Message:        fmt.Sprintf("Meeting booked successfully for %s at %s", in.Date, in.Time),
		ConfirmationID: fmt.Sprintf("CONF-%d", r.clock.Now().UnixMilli()),
	}, nil
}

func (r *Router) updateProfile(ctx context.Context, in tourhub.ProfileInput) (tourhub.ProfileResult, error) {
	r.logger.Info("updating profile", zap.String("actor", rpc.Actor(ctx)))
	if err := r.simulate(ctx, updateProfileDelay); err != nil {
		return tourhub.ProfileResult{}, err
	}
	return tourhub.ProfileResult{Success: true, Message: "Profile updated successfully", Data: in}, nil
}

func (r *Router) resetPassword(ctx context.Context, in tourhub.ResetPasswordInput) (tourhub.MessageResult, error) {
	r.logger.Info("password reset requested")
	if err := r.simulate(ctx, resetPasswordDelay); err != nil {
		return tourhub.MessageResult{}, err
	}
	return tourhub.MessageResult{
		Success: true,
		Message: "Password reset instructions have been sent to your email",
	}, nil
}

func (r *Router) submitOrder(ctx context.Context, in tourhub.OrderInput) (tourhub.OrderResult, error) {
	r.logger.Info("submitting order", zap.String("product", in.ProductType))
	if err := r.simulate(ctx, submitOrderDelay); err != nil {
		return tourhub.OrderResult{}, err
	}
	return tourhub.OrderResult{
		Success: true,
		Message: "Order submitted successfully! We'll contact you shortly.",
		OrderID: fmt.Sprintf("ORD-%d", r.clock.Now().UnixMilli()),
		Data:    in,
	}, nil
}
