package api

import (
	"context"
	"errors"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/rpc"
	"go.uber.org/zap"
)

func (r *Router) getAll(ctx context.Context, _ rpc.Void) ([]tourhub.DownloadRecord, error) {
	records, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []tourhub.DownloadRecord{}
	}
	return records, nil
}

func (r *Router) addURL(ctx context.Context, in tourhub.NewDownload) (tourhub.DownloadRecord, error) {
	rec, err := r.store.Add(ctx, in)
	if err != nil {
		return tourhub.DownloadRecord{}, err
	}
	r.logger.Info("download added", zap.String("id", rec.ID), zap.String("url", rec.DownloadURL))
	return rec, nil
}

func (r *Router) removeURL(ctx context.Context, in tourhub.RecordRef) (tourhub.SuccessResult, error) {
	if err := r.store.Remove(ctx, in.ID); err != nil {
		if errors.Is(err, tourhub.ErrNotFound) {
			return tourhub.SuccessResult{}, rpc.WrapError(rpc.CodeNotFound, "Download not found", err)
		}
		return tourhub.SuccessResult{}, err
	}
	r.logger.Info("download removed", zap.String("id", in.ID))
	return tourhub.SuccessResult{Success: true}, nil
}
