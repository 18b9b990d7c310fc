package cli

import (
	"context"
	"fmt"
)

const clipsPageSize = 20

// Clips prints one page of the gallery listing.
func (a *App) Clips(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}

	res, err := a.apiClient.ListClips(ctx, page, clipsPageSize)
	if err != nil {
		printlnFn("error:", err)
		return err
	}

	if len(res.Clips) == 0 {
		printlnFn("No clips on this page")
		return nil
	}

	for _, c := range res.Clips {
		printlnFn(fmt.Sprintf("%6d  %-30s  %-10s  %s", c.ID, c.Filename, c.ClipType, c.CreatedAt.Format("2006-01-02 15:04")))
	}
	printlnFn(fmt.Sprintf("page %d (%d clips total)", res.Page, res.Total))
	return nil
}
