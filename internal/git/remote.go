package git

import (
	"context"
	"fmt"
)

// FetchBranch fetches branch from remote into dest, overwriting dest
func FetchBranch(ctx context.Context, r *CommandRunner, remote, branch, dest string) error {
	refspec := fmt.Sprintf("+refs/heads/%s:%s", branch, dest)
	_, err := r.RunCombined(ctx, "fetch", "--quiet", "--no-tags", remote, refspec)
	if err != nil {
		return ClassifyTransportError(fmt.Sprintf("fetch %s", branch), err)
	}
	return nil
}
