package git

import (
	"context"
	"fmt"
)

// PushWithLease sets branch on remoteURL to newSHA, but only if the remote
// branch still points at expectedSHA. A rejected lease is classified as a
// ConcurrentModification wrapping ErrStaleRemoteInfo.
func PushWithLease(ctx context.Context, r *CommandRunner, remoteURL, branch, expectedSHA, newSHA string) error {
	ref := "refs/heads/" + branch
	_, err := r.RunCombined(ctx,
		"push", "--porcelain", "--no-verify",
		fmt.Sprintf("--force-with-lease=%s:%s", ref, expectedSHA),
		remoteURL,
		fmt.Sprintf("%s:%s", newSHA, ref),
	)
	if err != nil {
		return ClassifyTransportError(fmt.Sprintf("push %s", branch), err)
	}
	return nil
}
