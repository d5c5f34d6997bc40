// Package engine rebases a pull request onto its base branch.
//
// A run moves through Validating, Preparing, Rebasing and Pushing and ends in
// Done, Conflicted or Failed. The forge is read before anything is fetched,
// the rebase happens in a throwaway workspace, and the head branch is only
// written by a lease-protected push after the base has been checked again.
// The workspace is removed exactly once whichever way the run ends.
package engine
