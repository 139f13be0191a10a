// Package resolver implements the dependency resolver (§4.4): it runs
// once the scheduler finds every lane stopped with at least one
// blocked on a structured change request, applies the union of those
// requests in a shared resolution worktree, commits and pushes the
// result to the pipeline branch, and folds that branch back onto each
// active lane's task branch.
package resolver
