package engine

import "context"

// Engine is the family-agnostic surface cliutil drives: both RPMEngine
// and DebEngine implement it with identical method sets, differing only
// in how a coordinate path is interpreted and how metadata is rendered.
type Engine interface {
	Add(ctx context.Context, coordPath string, localPaths []string) (*AddResult, error)
	Remove(ctx context.Context, coordPath string, filenames []string) (*RemoveResult, error)
	Validate(ctx context.Context, coordPath string) ([]ValidationIssue, error)
}

var (
	_ Engine = (*RPMEngine)(nil)
	_ Engine = (*DebEngine)(nil)
)
