package compliance

import "errors"

var (
	ErrMissingFetcher     = errors.New("compliance: fetcher not configured")
	ErrUnknownSurface     = errors.New("compliance: unknown surface")
	ErrUnknownDimension   = errors.New("compliance: unknown filter dimension")
	ErrFilterNotMounted   = errors.New("compliance: filter control not mounted on surface")
	ErrMissingWorkspaceID = errors.New("compliance: workspace id is required")
)
