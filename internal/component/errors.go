package component

import "errors"

var (
	ErrWatchOwned        = errors.New("watch already in a component")
	ErrAdapterOwned      = errors.New("adapter already in a watch")
	ErrPropertyRedefined = errors.New("property already defined")
	ErrUnknownProperty   = errors.New("unknown property")
	ErrTargetNotInScope  = errors.New("target not in scope")
	ErrChildOwned        = errors.New("component already has a parent")
	ErrNoEvaluator       = errors.New("no expression evaluator configured")
	ErrNotRendered       = errors.New("instance is not rendered")
)
