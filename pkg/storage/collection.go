package storage

import (
	"time"
)

type CollectionState int

const (
	CollectionStateUnloaded CollectionState = iota
	CollectionStateLoading
	CollectionStateLoaded
	CollectionStateDirty
)

func (s CollectionState) String() string {
	switch s {
	case CollectionStateUnloaded:
		return "unloaded"
	case CollectionStateLoading:
		return "loading"
	case CollectionStateLoaded:
		return "loaded"
	case CollectionStateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

type CollectionInfo struct {
	Name          string
	DocumentCount int64
	SizeOnDisk    int64
	LastModified  time.Time
	State         CollectionState
	AccessCount   int64
	LastAccessed  time.Time
	// Version increases on every change and lets a save detect writes that
	// happened while it was running.
	Version int64
}
