package engine

import "cgrengine/internal/cgrerr"

func errBadArgument(msg string) error { return cgrerr.New(cgrerr.BadArgument, msg) }
func errInternal(msg string) error    { return cgrerr.New(cgrerr.Internal, msg) }

// Return codes for GetBestRoutes, spec.md §4.8.
const (
	CodeNoOp            = 0
	CodeNoRoute         = -1
	CodeOutOfMemory     = -2
	CodePhase1ArgError  = -3
	CodeClockRegression = -5
)
