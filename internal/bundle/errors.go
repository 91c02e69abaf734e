package bundle

import "cgrengine/internal/cgrerr"

func errBadArgument(msg string) error { return cgrerr.New(cgrerr.BadArgument, msg) }
