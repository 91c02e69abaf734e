package contactplan

import "cgrengine/internal/cgrerr"

func errBadArgument(msg string) error { return cgrerr.New(cgrerr.BadArgument, msg) }
func errNotFound(msg string) error    { return cgrerr.New(cgrerr.NotFound, msg) }
func errOverlap(msg string) error     { return cgrerr.New(cgrerr.Overlap, msg) }
