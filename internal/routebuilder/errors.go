package routebuilder

import "cgrengine/internal/cgrerr"

func errNotFound(msg string) error    { return cgrerr.New(cgrerr.NotFound, msg) }
func errNoRoute(msg string) error     { return cgrerr.New(cgrerr.NoRoute, msg) }
func errPlanMissing(msg string) error { return cgrerr.New(cgrerr.PlanMissing, msg) }
