package systemRoutes

import (
	"context"
	"sort"
	"time"

	"lms/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouteInfo is one entry of the route manifest.
type RouteInfo struct {
	Name   string `json:"name,omitempty"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// SetupSystemRoutes registers /health and the /api/routes manifest. Call it after every
// other router so the manifest is complete.
func SetupSystemRoutes(app *fiber.App, checks map[string]HealthCheck) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		status := fiber.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		return middleware.JsonResponse(c, status, status == fiber.StatusOK, "Health check", results)
	}).Name("health")

	app.Get("/api/routes", func(c *fiber.Ctx) error {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Routes fetched successfully!", RouteManifest(app))
	}).Name("api.routes")
}

// RouteManifest lists every registered route except HEAD, sorted by path then method.
func RouteManifest(app *fiber.App) []RouteInfo {
	routes := lo.FilterMap(app.GetRoutes(true), func(r fiber.Route, _ int) (RouteInfo, bool) {
		return RouteInfo{Name: r.Name, Method: r.Method, Path: r.Path}, r.Method != fiber.MethodHead
	})
	routes = lo.UniqBy(routes, func(r RouteInfo) string { return r.Method + " " + r.Path })
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}
