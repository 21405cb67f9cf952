package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/pathfinder/models"
)

type CrawlerHandler struct {
	Runner Runner
}

func (h *CrawlerHandler) Register(g *echo.Group) {
	g.POST("/discover", h.discover)
	g.POST("/extract", h.extract)
	g.POST("/run", h.run)
}

// runContext detaches a run from the request so a dropped client does not
// abort it half way.
func runContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

func statusCode(status string) int {
	if status == models.StatusSuccess {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// Discover
//
//	@Summary	Run discovery, or crawl the given URLs when the body lists any
//	@Tags		crawler
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		DiscoverRequest	false	"URLs to crawl"
//	@Success	200		{object}	engine.DiscoverySummary
//	@Router		/api/crawler/discover [post]
func (h *CrawlerHandler) discover(c echo.Context) error {
	var req DiscoverRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if len(req.URLs) > 0 {
		sum := h.Runner.CrawlURLs(runContext(c), req.URLs)
		return c.JSON(statusCode(sum.Status), sum)
	}
	sum := h.Runner.RunDiscovery(runContext(c))
	return c.JSON(statusCode(sum.Status), sum)
}

// Extract
//
//	@Summary	Extract events from every stored page not yet cataloged
//	@Tags		crawler
//	@Produce	json
//	@Success	200	{object}	engine.ExtractionSummary
//	@Router		/api/crawler/extract [post]
func (h *CrawlerHandler) extract(c echo.Context) error {
	sum := h.Runner.RunExtraction(runContext(c))
	return c.JSON(statusCode(sum.Status), sum)
}

func (h *CrawlerHandler) run(c echo.Context) error {
	sum := h.Runner.Run(runContext(c))
	return c.JSON(statusCode(sum.Status), sum)
}
