package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/pathfinder/internal/catalog"
	"github.com/mohammad-safakhou/pathfinder/models"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type EventsHandler struct {
	Catalog catalog.Store
}

func (h *EventsHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/stats", h.stats)
}

// List events
//
//	@Summary	Catalog events, newest first, or by relevance when q is set
//	@Tags		events
//	@Produce	json
//	@Param		event_type	query		string	false	"hackathon, conference, meetup, expo, workshop or unknown"
//	@Param		limit		query		int		false	"1 to 100, default 10"
//	@Param		q			query		string	false	"full-text query"
//	@Success	200			{object}	EventsResponse
//	@Failure	400			{object}	HTTPError
//	@Router		/api/events [get]
func (h *EventsHandler) list(c echo.Context) error {
	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
		}
		limit = n
	}
	var typeFilter models.EventType
	if raw := strings.TrimSpace(c.QueryParam("event_type")); raw != "" {
		typeFilter = models.ParseEventType(raw)
		if typeFilter == models.EventUnknown && !strings.EqualFold(raw, models.Unknown) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown event_type: "+raw)
		}
	}

	records, err := h.Catalog.Load(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if typeFilter != "" {
		filtered := records[:0:0]
		for _, r := range records {
			if r.EventType == typeFilter {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		records, err = search(records, q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "query: "+err.Error())
		}
	} else {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].ProcessedAt.After(records[j].ProcessedAt)
		})
	}

	resp := EventsResponse{Total: len(records), Events: records}
	if len(resp.Events) > limit {
		resp.Events = resp.Events[:limit]
	}
	if resp.Events == nil {
		resp.Events = []models.EventRecord{}
	}
	return c.JSON(http.StatusOK, resp)
}

// search ranks records with a throwaway full-text index.
func search(records []models.EventRecord, q string) ([]models.EventRecord, error) {
	idx, err := catalog.NewIndex(records)
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	urls, err := idx.Search(q, maxLimit)
	if err != nil {
		return nil, err
	}
	bySource := make(map[string]models.EventRecord, len(records))
	for _, r := range records {
		bySource[r.SourceURL] = r
	}
	out := make([]models.EventRecord, 0, len(urls))
	for _, u := range urls {
		if r, ok := bySource[u]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Stats
//
//	@Summary	Catalog totals by event type and mode
//	@Tags		events
//	@Produce	json
//	@Success	200	{object}	StatsResponse
//	@Router		/api/events/stats [get]
func (h *EventsHandler) stats(c echo.Context) error {
	records, err := h.Catalog.Load(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := StatsResponse{TotalEvents: len(records), ByType: map[string]int{}, ByMode: map[string]int{}}
	for _, r := range records {
		resp.ByType[string(r.EventType)]++
		resp.ByMode[string(r.Mode)]++
		if r.ProcessedAt.IsZero() {
			continue
		}
		if resp.LatestProcessedAt == nil || r.ProcessedAt.After(*resp.LatestProcessedAt) {
			t := r.ProcessedAt
			resp.LatestProcessedAt = &t
		}
	}
	return c.JSON(http.StatusOK, resp)
}
