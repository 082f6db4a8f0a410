package admin

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/maze"
	"github.com/sudo-init-do/dailymaze/internal/middleware"
)

type MazeView struct {
	domain.DailyMaze
	PrizePoolUSD string   `json:"prize_pool_usd"`
	ShortestPath int      `json:"shortest_path"`
	Rendered     []string `json:"rendered"`
}

// GET /admin/mazes/:day
func (h *Handler) Maze(c echo.Context) error {
	day, err := domain.ParseDay(c.Param("day"))
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	m, err := h.store.DailyMaze(c.Request().Context(), day)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, MazeView{
		DailyMaze:    m,
		PrizePoolUSD: m.PrizePool.StringFixed(2),
		ShortestPath: maze.ShortestPath(m.Layout),
		Rendered:     strings.Split(strings.TrimRight(maze.Render(m.Layout), "\n"), "\n"),
	})
}

// POST /admin/settlements/:day
func (h *Handler) Settle(c echo.Context) error {
	day, err := domain.ParseDay(c.Param("day"))
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}

	res, err := h.settler.Settle(c.Request().Context(), day)
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	h.log.Info("manual settlement", "day", day, "outcome", res.Outcome, "by", c.Get(middleware.KeyUsername))
	return c.JSON(http.StatusOK, res)
}

// POST /admin/settlements/recover
func (h *Handler) Recover(c echo.Context) error {
	results, err := h.settler.Recover(c.Request().Context())
	if err != nil {
		return middleware.WriteError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"settled": results})
}
