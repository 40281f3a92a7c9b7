package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lemonscanner/lemon-scanner/internal/catalog"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

func (s *Server) getBrands(c echo.Context) error {
	brands, err := s.catalog.Brands(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, brands)
}

func (s *Server) getModels(c echo.Context) error {
	models, err := s.catalog.Models(c.Request().Context(), c.Param("brand"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models)
}

func (s *Server) getKeywords(c echo.Context) error {
	keywords, err := s.catalog.Keywords(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, keywords)
}

// searchRecalls handles GET /api/recalls?brand&model&year&keyword.
func (s *Server) searchRecalls(c echo.Context) error {
	year, err := parseYear(c.QueryParam("year"))
	if err != nil {
		return err
	}
	views, err := s.catalog.Search(c.Request().Context(), catalog.SearchFilter{
		Brand:   c.QueryParam("brand"),
		Model:   c.QueryParam("model"),
		Year:    year,
		Keyword: c.QueryParam("keyword"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) compareModel(c echo.Context) error {
	stats, err := s.catalog.Compare(c.Request().Context(), c.QueryParam("brand"), c.QueryParam("model"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) getProfile(c echo.Context) error {
	profile, err := s.catalog.Profile(c.Request().Context(), c.QueryParam("brand"), c.QueryParam("model"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) getSummary(c echo.Context) error {
	summary, err := s.catalog.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) getRankings(c echo.Context) error {
	rankings, err := s.catalog.Rankings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rankings)
}

// searchNews handles GET /api/news?q=.
func (s *Server) searchNews(c echo.Context) error {
	if s.news == nil {
		return errors.Newf("news search is not configured").
			Component("httpapi").
			Category(errors.CategoryConfiguration).
			Build()
	}
	articles, err := s.news.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, articles)
}

// parseYear reads the year filter; empty and catalog.AllValue mean any year.
func parseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == catalog.AllValue {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 {
		return 0, errors.Newf("invalid year %q", raw).
			Component("httpapi").
			Category(errors.CategoryValidation).
			Build()
	}
	return year, nil
}
