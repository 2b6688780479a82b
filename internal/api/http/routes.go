package httpapi

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-diary/internal/archive"
	"github.com/i474232898/weather-diary/internal/lookup"
	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

var validate = validator.New()

// maxRangeDays bounds a single range request.
const maxRangeDays = 366 * 5

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *archive.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/observations/:date", func(c *fiber.Ctx) error {
		q := observationQuery{
			Date:      c.Params("date"),
			Partition: c.Query("partition", string(lookup.StrategyMaster)),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		date, _ := weather.ParseDate(q.Date)
		fields, found, err := service.Lookup(date, lookup.Strategy(q.Partition))
		if err != nil {
			return lookupError(err)
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "no observation for requested date")
		}

		return c.JSON(fiber.Map{
			"date":      q.Date,
			"partition": q.Partition,
			"fields":    fields,
		})
	})

	v1.Get("/observations", func(c *fiber.Ctx) error {
		q := rangeQuery{
			From:      c.Query("from"),
			To:        c.Query("to"),
			Partition: c.Query("partition", string(lookup.StrategyMaster)),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		from, _ := weather.ParseDate(q.From)
		to, _ := weather.ParseDate(q.To)
		if to.Before(from) {
			return fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
		}
		if n, _ := weather.DaysBetween(q.From, q.To); n > maxRangeDays {
			return fiber.NewError(fiber.StatusBadRequest, "range too large")
		}

		days, err := service.Range(from, to, lookup.Strategy(q.Partition))
		if err != nil {
			return lookupError(err)
		}

		return c.JSON(fiber.Map{
			"from":      q.From,
			"to":        q.To,
			"partition": q.Partition,
			"days":      days,
		})
	})

	v1.Get("/stats", func(c *fiber.Ctx) error {
		columns := splitColumns(c.Query("columns"))
		if len(columns) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "columns query parameter is required")
		}

		table, err := service.Table()
		if err != nil {
			return lookupError(err)
		}
		if f := c.Query("fahrenheit"); f != "" {
			if table, err = table.WithFahrenheit(f, f+"_f"); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		stats, err := table.FillForward().Describe(columns...)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"stats": stats})
	})

	v1.Get("/stats/monthly", func(c *fiber.Ctx) error {
		columns := splitColumns(c.Query("columns"))
		if len(columns) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "columns query parameter is required")
		}

		table, err := service.Table()
		if err != nil {
			return lookupError(err)
		}

		means, err := table.MonthlyMeans(weather.MasterColumns[0], columns...)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"months": means})
	})

	v1.Post("/partitions", func(c *fiber.Ctx) error {
		report, err := service.Partition()
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(report)
	})

	v1.Post("/scrape", func(c *fiber.Ctx) error {
		q := scrapeQuery{From: c.Query("from"), To: c.Query("to")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		from, _ := weather.ParseMonth(q.From)
		to, _ := weather.ParseMonth(q.To)
		if from.After(to) {
			return fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
		}

		report, err := service.Refresh(c.UserContext(), from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "scrape failed: "+err.Error())
		}
		return c.JSON(report)
	})
}

// observationQuery holds the parameters of a single-date lookup.
type observationQuery struct {
	Date      string `validate:"required,datetime=2006-01-02"`
	Partition string `validate:"oneof=master year week split"`
}

// rangeQuery holds the parameters of a date range request.
type rangeQuery struct {
	From      string `validate:"required,datetime=2006-01-02"`
	To        string `validate:"required,datetime=2006-01-02"`
	Partition string `validate:"oneof=master year week split"`
}

// scrapeQuery holds the month range of a scrape request.
type scrapeQuery struct {
	From string `validate:"required,datetime=2006-01"`
	To   string `validate:"required,datetime=2006-01"`
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// lookupError maps archive errors onto HTTP statuses.
func lookupError(err error) error {
	var perr *store.ParseError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fiber.NewError(fiber.StatusServiceUnavailable, "weather archive not available: "+err.Error())
	case errors.Is(err, lookup.ErrDesync), errors.As(err, &perr):
		return fiber.NewError(fiber.StatusInternalServerError, "weather archive is corrupt: "+err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read weather archive")
	}
}
