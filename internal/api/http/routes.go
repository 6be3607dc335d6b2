package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/clima/internal/weather"
)

var validate = validator.New()

// ReadService is the read side of weather.Service.
type ReadService interface {
	Latest(ctx context.Context) (weather.Reading, bool, error)
	History(ctx context.Context, from, to time.Time) ([]weather.Reading, error)
	Location() *time.Location
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service ReadService) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP"})
	})

	app.Get("/weather/latest", func(c *fiber.Ctx) error {
		reading, ok, err := service.Latest(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(reading)
	})

	app.Get("/weather", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, service.Location()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings, err := service.History(c.UserContext(), req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}
		return c.JSON(readings)
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	FromRaw string    `validate:"required"`
	ToRaw   string    `validate:"required"`
	From    time.Time `validate:"-"`
	To      time.Time `validate:"-"`
}

func (h *historyQuery) bind(c *fiber.Ctx, loc *time.Location) error {
	h.FromRaw = c.Query("from")
	h.ToRaw = c.Query("to")
	if err := validate.Struct(h); err != nil {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(h.FromRaw, loc)
	if err != nil {
		return err
	}
	to, err := parseTime(h.ToRaw, loc)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// localLayouts are ISO-8601 datetimes without an offset; they are read in the
// operational time zone.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseTime accepts RFC3339 or an offset-less ISO-8601 datetime.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	// An unescaped '+' offset arrives as a space after query decoding.
	s = strings.Replace(strings.TrimSpace(s), " ", "+", 1)
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.New("invalid time format; use ISO-8601, e.g. 2024-06-01T15:00:00 or 2024-06-01T15:00:00-03:00")
}
