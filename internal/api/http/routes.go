package httpapi

import (
	"errors"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weatherwise/weatherwise/internal/auth"
	"github.com/weatherwise/weatherwise/internal/favorites"
	"github.com/weatherwise/weatherwise/internal/recents"
	"github.com/weatherwise/weatherwise/internal/session"
	"github.com/weatherwise/weatherwise/internal/upstream"
	"github.com/weatherwise/weatherwise/internal/weather"
)

var validate = validator.New()

// Deps bundles the stores and services the HTTP surface needs. They are
// constructed once at startup and passed in explicitly.
type Deps struct {
	Auth      *auth.Manager
	Sessions  *session.Store
	Weather   *weather.Service
	Favorites *favorites.Registry
	Recents   *recents.Registry

	// DefaultLocation is served when a request names no location.
	DefaultLocation string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api")

	registerAuthRoutes(api, deps)
	registerWeatherRoutes(api, deps)
	registerFavoritesRoutes(api, deps)
	registerRecentsRoutes(api, deps)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func registerAuthRoutes(api fiber.Router, deps Deps) {
	api.Post("/auth/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		user, err := deps.Auth.Login(c.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
			}
			return fiber.NewError(fiber.StatusBadGateway, "login failed; try again later")
		}

		return c.JSON(fiber.Map{"user": user})
	})

	api.Post("/auth/register", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		user, err := deps.Auth.Register(c.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				return fiber.NewError(fiber.StatusConflict, "user already exists")
			}
			return fiber.NewError(fiber.StatusBadGateway, "registration failed; try again later")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
	})

	api.Post("/auth/logout", func(c *fiber.Ctx) error {
		if err := deps.Auth.Logout(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear session")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Get("/auth/session", func(c *fiber.Ctx) error {
		user := deps.Sessions.CurrentUser()
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "not logged in")
		}
		return c.JSON(fiber.Map{
			"user":  user,
			"state": deps.Auth.State().String(),
		})
	})
}

type coordinatesQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func registerWeatherRoutes(api fiber.Router, deps Deps) {
	api.Get("/weather/current", func(c *fiber.Ctx) error {
		location := c.Query("location")
		if location == "" {
			// Geolocation denied or unavailable on the client side.
			location = deps.DefaultLocation
		}

		data, err := deps.Weather.Current(c.Context(), location)
		if err != nil {
			return mapWeatherError(err)
		}

		// Viewing a location records it as recent.
		if err := deps.Recents.Add(data.Location); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to record recent location")
		}

		data.IsFavorite = deps.Favorites.Contains(data.Location)
		return c.JSON(data)
	})

	api.Get("/weather/coordinates", func(c *fiber.Ctx) error {
		q, err := parseCoordinates(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		data, err := deps.Weather.ByCoordinates(c.Context(), q.Lat, q.Lon)
		if err != nil {
			return mapWeatherError(err)
		}

		if err := deps.Recents.Add(data.Location); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to record recent location")
		}

		data.IsFavorite = deps.Favorites.Contains(data.Location)
		return c.JSON(data)
	})

	api.Get("/weather/search", func(c *fiber.Ctx) error {
		query := c.Query("query")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "query parameter is required")
		}

		results, err := deps.Weather.Search(c.Context(), query)
		if err != nil {
			return mapWeatherError(err)
		}

		for i := range results {
			results[i].IsFavorite = deps.Favorites.Contains(results[i].Location)
		}
		return c.JSON(fiber.Map{"results": results})
	})
}

func registerFavoritesRoutes(api fiber.Router, deps Deps) {
	api.Get("/favorites", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"favorites": deps.Favorites.List()})
	})

	api.Put("/favorites/:location", func(c *fiber.Ctx) error {
		location, err := pathLocation(c)
		if err != nil {
			return err
		}
		if err := deps.Favorites.Add(location); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save favorites")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Delete("/favorites/:location", func(c *fiber.Ctx) error {
		location, err := pathLocation(c)
		if err != nil {
			return err
		}
		if err := deps.Favorites.Remove(location); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save favorites")
		}
		dropSnapshotIfUntracked(deps, location)
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Post("/favorites/:location/toggle", func(c *fiber.Ctx) error {
		location, err := pathLocation(c)
		if err != nil {
			return err
		}
		isFavorite, err := deps.Favorites.Toggle(location)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save favorites")
		}
		return c.JSON(fiber.Map{
			"location": location,
			"favorite": isFavorite,
		})
	})
}

func registerRecentsRoutes(api fiber.Router, deps Deps) {
	api.Get("/recents", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"recents": deps.Recents.List()})
	})

	api.Delete("/recents/:location", func(c *fiber.Ctx) error {
		location, err := pathLocation(c)
		if err != nil {
			return err
		}
		if err := deps.Recents.Remove(location); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save recents")
		}
		dropSnapshotIfUntracked(deps, location)
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Delete("/recents", func(c *fiber.Ctx) error {
		if err := deps.Recents.Clear(); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save recents")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// dropSnapshotIfUntracked evicts the cached snapshot once a location is on
// neither list, so the background refresh stops paying for it.
func dropSnapshotIfUntracked(deps Deps, location string) {
	if deps.Favorites.Contains(location) {
		return
	}
	if slices.Contains(deps.Recents.List(), location) {
		return
	}
	deps.Weather.Forget(location)
}

func pathLocation(c *fiber.Ctx) (string, error) {
	raw := c.Params("location")
	location, err := url.PathUnescape(raw)
	if err != nil || location == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid location")
	}
	return location, nil
}

func parseCoordinates(c *fiber.Ctx) (coordinatesQuery, error) {
	var q coordinatesQuery

	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, errors.New("invalid lon")
	}

	q.Lat = lat
	q.Lon = lon
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func mapWeatherError(err error) error {
	switch {
	case errors.Is(err, weather.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
	case errors.Is(err, upstream.ErrUnauthorized), errors.Is(err, auth.ErrSessionExpired):
		return fiber.NewError(fiber.StatusUnauthorized, "session expired; login required")
	default:
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
	}
}
