package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"witwaves/internal/middleware"
	"witwaves/internal/models"
	"witwaves/internal/service"

	"github.com/gofiber/fiber/v2"
)

// actor returns the request context tagged with the authenticated user id.
// Only call it behind AuthRequired.
func actor(c *fiber.Ctx) (context.Context, string) {
	uid, _ := middleware.UserID(c)
	return middleware.WithUserID(c.UserContext(), uid), uid
}

// formFields turns a urlencoded, multipart or JSON body into a field set.
// JSON arrays become comma-joined values and JSON objects are flattened to
// "name.key" entries, matching what an HTML form would submit.
func formFields(c *fiber.Ctx) (service.Fields, error) {
	fields := service.Fields{}
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(ct, fiber.MIMEApplicationJSON):
		if len(c.Body()) == 0 {
			return fields, nil
		}
		var raw map[string]any
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return nil, models.NewValidationError("Invalid request body")
		}
		for name, v := range raw {
			flattenJSON(fields, name, v)
		}
	case strings.HasPrefix(ct, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, models.NewValidationError("Invalid form body")
		}
		for name, values := range form.Value {
			if len(values) > 0 {
				fields[name] = values[0]
			}
		}
	default:
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			fields[string(k)] = string(v)
		})
	}
	return fields, nil
}

func flattenJSON(fields service.Fields, name string, v any) {
	switch val := v.(type) {
	case nil:
	case string:
		fields[name] = val
	case bool:
		fields[name] = strconv.FormatBool(val)
	case float64:
		fields[name] = strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		fields[name] = strings.Join(parts, ",")
	case map[string]any:
		for k, inner := range val {
			flattenJSON(fields, name+"."+k, inner)
		}
	default:
		fields[name] = fmt.Sprint(val)
	}
}

// respondResult writes an action result with the status its code maps to.
func respondResult(c *fiber.Ctx, res service.ActionResult) error {
	status := fiber.StatusOK
	if !res.Success {
		status = models.StatusFor(&models.AppError{Code: res.Code})
	}
	return c.Status(status).JSON(res)
}

// withFields parses the body and runs an action over it.
func withFields(c *fiber.Ctx, run func(ctx context.Context, uid string, f service.Fields) service.ActionResult) error {
	f, err := formFields(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	ctx, uid := actor(c)
	return respondResult(c, run(ctx, uid, f))
}

// archiveMonth reads the :year and :month params. The URL month is 1-12;
// the returned month is zero-indexed.
func archiveMonth(c *fiber.Ctx) (int, int, error) {
	year, err := c.ParamsInt("year")
	if err != nil || year <= 0 {
		return 0, 0, models.NewValidationError("Invalid year")
	}
	month, err := c.ParamsInt("month")
	if err != nil {
		return 0, 0, models.NewValidationError("Invalid month")
	}
	return year, month - 1, nil
}
