package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbraun92/strava-mcp/internal/strava"
)

const (
	defaultPage    = 1
	defaultPerPage = 30
	maxPerPage     = 200
)

// validate reports parameter violations before any network call. Field names
// in messages use the JSON parameter names the host sent.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// pageArgs are the shared parameters of the paginated list tools. Pointers
// distinguish an absent parameter (default applies) from an explicit zero
// (rejected).
type pageArgs struct {
	PerPage *int `json:"per_page" validate:"omitnil,min=1,max=200"`
	Page    *int `json:"page" validate:"omitnil,min=1"`
}

func (a pageArgs) resolve() (page, perPage int) {
	page, perPage = defaultPage, defaultPerPage
	if a.Page != nil {
		page = *a.Page
	}
	if a.PerPage != nil {
		perPage = *a.PerPage
	}
	return page, perPage
}

type activityArgs struct {
	ActivityID int64 `json:"activity_id" validate:"required,gt=0"`
}

type statsArgs struct {
	AthleteID int64 `json:"athlete_id" validate:"required,gt=0"`
}

// decodeArgs unmarshals and validates tool arguments. Absent arguments are
// treated as an empty object; unrecognized fields are discarded.
func decodeArgs(args json.RawMessage, into any) error {
	if len(args) > 0 {
		if err := json.Unmarshal(args, into); err != nil {
			return &ValidationError{Message: "arguments must be a JSON object"}
		}
	}

	if err := validate.Struct(into); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Message: describeViolation(verrs[0])}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gt":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), minimumFor(fe))
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func minimumFor(fe validator.FieldError) string {
	if fe.Tag() == "gt" {
		return "1"
	}
	return fe.Param()
}

// pingResult is the fixed acknowledgement of the ping tool.
type pingResult struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// NewStravaTools builds the bridge's tool set on top of the given client.
func NewStravaTools(client *strava.Client) []Tool {
	return []Tool{
		pingTool(),
		activitiesTool(client),
		activityTool(client),
		athleteTool(client),
		statsTool(client),
		routesTool(client),
	}
}

func pingTool() Tool {
	return Tool{
		Definition: Definition{
			Name:        "ping",
			Description: "Check that the Strava bridge is alive. Performs no upstream call.",
			InputSchema: InputSchema{Type: "object"},
		},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return pingResult{Status: "ok", Service: "strava-mcp"}, nil
		},
	}
}

func activitiesTool(client *strava.Client) Tool {
	return Tool{
		Definition: Definition{
			Name:        "get_activities",
			Description: "List the authenticated athlete's recent activities, most recent first, with distance, time, elevation, speed and heart rate metrics.",
			InputSchema: paginatedSchema(),
		},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in pageArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			page, perPage := in.resolve()
			return client.ListActivities(ctx, page, perPage)
		},
	}
}

func activityTool(client *strava.Client) Tool {
	return Tool{
		Definition: Definition{
			Name:        "get_activity",
			Description: "Get one activity by id with extended detail fields (description, calories, device).",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"activity_id": {
						Type:        "integer",
						Description: "Strava activity id",
						Minimum:     intPtr(1),
					},
				},
				Required: []string{"activity_id"},
			},
		},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in activityArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			return client.GetActivity(ctx, in.ActivityID)
		},
	}
}

func athleteTool(client *strava.Client) Tool {
	return Tool{
		Definition: Definition{
			Name:        "get_athlete",
			Description: "Get the authenticated athlete's profile (name, location, measurement preference).",
			InputSchema: InputSchema{Type: "object"},
		},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return client.GetAthlete(ctx)
		},
	}
}

func statsTool(client *strava.Client) Tool {
	return Tool{
		Definition: Definition{
			Name:        "get_athlete_stats",
			Description: "Get aggregated ride/run/swim totals (recent, year-to-date, all-time) for the authenticated athlete. The athlete_id must match the authenticated athlete.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"athlete_id": {
						Type:        "integer",
						Description: "Strava athlete id of the authenticated athlete",
						Minimum:     intPtr(1),
					},
				},
				Required: []string{"athlete_id"},
			},
		},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in statsArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			return client.GetAthleteStats(ctx, in.AthleteID)
		},
	}
}

func routesTool(client *strava.Client) Tool {
	return Tool{
		Definition: Definition{
			Name:        "get_routes",
			Description: "List the authenticated athlete's saved routes with distance and elevation.",
			InputSchema: paginatedSchema(),
		},
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in pageArgs
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			page, perPage := in.resolve()
			return client.ListRoutes(ctx, page, perPage)
		},
	}
}

func paginatedSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"per_page": {
				Type:        "integer",
				Description: "Results per page",
				Minimum:     intPtr(1),
				Maximum:     intPtr(maxPerPage),
				Default:     defaultPerPage,
			},
			"page": {
				Type:        "integer",
				Description: "Page number",
				Minimum:     intPtr(1),
				Default:     defaultPage,
			},
		},
	}
}

func intPtr(v int) *int {
	return &v
}
