package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/timeline"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

// listParam collects a repeatable, comma-separated query parameter
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewValidationError("invalid " + name + " parameter")
	}
	return v, nil
}

func dateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := entities.ParseDate(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid " + name + " parameter: " + err.Error())
	}
	return &d.Time, nil
}

// timelineFilter parses type, significance, from and to
func timelineFilter(r *http.Request) (services.TimelineFilter, error) {
	var filter services.TimelineFilter
	for _, t := range listParam(r, "type") {
		filter.Types = append(filter.Types, entities.EventType(t))
	}
	for _, s := range listParam(r, "significance") {
		sig := entities.Significance(s)
		if !sig.Valid() {
			return filter, apperrors.NewValidationError("invalid significance " + strconv.Quote(s))
		}
		filter.Significances = append(filter.Significances, sig)
	}

	var err error
	if filter.From, err = dateParam(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = dateParam(r, "to"); err != nil {
		return filter, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, apperrors.NewValidationError("to must not be before from")
	}
	return filter, nil
}

// transformParam parses k, x and y. A missing k is the identity scale.
func transformParam(r *http.Request) (timeline.Transform, error) {
	k, err := floatParam(r, "k", 1)
	if err != nil {
		return timeline.Transform{}, err
	}
	x, err := floatParam(r, "x", 0)
	if err != nil {
		return timeline.Transform{}, err
	}
	y, err := floatParam(r, "y", 0)
	if err != nil {
		return timeline.Transform{}, err
	}
	return timeline.Transform{K: timeline.ClampScale(k), X: x, Y: y}, nil
}
