package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adaptive-coach/internal/readiness"
)

const (
	dateLayout      = "2006-01-02"
	localTimeLayout = "2006-01-02T15:04:05"

	// goalHorizon bounds how far ahead the next goal event is searched.
	goalHorizon = 365 * 24 * time.Hour
)

// goalCategories are the calendar event categories treated as goals.
var goalCategories = []string{"RACE_A", "RACE_B", "RACE_C"}

// IntervalsOptions parameterise the intervals.icu client.
type IntervalsOptions struct {
	BaseURL   string
	AthleteID string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	// Location interprets the API's local timestamps.
	Location *time.Location
}

// Intervals fetches wellness, fitness, activities and goal events from
// intervals.icu.
type Intervals struct {
	opts    IntervalsOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	loc     *time.Location
}

var _ Source = (*Intervals)(nil)

// NewIntervals constructs an intervals.icu client.
func NewIntervals(opts IntervalsOptions, logger zerolog.Logger) *Intervals {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://intervals.icu/api/v1"
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Intervals{
		opts:    opts,
		logger:  logger.With().Str("component", "intervals_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		loc:     loc,
	}
}

// FetchWellness retrieves wellness records between oldest and newest
// inclusive. Records failing validation are dropped with a warning.
func (c *Intervals) FetchWellness(ctx context.Context, oldest, newest time.Time) ([]readiness.WellnessRecord, error) {
	var payload []wellnessDTO
	query := url.Values{
		"oldest": {oldest.Format(dateLayout)},
		"newest": {newest.Format(dateLayout)},
	}
	if err := c.get(ctx, "/wellness", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch wellness: %w", err)
	}

	records := make([]readiness.WellnessRecord, 0, len(payload))
	for _, dto := range payload {
		rec, err := dto.record(c.loc)
		if err != nil {
			c.logger.Warn().Err(err).Str("day", dto.ID).Msg("dropping wellness record")
			continue
		}
		if err := validateWellness(rec); err != nil {
			c.logger.Warn().Err(err).Str("day", dto.ID).Msg("dropping invalid wellness record")
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records, nil
}

// FetchFitness retrieves the CTL/ATL of a single day.
func (c *Intervals) FetchFitness(ctx context.Context, day time.Time) (*readiness.FitnessMetrics, error) {
	var dto wellnessDTO
	if err := c.get(ctx, "/wellness/"+day.Format(dateLayout), nil, &dto); err != nil {
		return nil, fmt.Errorf("fetch fitness: %w", err)
	}
	if dto.CTL == nil || dto.ATL == nil {
		return nil, fmt.Errorf("fetch fitness: no CTL/ATL for %s", day.Format(dateLayout))
	}

	date, err := time.ParseInLocation(dateLayout, dto.ID, c.loc)
	if err != nil {
		date = day
	}
	m := &readiness.FitnessMetrics{
		Date: date,
		CTL:  *dto.CTL,
		ATL:  *dto.ATL,
		TSB:  *dto.CTL - *dto.ATL,
	}
	if dto.RampRate != nil {
		m.RampRate = *dto.RampRate
	}
	return m, nil
}

// FetchActivities retrieves activities started between oldest and newest inclusive.
func (c *Intervals) FetchActivities(ctx context.Context, oldest, newest time.Time) ([]readiness.Activity, error) {
	var payload []activityDTO
	query := url.Values{
		"oldest": {oldest.Format(dateLayout)},
		"newest": {newest.Format(dateLayout)},
	}
	if err := c.get(ctx, "/activities", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch activities: %w", err)
	}

	activities := make([]readiness.Activity, 0, len(payload))
	for _, dto := range payload {
		start, err := time.ParseInLocation(localTimeLayout, dto.StartDateLocal, c.loc)
		if err != nil {
			c.logger.Warn().Err(err).Str("activity", dto.ID).Msg("dropping activity with bad start date")
			continue
		}
		act := readiness.Activity{ID: dto.ID, Type: dto.Type, StartDate: start}
		if dto.TrainingLoad != nil {
			act.TrainingLoad = *dto.TrainingLoad
		}
		activities = append(activities, act)
	}
	return activities, nil
}

// FetchNextGoal returns the earliest race event on or after from.
func (c *Intervals) FetchNextGoal(ctx context.Context, from time.Time) (*readiness.Goal, error) {
	var payload []eventDTO
	query := url.Values{
		"oldest":   {from.Format(dateLayout)},
		"newest":   {from.Add(goalHorizon).Format(dateLayout)},
		"category": {strings.Join(goalCategories, ",")},
	}
	if err := c.get(ctx, "/events", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch goal events: %w", err)
	}

	var next *readiness.Goal
	for _, dto := range payload {
		if !isGoalCategory(dto.Category) {
			continue
		}
		start, err := time.ParseInLocation(localTimeLayout, dto.StartDateLocal, c.loc)
		if err != nil {
			c.logger.Warn().Err(err).Str("event", dto.Name).Msg("skipping event with bad start date")
			continue
		}
		if start.Format(dateLayout) < from.In(c.loc).Format(dateLayout) {
			continue
		}
		if next == nil || start.Before(next.Date) {
			next = &readiness.Goal{Date: start, Name: dto.Name, Category: dto.Category}
		}
	}
	return next, nil
}

func isGoalCategory(category string) bool {
	for _, c := range goalCategories {
		if strings.EqualFold(category, c) {
			return true
		}
	}
	return false
}

func (c *Intervals) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.opts.AthleteID == "" {
		return errors.New("athlete id required")
	}
	if c.opts.APIKey == "" {
		return errors.New("api key required")
	}

	endpoint := c.baseURL + "/athlete/" + url.PathEscape(c.opts.AthleteID) + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth("API_KEY", c.opts.APIKey)
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "coachd/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, payloadBytes)
	}

	if err := json.Unmarshal(payloadBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("intervals api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("intervals api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("intervals api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("intervals api error (%d)", status)
}
