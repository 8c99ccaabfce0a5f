// Package prayer serves the daily prayer schedule from the Aladhan API,
// cached per day in Redis, and computes the countdown to the next prayer.
package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// order of the five daily prayers, display names as shown on the site.
var prayerOrder = []string{"Subuh", "Dzuhur", "Ashar", "Maghrib", "Isya"}

// apiNames maps Aladhan timing names to display names. Imsak is shown on
// the schedule but never counted down to.
var apiNames = map[string]string{
	"Imsak":   "Imsak",
	"Fajr":    "Subuh",
	"Dhuhr":   "Dzuhur",
	"Asr":     "Ashar",
	"Maghrib": "Maghrib",
	"Isha":    "Isya",
}

// Schedule is one day's prayer times.
type Schedule struct {
	Date  string            `json:"date"`
	City  string            `json:"city"`
	Times map[string]string `json:"times"`
}

// Upcoming is the next prayer and the time left until it.
type Upcoming struct {
	Name    string    `json:"name"`
	At      time.Time `json:"at"`
	Hours   uint      `json:"hours"`
	Minutes uint      `json:"minutes"`
	Seconds uint      `json:"seconds"`
}

// Service fetches and caches prayer schedules for one city.
type Service struct {
	httpClient *http.Client
	cache      *redis.Client
	baseURL    string
	city       string
	country    string
}

// NewService creates a prayer service. cache may be nil; every request
// then hits the API.
func NewService(city, country string, cache *redis.Client) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		baseURL:    "https://api.aladhan.com",
		city:       city,
		country:    country,
	}
}

func (s *Service) cacheKey(date string) string {
	return "rohis:prayer:" + s.city + ":" + date
}

// Today returns the schedule for now's calendar day.
func (s *Service) Today(ctx context.Context, now time.Time) (Schedule, error) {
	return s.scheduleFor(ctx, now)
}

func (s *Service) scheduleFor(ctx context.Context, day time.Time) (Schedule, error) {
	date := day.Format("2006-01-02")

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, s.cacheKey(date)).Result()
		if err == nil {
			var cached Schedule
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			log.Printf("prayer: cache read: %v", err)
		}
	}

	schedule, err := s.fetch(ctx, day)
	if err != nil {
		return Schedule{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(schedule); err == nil {
			if err := s.cache.Set(ctx, s.cacheKey(date), raw, 24*time.Hour).Err(); err != nil {
				log.Printf("prayer: cache write: %v", err)
			}
		}
	}
	return schedule, nil
}

func (s *Service) fetch(ctx context.Context, day time.Time) (Schedule, error) {
	endpoint := fmt.Sprintf("%s/v1/timingsByCity/%s?city=%s&country=%s",
		s.baseURL,
		day.Format("02-01-2006"),
		url.QueryEscape(s.city),
		url.QueryEscape(s.country),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Schedule{}, fmt.Errorf("build prayer request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Schedule{}, fmt.Errorf("fetch prayer times: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Schedule{}, fmt.Errorf("fetch prayer times: status %d", resp.StatusCode)
	}

	var body struct {
		Code int `json:"code"`
		Data struct {
			Timings map[string]string `json:"timings"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Schedule{}, fmt.Errorf("decode prayer response: %w", err)
	}
	if body.Code != http.StatusOK || len(body.Data.Timings) == 0 {
		return Schedule{}, fmt.Errorf("prayer api returned code %d", body.Code)
	}

	times := make(map[string]string, len(apiNames))
	for apiName, display := range apiNames {
		raw, ok := body.Data.Timings[apiName]
		if !ok {
			continue
		}
		// Some deployments append the timezone, as in "04:32 (WIB)".
		if i := strings.IndexByte(raw, ' '); i > 0 {
			raw = raw[:i]
		}
		times[display] = raw
	}

	return Schedule{
		Date:  day.Format("2006-01-02"),
		City:  s.city,
		Times: times,
	}, nil
}

// Next returns the first prayer after now, rolling over to tomorrow's
// Subuh once Isya has passed.
func (s *Service) Next(ctx context.Context, now time.Time) (Upcoming, error) {
	today, err := s.scheduleFor(ctx, now)
	if err != nil {
		return Upcoming{}, err
	}

	for _, name := range prayerOrder {
		at, err := timeOn(now, today.Times[name])
		if err != nil {
			continue
		}
		if at.After(now) {
			return upcoming(name, at, now), nil
		}
	}

	tomorrow := now.AddDate(0, 0, 1)
	next, err := s.scheduleFor(ctx, tomorrow)
	if err != nil {
		return Upcoming{}, err
	}
	at, err := timeOn(tomorrow, next.Times["Subuh"])
	if err != nil {
		return Upcoming{}, fmt.Errorf("no Subuh time for %s", next.Date)
	}
	return upcoming("Subuh", at, now), nil
}

func timeOn(day time.Time, hhmm string) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

func upcoming(name string, at, now time.Time) Upcoming {
	total := uint(at.Sub(now) / time.Second)
	return Upcoming{
		Name:    name,
		At:      at,
		Hours:   total / 3600,
		Minutes: (total / 60) % 60,
		Seconds: total % 60,
	}
}
