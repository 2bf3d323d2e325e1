package maps

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gmaps "googlemaps.github.io/maps"

	"parkbot/config"
	"parkbot/internal/parse"
)

// ErrNoRoute is returned when the directions service finds no route.
var ErrNoRoute = errors.New("no route found")

// Mode is the travel mode for a route.
type Mode string

const (
	ModeDriving Mode = "driving"
	ModeTransit Mode = "transit"
)

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// TrafficImage is a rendered route and a one-line description of it.
type TrafficImage struct {
	URL     string
	Summary string
}

// Client builds route images from the Google Directions and Static Maps APIs.
// Directions go through the Maps client library; the static map is only a URL.
type Client struct {
	directions *gmaps.Client
	baseURL    string
	apiKey     string
	imageSize  string
	now        func() time.Time
}

// NewClient creates a mapping client from the maps configuration. Without an
// API key the client is still usable but every lookup fails.
func NewClient(cfg config.MapsConfig) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		imageSize: cfg.ImageSize,
		now:       time.Now,
	}
	if cfg.APIKey == "" {
		log.Println("Maps API key not configured; traffic lookups are disabled")
		return c
	}

	dc, err := gmaps.NewClient(
		gmaps.WithAPIKey(cfg.APIKey),
		gmaps.WithBaseURL(c.baseURL),
		gmaps.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}),
	)
	if err != nil {
		log.Printf("Error creating maps client: %v", err)
		return c
	}
	c.directions = dc
	return c
}

// GetTrafficImage looks up the current route from origin to dest and returns
// a static map of it with a travel time summary.
func (c *Client) GetTrafficImage(ctx context.Context, origin, dest LatLng, mode Mode) (TrafficImage, error) {
	if c.directions == nil {
		return TrafficImage{}, errors.New("maps api key is not configured")
	}

	travelMode := gmaps.TravelModeDriving
	if mode == ModeTransit {
		travelMode = gmaps.TravelModeTransit
	}

	routes, _, err := c.directions.Directions(ctx, &gmaps.DirectionsRequest{
		Origin:        origin.String(),
		Destination:   dest.String(),
		Mode:          travelMode,
		DepartureTime: strconv.FormatInt(c.now().Unix(), 10),
	})
	if err != nil {
		// The library reports every non-OK status as a plain error.
		if msg := err.Error(); strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND") {
			return TrafficImage{}, ErrNoRoute
		}
		return TrafficImage{}, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return TrafficImage{}, ErrNoRoute
	}

	route := routes[0]
	leg := route.Legs[0]
	travel := leg.Duration
	if leg.DurationInTraffic > 0 {
		travel = leg.DurationInTraffic
	}

	summary := fmt.Sprintf("%s %s, %s", modeVerb(mode), parse.FormatDuration(travel.Round(time.Minute)), leg.Distance.HumanReadable)
	if route.Summary != "" {
		summary += " via " + route.Summary
	}

	return TrafficImage{
		URL:     c.staticMapURL(route.OverviewPolyline.Points, origin, dest),
		Summary: summary,
	}, nil
}

func (c *Client) staticMapURL(polyline string, origin, dest LatLng) string {
	q := url.Values{}
	q.Set("size", c.imageSize)
	q.Set("path", "weight:5|color:0x1a73e8ff|enc:"+polyline)
	q.Add("markers", "label:A|"+origin.String())
	q.Add("markers", "label:B|"+dest.String())
	q.Set("key", c.apiKey)
	return c.baseURL + "/maps/api/staticmap?" + q.Encode()
}

func modeVerb(mode Mode) string {
	if mode == ModeTransit {
		return "Transit:"
	}
	return "Driving:"
}
