package location

import (
	"context"
	"sync"
	"time"

	"github.com/nearu/nearu-backend/internal/models"
)

// Spot is a named test position on campus
type Spot struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// CampusSpots are the fixed positions used in test mode
var CampusSpots = []Spot{
	{Name: "DC Library", Latitude: 43.4723, Longitude: -80.5449},
	{Name: "MC", Latitude: 43.4721, Longitude: -80.5447},
	{Name: "SLC", Latitude: 43.4719, Longitude: -80.5445},
	{Name: "DP Library", Latitude: 43.4725, Longitude: -80.5451},
	{Name: "PAC", Latitude: 43.4717, Longitude: -80.5443},
}

// LookupSpot returns the named spot, falling back to DC Library
func LookupSpot(name string) Spot {
	for _, s := range CampusSpots {
		if s.Name == name {
			return s
		}
	}
	return CampusSpots[0]
}

// SimulatedSource walks through a list of spots, one per interval
type SimulatedSource struct {
	spots    []Spot
	interval time.Duration
	accuracy float64
	now      func() time.Time

	mu  sync.Mutex
	pos int
}

// NewSimulatedSource creates a source that cycles through spots every interval
func NewSimulatedSource(spots []Spot, interval time.Duration) *SimulatedSource {
	if len(spots) == 0 {
		spots = CampusSpots
	}
	return &SimulatedSource{
		spots:    spots,
		interval: interval,
		accuracy: 5,
		now:      time.Now,
	}
}

func (s *SimulatedSource) sample() models.Location {
	s.mu.Lock()
	spot := s.spots[s.pos%len(s.spots)]
	s.mu.Unlock()
	return models.Location{
		Latitude:  spot.Latitude,
		Longitude: spot.Longitude,
		Accuracy:  models.Meters(s.accuracy),
		Timestamp: s.now().UnixMilli(),
	}
}

func (s *SimulatedSource) advance() {
	s.mu.Lock()
	s.pos++
	s.mu.Unlock()
}

// Watch emits the current spot immediately and then the next spot every interval
func (s *SimulatedSource) Watch(_ Options, onSample func(models.Location), _ func(error)) (func(), error) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		onSample(s.sample())
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.advance()
				onSample(s.sample())
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }, nil
}

// Current returns the spot the source is at
func (s *SimulatedSource) Current(ctx context.Context, _ Options) (models.Location, error) {
	if err := ctx.Err(); err != nil {
		return models.Location{}, err
	}
	return s.sample(), nil
}
