package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/woeat/pipeline/internal/models"
	"github.com/woeat/pipeline/pkg/logger"
	"github.com/woeat/pipeline/pkg/storage"
	"github.com/woeat/pipeline/pkg/table"
)

// rawWeather is one hourly observation payload. The zone is not part of the
// payload; it is parsed out of the object name.
type rawWeather struct {
	WeatherTime string   `json:"weather_time"`
	Temperature *float64 `json:"temperature"`
	Condition   string   `json:"condition"`
}

// LoadWeather builds the cleaned weather table from every observation under
// weather_api/. Zone extraction relies on the upstream naming convention
// weather_<zone>_<yyyymmdd>_<hh>.json; if that convention drifts the
// extracted zone is silently wrong. Carrying the zone in the payload would
// remove this fragility but requires an upstream change.
func (n *Normalizer) LoadWeather(ctx context.Context) ([]models.CleanedWeather, int, error) {
	objects, err := n.listSorted(ctx, "weather_api/")
	if err != nil {
		return nil, 0, err
	}

	var observations []models.CleanedWeather
	skipped := 0
	total := 0
	for _, obj := range objects {
		if !hasSuffixFold(obj.Key, ".json") {
			continue
		}
		total++

		zone, err := zoneFromKey(obj.Key)
		if err != nil {
			skipped++
			n.logger.Warn("Skipping weather record with unparseable name", logger.Error(err))
			continue
		}

		body, err := n.store.Get(ctx, obj.Key)
		if err != nil {
			return nil, 0, err
		}
		var raw rawWeather
		err = json.NewDecoder(body).Decode(&raw)
		body.Close()
		if err != nil {
			skipped++
			n.logger.Warn("Skipping malformed weather record",
				logger.Error(&MalformedRecordError{Source: "weather", Key: obj.Key, Field: "(body)", Err: err}))
			continue
		}

		obs, err := parseWeather(raw, zone, obj)
		if err != nil {
			skipped++
			n.logger.Warn("Skipping malformed weather record", logger.Error(err))
			continue
		}
		observations = append(observations, *obs)
	}

	if total > 0 && len(observations) == 0 {
		return nil, skipped, fmt.Errorf("all %d weather records are malformed", total)
	}
	return observations, skipped, nil
}

func parseWeather(raw rawWeather, zone string, obj storage.Object) (*models.CleanedWeather, error) {
	if raw.WeatherTime == "" {
		return nil, &MalformedRecordError{Source: "weather", Key: obj.Key, Field: "weather_time"}
	}
	if raw.Condition == "" {
		return nil, &MalformedRecordError{Source: "weather", Key: obj.Key, Field: "condition"}
	}
	if raw.Temperature == nil {
		return nil, &MalformedRecordError{Source: "weather", Key: obj.Key, Field: "temperature"}
	}

	observedAt, err := time.Parse(table.TimeLayout, raw.WeatherTime)
	if err != nil {
		return nil, &MalformedRecordError{Source: "weather", Key: obj.Key, Field: "weather_time", Err: err}
	}

	return &models.CleanedWeather{
		Zone:        zone,
		WeatherTime: observedAt.UTC(),
		Temperature: *raw.Temperature,
		Condition:   raw.Condition,
		IngestedAt:  obj.LastModified,
	}, nil
}

// zoneFromKey parses the zone out of the naming convention, e.g.
// weather_Z1_20240401_00.json yields Z1.
func zoneFromKey(key string) (string, error) {
	base := path.Base(key)
	parts := strings.Split(base, "_")
	if len(parts) < 2 || parts[1] == "" {
		return "", &MalformedRecordError{Source: "weather", Key: key, Field: "zone",
			Err: fmt.Errorf("object name %q does not follow weather_<zone>_... convention", base)}
	}
	return parts[1], nil
}
