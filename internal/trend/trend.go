// Package trend aggregates labelled hits into per-topic publication counts
// and year-over-year velocity.
package trend

import (
	"sort"
	"strconv"

	"github.com/hyperjump/trendlens/internal/models"
)

// Trends counts hits per sub-topic and exact publication date.
func Trends(hits []*models.SearchHit) models.Trends {
	trends := make(models.Trends)
	for _, h := range hits {
		byDate, ok := trends[h.SubTopic]
		if !ok {
			byDate = make(map[string]int)
			trends[h.SubTopic] = byDate
		}
		byDate[h.PubDate]++
	}
	return trends
}

// Velocity buckets each topic's counts by the leading four characters of the
// date and reports, per year in ascending order, the count and its change
// from the previous calendar year. Dates whose year is not numeric are
// skipped. Years with no documents are not filled in.
func Velocity(trends models.Trends) models.Velocity {
	velocity := make(models.Velocity, len(trends))
	for topic, byDate := range trends {
		years := make(map[string]int)
		for date, count := range byDate {
			if len(date) < 4 {
				continue
			}
			year := date[:4]
			if !isDigits(year) {
				continue
			}
			years[year] += count
		}

		keys := make([]string, 0, len(years))
		for y := range years {
			keys = append(keys, y)
		}
		sort.Strings(keys)

		points := make([]models.VelocityPoint, 0, len(keys))
		for _, y := range keys {
			n, _ := strconv.Atoi(y)
			count := years[y]
			points = append(points, models.VelocityPoint{
				Year:  y,
				Count: count,
				Delta: count - years[strconv.Itoa(n-1)],
			})
		}
		velocity[topic] = points
	}
	return velocity
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
