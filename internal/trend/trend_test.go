package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/trendlens/internal/models"
)

func hit(topic, date string) *models.SearchHit {
	return &models.SearchHit{Document: models.Document{PubDate: date}, SubTopic: topic}
}

func TestTrends(t *testing.T) {
	got := Trends([]*models.SearchHit{
		hit("battery graphene", "2020-01-01"),
		hit("battery graphene", "2020-01-01"),
		hit("battery graphene", "2021-06-01"),
		hit("Miscellaneous", "1970-01-01"),
	})
	assert.Equal(t, models.Trends{
		"battery graphene": {"2020-01-01": 2, "2021-06-01": 1},
		"Miscellaneous":    {"1970-01-01": 1},
	}, got)
	assert.Empty(t, Trends(nil))
}

func TestVelocity_yearOverYear(t *testing.T) {
	v := Velocity(models.Trends{"t": {"2020": 3, "2021": 5, "2022": 2}})
	assert.Equal(t, []models.VelocityPoint{
		{Year: "2020", Count: 3, Delta: 3},
		{Year: "2021", Count: 5, Delta: 2},
		{Year: "2022", Count: 2, Delta: -3},
	}, v["t"])
}

func TestVelocity_bucketsDatesByYear(t *testing.T) {
	v := Velocity(models.Trends{"t": {
		"2020-01-01": 1,
		"2020-06-30": 2,
		"2022-03-03": 4,
	}})
	require.Len(t, v["t"], 2)
	assert.Equal(t, models.VelocityPoint{Year: "2020", Count: 3, Delta: 3}, v["t"][0])
	// 2021 is absent, so the 2022 delta is measured against zero
	assert.Equal(t, models.VelocityPoint{Year: "2022", Count: 4, Delta: 4}, v["t"][1])
}

func TestVelocity_skipsNonNumericYears(t *testing.T) {
	v := Velocity(models.Trends{
		"t":     {"abcd-01-01": 5, "20": 1, "": 2, "2019-01-01": 1},
		"empty": {"n/a": 1},
	})
	assert.Equal(t, []models.VelocityPoint{{Year: "2019", Count: 1, Delta: 1}}, v["t"])
	assert.NotNil(t, v["empty"])
	assert.Empty(t, v["empty"])
}
