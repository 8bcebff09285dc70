// Package dashboard computes the admin dashboard statistics and charts.
package dashboard

import (
	"fmt"
	"sort"
	"time"
)

type Granularity string

const (
	ByDay  Granularity = "day"
	ByHour Granularity = "hour"
)

// Point is one bar of a chart
type Point struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	Value int       `json:"value"`
}

// Window returns how many buckets a chart of granularity g has
func (g Granularity) Window() int {
	if g == ByHour {
		return 24
	}
	return 7
}

func (g Granularity) label(t time.Time) string {
	if g == ByHour {
		return fmt.Sprintf("%d:00", t.Hour())
	}
	return t.Format("2006-01-02")
}

// bucketStarts returns the ascending bucket start times, the last one containing now
func bucketStarts(g Granularity, now time.Time, loc *time.Location) []time.Time {
	now = now.In(loc)
	n := g.Window()
	starts := make([]time.Time, n)
	switch g {
	case ByHour:
		last := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, loc)
		for i := 0; i < n; i++ {
			starts[i] = last.Add(-time.Duration(n-1-i) * time.Hour)
		}
	default:
		last := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		for i := 0; i < n; i++ {
			starts[i] = last.AddDate(0, 0, -(n - 1 - i))
		}
	}
	return starts
}

// Bucket counts timestamps into a zero filled, oldest first series of 7 days or 24 hours
// ending with the bucket that contains now. Timestamps outside the window are ignored.
func Bucket(timestamps []time.Time, g Granularity, now time.Time, loc *time.Location) []Point {
	if loc == nil {
		loc = time.Local
	}
	starts := bucketStarts(g, now, loc)

	var end time.Time
	last := starts[len(starts)-1]
	if g == ByHour {
		end = last.Add(time.Hour)
	} else {
		end = last.AddDate(0, 0, 1)
	}

	points := make([]Point, len(starts))
	for i, start := range starts {
		points[i] = Point{Name: g.label(start), Start: start}
	}

	for _, ts := range timestamps {
		if ts.Before(starts[0]) || !ts.Before(end) {
			continue
		}
		// first bucket starting after ts, minus one
		i := sort.Search(len(starts), func(i int) bool {
			return starts[i].After(ts)
		}) - 1
		points[i].Value++
	}
	return points
}
