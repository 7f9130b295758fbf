package pipeline

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Platform identifies the product family of a metric series
type Platform string

// Platforms
const (
	PlatformDesktop Platform = "desktop"
	PlatformMobile  Platform = "mobile"
)

// Metric names match the output table's metric columns
const (
	MetricDAU                   = "DAU"
	MetricNewProfiles           = "New Profiles"
	MetricExistingEngagementDAU = "Existing Engagement DAU"
	MetricExistingEngagementMAU = "Existing Engagement MAU"
)

// QuerySpec is the complete specification of one telemetry aggregate query:
// which table and columns to read, how to bucket segments, and which date
// constraints apply. Each spec renders to SQL projecting exactly
// (date, country, segment, value).
type QuerySpec struct {
	Platform    Platform
	Metric      string
	Table       string
	DateField   string
	ValueField  string
	SegmentExpr string
	Where       string
	// Start is the earliest date with trustworthy data for this series
	Start string
	// Excludes are inclusive date ranges with known-bad data
	Excludes [][2]string
}

// desktopSegment buckets desktop rows by Windows generation
const desktopSegment = `CASE
           WHEN lower(os_version) LIKE '%windows 10%' THEN 'win10'
           WHEN lower(os_version) LIKE '%windows 11%' THEN 'win11'
           WHEN lower(os_version) LIKE '%windows%' THEN 'winX'
           ELSE 'other'
       END`

// mobileSegment buckets mobile rows by application
const mobileSegment = `app_name`

// querySpecs returns the full set of aggregate queries. dauOnly reduces the
// set to the DAU series, which backfills use to keep historical runs cheap.
func querySpecs(dauOnly bool) []QuerySpec {
	specs := []QuerySpec{
		{
			Platform:    PlatformDesktop,
			Metric:      MetricDAU,
			Table:       "telemetry.active_users_aggregates",
			DateField:   "submission_date",
			ValueField:  "dau",
			SegmentExpr: desktopSegment,
			Where:       "app_name = 'Firefox Desktop'",
			Start:       "2023-04-17",
		},
		{
			Platform:    PlatformMobile,
			Metric:      MetricDAU,
			Table:       "telemetry.active_users_aggregates",
			DateField:   "submission_date",
			ValueField:  "dau",
			SegmentExpr: mobileSegment,
			Where:       "app_name IN ('Fenix', 'Firefox iOS', 'Focus Android', 'Focus iOS')",
			Start:       "2020-12-31",
		},
	}

	if dauOnly {
		return specs
	}

	return append(specs,
		QuerySpec{
			Platform:    PlatformDesktop,
			Metric:      MetricNewProfiles,
			Table:       "telemetry.desktop_new_profiles_aggregates",
			DateField:   "first_seen_date",
			ValueField:  "new_profiles",
			SegmentExpr: desktopSegment,
			Where:       "is_desktop",
			Start:       "2023-07-01",
			Excludes:    [][2]string{{"2023-07-18", "2023-07-19"}},
		},
		QuerySpec{
			Platform:    PlatformDesktop,
			Metric:      MetricExistingEngagementDAU,
			Table:       "telemetry.desktop_engagement_aggregates",
			DateField:   "submission_date",
			ValueField:  "dau",
			SegmentExpr: desktopSegment,
			Where:       "is_desktop AND lifecycle_stage = 'existing_user'",
			Start:       "2023-06-07",
		},
		QuerySpec{
			Platform:    PlatformDesktop,
			Metric:      MetricExistingEngagementMAU,
			Table:       "telemetry.desktop_engagement_aggregates",
			DateField:   "submission_date",
			ValueField:  "mau",
			SegmentExpr: desktopSegment,
			Where:       "is_desktop AND lifecycle_stage = 'existing_user'",
			Start:       "2023-06-07",
		},
		QuerySpec{
			Platform:    PlatformMobile,
			Metric:      MetricNewProfiles,
			Table:       "telemetry.mobile_new_profiles",
			DateField:   "first_seen_date",
			ValueField:  "new_profiles",
			SegmentExpr: mobileSegment,
			Where:       "is_mobile",
			Start:       "2023-07-01",
			Excludes:    [][2]string{{"2023-07-18", "2023-07-19"}},
		},
		QuerySpec{
			Platform:    PlatformMobile,
			Metric:      MetricExistingEngagementDAU,
			Table:       "telemetry.mobile_engagement",
			DateField:   "submission_date",
			ValueField:  "dau",
			SegmentExpr: mobileSegment,
			Where:       "is_mobile AND lifecycle_stage = 'existing_user'",
			Start:       "2023-07-01",
		},
		QuerySpec{
			Platform:    PlatformMobile,
			Metric:      MetricExistingEngagementMAU,
			Table:       "telemetry.mobile_engagement",
			DateField:   "submission_date",
			ValueField:  "mau",
			SegmentExpr: mobileSegment,
			Where:       "is_mobile AND lifecycle_stage = 'existing_user'",
			Start:       "2023-07-01",
		},
	)
}

const aggregateQueryTemplate = `
SELECT {{ .Spec.DateField }} AS x,
       CASE WHEN country IN ('{{ .Countries | join "', '" }}') THEN country ELSE 'ROW' END AS country,
       {{ .Spec.SegmentExpr }} AS segment,
       SUM({{ .Spec.ValueField }}) AS y
  FROM {{ .Spec.Table }}
 WHERE {{ .Spec.Where }}
   AND {{ .Spec.DateField }} >= '{{ .Spec.Start }}'
   AND {{ .Spec.DateField }} <= '{{ .TrainingEnd }}'
{{- range .Spec.Excludes }}
   AND {{ $.Spec.DateField }} NOT BETWEEN '{{ index . 0 }}' AND '{{ index . 1 }}'
{{- end }}
 GROUP BY 1, 2, 3
 ORDER BY 1, 2
`

//nolint:gochecknoglobals // Parsed once at init
var queryTmpl = template.Must(
	template.New("aggregate").Funcs(sprig.TxtFuncMap()).Parse(aggregateQueryTemplate))

// Render produces the SQL for one query spec against the run's country list
// and training window
func (s QuerySpec) Render(cfg *RuntimeConfig) (string, error) {
	var sb strings.Builder

	err := queryTmpl.Execute(&sb, map[string]any{
		"Spec":        s,
		"Countries":   cfg.Countries,
		"TrainingEnd": cfg.TrainingEndDate.Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("render query %s/%s: %w", s.Platform, s.Metric, err)
	}

	return strings.TrimSpace(sb.String()), nil
}
