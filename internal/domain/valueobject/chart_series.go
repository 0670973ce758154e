package valueobject

// ChartSeries is the renderer-agnostic payload behind the dashboard image:
// contributor shares for the pie and 24 hourly buckets for the bar chart.
type ChartSeries struct {
	Labels       []string  `json:"labels"`
	Values       []int64   `json:"values"`
	Shares       []float64 `json:"shares"`
	HourlyValues []int64   `json:"hourly_values"`
}

// IsEmpty 是否没有可绘制的数据
func (s ChartSeries) IsEmpty() bool {
	return len(s.Values) == 0
}
