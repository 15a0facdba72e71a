package api

type KPIRequest struct {
	Name        string `json:"name"`
	Unit        string `json:"unit,omitempty"`
	Aggregation string `json:"aggregation,omitempty"`
}

type KPI struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Unit        string `json:"unit,omitempty"`
	Aggregation string `json:"aggregation"`
}

type GoalItem struct {
	KPI         string  `json:"kpi"`
	TargetValue float64 `json:"target_value"`
	Unit        string  `json:"unit,omitempty"`
	Aggregation string  `json:"aggregation,omitempty"`
}

type GoalCreateRequest struct {
	PeriodType  string     `json:"period_type"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	Items       []GoalItem `json:"items"`
}

type GoalCreateResponse struct {
	Status string   `json:"status"`
	KPIs   []string `json:"kpis"`
}

type Goal struct {
	ID          int64   `json:"id"`
	KPI         string  `json:"kpi"`
	PeriodType  string  `json:"period_type"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	TargetValue float64 `json:"target_value"`
}
