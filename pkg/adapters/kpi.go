package adapters

import (
	"github.com/op-tools/kpi-atlas/pkg/models/api"
	"github.com/op-tools/kpi-atlas/pkg/models/domain"
	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

func MapKPIStoreToDomain(rec store.KPIRecord) domain.KPI {
	agg, _ := domain.ParseAggregation(rec.Aggregation)
	return domain.KPI{
		ID:          rec.ID,
		Name:        rec.Name,
		Unit:        rec.Unit,
		Aggregation: agg,
	}
}

func MapKPIDomainToAPI(kpi domain.KPI) api.KPI {
	return api.KPI{
		ID:          kpi.ID,
		Name:        kpi.Name,
		Unit:        kpi.Unit,
		Aggregation: string(kpi.Aggregation),
	}
}

func MapGoalStoreToAPI(rec store.GoalRecord) api.Goal {
	return api.Goal{
		ID:          rec.ID,
		KPI:         rec.KPIName,
		PeriodType:  rec.PeriodType,
		PeriodStart: rec.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   rec.PeriodEnd.Format("2006-01-02"),
		TargetValue: rec.TargetValue,
	}
}
