package usecase

import (
	"EnsembleView/internal/domain/models"
	"EnsembleView/internal/services/analytics"
	"EnsembleView/internal/state"
)

// EntityView assembles the list row of key. Call it inside Session.View.
func EntityView(st *state.State, calc *analytics.Calculator, key string) models.EntityView {
	status, _ := st.Status().Get(key)
	last, _ := st.Logs().Last(key)
	return models.EntityView{
		Ticker:   key,
		Status:   status,
		Error:    state.IsError(status),
		Complete: state.IsComplete(status),
		LastLog:  last,
		Metrics:  calc.Entity(st, key),
	}
}

// EntityViews returns the rows of every registered entity in discovery order.
func EntityViews(st *state.State, calc *analytics.Calculator) []models.EntityView {
	keys := st.Entities()
	rows := make([]models.EntityView, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, EntityView(st, calc, k))
	}
	return rows
}
