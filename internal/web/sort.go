package web

import (
	"slices"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
)

func sortByRow(results []*model.SerpResult) {
	slices.SortStableFunc(results, func(a, b *model.SerpResult) int {
		return a.Row - b.Row
	})
}
