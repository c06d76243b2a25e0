package services

import (
	"math"

	"alfredoptarigan/assessment-engine/internal/models"
)

// CategoryWeights are the fixed per-group weights of the overall score.
var CategoryWeights = map[models.CategoryGroup]float64{
	models.GroupPersonality: 0.25,
	models.GroupCognitive:   0.25,
	models.GroupEmotional:   0.25,
	models.GroupBehavioral:  0.15,
	models.GroupVocal:       0.10,
}

const categoryScale = 4

// AggregateCategoryScore combines the present groups into one overall score:
// each group's subfield mean times its weight, summed, divided by the number of
// present groups, times 4, rounded. Absent subfields of a present group count as 0.
//
// The divisor is the group count rather than the weight sum, so identical
// subscores score differently depending on which groups are present: a full
// set of perfect scores yields 80, perfect personality alone yields 100.
func AggregateCategoryScore(set models.CategoryScoreSet) int {
	var weighted float64
	present := 0
	for _, group := range models.CategoryGroups {
		scores, ok := set.Group(group)
		if !ok {
			continue
		}
		present++
		weighted += groupMean(group, scores) * CategoryWeights[group]
	}

	if present == 0 {
		return 0
	}
	return int(math.Round(weighted / float64(present) * categoryScale))
}

// groupMean averages over the fixed subfield schema so insertion order and
// unknown keys never affect the result.
func groupMean(group models.CategoryGroup, scores map[string]float64) float64 {
	fields := models.CategorySubfields[group]
	if len(fields) == 0 {
		return 0
	}
	var sum float64
	for _, field := range fields {
		sum += scores[field]
	}
	return sum / float64(len(fields))
}
