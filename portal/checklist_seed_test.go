package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbridge/portal/lifecycle"
)

func TestEveryStageHasChecklistTemplate(t *testing.T) {
	for _, s := range lifecycle.Stages {
		assert.NotEmpty(t, ChecklistFor(s.Key), "stage %s has no checklist template", s.Key)
	}
}

func TestChecklistForUnknownStageIsEmpty(t *testing.T) {
	assert.Empty(t, ChecklistFor(lifecycle.Stage("qa")))
}

func TestAdvanceGatingStagesHaveRequiredItems(t *testing.T) {
	// Every stage before support must contain at least one required item,
	// otherwise the advance precondition would never bite there.
	for _, s := range lifecycle.Stages {
		if s.Key == lifecycle.StageSupport {
			continue
		}
		items := ChecklistFor(s.Key)
		require.NotEmpty(t, items)

		hasRequired := false
		for _, item := range items {
			if item.Required {
				hasRequired = true
				break
			}
		}
		assert.True(t, hasRequired, "stage %s has no required checklist item", s.Key)
	}
}

func TestUATChecklistCoversParallelRuns(t *testing.T) {
	titles := make([]string, 0)
	for _, item := range ChecklistFor(lifecycle.StageUAT) {
		require.True(t, item.Required)
		titles = append(titles, item.Title)
	}
	assert.Contains(t, titles, "Parallel run 1 reconciled")
	assert.Contains(t, titles, "Parallel run 2 reconciled")
	assert.Contains(t, titles, "UAT sign-off received")
}
