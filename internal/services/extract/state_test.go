package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menufeed/menufeed/internal/browser/browsertest"
	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/models"
)

func testConfig() *common.PipelineConfig {
	return &common.PipelineConfig{
		StateTimeout:      100 * time.Millisecond,
		StatePollInterval: 10 * time.Millisecond,
		HeartbeatInterval: 0, // Off by default; the heartbeat test enables it
	}
}

func TestExtractReturnsHandle(t *testing.T) {
	page := browsertest.NewFakePage()
	page.ConditionResults[stateReadyScript] = true
	page.EvaluateResults[readStateScript] = models.MenuFileHandle{
		FileGroupID: "fg-123",
		FileID:      "f-456",
		AccessToken: "tok-789",
	}

	extractor := NewExtractor(testConfig(), common.GetLogger())
	handle, err := extractor.Extract(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, "fg-123", handle.FileGroupID)
	assert.Equal(t, "f-456", handle.FileID)
	assert.Equal(t, "tok-789", handle.AccessToken)
}

func TestExtractTimesOutWhenStateNeverAppears(t *testing.T) {
	page := browsertest.NewFakePage()

	extractor := NewExtractor(testConfig(), common.GetLogger())
	_, err := extractor.Extract(context.Background(), page)
	require.Error(t, err)

	assert.Equal(t, models.FailureStateExtraction, models.FailureKindOf(err))
	assert.Equal(t, 0, page.CallCount("Evaluate("+readStateScript+")"),
		"must not read state after a timeout")
}

func TestExtractRejectsIncompleteState(t *testing.T) {
	page := browsertest.NewFakePage()
	page.ConditionResults[stateReadyScript] = true
	page.EvaluateResults[readStateScript] = models.MenuFileHandle{
		FileGroupID: "fg-123",
		// FileID and AccessToken missing
	}

	extractor := NewExtractor(testConfig(), common.GetLogger())
	_, err := extractor.Extract(context.Background(), page)
	require.Error(t, err)

	var perr *models.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, models.FailureStateExtraction, perr.Kind)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestHeartbeatSamplesWhileWaiting(t *testing.T) {
	page := browsertest.NewFakePage()
	page.EvaluateResults[heartbeatScript] = map[string]interface{}{
		"hasState": false,
		"url":      "https://intranet.example.com/food/image",
		"ready":    "interactive",
	}

	config := testConfig()
	config.StateTimeout = 120 * time.Millisecond
	config.HeartbeatInterval = 20 * time.Millisecond

	extractor := NewExtractor(config, common.GetLogger())
	_, err := extractor.Extract(context.Background(), page)
	require.Error(t, err)

	assert.GreaterOrEqual(t, page.CallCount("Evaluate("+heartbeatScript+")"), 2,
		"heartbeat must sample while the condition polls")
}
