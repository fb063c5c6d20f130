package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SizingSignal/internal/model"
)

func TestCompose_DailyVector(t *testing.T) {
	c := NewComposer()
	fv, err := c.Compose(model.HorizonDaily, normalSnapshot())
	require.NoError(t, err)

	assert.InDelta(t, 0.1, fv[model.FeatureMA100Proximity], 1e-12)
	assert.InDelta(t, 0.0, fv[model.FeatureMA200Proximity], 1e-12)
	assert.InDelta(t, 0.1, fv[model.FeatureTrendProximity], 1e-12)
	assert.InDelta(t, 0.05, fv[model.FeatureRiskAdjustedReturn], 1e-12)
	assert.InDelta(t, 0.25, fv[model.FeatureLogMarketCap], 1e-12)
	assert.InDelta(t, 0.25, fv[model.FeatureInverseSpread], 1e-12)
	assert.InDelta(t, -0.06, fv[model.FeatureWorstMinusLast], 1e-12)
	assert.InDelta(t, 0.01, fv[model.FeatureVolatilityMinusLast], 1e-12)
}

func TestCompose_CrossHorizonMASource(t *testing.T) {
	c := NewComposer()
	s := normalSnapshot()

	weekly, err := c.Compose(model.HorizonWeekly, s)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, weekly[model.FeatureMA100Proximity], 1e-12, "weekly reads daily MAs")

	monthly, err := c.Compose(model.HorizonMonthly, s)
	require.NoError(t, err)
	assert.InDelta(t, -0.2, monthly[model.FeatureMA100Proximity], 1e-12, "monthly reads weekly MAs")
	assert.True(t, math.IsNaN(monthly[model.FeatureMA200Proximity]))

	// Trendline proximity is the same for every horizon.
	assert.Equal(t, weekly[model.FeatureTrendProximity], monthly[model.FeatureTrendProximity])
}

func TestCompose_CustomMASource(t *testing.T) {
	c := &Composer{MASource: map[model.Horizon]model.Horizon{model.HorizonMonthly: model.HorizonDaily}}
	fv, err := c.Compose(model.HorizonMonthly, normalSnapshot())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, fv[model.FeatureMA100Proximity], 1e-12)
}

func TestCompose_MissingMarketCapIsNeutral(t *testing.T) {
	s := normalSnapshot()
	s.MarketCap = nil
	fv, err := NewComposer().Compose(model.HorizonDaily, s)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fv[model.FeatureLogMarketCap])

	assert.Equal(t, 0.0, LogMarketCap(ptr(0)))
	assert.Equal(t, 0.0, LogMarketCap(ptr(-5)))
}

func TestCompose_Errors(t *testing.T) {
	c := NewComposer()

	s := normalSnapshot()
	delete(s.Stats, model.HorizonYearly)
	_, err := c.Compose(model.HorizonYearly, s)
	assert.Error(t, err)

	s = normalSnapshot()
	s.MovingAverages[model.MAKey{Period: 100, Horizon: model.HorizonDaily}] = 0
	_, err = c.Compose(model.HorizonDaily, s)
	assert.ErrorIs(t, err, model.ErrDegenerateFit)

	s = normalSnapshot()
	s.AllTimeHigh = 0
	_, err = c.Compose(model.HorizonDaily, s)
	assert.ErrorIs(t, err, model.ErrDegenerateFit)
}
