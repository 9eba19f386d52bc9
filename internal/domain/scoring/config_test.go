package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

func TestDefaultEngineConfig_Valid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, DefaultEngineConfig().Validate())
}

func TestConfigForPolicy(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"", PolicyHybrid} {
		cfg, err := ConfigForPolicy(name)
		require.NoError(t, err)
		assert.Equal(t, PolicyHybrid, cfg.Policy)
	}

	_, err := ConfigForPolicy("16.0")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnginePolicyUnknown))
}

func TestEngineConfig_Validate_CollectsProblems(t *testing.T) {
	t.Parallel()
	cfg := DefaultEngineConfig()
	cfg.RoundingStep = 0
	cfg.CapIfGateFail4 = 4.2
	delete(cfg.NegScale, AspectWait)

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEngineConfigInvalid))
	assert.Contains(t, err.Error(), "rounding_step")
	assert.Contains(t, err.Error(), "gate caps")
	assert.Contains(t, err.Error(), "neg_scale[wait]")
}

func TestEngineConfig_Validate_Deterministic(t *testing.T) {
	t.Parallel()
	cfg := DefaultEngineConfig()
	cfg.HedgePenalty = 2
	cfg.PreferencePenalty = -1
	cfg.ContrastPostBoost = 3

	first := cfg.Validate().Error()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, cfg.Validate().Error())
	}
}

func TestEngineConfig_Clone(t *testing.T) {
	t.Parallel()
	base := DefaultEngineConfig()
	clone := base.Clone()
	clone.PosCoef[AspectTaste] = 9
	clone.CoreAxes[0] = AspectWait

	assert.Equal(t, 0.74, base.PosCoef[AspectTaste])
	assert.Equal(t, AspectTaste, base.CoreAxes[0])
}
