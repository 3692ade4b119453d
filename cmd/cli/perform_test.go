package main

import (
	"testing"

	"datalens/domain/analysis"
	"datalens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfigSingleColumn(t *testing.T) {
	cfg, err := buildConfig(performOptions{operation: "mean", column: "age (int64)", clean: true})
	require.NoError(t, err)
	assert.Equal(t, analysis.CalcDescriptive, cfg.CalcType)
	assert.Equal(t, analysis.OpMean, cfg.Operation)
	assert.Equal(t, "age", cfg.Column)
	assert.True(t, cfg.Clean)

	req, err := analysis.BuildRequest(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "age", req.Column)
	assert.Nil(t, req.Filter)
}

func TestBuildConfigTwoColumnsWithFilter(t *testing.T) {
	cfg, err := buildConfig(performOptions{
		operation: "t_test", column1: "age", column2: "stay (float64)",
		filterColumn: "ward (object)", filterOp: "!=", filterValue: "B",
	})
	require.NoError(t, err)
	assert.Equal(t, analysis.CalcInferential, cfg.CalcType)
	assert.Equal(t, "stay", cfg.Column2)

	req, err := analysis.BuildRequest(cfg, "B")
	require.NoError(t, err)
	require.NotNil(t, req.Filter)
	assert.Equal(t, analysis.Filter{Column: "ward", Operator: analysis.FilterNotEq, Value: "B"}, *req.Filter)
}

func TestBuildConfigRejectsUnknownValues(t *testing.T) {
	_, err := buildConfig(performOptions{operation: "kurtosis"})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	_, err = buildConfig(performOptions{operation: "mean", filterOp: "~"})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestBuildConfigMissingColumnFailsValidation(t *testing.T) {
	cfg, err := buildConfig(performOptions{operation: "pearson", column1: "a"})
	require.NoError(t, err)
	err = analysis.Validate(cfg)
	assert.Equal(t, analysis.MsgSelectTwoColumns, errors.UserMessage(err))
}
