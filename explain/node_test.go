package explain

import (
	"context"
	"testing"

	"github.com/rushteam/gradekit/core"
	"github.com/rushteam/gradekit/feature"
	"github.com/rushteam/gradekit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalNode(t *testing.T) {
	node := &LocalNode{Engine: NewEngine(treeGateway(t, core.KindRisk), testBackground(t))}

	p := core.NewPrediction(core.StudentRecord{})
	p.Vector = vector(t, 45, 60, 1)
	p.ExplainClass = 1

	out, err := node.Process(context.Background(), &core.RequestContext{Extent: core.ExplainNone}, p)
	require.NoError(t, err)
	assert.False(t, out.Explained)
	assert.Empty(t, out.Raw)

	out, err = node.Process(context.Background(), &core.RequestContext{Extent: core.ExplainLocal}, p)
	require.NoError(t, err)
	assert.True(t, out.Explained)
	assert.Equal(t, out.Raw, out.Display)
	assert.Len(t, out.Raw, len(testSchema))
	assert.Equal(t, MethodTree, out.Labels["explain"].Value)
}

func TestLocalNode_ExplainerFailureIsPartial(t *testing.T) {
	rpc, err := model.NewRPCModel("remote", "http://localhost:0", []string{"0", "1"}, testSchema, 0)
	require.NoError(t, err)
	g, err := model.NewGateway("remote", core.KindRisk, rpc, &feature.FeatureMetadata{FeatureColumns: testSchema}, nil)
	require.NoError(t, err)

	var failed string
	node := &LocalNode{
		Engine:  NewEngine(g, testBackground(t)),
		OnError: func(m string, _ error) { failed = m },
	}
	p := core.NewPrediction(core.StudentRecord{})
	p.Vector = vector(t, 45, 60, 1)

	out, err := node.Process(context.Background(), &core.RequestContext{Model: "remote", Extent: core.ExplainLocal}, p)
	require.NoError(t, err)
	assert.False(t, out.Explained)
	assert.True(t, core.IsExplainerConstruction(out.ExplainErr))
	assert.Equal(t, "remote", failed)

	res := out.Freeze("id", "remote")
	assert.Equal(t, core.StatusPartial, res.Status)
	assert.NotEmpty(t, res.ExplainError)
}
