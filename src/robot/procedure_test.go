package robot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sefip-robot/src/robot"
	"sefip-robot/src/robot/robottest"
	"sefip-robot/src/screenshot"
)

func TestSessionRunsStepsInOrder(t *testing.T) {
	dir := robottest.Images(t, "arquivo.png", "destino.png")
	screen := robottest.NewScreen().Show("destino.png", screenshot.Point{X: 300, Y: 200})
	in := &robottest.Input{}
	exec := robottest.Executor(dir, screen, in, robottest.NewOperator(), &robottest.Log{})

	proc := robot.Procedure{
		Name: "Etapa teste",
		Steps: []robot.Step{
			robot.Click("arquivo.png"),
			robot.Wait(1500 * time.Millisecond),
			robot.Type(`C:\Robo_SEFIP\2006\200601\SEFIP.RE`),
			robot.Press("enter"),
			robot.Hotkey("ctrl", "m"),
			robot.ClickOffset(robot.Anchor("destino.png"), 0, 20),
			robot.Press("down", "down", "enter"),
		},
	}

	res, err := robot.NewSession(exec).Run(context.Background(), proc)
	require.NoError(t, err)
	assert.Equal(t, robot.ProcedureCompleted, res.Status)
	assert.Equal(t, []string{
		"click 100,100",
		`type C:\Robo_SEFIP\2006\200601\SEFIP.RE`,
		"press enter",
		"hotkey ctrl+m",
		"click 300,220",
		"press down down enter",
	}, in.Snapshot())
}

func TestSessionStopsAtSkip(t *testing.T) {
	dir := robottest.Images(t, "cadastro.png", "daniel.png", "excluir.png")
	screen := robottest.NewScreen().Hide("daniel.png")
	in := &robottest.Input{}
	exec := robottest.Executor(dir, screen, in, robottest.NewOperator(robot.Skip), &robottest.Log{})

	proc := robot.Procedure{Name: "Etapa 2", Steps: []robot.Step{
		robot.Click("cadastro.png"),
		robot.Click("daniel.png"),
		robot.Click("excluir.png"),
		robot.Type("nunca"),
	}}

	res, err := robot.NewSession(exec).Run(context.Background(), proc)
	require.NoError(t, err)
	assert.Equal(t, robot.ProcedureResult{Status: robot.ProcedureSkipped, Anchor: "daniel.png"}, res)
	assert.Equal(t, []string{"click 100,100"}, in.Snapshot())
	assert.Zero(t, screen.Calls("excluir.png"))
}

func TestSessionStopsAtCancel(t *testing.T) {
	dir := robottest.Images(t, "ok.png", "salvar.png")
	screen := robottest.NewScreen().Hide("ok.png")
	in := &robottest.Input{}
	exec := robottest.Executor(dir, screen, in, robottest.NewOperator(robot.Cancel), &robottest.Log{})

	proc := robot.Procedure{Name: "Etapa 7", Steps: []robot.Step{
		robot.Click("ok.png"),
		robot.Click("salvar.png"),
		robot.Press("enter"),
	}}

	res, err := robot.NewSession(exec).Run(context.Background(), proc)
	require.NoError(t, err)
	assert.Equal(t, robot.ProcedureCancelled, res.Status)
	assert.Equal(t, "ok.png", res.Anchor)
	assert.Empty(t, in.Snapshot())
	assert.Zero(t, screen.Calls("salvar.png"))
}

func TestSessionWrapsFatalErrors(t *testing.T) {
	dir := robottest.Images(t, "ok.png")
	exec := robottest.Executor(dir, robottest.NewScreen().Hide("ok.png"), &robottest.Input{}, robottest.NewOperator(), &robottest.Log{})

	proc := robot.Procedure{Name: "Etapa 1", Steps: []robot.Step{
		robot.Resolve(robot.Anchor("ok.png").WithTimeout(time.Second).Required()),
	}}

	_, err := robot.NewSession(exec).Run(context.Background(), proc)
	var nf *robot.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "Etapa 1")
}

func TestClickOffsetSkipDoesNotClick(t *testing.T) {
	dir := robottest.Images(t, "destino.png")
	in := &robottest.Input{}
	exec := robottest.Executor(dir, robottest.NewScreen().Hide("destino.png"), in, robottest.NewOperator(robot.Skip), &robottest.Log{})

	res, err := robot.NewSession(exec).Run(context.Background(), robot.Procedure{Steps: []robot.Step{
		robot.ClickOffset(robot.Anchor("destino.png"), 0, 20),
	}})
	require.NoError(t, err)
	assert.Equal(t, robot.ProcedureSkipped, res.Status)
	assert.Empty(t, in.Snapshot())
}
